package rules

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/cardion-health/precert/internal/shared/auth"
	"github.com/cardion-health/precert/internal/shared/errors"
)

// Handler provides HTTP handlers for rule administration
type Handler struct {
	repo *Repository
}

// NewHandler creates a new rules handler
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes registers the rules routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListRules)
	r.Put("/{name}", h.UpsertRule)
	r.Get("/{name}", h.GetRule)
	r.Delete("/{name}", h.DeleteRule)
	r.Get("/performance", h.ListPerformance)

	return r
}

// ListRules lists all authorization rules
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": list})
}

// GetRule gets a rule by name
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.repo.FindByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// UpsertRuleRequest is the edit payload
type UpsertRuleRequest struct {
	Criteria string `json:"criteria"`
}

// Validate validates the request
func (req UpsertRuleRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Criteria, validation.Required, validation.Length(1, 20000)),
	)
}

// UpsertRule creates or updates a rule
func (h *Handler) UpsertRule(w http.ResponseWriter, r *http.Request) {
	var req UpsertRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, errors.Validation("validation failed", map[string]string{"criteria": err.Error()}))
		return
	}

	updatedBy := "system"
	if user := auth.GetUser(r.Context()); user != nil {
		updatedBy = user.Name
	}

	rule, err := h.repo.Upsert(r.Context(), chi.URLParam(r, "name"), req.Criteria, updatedBy)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// DeleteRule removes a rule
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListPerformance lists agreement counters for all rules
func (h *Handler) ListPerformance(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListPerformance(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": list})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
