package training

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/cardion-health/precert/internal/shared/errors"
	"github.com/cardion-health/precert/internal/shared/types"
)

// FeedbackMarker flags a reviewer feedback record as promoted.
// Satisfied by the review repository.
type FeedbackMarker interface {
	MarkTrainingExample(ctx context.Context, feedbackID types.ID) error
}

// Handler provides HTTP handlers for training example curation
type Handler struct {
	repo     *Repository
	feedback FeedbackMarker
}

// NewHandler creates a new training handler
func NewHandler(repo *Repository, feedback FeedbackMarker) *Handler {
	return &Handler{repo: repo, feedback: feedback}
}

// Routes registers the training routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Post("/promote", h.Promote)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

// UpsertRequest carries the editable fields of a training example
type UpsertRequest struct {
	ClinicalPatternSummary string   `json:"clinical_pattern_summary"`
	CorrectDecision        string   `json:"correct_decision"`
	Rationale              string   `json:"rationale"`
	RulesCited             []string `json:"rules_cited"`
	IsActive               *bool    `json:"is_active,omitempty"`
}

// Validate validates the request
func (req UpsertRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.ClinicalPatternSummary, validation.Required, validation.Length(1, 10000)),
		validation.Field(&req.CorrectDecision, validation.Required, validation.In(
			"APPROVED_CLEAN", "APPROVED_NEEDS_LETTER", "BORDERLINE_NEEDS_LETTER", "DENIED")),
		validation.Field(&req.Rationale, validation.Length(0, 10000)),
	)
}

// Create adds a new training example
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, errors.Validation("validation failed", map[string]string{"request": err.Error()}))
		return
	}

	e := &Example{
		ID:                     types.NewID(),
		ClinicalPatternSummary: req.ClinicalPatternSummary,
		CorrectDecision:        req.CorrectDecision,
		Rationale:              req.Rationale,
		RulesCited:             req.RulesCited,
		IsActive:               true,
	}
	if req.IsActive != nil {
		e.IsActive = *req.IsActive
	}
	if e.RulesCited == nil {
		e.RulesCited = []string{}
	}

	if err := h.repo.Create(r.Context(), e); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, e)
}

// PromoteRequest curates a training example out of a feedback record.
// The physician writes the pattern; the source feedback is flagged so it
// is not promoted twice.
type PromoteRequest struct {
	FeedbackID types.ID `json:"feedback_id"`
	UpsertRequest
}

// Validate validates the request
func (req PromoteRequest) Validate() error {
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.FeedbackID, validation.Required),
	); err != nil {
		return err
	}
	return req.UpsertRequest.Validate()
}

// Promote creates an active training example from reviewer feedback
func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	var req PromoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, errors.Validation("validation failed", map[string]string{"request": err.Error()}))
		return
	}

	if err := h.feedback.MarkTrainingExample(r.Context(), req.FeedbackID); err != nil {
		writeError(w, err)
		return
	}

	e := &Example{
		ID:                     types.NewID(),
		ClinicalPatternSummary: req.ClinicalPatternSummary,
		CorrectDecision:        req.CorrectDecision,
		Rationale:              req.Rationale,
		RulesCited:             req.RulesCited,
		IsActive:               true,
	}
	if e.RulesCited == nil {
		e.RulesCited = []string{}
	}

	if err := h.repo.Create(r.Context(), e); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, e)
}

// List returns training examples; ?active=true filters to active ones
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	examples, err := h.repo.List(r.Context(), activeOnly)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": examples})
}

// Get returns a training example by ID
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid training example ID"))
		return
	}

	e, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, e)
}

// Update replaces a training example's editable fields
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid training example ID"))
		return
	}

	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, errors.Validation("validation failed", map[string]string{"request": err.Error()}))
		return
	}

	e, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	e.ClinicalPatternSummary = req.ClinicalPatternSummary
	e.CorrectDecision = req.CorrectDecision
	e.Rationale = req.Rationale
	if req.RulesCited != nil {
		e.RulesCited = req.RulesCited
	}
	if req.IsActive != nil {
		e.IsActive = *req.IsActive
	}

	if err := h.repo.Update(r.Context(), e); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, e)
}

// Delete removes a training example
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid training example ID"))
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
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
