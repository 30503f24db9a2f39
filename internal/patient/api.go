package patient

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/cardion-health/precert/internal/shared/auth"
	"github.com/cardion-health/precert/internal/shared/errors"
	"github.com/cardion-health/precert/internal/shared/events"
	"github.com/cardion-health/precert/internal/shared/types"
)

// DecisionRunner kicks off background processing for a patient.
type DecisionRunner interface {
	RunAsync(patientID types.ID)
}

// Handler provides HTTP handlers for patient intake and lifecycle
type Handler struct {
	repo   *Repository
	engine DecisionRunner
	bus    *events.Bus
}

// NewHandler creates a new patient handler
func NewHandler(repo *Repository, engine DecisionRunner, bus *events.Bus) *Handler {
	return &Handler{repo: repo, engine: engine, bus: bus}
}

// Routes registers the patient routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/archive", h.Archive)
	r.Post("/{id}/unarchive", h.Unarchive)
	r.Delete("/{id}", h.Delete)

	return r
}

// CreateRequest is the intake payload. Prior studies and the referral
// document are free text; extraction happens in the decision run.
type CreateRequest struct {
	MRN              string      `json:"mrn"`
	DateOfService    time.Time   `json:"date_of_service"`
	PatientType      PatientType `json:"patient_type"`
	ClinicalNotes    string      `json:"clinical_notes"`
	Insurance        string      `json:"insurance"`
	PriorStudies     string      `json:"prior_studies"`
	ReferralDocument *string     `json:"referral_document,omitempty"`
}

// Validate validates the request
func (req CreateRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.MRN, validation.Required, validation.Length(1, 64)),
		validation.Field(&req.DateOfService, validation.Required),
		validation.Field(&req.PatientType, validation.Required,
			validation.In(PatientTypeNew, PatientTypeFollowup)),
		validation.Field(&req.ClinicalNotes, validation.Required, validation.Length(1, 100000)),
		validation.Field(&req.Insurance, validation.Required, validation.Length(1, 200)),
	)
}

// Create registers a new authorization request and starts the decision
// run in the background. The response returns immediately with the
// patient in PROCESSING.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, errors.Validation("validation failed", map[string]string{"request": err.Error()}))
		return
	}

	p := &Patient{
		ID:               types.NewID(),
		MRN:              req.MRN,
		DateOfService:    req.DateOfService,
		PatientType:      req.PatientType,
		ClinicalNotes:    req.ClinicalNotes,
		Insurance:        req.Insurance,
		PriorStudies:     req.PriorStudies,
		ReferralDocument: req.ReferralDocument,
		Status:           StatusProcessing,
	}

	if err := h.repo.Create(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}

	if h.bus != nil {
		event := events.NewEvent(events.TypePatientCreated, "patient", map[string]any{
			"patient_id":   p.ID,
			"patient_type": p.PatientType,
		})
		if user := auth.GetUser(r.Context()); user != nil {
			event = event.WithActor(user.ID, user.Role)
		}
		h.bus.Publish(r.Context(), event)
	}

	if h.engine != nil {
		h.engine.RunAsync(p.ID)
	}

	writeJSON(w, http.StatusCreated, p)
}

// List returns patients matching the filter query parameters
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: 50}

	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		status := Status(s)
		filter.Status = &status
	}
	if d := q.Get("decision"); d != "" {
		decision := Decision(d)
		filter.Decision = &decision
	}
	if a := q.Get("archived"); a != "" {
		archived := a == "true"
		filter.Archived = &archived
	}
	filter.Search = q.Get("search")
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= 200 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset >= 0 {
		filter.Offset = offset
	}

	patients, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":   patients,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// Get returns a single patient by ID
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	p, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// Archive hides a patient from the default worklist without deleting it
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

// Unarchive restores an archived patient to the worklist
func (h *Handler) Unarchive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *Handler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	if err := h.repo.SetArchived(r.Context(), id, archived); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "archived": archived})
}

// Delete permanently removes a patient and all dependent records
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
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
