package qualification

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/cardion-health/precert/internal/patient"
	"github.com/cardion-health/precert/internal/shared/auth"
	"github.com/cardion-health/precert/internal/shared/errors"
	"github.com/cardion-health/precert/internal/shared/events"
	"github.com/cardion-health/precert/internal/shared/types"
)

// Handler provides HTTP handlers for qualification suggestions
type Handler struct {
	patients *patient.Repository
	bus      *events.Bus
}

// NewHandler creates a new qualification handler
func NewHandler(patients *patient.Repository, bus *events.Bus) *Handler {
	return &Handler{patients: patients, bus: bus}
}

// Routes registers the qualification routes, keyed by patient
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{patientID}/suggestions", h.GetSuggestions)
	r.Post("/{patientID}/qualify", h.Qualify)

	return r
}

// suggestionView augments a suggestion with the scheduled-study hint used
// by the UI to choose between confirm and propose affordances.
type suggestionView struct {
	Suggestion
	AlreadyScheduled bool   `json:"already_scheduled"`
	ScheduledExcerpt string `json:"scheduled_excerpt,omitempty"`
}

// GetSuggestions returns upgrade suggestions for a denied or empty outcome
func (h *Handler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	p, err := h.patients.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	suggestions := GetSuggestions(Input{
		Diagnoses:         p.ExtractedDiagnoses,
		PriorStudies:      p.ExtractedPriorStudies,
		DateOfService:     p.DateOfService,
		AdditionalContext: append(append([]string{}, p.ExtractedSymptoms...), p.ClinicalNotes),
	})

	views := make([]suggestionView, 0, len(suggestions))
	for _, s := range suggestions {
		scheduled, excerpt := DetectScheduled(p.ClinicalNotes, s.Study)
		views = append(views, suggestionView{
			Suggestion:       s,
			AlreadyScheduled: scheduled,
			ScheduledExcerpt: excerpt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": views})
}

// QualifyRequest applies one accepted suggestion
type QualifyRequest struct {
	Study     patient.Study `json:"study"`
	Symptom   string        `json:"symptom"`
	Diagnosis string        `json:"diagnosis"`
	Second    bool          `json:"second"`
}

// Validate validates the request
func (req QualifyRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Study, validation.Required, validation.In(
			patient.StudyNuclear, patient.StudyStressEcho, patient.StudyEcho, patient.StudyVascular)),
		validation.Field(&req.Symptom, validation.Required, validation.Length(1, 500)),
		validation.Field(&req.Diagnosis, validation.Required, validation.Length(1, 500)),
	)
}

// Qualify applies a physician-confirmed symptom upgrade. The decision is
// forced to APPROVED_CLEAN and the prior value preserved; the decision
// engine is not re-run.
func (h *Handler) Qualify(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	var req QualifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, errors.Validation("validation failed", map[string]string{"request": err.Error()}))
		return
	}

	q := patient.Qualification{
		Study:     req.Study,
		Symptom:   req.Symptom,
		Rationale: BuildRationale(req.Symptom, req.Diagnosis, req.Study),
		Second:    req.Second,
	}

	if err := h.patients.ApplyQualification(r.Context(), id, q); err != nil {
		writeError(w, err)
		return
	}

	if h.bus != nil {
		event := events.NewEvent(events.TypePatientQualified, "qualification", map[string]any{
			"patient_id": id,
			"study":      req.Study,
			"symptom":    req.Symptom,
		})
		if user := auth.GetUser(r.Context()); user != nil {
			event = event.WithActor(user.ID, user.Role)
		}
		h.bus.Publish(r.Context(), event)
	}

	updated, err := h.patients.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
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
