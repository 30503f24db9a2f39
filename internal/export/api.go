package export

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cardion-health/precert/internal/patient"
	"github.com/cardion-health/precert/internal/review"
	"github.com/cardion-health/precert/internal/shared/errors"
	"github.com/cardion-health/precert/internal/shared/types"
)

// Handler serves plain-text document renders
type Handler struct {
	patients *patient.Repository
	reviews  *review.Repository
}

// NewHandler creates a new export handler
func NewHandler(patients *patient.Repository, reviews *review.Repository) *Handler {
	return &Handler{patients: patients, reviews: reviews}
}

// Routes registers the export routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/worklist", h.Worklist)
	r.Get("/{patientID}/letter", h.Letter)
	r.Get("/{patientID}/summary", h.Summary)

	return r
}

// Letter renders the medical necessity attestation letter. Only
// decisions that require a letter have one.
func (h *Handler) Letter(w http.ResponseWriter, r *http.Request) {
	p, rev, ok := h.load(w, r)
	if !ok {
		return
	}

	if p.Decision == nil ||
		(*p.Decision != patient.DecisionApprovedNeedsLetter &&
			*p.Decision != patient.DecisionBorderlineNeedsLetter) {
		writeError(w, errors.BadRequest("patient decision does not require a letter"))
		return
	}

	writeText(w, RenderAttestationLetter(p, rev, time.Now()))
}

// Summary renders the review summary for one patient
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	p, rev, ok := h.load(w, r)
	if !ok {
		return
	}

	feedback, err := h.reviews.ListFeedback(r.Context(), p.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeText(w, RenderReviewSummary(p, rev, feedback))
}

// Worklist renders the provider worklist over the current unarchived
// completed patients.
func (h *Handler) Worklist(w http.ResponseWriter, r *http.Request) {
	archived := false
	status := patient.StatusComplete
	patients, _, err := h.patients.List(r.Context(), patient.ListFilter{
		Status:   &status,
		Archived: &archived,
		Limit:    200,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeText(w, RenderWorklist(patients, time.Now()))
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*patient.Patient, *review.Review, bool) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return nil, nil, false
	}

	p, err := h.patients.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}

	rev, err := h.reviews.FindByPatient(r.Context(), id)
	if err != nil {
		if !errors.IsNotFound(err) {
			writeError(w, err)
			return nil, nil, false
		}
		rev = nil
	}

	return p, rev, true
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
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
