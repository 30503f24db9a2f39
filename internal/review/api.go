package review

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/cardion-health/precert/internal/patient"
	"github.com/cardion-health/precert/internal/shared/auth"
	"github.com/cardion-health/precert/internal/shared/errors"
	"github.com/cardion-health/precert/internal/shared/events"
	"github.com/cardion-health/precert/internal/shared/metrics"
	"github.com/cardion-health/precert/internal/shared/types"
)

// Handler provides HTTP handlers for the physician review workflow
type Handler struct {
	repo     *Repository
	patients *patient.Repository
	engine   patient.DecisionRunner
	bus      *events.Bus
}

// NewHandler creates a new review handler
func NewHandler(repo *Repository, patients *patient.Repository, engine patient.DecisionRunner, bus *events.Bus) *Handler {
	return &Handler{repo: repo, patients: patients, engine: engine, bus: bus}
}

// Routes registers the review routes, keyed by patient
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{patientID}", h.Get)
	r.Post("/{patientID}/approve", h.Approve)
	r.Post("/{patientID}/hold", h.Hold)
	r.Post("/{patientID}/feedback", h.FeedbackOnly)
	r.Post("/{patientID}/reprocess", h.Reprocess)
	r.Post("/{patientID}/addenda", h.AddAddendum)
	r.Get("/{patientID}/missing-fields", h.MissingFields)

	return r
}

// Get returns the review and feedback history for a patient
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	patientID, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	rev, err := h.repo.FindByPatient(r.Context(), patientID)
	if err != nil && !errors.IsNotFound(err) {
		writeError(w, err)
		return
	}

	feedback, err := h.repo.ListFeedback(r.Context(), patientID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"review":   rev,
		"feedback": feedback,
	})
}

// ApproveRequest carries optional reviewer notes
type ApproveRequest struct {
	Notes string `json:"notes"`
}

// Approve upserts an APPROVED review and credits the cited rules.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	patientID, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	var req ApproveRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errors.BadRequest("invalid request body"))
			return
		}
	}

	p, err := h.patients.FindByID(r.Context(), patientID)
	if err != nil {
		writeError(w, err)
		return
	}

	user := auth.GetUser(r.Context())
	rev := &Review{
		ID:        types.NewID(),
		PatientID: patientID,
		Status:    StatusApproved,
		Notes:     req.Notes,
	}
	if user != nil {
		rev.ReviewerID = user.ID.String()
		rev.ReviewerName = user.Name
	}

	if err := h.repo.Upsert(r.Context(), rev, citedRules(p)); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordReviewAction("approve")
	h.publish(r.Context(), events.TypeReviewApproved, rev, user)

	writeJSON(w, http.StatusOK, rev)
}

// HoldRequest requires notes and a paired feedback submission
type HoldRequest struct {
	Notes    string          `json:"notes"`
	Feedback FeedbackRequest `json:"feedback"`
}

// Validate validates the request
func (req HoldRequest) Validate() error {
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.Notes, validation.Required, validation.Length(1, 10000)),
	); err != nil {
		return err
	}
	return req.Feedback.Validate()
}

// FeedbackRequest is one disagreement submission
type FeedbackRequest struct {
	Category             FeedbackCategory `json:"category"`
	SuggestedDecision    *string          `json:"suggested_decision,omitempty"`
	Notes                string           `json:"notes"`
	RuleUpdateSuggestion string           `json:"rule_update_suggestion"`
}

// Validate validates the request
func (req FeedbackRequest) Validate() error {
	categories := make([]interface{}, len(FeedbackCategories))
	for i, c := range FeedbackCategories {
		categories[i] = c
	}
	return validation.ValidateStruct(&req,
		validation.Field(&req.Category, validation.Required, validation.In(categories...)),
		validation.Field(&req.Notes, validation.Required, validation.Length(1, 10000)),
	)
}

// Hold upserts a HELD review, debits the cited rules, and records the
// required feedback in the same request.
func (h *Handler) Hold(w http.ResponseWriter, r *http.Request) {
	patientID, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	var req HoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, errors.Validation("validation failed", map[string]string{"request": err.Error()}))
		return
	}

	p, err := h.patients.FindByID(r.Context(), patientID)
	if err != nil {
		writeError(w, err)
		return
	}

	user := auth.GetUser(r.Context())
	rev := &Review{
		ID:        types.NewID(),
		PatientID: patientID,
		Status:    StatusHeld,
		Notes:     req.Notes,
	}
	if user != nil {
		rev.ReviewerID = user.ID.String()
		rev.ReviewerName = user.Name
	}

	if err := h.repo.Upsert(r.Context(), rev, citedRules(p)); err != nil {
		writeError(w, err)
		return
	}

	feedback := feedbackFromRequest(patientID, req.Feedback, user)
	feedback.ReviewID = &rev.ID
	if err := h.repo.CreateFeedback(r.Context(), feedback); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordReviewAction("hold")
	h.publish(r.Context(), events.TypeReviewHeld, rev, user)

	writeJSON(w, http.StatusOK, map[string]any{
		"review":   rev,
		"feedback": feedback,
	})
}

// FeedbackOnly records feedback without a review verdict. Used for
// DENIED outcomes where there is no approve/hold action.
func (h *Handler) FeedbackOnly(w http.ResponseWriter, r *http.Request) {
	patientID, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, errors.Validation("validation failed", map[string]string{"request": err.Error()}))
		return
	}

	if _, err := h.patients.FindByID(r.Context(), patientID); err != nil {
		writeError(w, err)
		return
	}

	user := auth.GetUser(r.Context())
	feedback := feedbackFromRequest(patientID, req, user)
	if err := h.repo.CreateFeedback(r.Context(), feedback); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordReviewAction("feedback_only")
	if h.bus != nil {
		h.bus.Publish(r.Context(), events.NewEvent(events.TypeFeedbackRecorded, "review", map[string]any{
			"patient_id":  patientID,
			"feedback_id": feedback.ID,
			"category":    feedback.Category,
		}))
	}

	writeJSON(w, http.StatusCreated, feedback)
}

// Reprocess clears the decision and re-runs the engine. Used after
// NEEDS_REVIEW once the chart has been corrected.
func (h *Handler) Reprocess(w http.ResponseWriter, r *http.Request) {
	patientID, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	if err := h.patients.ResetForReprocess(r.Context(), patientID); err != nil {
		writeError(w, err)
		return
	}

	if h.engine != nil {
		h.engine.RunAsync(patientID)
	}

	metrics.RecordReviewAction("reprocess")
	writeJSON(w, http.StatusAccepted, map[string]any{
		"patient_id": patientID,
		"status":     patient.StatusProcessing,
	})
}

// AddendumRequest answers one missing-field prompt. Choice may be one of
// the parsed options or free text.
type AddendumRequest struct {
	Label  string `json:"label"`
	Choice string `json:"choice"`
}

// Validate validates the request
func (req AddendumRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Label, validation.Required, validation.Length(1, 500)),
		validation.Field(&req.Choice, validation.Required, validation.Length(1, 2000)),
	)
}

// AddAddendum records a physician's answer to a missing-field prompt
func (h *Handler) AddAddendum(w http.ResponseWriter, r *http.Request) {
	patientID, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	var req AddendumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, errors.Validation("validation failed", map[string]string{"request": err.Error()}))
		return
	}

	addedBy := ""
	if user := auth.GetUser(r.Context()); user != nil {
		addedBy = user.Name
	}

	a := patient.Addendum{
		Text:    FormatAddendum(req.Label, req.Choice),
		AddedBy: addedBy,
		AddedAt: time.Now(),
	}
	if err := h.patients.AddAddendum(r.Context(), patientID, a); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// missingFieldView is one parsed missing-field prompt
type missingFieldView struct {
	Field   string   `json:"field"`
	Label   string   `json:"label"`
	Options []string `json:"options,omitempty"`
}

// MissingFields returns the patient's missing-field prompts with any
// implicit multiple-choice options parsed out.
func (h *Handler) MissingFields(w http.ResponseWriter, r *http.Request) {
	patientID, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	p, err := h.patients.FindByID(r.Context(), patientID)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]missingFieldView, 0, len(p.MissingFields))
	for _, field := range p.MissingFields {
		label, options := ParseMissingField(field)
		views = append(views, missingFieldView{Field: field, Label: label, Options: options})
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": views})
}

func feedbackFromRequest(patientID types.ID, req FeedbackRequest, user *auth.User) *DecisionFeedback {
	f := &DecisionFeedback{
		ID:                   types.NewID(),
		PatientID:            patientID,
		Category:             req.Category,
		SuggestedDecision:    req.SuggestedDecision,
		Notes:                req.Notes,
		RuleUpdateSuggestion: req.RuleUpdateSuggestion,
	}
	if user != nil {
		f.SubmittedBy = user.ID.String()
	}
	return f
}

func citedRules(p *patient.Patient) []string {
	seen := map[string]bool{}
	names := []string{}
	for _, c := range p.SupportingCriteria {
		if c.RuleName != "" && !seen[c.RuleName] {
			seen[c.RuleName] = true
			names = append(names, c.RuleName)
		}
	}
	return names
}

func (h *Handler) publish(ctx context.Context, eventType string, rev *Review, user *auth.User) {
	if h.bus == nil {
		return
	}
	event := events.NewEvent(eventType, "review", map[string]any{
		"patient_id": rev.PatientID,
		"review_id":  rev.ID,
		"status":     rev.Status,
	})
	if user != nil {
		event = event.WithActor(user.ID, user.Role)
	}
	h.bus.Publish(ctx, event)
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
