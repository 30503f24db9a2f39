package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cardion-health/precert/internal/patient"
	"github.com/cardion-health/precert/internal/rules"
	"github.com/cardion-health/precert/internal/shared/events"
	"github.com/cardion-health/precert/internal/shared/metrics"
	"github.com/cardion-health/precert/internal/shared/types"
)

// PatientStore is the slice of the patient repository the engine needs.
type PatientStore interface {
	FindByID(ctx context.Context, id types.ID) (*patient.Patient, error)
	ApplyDecision(ctx context.Context, id types.ID, outcome patient.DecisionOutcome) error
}

// RuleStore provides the current rule set.
type RuleStore interface {
	List(ctx context.Context) ([]rules.AuthorizationRule, error)
}

// EvidenceProvider formats a completed survey into prompt evidence.
// Returns "" when the patient has no completed survey.
type EvidenceProvider interface {
	EvidenceForPatient(ctx context.Context, patientID types.ID) (string, error)
}

// Engine runs the authorization decision pipeline for one patient at a
// time. Errors never propagate to the caller: every failure converts to a
// NEEDS_REVIEW outcome so a patient is never left stuck in PROCESSING.
type Engine struct {
	patients PatientStore
	rules    RuleStore
	evidence EvidenceProvider
	client   Completer
	bus      *events.Bus
	log      *zap.Logger
}

// NewEngine creates a new decision engine
func NewEngine(patients PatientStore, ruleStore RuleStore, evidence EvidenceProvider, client Completer, bus *events.Bus, log *zap.Logger) *Engine {
	return &Engine{
		patients: patients,
		rules:    ruleStore,
		evidence: evidence,
		client:   client,
		bus:      bus,
		log:      log,
	}
}

// RunAsync starts a decision run in the background. The patient's
// PROCESSING status is the only observable in-flight signal.
func (e *Engine) RunAsync(patientID types.ID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		e.Run(ctx, patientID)
	}()
}

// Run executes one decision pass. It never returns an error; failures are
// persisted as a manual-review outcome.
func (e *Engine) Run(ctx context.Context, patientID types.ID) {
	outcome, err := e.decide(ctx, patientID)
	if err != nil {
		metrics.RecordDecisionFailure()
		e.log.Warn("decision run failed, failing over to manual review",
			zap.String("patient_id", patientID.String()),
			zap.Error(err))
		outcome = failSafeOutcome(err)
	}

	if applyErr := e.patients.ApplyDecision(ctx, patientID, outcome); applyErr != nil {
		// Nothing left to fail over to; the patient stays PROCESSING until
		// a manual reprocess.
		e.log.Error("failed to persist decision outcome",
			zap.String("patient_id", patientID.String()),
			zap.Error(applyErr))
		return
	}

	e.publishOutcome(ctx, patientID, outcome, err)
}

func (e *Engine) decide(ctx context.Context, patientID types.ID) (patient.DecisionOutcome, error) {
	p, err := e.patients.FindByID(ctx, patientID)
	if err != nil {
		return patient.DecisionOutcome{}, fmt.Errorf("load patient: %w", err)
	}

	ruleSet, err := e.rules.List(ctx)
	if err != nil {
		return patient.DecisionOutcome{}, fmt.Errorf("load rules: %w", err)
	}

	surveyEvidence := ""
	if e.evidence != nil {
		surveyEvidence, err = e.evidence.EvidenceForPatient(ctx, patientID)
		if err != nil {
			return patient.DecisionOutcome{}, fmt.Errorf("load survey evidence: %w", err)
		}
	}

	prompt := BuildPrompt(p, ruleSet, surveyEvidence)

	raw, err := e.client.Complete(ctx, prompt)
	if err != nil {
		return patient.DecisionOutcome{}, err
	}

	result, err := ParseResult(raw)
	if err != nil {
		return patient.DecisionOutcome{}, err
	}

	return mapOutcome(result), nil
}

// ParseResult extracts and decodes the model's JSON payload. If the model
// wrapped the object in prose, the greedy outermost {...} span is used.
func ParseResult(raw string) (*Result, error) {
	text := strings.TrimSpace(raw)

	var result Result
	if err := json.Unmarshal([]byte(text), &result); err == nil {
		return &result, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("no JSON object found")}
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}

	return &result, nil
}

// mapOutcome maps a parsed result onto the patient patch. needsReview wins
// over whatever decision value the model produced.
func mapOutcome(r *Result) patient.DecisionOutcome {
	outcome := patient.DecisionOutcome{
		Rationale:          r.Rationale,
		DenialReason:       r.DenialReason,
		SupportingCriteria: r.SupportingCriteria,
		MissingFields:      r.MissingFields,

		ExtractedName:         r.ExtractedName,
		ExtractedDOB:          r.ExtractedDOB,
		ExtractedPhysician:    r.ExtractedPhysician,
		ExtractedDiagnoses:    r.ExtractedDiagnoses,
		ExtractedSymptoms:     r.ExtractedSymptoms,
		ExtractedPriorStudies: r.ExtractedPriorStudies,
	}

	if r.NeedsReview {
		outcome.Status = patient.StatusNeedsReview
		return outcome
	}

	outcome.Status = patient.StatusComplete
	decision := r.Decision
	study := r.RecommendedStudy
	outcome.Decision = &decision
	outcome.RecommendedStudy = &study

	return outcome
}

// failSafeOutcome converts any pipeline error into a manual-review patch.
func failSafeOutcome(err error) patient.DecisionOutcome {
	return patient.DecisionOutcome{
		Status:        patient.StatusNeedsReview,
		Rationale:     fmt.Sprintf("AI processing failed: %s. Manual review required.", err.Error()),
		MissingFields: []string{"AI processing error - manual review needed"},
	}
}

func (e *Engine) publishOutcome(ctx context.Context, patientID types.ID, outcome patient.DecisionOutcome, runErr error) {
	decisionLabel := "NEEDS_REVIEW"
	studyLabel := "NONE"
	if outcome.Decision != nil {
		decisionLabel = string(*outcome.Decision)
	}
	if outcome.RecommendedStudy != nil {
		studyLabel = string(*outcome.RecommendedStudy)
	}
	metrics.RecordDecision(decisionLabel, studyLabel)

	if e.bus == nil {
		return
	}

	eventType := events.TypeDecisionCompleted
	if runErr != nil {
		eventType = events.TypeDecisionFailed
	}

	event := events.NewEvent(eventType, "decision", map[string]any{
		"patient_id": patientID,
		"status":     outcome.Status,
		"decision":   decisionLabel,
		"study":      studyLabel,
	})
	if err := e.bus.Publish(ctx, event); err != nil {
		e.log.Warn("failed to publish decision event", zap.Error(err))
	}
}
