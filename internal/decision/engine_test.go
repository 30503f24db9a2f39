package decision

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/cardion-health/precert/internal/patient"
	"github.com/cardion-health/precert/internal/rules"
	"github.com/cardion-health/precert/internal/shared/types"
)

type stubPatients struct {
	patient *patient.Patient
	findErr error

	applied    *patient.DecisionOutcome
	appliedFor types.ID
}

func (s *stubPatients) FindByID(_ context.Context, id types.ID) (*patient.Patient, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.patient, nil
}

func (s *stubPatients) ApplyDecision(_ context.Context, id types.ID, outcome patient.DecisionOutcome) error {
	s.applied = &outcome
	s.appliedFor = id
	return nil
}

type stubRules struct{}

func (stubRules) List(_ context.Context) ([]rules.AuthorizationRule, error) {
	return []rules.AuthorizationRule{
		{Name: "Medicare Coverage", Criteria: "Medicare patients are covered for medically necessary studies."},
	}, nil
}

type stubCompleter struct {
	response string
	err      error
}

func (s stubCompleter) Complete(_ context.Context, _ string) (string, error) {
	return s.response, s.err
}

func testPatient() *patient.Patient {
	return &patient.Patient{
		ID:            types.NewID(),
		MRN:           "MRN-001",
		PatientType:   patient.PatientTypeNew,
		ClinicalNotes: "65yo with exertional chest pain.",
		Insurance:     "Medicare",
		Status:        patient.StatusProcessing,
	}
}

func newTestEngine(patients *stubPatients, completer Completer) *Engine {
	return NewEngine(patients, stubRules{}, nil, completer, nil, zap.NewNop())
}

// TestParseResultDirect tests decoding a bare JSON response
func TestParseResultDirect(t *testing.T) {
	raw := `{"decision": "APPROVED_CLEAN", "recommendedStudy": "NUCLEAR", "rationale": "Meets criteria.", "needsReview": false}`

	result, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Decision != patient.DecisionApprovedClean {
		t.Errorf("Expected APPROVED_CLEAN, got %s", result.Decision)
	}
	if result.RecommendedStudy != patient.StudyNuclear {
		t.Errorf("Expected NUCLEAR, got %s", result.RecommendedStudy)
	}
}

// TestParseResultProseWrapped tests extracting JSON wrapped in prose via
// the greedy outermost-brace span
func TestParseResultProseWrapped(t *testing.T) {
	raw := `Here is the result: {"needsReview": true, "decision": "APPROVED_CLEAN", "rationale": "Incomplete chart."} Let me know if you need anything else.`

	result, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !result.NeedsReview {
		t.Error("Expected needsReview true")
	}
}

// TestParseResultErrors tests responses with no usable JSON
func TestParseResultErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no braces", "I cannot process this request."},
		{"malformed object", `{"decision": "APPROVED_CLEAN",`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResult(tt.raw)
			if err == nil {
				t.Fatal("Expected error")
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("Expected *ParseError, got %T", err)
			}
		})
	}
}

// TestRunAppliesDecision tests that a clean run persists the mapped
// outcome
func TestRunAppliesDecision(t *testing.T) {
	patients := &stubPatients{patient: testPatient()}
	engine := newTestEngine(patients, stubCompleter{
		response: `{"decision": "APPROVED_CLEAN", "recommendedStudy": "STRESS_ECHO", "rationale": "Meets stress echo criteria.", "needsReview": false, "extractedName": "John Test"}`,
	})

	engine.Run(context.Background(), patients.patient.ID)

	if patients.applied == nil {
		t.Fatal("Expected an outcome to be applied")
	}
	if patients.applied.Status != patient.StatusComplete {
		t.Errorf("Expected COMPLETE, got %s", patients.applied.Status)
	}
	if patients.applied.Decision == nil || *patients.applied.Decision != patient.DecisionApprovedClean {
		t.Error("Expected APPROVED_CLEAN decision")
	}
	if patients.applied.RecommendedStudy == nil || *patients.applied.RecommendedStudy != patient.StudyStressEcho {
		t.Error("Expected STRESS_ECHO study")
	}
	if patients.applied.ExtractedName != "John Test" {
		t.Errorf("Expected extracted name, got %q", patients.applied.ExtractedName)
	}
}

// TestRunNeedsReviewIgnoresDecision tests that needsReview leaves the
// decision unset no matter what the payload claims
func TestRunNeedsReviewIgnoresDecision(t *testing.T) {
	patients := &stubPatients{patient: testPatient()}
	engine := newTestEngine(patients, stubCompleter{
		response: `{"needsReview": true, "decision": "APPROVED_CLEAN", "recommendedStudy": "NUCLEAR", "rationale": "Missing EF documentation.", "missingFields": ["Ejection fraction (normal, reduced, or unknown)"]}`,
	})

	engine.Run(context.Background(), patients.patient.ID)

	if patients.applied == nil {
		t.Fatal("Expected an outcome to be applied")
	}
	if patients.applied.Status != patient.StatusNeedsReview {
		t.Errorf("Expected NEEDS_REVIEW, got %s", patients.applied.Status)
	}
	if patients.applied.Decision != nil {
		t.Errorf("Expected decision unset, got %s", *patients.applied.Decision)
	}
	if len(patients.applied.MissingFields) != 1 {
		t.Errorf("Expected 1 missing field, got %d", len(patients.applied.MissingFields))
	}
}

// TestRunFailSafe tests that every pipeline failure converts to a
// NEEDS_REVIEW outcome instead of leaving the patient in PROCESSING
func TestRunFailSafe(t *testing.T) {
	tests := []struct {
		name      string
		completer Completer
	}{
		{"transport error", stubCompleter{err: errors.New("connection refused")}},
		{"malformed response", stubCompleter{response: "not json at all"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patients := &stubPatients{patient: testPatient()}
			engine := newTestEngine(patients, tt.completer)

			engine.Run(context.Background(), patients.patient.ID)

			if patients.applied == nil {
				t.Fatal("Expected a fail-safe outcome to be applied")
			}
			if patients.applied.Status != patient.StatusNeedsReview {
				t.Errorf("Expected NEEDS_REVIEW, got %s", patients.applied.Status)
			}
			if patients.applied.Decision != nil {
				t.Error("Expected decision unset on failure")
			}
			if len(patients.applied.MissingFields) != 1 ||
				patients.applied.MissingFields[0] != "AI processing error - manual review needed" {
				t.Errorf("Expected fail-safe missing field, got %v", patients.applied.MissingFields)
			}
		})
	}
}

// TestRunFailSafeOnMissingPatient tests the fail-over when the patient
// itself cannot be loaded
func TestRunFailSafeOnMissingPatient(t *testing.T) {
	patients := &stubPatients{findErr: errors.New("patient not found")}
	engine := newTestEngine(patients, stubCompleter{response: "{}"})

	engine.Run(context.Background(), types.NewID())

	if patients.applied == nil {
		t.Fatal("Expected a fail-safe outcome to be applied")
	}
	if patients.applied.Status != patient.StatusNeedsReview {
		t.Errorf("Expected NEEDS_REVIEW, got %s", patients.applied.Status)
	}
}
