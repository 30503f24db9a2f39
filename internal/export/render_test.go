package export

import (
	"strings"
	"testing"
	"time"

	"github.com/cardion-health/precert/internal/patient"
	"github.com/cardion-health/precert/internal/review"
	"github.com/cardion-health/precert/internal/shared/types"
)

func borderlinePatient() *patient.Patient {
	decision := patient.DecisionBorderlineNeedsLetter
	study := patient.StudyNuclear
	return &patient.Patient{
		ID:                 types.NewID(),
		MRN:                "MRN-100",
		DateOfService:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:             patient.StatusComplete,
		Decision:           &decision,
		RecommendedStudy:   &study,
		Rationale:          "The ejection fraction supports nuclear imaging.",
		Insurance:          "Aetna PPO",
		ExtractedName:      "Jane Roe",
		ExtractedPhysician: "Dr. Smith",
		SupportingCriteria: []patient.SupportingCriterion{
			{RuleName: "Nuclear Stress Test Criteria", Criterion: "Known CAD with new symptoms", ClinicalEvidence: "CABG 2019, new chest pain"},
		},
		Addenda: []patient.Addendum{
			{Text: "ejection fraction: reduced", AddedBy: "Dr. Smith", AddedAt: time.Now()},
		},
	}
}

// TestRenderAttestationLetter tests the letter layout and addendum splice
func TestRenderAttestationLetter(t *testing.T) {
	p := borderlinePatient()
	rev := &review.Review{
		Status:       review.StatusApproved,
		ReviewerName: "Dr. Smith",
		UpdatedAt:    time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	}

	got := RenderAttestationLetter(p, rev, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))

	if !strings.Contains(got, "MEDICAL NECESSITY ATTESTATION") {
		t.Error("Expected letter header")
	}
	if !strings.Contains(got, "Jane Roe") {
		t.Error("Expected patient name")
	}
	if !strings.Contains(got, "reduced ejection fraction") {
		t.Errorf("Expected spliced addendum in rationale, got:\n%s", got)
	}
	if !strings.Contains(got, "Nuclear Stress Test Criteria") {
		t.Error("Expected supporting criteria")
	}
	if !strings.Contains(got, "Reviewed and approved by Dr. Smith") {
		t.Error("Expected approval line")
	}
}

// TestRenderWorklist tests the worklist block format
func TestRenderWorklist(t *testing.T) {
	p := borderlinePatient()
	p.MissingFields = []string{"Symptom status (new, worsening, or stable)"}

	got := RenderWorklist([]patient.Patient{*p}, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))

	if !strings.Contains(got, "1 patient(s)") {
		t.Error("Expected patient count")
	}
	if !strings.Contains(got, "MRN MRN-100") {
		t.Error("Expected MRN")
	}
	if !strings.Contains(got, "Missing: Symptom status") {
		t.Error("Expected missing fields line")
	}
}

// TestRenderReviewSummary tests the summary sections
func TestRenderReviewSummary(t *testing.T) {
	p := borderlinePatient()
	rev := &review.Review{Status: review.StatusHeld, ReviewerName: "Dr. Jones", Notes: "Needs EF confirmation."}
	feedback := []review.DecisionFeedback{
		{Category: review.CategoryMissingCriteria, Notes: "EF not in chart."},
	}

	got := RenderReviewSummary(p, rev, feedback)

	if !strings.Contains(got, "Review: HELD by Dr. Jones") {
		t.Error("Expected review line")
	}
	if !strings.Contains(got, "[MISSING_CRITERIA] EF not in chart.") {
		t.Error("Expected feedback line")
	}
	if !strings.Contains(got, "reduced ejection fraction") {
		t.Error("Expected spliced rationale")
	}
}
