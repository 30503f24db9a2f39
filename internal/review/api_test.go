package review

import (
	"testing"

	"github.com/cardion-health/precert/internal/patient"
	"github.com/cardion-health/precert/internal/shared/auth"
	"github.com/cardion-health/precert/internal/shared/types"
)

// TestFeedbackFromRequest tests that the submitter identity is carried
// from the authenticated user onto the feedback record.
func TestFeedbackFromRequest(t *testing.T) {
	patientID := types.NewID()
	user := &auth.User{ID: types.NewID(), Name: "Dr. Reyes", Role: "physician"}
	req := FeedbackRequest{
		Category: CategoryWrongStudy,
		Notes:    "Should have been nuclear.",
	}

	f := feedbackFromRequest(patientID, req, user)

	if f.PatientID != patientID {
		t.Errorf("PatientID = %v, want %v", f.PatientID, patientID)
	}
	if f.Category != CategoryWrongStudy {
		t.Errorf("Category = %v, want %v", f.Category, CategoryWrongStudy)
	}
	if f.SubmittedBy != user.ID.String() {
		t.Errorf("SubmittedBy = %q, want %q", f.SubmittedBy, user.ID.String())
	}
	if f.ID.IsZero() {
		t.Error("feedback ID not assigned")
	}
}

// TestFeedbackFromRequestAnonymous tests that a missing user leaves the
// submitter empty rather than panicking.
func TestFeedbackFromRequestAnonymous(t *testing.T) {
	f := feedbackFromRequest(types.NewID(), FeedbackRequest{Category: CategoryOther, Notes: "n"}, nil)

	if f.SubmittedBy != "" {
		t.Errorf("SubmittedBy = %q, want empty", f.SubmittedBy)
	}
}

// TestCitedRules tests that cited rule names are deduplicated in order.
func TestCitedRules(t *testing.T) {
	p := &patient.Patient{
		SupportingCriteria: []patient.SupportingCriterion{
			{RuleName: "nuclear_criteria"},
			{RuleName: "echo_criteria"},
			{RuleName: "nuclear_criteria"},
			{RuleName: ""},
		},
	}

	got := citedRules(p)
	want := []string{"nuclear_criteria", "echo_criteria"}
	if len(got) != len(want) {
		t.Fatalf("citedRules() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("citedRules()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
