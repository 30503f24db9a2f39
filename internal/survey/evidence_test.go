package survey

import (
	"strings"
	"testing"
	"time"
)

func boolPtr(b bool) *bool { return &b }

// TestFormatEvidence tests the deterministic evidence block
func TestFormatEvidence(t *testing.T) {
	now := time.Now()
	sv := &Survey{
		Status: StatusCompleted,
		Answers: []QuestionRecord{
			{
				QuestionID:          "chest_pain",
				MedicalTerm:         "chest pain",
				AnsweredYes:         boolPtr(true),
				AnsweredAt:          &now,
				FollowUpAnsweredYes: boolPtr(true),
			},
			{
				QuestionID:          "shortness_of_breath",
				MedicalTerm:         "dyspnea",
				AnsweredYes:         boolPtr(true),
				FollowUpAnsweredYes: boolPtr(false),
			},
			{
				QuestionID:  "syncope",
				MedicalTerm: "syncope",
				AnsweredYes: boolPtr(false),
			},
		},
	}

	got := FormatEvidence(sv)

	if !strings.Contains(got, "chest pain (NEW/WORSENING)") {
		t.Errorf("Expected new/worsening annotation, got:\n%s", got)
	}
	if !strings.Contains(got, "dyspnea (stable/chronic)") {
		t.Errorf("Expected stable/chronic annotation, got:\n%s", got)
	}
	if !strings.Contains(got, "Denied symptoms:\n- syncope") {
		t.Errorf("Expected denied symptom, got:\n%s", got)
	}

	// Questionnaire order, not answer order.
	chestIdx := strings.Index(got, "chest pain")
	dyspneaIdx := strings.Index(got, "dyspnea")
	if chestIdx == -1 || dyspneaIdx == -1 || chestIdx > dyspneaIdx {
		t.Errorf("Expected questionnaire ordering, got:\n%s", got)
	}

	// Deterministic across calls.
	if again := FormatEvidence(sv); again != got {
		t.Error("Expected identical output across calls")
	}
}

// TestFormatEvidenceEmpty tests a survey with no recorded answers
func TestFormatEvidenceEmpty(t *testing.T) {
	if got := FormatEvidence(&Survey{Status: StatusCompleted}); got != "" {
		t.Errorf("Expected empty evidence, got %q", got)
	}
}
