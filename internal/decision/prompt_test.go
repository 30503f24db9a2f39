package decision

import (
	"strings"
	"testing"
	"time"

	"github.com/cardion-health/precert/internal/patient"
	"github.com/cardion-health/precert/internal/rules"
)

// TestBuildPrompt tests that the prompt carries the rule set verbatim, the
// patient record, and the response contract.
func TestBuildPrompt(t *testing.T) {
	p := &patient.Patient{
		MRN:           "MRN-1001",
		DateOfService: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		PatientType:   "NEW",
		Insurance:     "Medicare Advantage PPO",
		PriorStudies:  "Echo 2021",
		ClinicalNotes: "Exertional chest pain, history of CABG.",
	}
	ruleSet := []rules.AuthorizationRule{
		{Name: "nuclear_criteria", Criteria: "Prior revascularization qualifies for nuclear imaging."},
		{Name: "echo_criteria", Criteria: "New murmur qualifies for echo."},
	}

	prompt := BuildPrompt(p, ruleSet, "")

	for _, want := range []string{
		"## nuclear_criteria",
		"Prior revascularization qualifies for nuclear imaging.",
		"## echo_criteria",
		"MRN: MRN-1001",
		"Date of service: 2025-06-15",
		"Insurance: Medicare Advantage PPO",
		"Exertional chest pain, history of CABG.",
		"Traditional Medicare (Part A/B) auto-approves",
		"NUCLEAR > STRESS_ECHO > ECHO > VASCULAR",
		"set needsReview to true",
		`"supportingCriteria"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("BuildPrompt() missing %q", want)
		}
	}

	if strings.Contains(prompt, "PATIENT-REPORTED SYMPTOMS") {
		t.Error("BuildPrompt() included a survey section with no evidence")
	}

	// Rules appear in the order given.
	if strings.Index(prompt, "nuclear_criteria") > strings.Index(prompt, "echo_criteria") {
		t.Error("BuildPrompt() reordered rules")
	}
}

// TestBuildPromptWithEvidence tests that a completed survey's evidence block
// is embedded between the record and the decision rules.
func TestBuildPromptWithEvidence(t *testing.T) {
	p := &patient.Patient{MRN: "MRN-2", DateOfService: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)}
	evidence := "PATIENT-REPORTED SYMPTOMS (pre-visit SMS survey):\n- Chest pain (NEW/WORSENING)"

	prompt := BuildPrompt(p, nil, evidence)

	if !strings.Contains(prompt, evidence) {
		t.Fatal("BuildPrompt() did not embed the survey evidence block")
	}
	if strings.Index(prompt, evidence) > strings.Index(prompt, "=== DECISION RULES ===") {
		t.Error("BuildPrompt() placed evidence after the decision rules")
	}
}
