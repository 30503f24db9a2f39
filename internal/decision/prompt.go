package decision

import (
	"fmt"
	"strings"

	"github.com/cardion-health/precert/internal/patient"
	"github.com/cardion-health/precert/internal/rules"
)

// BuildPrompt assembles the grounding prompt: the full rule set verbatim,
// the patient record, the survey evidence block when present, and the
// response-format contract.
func BuildPrompt(p *patient.Patient, ruleSet []rules.AuthorizationRule, surveyEvidence string) string {
	var sb strings.Builder

	sb.WriteString("You are a cardiology prior-authorization reviewer. Evaluate the patient record below strictly against the authorization criteria and respond with a single JSON object.\n\n")

	sb.WriteString("=== AUTHORIZATION CRITERIA ===\n\n")
	for _, rule := range ruleSet {
		sb.WriteString("## ")
		sb.WriteString(rule.Name)
		sb.WriteString("\n")
		sb.WriteString(rule.Criteria)
		sb.WriteString("\n\n")
	}

	sb.WriteString("=== PATIENT RECORD ===\n")
	fmt.Fprintf(&sb, "MRN: %s\n", p.MRN)
	fmt.Fprintf(&sb, "Date of service: %s\n", p.DateOfService.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Patient type: %s\n", p.PatientType)
	fmt.Fprintf(&sb, "Insurance: %s\n", p.Insurance)
	fmt.Fprintf(&sb, "Prior studies: %s\n", p.PriorStudies)
	fmt.Fprintf(&sb, "Clinical notes:\n%s\n", p.ClinicalNotes)

	if surveyEvidence != "" {
		sb.WriteString("\n=== PATIENT-REPORTED SYMPTOMS (SMS survey) ===\n")
		sb.WriteString(surveyEvidence)
		sb.WriteString("\n")
	}

	sb.WriteString(`
=== DECISION RULES ===
- Traditional Medicare (Part A/B) auto-approves: decision APPROVED_CLEAN.
- Medicare Advantage is a commercial plan; apply the commercial criteria.
- Study hierarchy is NUCLEAR > STRESS_ECHO > ECHO > VASCULAR; approval of a higher study subsumes the lower ones.
- If critical information is missing, set needsReview to true and list the missing fields; never deny for missing information alone.
- Every supportingCriteria entry must quote the exact rule text matched and the patient evidence that matched it.

=== RESPONSE FORMAT ===
Respond with exactly one JSON object and nothing else:
{
  "decision": "APPROVED_CLEAN" | "APPROVED_NEEDS_LETTER" | "BORDERLINE_NEEDS_LETTER" | "DENIED",
  "recommendedStudy": "NUCLEAR" | "STRESS_ECHO" | "ECHO" | "VASCULAR" | "NONE",
  "rationale": "...",
  "denialReason": "...",
  "supportingCriteria": [{"rule_name": "...", "criterion": "exact rule text", "clinical_evidence": "matched patient evidence"}],
  "missingFields": ["..."],
  "needsReview": false,
  "extractedName": "...",
  "extractedDob": "...",
  "extractedPhysician": "...",
  "extractedDiagnoses": ["..."],
  "extractedSymptoms": ["..."],
  "extractedPriorStudies": ["..."]
}
`)

	return sb.String()
}
