package survey

import (
	"context"
	"fmt"
	"strings"

	"github.com/cardion-health/precert/internal/shared/errors"
	"github.com/cardion-health/precert/internal/shared/types"
)

// EvidenceForPatient formats a patient's most recent completed survey
// into the evidence block consumed by the decision prompt. Returns an
// empty string when the patient has no completed survey.
//
// Output is deterministic: positive symptoms in questionnaire order with
// a NEW/WORSENING or stable/chronic annotation from the follow-up
// answer, then denied symptoms in questionnaire order.
func (r *Repository) EvidenceForPatient(ctx context.Context, patientID types.ID) (string, error) {
	sv, err := r.FindCompletedByPatient(ctx, patientID)
	if err != nil {
		if errors.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}

	return FormatEvidence(sv), nil
}

// FormatEvidence renders the evidence block for a completed survey.
func FormatEvidence(sv *Survey) string {
	byID := make(map[string]*QuestionRecord, len(sv.Answers))
	for i := range sv.Answers {
		byID[sv.Answers[i].QuestionID] = &sv.Answers[i]
	}

	var positive, denied []string
	for _, q := range Questions {
		rec, ok := byID[q.ID]
		if !ok || rec.AnsweredYes == nil {
			continue
		}
		if !*rec.AnsweredYes {
			denied = append(denied, q.MedicalTerm)
			continue
		}

		annotation := ""
		if rec.FollowUpAnsweredYes != nil {
			if *rec.FollowUpAnsweredYes {
				annotation = " (NEW/WORSENING)"
			} else {
				annotation = " (stable/chronic)"
			}
		}
		positive = append(positive, q.MedicalTerm+annotation)
	}

	if len(positive) == 0 && len(denied) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("PATIENT-REPORTED SYMPTOMS (pre-visit SMS survey):\n")

	if len(positive) > 0 {
		b.WriteString("Reported symptoms:\n")
		for _, p := range positive {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	if len(denied) > 0 {
		b.WriteString("Denied symptoms:\n")
		for _, d := range denied {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
