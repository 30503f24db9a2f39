package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/cardion-health/precert/internal/patient"
	"github.com/cardion-health/precert/internal/review"
)

// splicedRationale applies the patient's addenda to the decision
// rationale before rendering.
func splicedRationale(p *patient.Patient) string {
	texts := make([]string, 0, len(p.Addenda))
	for _, a := range p.Addenda {
		texts = append(texts, a.Text)
	}
	return review.ApplyAddenda(p.Rationale, texts)
}

func decisionLabel(p *patient.Patient) string {
	if p.Decision == nil {
		return string(p.Status)
	}
	return string(*p.Decision)
}

func studyLabel(p *patient.Patient) string {
	if p.RecommendedStudy == nil {
		return "None"
	}
	return string(*p.RecommendedStudy)
}

// RenderAttestationLetter produces the plain-text medical necessity
// letter for borderline and needs-letter approvals.
func RenderAttestationLetter(p *patient.Patient, rev *review.Review, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "MEDICAL NECESSITY ATTESTATION\n")
	fmt.Fprintf(&b, "Date: %s\n\n", now.Format("January 2, 2006"))

	fmt.Fprintf(&b, "Patient: %s\n", orUnknown(p.ExtractedName))
	fmt.Fprintf(&b, "Date of Birth: %s\n", orUnknown(p.ExtractedDOB))
	fmt.Fprintf(&b, "MRN: %s\n", p.MRN)
	fmt.Fprintf(&b, "Date of Service: %s\n", p.DateOfService.Format("January 2, 2006"))
	fmt.Fprintf(&b, "Referring Physician: %s\n\n", orUnknown(p.ExtractedPhysician))

	fmt.Fprintf(&b, "Requested Study: %s\n", studyLabel(p))
	fmt.Fprintf(&b, "Insurance: %s\n\n", p.Insurance)

	b.WriteString("CLINICAL JUSTIFICATION\n\n")
	b.WriteString(splicedRationale(p))
	b.WriteString("\n")

	if len(p.SupportingCriteria) > 0 {
		b.WriteString("\nSUPPORTING CRITERIA\n")
		for _, c := range p.SupportingCriteria {
			fmt.Fprintf(&b, "- [%s] %s\n  Evidence: %s\n", c.RuleName, c.Criterion, c.ClinicalEvidence)
		}
	}

	if p.QualifiedViaSymptom {
		b.WriteString("\nSYMPTOM-BASED QUALIFICATION\n")
		fmt.Fprintf(&b, "%s\n", p.QualifyingRationale)
	}

	if rev != nil && rev.Status == review.StatusApproved {
		fmt.Fprintf(&b, "\nReviewed and approved by %s on %s.\n",
			rev.ReviewerName, rev.UpdatedAt.Format("January 2, 2006"))
	}

	return b.String()
}

// RenderWorklist produces the plain-text provider worklist for a set of
// patients, one block per patient.
func RenderWorklist(patients []patient.Patient, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "PROVIDER WORKLIST — %s\n", now.Format("January 2, 2006"))
	fmt.Fprintf(&b, "%d patient(s)\n\n", len(patients))

	for i := range patients {
		p := &patients[i]
		fmt.Fprintf(&b, "%s  MRN %s  DOS %s\n",
			orUnknown(p.ExtractedName), p.MRN, p.DateOfService.Format("2006-01-02"))
		fmt.Fprintf(&b, "  Decision: %s  Study: %s\n", decisionLabel(p), studyLabel(p))
		if len(p.MissingFields) > 0 {
			fmt.Fprintf(&b, "  Missing: %s\n", strings.Join(p.MissingFields, "; "))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderReviewSummary produces the plain-text summary of one patient's
// decision and review state.
func RenderReviewSummary(p *patient.Patient, rev *review.Review, feedback []review.DecisionFeedback) string {
	var b strings.Builder

	fmt.Fprintf(&b, "REVIEW SUMMARY — %s (MRN %s)\n\n", orUnknown(p.ExtractedName), p.MRN)
	fmt.Fprintf(&b, "Status: %s\n", p.Status)
	fmt.Fprintf(&b, "Decision: %s\n", decisionLabel(p))
	fmt.Fprintf(&b, "Recommended Study: %s\n\n", studyLabel(p))

	b.WriteString("Rationale:\n")
	b.WriteString(splicedRationale(p))
	b.WriteString("\n")

	if p.DenialReason != "" {
		fmt.Fprintf(&b, "\nDenial Reason: %s\n", p.DenialReason)
	}

	if len(p.MissingFields) > 0 {
		b.WriteString("\nMissing Fields:\n")
		for _, f := range p.MissingFields {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	if len(p.Addenda) > 0 {
		b.WriteString("\nAddenda:\n")
		for _, a := range p.Addenda {
			fmt.Fprintf(&b, "- %s (%s, %s)\n", a.Text, a.AddedBy, a.AddedAt.Format("2006-01-02"))
		}
	}

	if rev != nil {
		fmt.Fprintf(&b, "\nReview: %s by %s\n", rev.Status, rev.ReviewerName)
		if rev.Notes != "" {
			fmt.Fprintf(&b, "Notes: %s\n", rev.Notes)
		}
	}

	if len(feedback) > 0 {
		b.WriteString("\nFeedback:\n")
		for _, f := range feedback {
			fmt.Fprintf(&b, "- [%s] %s\n", f.Category, f.Notes)
		}
	}

	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
