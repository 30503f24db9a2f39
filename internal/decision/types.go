package decision

import (
	"fmt"

	"github.com/cardion-health/precert/internal/patient"
)

// Result is the structured payload the model must return. The entire
// model response must parse to exactly this shape (optionally wrapped
// in prose, which is stripped before decoding).
type Result struct {
	Decision           patient.Decision              `json:"decision"`
	RecommendedStudy   patient.Study                 `json:"recommendedStudy"`
	Rationale          string                        `json:"rationale"`
	DenialReason       string                        `json:"denialReason,omitempty"`
	SupportingCriteria []patient.SupportingCriterion `json:"supportingCriteria"`
	MissingFields      []string                      `json:"missingFields,omitempty"`
	NeedsReview        bool                          `json:"needsReview"`

	ExtractedName         string   `json:"extractedName"`
	ExtractedDOB          string   `json:"extractedDob"`
	ExtractedPhysician    string   `json:"extractedPhysician"`
	ExtractedDiagnoses    []string `json:"extractedDiagnoses"`
	ExtractedSymptoms     []string `json:"extractedSymptoms"`
	ExtractedPriorStudies []string `json:"extractedPriorStudies"`
}

// ParseError indicates the model response was not valid JSON after
// extraction.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("model response is not valid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
