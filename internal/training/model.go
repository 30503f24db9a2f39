package training

import (
	"time"

	"github.com/cardion-health/precert/internal/shared/types"
)

// Example is one curated decision pattern promoted from reviewer
// feedback. Prompt augmentation consumes active examples; UsageCount
// tracks how often an example has been included.
type Example struct {
	ID types.ID `json:"id"`

	ClinicalPatternSummary string   `json:"clinical_pattern_summary"`
	CorrectDecision        string   `json:"correct_decision"`
	Rationale              string   `json:"rationale"`
	RulesCited             []string `json:"rules_cited"`

	IsActive   bool `json:"is_active"`
	UsageCount int  `json:"usage_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
