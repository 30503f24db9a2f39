package review

import (
	"time"

	"github.com/cardion-health/precert/internal/shared/types"
)

// Status of a physician review
type Status string

const (
	StatusApproved Status = "APPROVED"
	StatusHeld     Status = "HELD"
)

// Review is a physician's verdict on a decided patient. At most one per
// patient; approve and hold overwrite any prior review.
type Review struct {
	ID        types.ID `json:"id"`
	PatientID types.ID `json:"patient_id"`

	Status       Status `json:"status"`
	ReviewerID   string `json:"reviewer_id"`
	ReviewerName string `json:"reviewer_name"`
	Notes        string `json:"notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FeedbackCategory classifies what the reviewer thought went wrong
type FeedbackCategory string

const (
	CategoryIncorrectDecision  FeedbackCategory = "INCORRECT_DECISION"
	CategoryWrongStudy         FeedbackCategory = "WRONG_STUDY"
	CategoryMissingCriteria    FeedbackCategory = "MISSING_CRITERIA"
	CategoryDocumentationIssue FeedbackCategory = "DOCUMENTATION_ISSUE"
	CategoryOther              FeedbackCategory = "OTHER"
)

// FeedbackCategories lists the valid categories
var FeedbackCategories = []FeedbackCategory{
	CategoryIncorrectDecision,
	CategoryWrongStudy,
	CategoryMissingCriteria,
	CategoryDocumentationIssue,
	CategoryOther,
}

// DecisionFeedback is one append-only disagreement record.
type DecisionFeedback struct {
	ID        types.ID  `json:"id"`
	PatientID types.ID  `json:"patient_id"`
	ReviewID  *types.ID `json:"review_id,omitempty"`

	Category             FeedbackCategory `json:"category"`
	SuggestedDecision    *string          `json:"suggested_decision,omitempty"`
	Notes                string           `json:"notes"`
	RuleUpdateSuggestion string           `json:"rule_update_suggestion"`
	IsTrainingExample    bool             `json:"is_training_example"`

	SubmittedBy string    `json:"submitted_by"`
	CreatedAt   time.Time `json:"created_at"`
}
