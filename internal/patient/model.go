package patient

import (
	"time"

	"github.com/cardion-health/precert/internal/shared/types"
)

// PatientType distinguishes new referrals from follow-up visits
type PatientType string

const (
	PatientTypeNew      PatientType = "NEW"
	PatientTypeFollowup PatientType = "FOLLOWUP"
)

// Status is the processing lifecycle of an authorization request
type Status string

const (
	StatusProcessing  Status = "PROCESSING"
	StatusComplete    Status = "COMPLETE"
	StatusNeedsReview Status = "NEEDS_REVIEW"
)

// Decision is the authorization outcome
type Decision string

const (
	DecisionApprovedClean         Decision = "APPROVED_CLEAN"
	DecisionApprovedNeedsLetter   Decision = "APPROVED_NEEDS_LETTER"
	DecisionBorderlineNeedsLetter Decision = "BORDERLINE_NEEDS_LETTER"
	DecisionDenied                Decision = "DENIED"
)

// Study is a cardiology study type. StudyHierarchy orders studies by
// clinical subsumption: approval of a higher study covers the lower ones.
type Study string

const (
	StudyNuclear    Study = "NUCLEAR"
	StudyStressEcho Study = "STRESS_ECHO"
	StudyEcho       Study = "ECHO"
	StudyVascular   Study = "VASCULAR"
	StudyNone       Study = "NONE"
)

// StudyHierarchy is the fixed priority ordering used for tie-breaks.
var StudyHierarchy = []Study{StudyNuclear, StudyStressEcho, StudyEcho, StudyVascular}

// HierarchyRank returns the position of a study in the hierarchy, with
// lower meaning higher priority. Unknown studies rank last.
func HierarchyRank(s Study) int {
	for i, h := range StudyHierarchy {
		if h == s {
			return i
		}
	}
	return len(StudyHierarchy)
}

// SupportingCriterion links a decision back to the exact rule text it
// relied on and the patient evidence that matched.
type SupportingCriterion struct {
	RuleName         string `json:"rule_name"`
	Criterion        string `json:"criterion"`
	ClinicalEvidence string `json:"clinical_evidence"`
}

// Addendum is a physician-supplied clarification answering a previously
// flagged missing field.
type Addendum struct {
	Text    string    `json:"text"` // "Label: choice"
	AddedBy string    `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

// Patient is one authorization request.
type Patient struct {
	ID            types.ID    `json:"id"`
	MRN           string      `json:"mrn"`
	DateOfService time.Time   `json:"date_of_service"`
	PatientType   PatientType `json:"patient_type"`

	ClinicalNotes    string  `json:"clinical_notes"`
	Insurance        string  `json:"insurance"`
	PriorStudies     string  `json:"prior_studies"`
	ReferralDocument *string `json:"referral_document,omitempty"`

	Status Status `json:"status"`

	// Decision fields, populated by the decision engine. Decision and
	// RecommendedStudy are set together or both absent.
	Decision           *Decision             `json:"decision,omitempty"`
	RecommendedStudy   *Study                `json:"recommended_study,omitempty"`
	Rationale          string                `json:"rationale"`
	DenialReason       string                `json:"denial_reason"`
	SupportingCriteria []SupportingCriterion `json:"supporting_criteria"`
	MissingFields      []string              `json:"missing_fields"`

	ExtractedName         string   `json:"extracted_name"`
	ExtractedDOB          string   `json:"extracted_dob"`
	ExtractedPhysician    string   `json:"extracted_physician"`
	ExtractedDiagnoses    []string `json:"extracted_diagnoses"`
	ExtractedSymptoms     []string `json:"extracted_symptoms"`
	ExtractedPriorStudies []string `json:"extracted_prior_studies"`

	// Qualification overlay. QualifiedViaSymptom implies the decision was
	// forced to APPROVED_CLEAN and OriginalDecision holds the prior value.
	QualifiedViaSymptom       bool      `json:"qualified_via_symptom"`
	QualifyingSymptom         string    `json:"qualifying_symptom"`
	QualifyingRationale       string    `json:"qualifying_rationale"`
	SecondRecommendedStudy    *Study    `json:"second_recommended_study,omitempty"`
	SecondQualifyingSymptom   string    `json:"second_qualifying_symptom"`
	SecondQualifyingRationale string    `json:"second_qualifying_rationale"`
	OriginalDecision          *Decision `json:"original_decision,omitempty"`

	Addenda []Addendum `json:"addenda"`

	SMSSurveyID *types.ID `json:"sms_survey_id,omitempty"`
	Archived    bool      `json:"archived"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DecisionOutcome is the patch the decision engine applies to a patient
// when a run finishes, successfully or not.
type DecisionOutcome struct {
	Status             Status
	Decision           *Decision
	RecommendedStudy   *Study
	Rationale          string
	DenialReason       string
	SupportingCriteria []SupportingCriterion
	MissingFields      []string

	ExtractedName         string
	ExtractedDOB          string
	ExtractedPhysician    string
	ExtractedDiagnoses    []string
	ExtractedSymptoms     []string
	ExtractedPriorStudies []string
}

// Qualification is the patch applied when a physician accepts a
// suggested upgrade path.
type Qualification struct {
	Study     Study
	Symptom   string
	Rationale string
	// Second marks the optional second suggestion slot.
	Second bool
}

// ListFilter narrows patient list queries.
type ListFilter struct {
	Status   *Status
	Decision *Decision
	Archived *bool
	Search   string
	Limit    int
	Offset   int
}
