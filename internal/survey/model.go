package survey

import (
	"time"

	"github.com/cardion-health/precert/internal/shared/types"
)

// Status is the survey lifecycle state
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusOptedOut   Status = "OPTED_OUT"
)

// Terminal reports whether no further inbound message may mutate the survey.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusOptedOut
}

// Question is one entry in the fixed pre-visit symptom questionnaire.
type Question struct {
	ID          string
	Text        string
	MedicalTerm string
	HasFollowUp bool
}

// followUpText is asked after a YES on any question flagged HasFollowUp.
const followUpText = "Is this new or worse than before? Reply YES or NO."

// Questions is the fixed ordered cardiac symptom questionnaire. Order and
// content are part of the protocol; answers are recorded by index.
var Questions = []Question{
	{ID: "chest_pain", Text: "Have you had any chest pain or chest pressure recently?", MedicalTerm: "chest pain", HasFollowUp: true},
	{ID: "shortness_of_breath", Text: "Have you been short of breath with activity or at rest?", MedicalTerm: "dyspnea", HasFollowUp: true},
	{ID: "palpitations", Text: "Have you felt your heart racing, fluttering, or skipping beats?", MedicalTerm: "palpitations", HasFollowUp: true},
	{ID: "dizziness", Text: "Have you felt dizzy or lightheaded?", MedicalTerm: "dizziness", HasFollowUp: true},
	{ID: "syncope", Text: "Have you fainted or passed out?", MedicalTerm: "syncope", HasFollowUp: false},
	{ID: "fatigue", Text: "Have you been unusually tired during normal activities?", MedicalTerm: "fatigue", HasFollowUp: true},
	{ID: "leg_swelling", Text: "Have you noticed swelling in your legs, ankles, or feet?", MedicalTerm: "peripheral edema", HasFollowUp: true},
	{ID: "orthopnea", Text: "Do you need extra pillows to breathe comfortably when lying down?", MedicalTerm: "orthopnea", HasFollowUp: false},
	{ID: "leg_pain_walking", Text: "Do you get pain or cramping in your legs when walking?", MedicalTerm: "claudication", HasFollowUp: false},
	{ID: "medication_adherence", Text: "Have you been taking all of your heart medications as prescribed?", MedicalTerm: "medication adherence", HasFollowUp: false},
}

// QuestionRecord is one answered (or partially answered) question. The
// follow-up slot reuses the same record as the primary answer.
type QuestionRecord struct {
	QuestionID   string `json:"question_id"`
	QuestionText string `json:"question_text"`
	MedicalTerm  string `json:"medical_term"`

	Response    string     `json:"response,omitempty"`
	AnsweredYes *bool      `json:"answered_yes,omitempty"`
	AnsweredAt  *time.Time `json:"answered_at,omitempty"`

	FollowUpResponse    string     `json:"follow_up_response,omitempty"`
	FollowUpAnsweredYes *bool      `json:"follow_up_answered_yes,omitempty"`
	FollowUpAnsweredAt  *time.Time `json:"follow_up_answered_at,omitempty"`
}

// Survey is one patient's SMS questionnaire session.
type Survey struct {
	ID        types.ID `json:"id"`
	PatientID types.ID `json:"patient_id"`

	PhoneNumber string `json:"phone_number"`
	Status      Status `json:"status"`

	CurrentQuestionIndex int  `json:"current_question_index"`
	FollowUpPending      bool `json:"follow_up_pending"`
	InvalidReplyCount    int  `json:"invalid_reply_count"`

	Answers []QuestionRecord `json:"answers"`

	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
