package survey

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cardion-health/precert/internal/shared/types"
)

func newTestSurvey() *Survey {
	return &Survey{
		ID:          types.NewID(),
		PatientID:   types.NewID(),
		PhoneNumber: "+15555550100",
		Status:      StatusInProgress,
		Answers:     []QuestionRecord{},
	}
}

// TestClassify tests inbound message classification
func TestClassify(t *testing.T) {
	tests := []struct {
		body string
		want Classification
	}{
		{"YES", ReplyYes},
		{"yes", ReplyYes},
		{"  Y  ", ReplyYes},
		{"yeah", ReplyYes},
		{"no", ReplyNo},
		{"NO", ReplyNo},
		{"Nope", ReplyNo},
		{"STOP", ReplyStop},
		{"stop", ReplyStop},
		{"unsubscribe", ReplyStop},
		{"maybe", ReplyInvalid},
		{"yes please", ReplyInvalid},
		{"", ReplyInvalid},
		{"7", ReplyInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			if got := Classify(tt.body); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.body, got, tt.want)
			}
		})
	}
}

// TestFollowUpFlow tests that a YES on a follow-up question holds the
// cursor, records the next reply as the follow-up, then advances
func TestFollowUpFlow(t *testing.T) {
	s := newTestSurvey()
	now := time.Now()

	if !Questions[0].HasFollowUp {
		t.Fatal("expected first question to have a follow-up")
	}

	tr := Apply(s, "YES", now)
	if tr.Reply != followUpText {
		t.Errorf("Expected follow-up prompt, got %q", tr.Reply)
	}
	if s.CurrentQuestionIndex != 0 {
		t.Errorf("Expected index 0 after primary YES, got %d", s.CurrentQuestionIndex)
	}
	if !s.FollowUpPending {
		t.Error("Expected followUpPending to be set")
	}

	tr = Apply(s, "no", now)
	if s.CurrentQuestionIndex != 1 {
		t.Errorf("Expected index 1 after follow-up answer, got %d", s.CurrentQuestionIndex)
	}
	if s.FollowUpPending {
		t.Error("Expected followUpPending to be cleared")
	}
	if tr.Reply != Prompt(1) {
		t.Errorf("Expected prompt for question 2, got %q", tr.Reply)
	}
	if !strings.HasPrefix(tr.Reply, fmt.Sprintf("Q2/%d:", len(Questions))) {
		t.Errorf("Expected Q2/%d prefix, got %q", len(Questions), tr.Reply)
	}

	rec := s.Answers[0]
	if rec.AnsweredYes == nil || !*rec.AnsweredYes {
		t.Error("Expected primary answer recorded as yes")
	}
	if rec.FollowUpAnsweredYes == nil || *rec.FollowUpAnsweredYes {
		t.Error("Expected follow-up answer recorded as no")
	}
}

// TestStopOptsOut tests that STOP terminates the survey
func TestStopOptsOut(t *testing.T) {
	s := newTestSurvey()

	tr := Apply(s, "STOP", time.Now())
	if s.Status != StatusOptedOut {
		t.Errorf("Expected OPTED_OUT, got %s", s.Status)
	}
	if tr.Reply != optOutMessage {
		t.Errorf("Expected opt-out message, got %q", tr.Reply)
	}

	// Terminal state: further messages mutate nothing.
	before := s.CurrentQuestionIndex
	tr = Apply(s, "yes", time.Now())
	if tr.Mutated {
		t.Error("Expected no mutation on terminal survey")
	}
	if s.CurrentQuestionIndex != before {
		t.Error("Expected cursor unchanged on terminal survey")
	}
}

// TestInvalidReplyCap tests the two-strike skip policy
func TestInvalidReplyCap(t *testing.T) {
	s := newTestSurvey()
	now := time.Now()

	tr := Apply(s, "banana", now)
	if tr.Reply != repromptMessage {
		t.Errorf("Expected re-prompt after first invalid, got %q", tr.Reply)
	}
	if s.CurrentQuestionIndex != 0 {
		t.Errorf("Expected index unchanged after first invalid, got %d", s.CurrentQuestionIndex)
	}
	if s.InvalidReplyCount != 1 {
		t.Errorf("Expected invalid count 1, got %d", s.InvalidReplyCount)
	}

	tr = Apply(s, "mango", now)
	if s.CurrentQuestionIndex != 1 {
		t.Errorf("Expected force-advance to index 1, got %d", s.CurrentQuestionIndex)
	}
	if s.InvalidReplyCount != 0 {
		t.Errorf("Expected invalid count reset, got %d", s.InvalidReplyCount)
	}
	if tr.Reply != Prompt(1) {
		t.Errorf("Expected prompt for next question, got %q", tr.Reply)
	}
	if len(s.Answers) != 0 {
		t.Error("Expected no answer recorded for skipped question")
	}
}

// TestInvalidCountResetsOnValidReply tests that a valid reply clears the
// invalid counter
func TestInvalidCountResetsOnValidReply(t *testing.T) {
	s := newTestSurvey()
	now := time.Now()

	Apply(s, "???", now)
	Apply(s, "no", now)
	if s.InvalidReplyCount != 0 {
		t.Errorf("Expected invalid count 0 after valid reply, got %d", s.InvalidReplyCount)
	}

	// A later single invalid must re-prompt, not skip.
	tr := Apply(s, "???", now)
	if tr.Reply != repromptMessage {
		t.Errorf("Expected re-prompt, got %q", tr.Reply)
	}
}

// TestProgressionToCompletion tests that answering every question
// completes the survey and that completion is idempotent-terminal
func TestProgressionToCompletion(t *testing.T) {
	s := newTestSurvey()
	now := time.Now()

	var lastReply string
	for i := 0; s.Status == StatusInProgress; i++ {
		if i > 3*len(Questions) {
			t.Fatal("survey did not complete")
		}
		// "no" never triggers a follow-up, so every reply advances.
		prev := s.CurrentQuestionIndex
		tr := Apply(s, "no", now)
		lastReply = tr.Reply
		if s.Status == StatusInProgress && s.CurrentQuestionIndex != prev+1 {
			t.Fatalf("Expected strict cursor increase, got %d -> %d", prev, s.CurrentQuestionIndex)
		}
	}

	if s.Status != StatusCompleted {
		t.Fatalf("Expected COMPLETED, got %s", s.Status)
	}
	if lastReply != thankYouMessage {
		t.Errorf("Expected thank-you message, got %q", lastReply)
	}
	if s.CompletedAt == nil {
		t.Error("Expected completedAt to be set")
	}
	if len(s.Answers) != len(Questions) {
		t.Errorf("Expected %d answers, got %d", len(Questions), len(s.Answers))
	}

	tr := Apply(s, "yes", now)
	if tr.Mutated {
		t.Error("Expected no mutation after completion")
	}
}

// TestPendingSurveyActivatesOnFirstReply tests the PENDING to
// IN_PROGRESS transition
func TestPendingSurveyActivatesOnFirstReply(t *testing.T) {
	s := newTestSurvey()
	s.Status = StatusPending

	Apply(s, "no", time.Now())
	if s.Status != StatusInProgress {
		t.Errorf("Expected IN_PROGRESS, got %s", s.Status)
	}
	if s.LastMessageAt == nil {
		t.Error("Expected lastMessageAt to be set")
	}
}

// TestPromptFormat tests the outgoing question format
func TestPromptFormat(t *testing.T) {
	want := fmt.Sprintf("Q1/%d: %s (YES/NO)", len(Questions), Questions[0].Text)
	if got := Prompt(0); got != want {
		t.Errorf("Prompt(0) = %q, want %q", got, want)
	}
}
