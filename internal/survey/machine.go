package survey

import (
	"fmt"
	"strings"
	"time"
)

// Classification of an inbound message body
type Classification string

const (
	ReplyYes     Classification = "yes"
	ReplyNo      Classification = "no"
	ReplyStop    Classification = "stop"
	ReplyInvalid Classification = "invalid"
)

// invalidReplyThreshold is the number of consecutive invalid replies
// after which the current question is skipped without an answer.
const invalidReplyThreshold = 2

var (
	yesTokens  = []string{"yes", "y", "yeah", "yep", "yea", "sure"}
	noTokens   = []string{"no", "n", "nope", "nah"}
	stopTokens = []string{"stop", "unsubscribe", "cancel", "quit", "end"}
)

// Classify maps an inbound message body to a reply class. Matching is a
// case-insensitive exact match against small whitelists; anything else
// is invalid.
func Classify(body string) Classification {
	token := strings.ToLower(strings.TrimSpace(body))
	switch {
	case contains(yesTokens, token):
		return ReplyYes
	case contains(noTokens, token):
		return ReplyNo
	case contains(stopTokens, token):
		return ReplyStop
	default:
		return ReplyInvalid
	}
}

func contains(set []string, token string) bool {
	for _, t := range set {
		if t == token {
			return true
		}
	}
	return false
}

const (
	repromptMessage = "Sorry, we didn't understand that. Please reply YES or NO."
	thankYouMessage = "Thank you for completing your pre-visit symptom survey. We look forward to seeing you at your appointment."
	optOutMessage   = "You have been unsubscribed and will receive no further survey messages."
)

// Prompt formats the outbound message for the question at index i.
func Prompt(i int) string {
	return fmt.Sprintf("Q%d/%d: %s (YES/NO)", i+1, len(Questions), Questions[i].Text)
}

// Transition is the result of applying one inbound message.
type Transition struct {
	Classification Classification
	Reply          string
	Mutated        bool
}

// Apply advances the survey state machine with one inbound message body.
// It mutates the survey in place and returns the reply to send back. A
// terminal survey is never mutated.
func Apply(s *Survey, body string, now time.Time) Transition {
	class := Classify(body)

	if s.Status.Terminal() {
		return Transition{Classification: class}
	}

	s.LastMessageAt = &now
	if s.Status == StatusPending {
		s.Status = StatusInProgress
	}

	switch class {
	case ReplyStop:
		s.Status = StatusOptedOut
		s.FollowUpPending = false
		return Transition{Classification: class, Reply: optOutMessage, Mutated: true}

	case ReplyInvalid:
		s.InvalidReplyCount++
		if s.InvalidReplyCount < invalidReplyThreshold {
			return Transition{Classification: class, Reply: repromptMessage, Mutated: true}
		}
		// Skip the question without recording an answer.
		s.InvalidReplyCount = 0
		s.FollowUpPending = false
		return Transition{Classification: class, Reply: advance(s, now), Mutated: true}

	default: // yes or no
		answeredYes := class == ReplyYes
		s.InvalidReplyCount = 0

		if s.FollowUpPending {
			rec := recordAt(s, s.CurrentQuestionIndex)
			rec.FollowUpResponse = strings.TrimSpace(body)
			rec.FollowUpAnsweredYes = &answeredYes
			rec.FollowUpAnsweredAt = &now
			s.FollowUpPending = false
			return Transition{Classification: class, Reply: advance(s, now), Mutated: true}
		}

		rec := recordAt(s, s.CurrentQuestionIndex)
		rec.Response = strings.TrimSpace(body)
		rec.AnsweredYes = &answeredYes
		rec.AnsweredAt = &now

		if answeredYes && Questions[s.CurrentQuestionIndex].HasFollowUp {
			s.FollowUpPending = true
			return Transition{Classification: class, Reply: followUpText, Mutated: true}
		}

		return Transition{Classification: class, Reply: advance(s, now), Mutated: true}
	}
}

// advance moves the cursor forward one question, completing the survey
// when it passes the end of the list.
func advance(s *Survey, now time.Time) string {
	s.CurrentQuestionIndex++
	if s.CurrentQuestionIndex >= len(Questions) {
		s.Status = StatusCompleted
		s.CompletedAt = &now
		return thankYouMessage
	}
	return Prompt(s.CurrentQuestionIndex)
}

// recordAt returns the answer record for question index i, creating it
// on first use.
func recordAt(s *Survey, i int) *QuestionRecord {
	q := Questions[i]
	for idx := range s.Answers {
		if s.Answers[idx].QuestionID == q.ID {
			return &s.Answers[idx]
		}
	}
	s.Answers = append(s.Answers, QuestionRecord{
		QuestionID:   q.ID,
		QuestionText: q.Text,
		MedicalTerm:  q.MedicalTerm,
	})
	return &s.Answers[len(s.Answers)-1]
}
