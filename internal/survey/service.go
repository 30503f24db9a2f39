package survey

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cardion-health/precert/internal/patient"
	"github.com/cardion-health/precert/internal/shared/errors"
	"github.com/cardion-health/precert/internal/shared/events"
	"github.com/cardion-health/precert/internal/shared/metrics"
	"github.com/cardion-health/precert/internal/shared/types"
)

// Service orchestrates survey creation and inbound message handling.
type Service struct {
	repo     *Repository
	patients *patient.Repository
	sender   Sender
	bus      *events.Bus
	log      *zap.Logger
}

// NewService creates a new survey service
func NewService(repo *Repository, patients *patient.Repository, sender Sender, bus *events.Bus, log *zap.Logger) *Service {
	return &Service{repo: repo, patients: patients, sender: sender, bus: bus, log: log}
}

// Start creates a survey for a patient and sends the first question.
// One active survey per patient at a time.
func (s *Service) Start(ctx context.Context, patientID types.ID, phone string) (*Survey, error) {
	if _, err := s.patients.FindByID(ctx, patientID); err != nil {
		return nil, err
	}

	if existing, err := s.repo.FindActiveByPatient(ctx, patientID); err == nil && existing != nil {
		return nil, errors.Conflict("An active survey already exists for this patient")
	}

	sv := &Survey{
		ID:          types.NewID(),
		PatientID:   patientID,
		PhoneNumber: phone,
		Status:      StatusPending,
		Answers:     []QuestionRecord{},
	}
	if err := s.repo.Create(ctx, sv); err != nil {
		return nil, err
	}

	if err := s.patients.LinkSurvey(ctx, patientID, sv.ID); err != nil {
		return nil, err
	}

	if err := s.sender.Send(ctx, phone, Prompt(0)); err != nil {
		s.log.Error("failed to send first survey question",
			zap.String("survey_id", sv.ID.String()), zap.Error(err))
		return sv, nil
	}

	now := time.Now()
	sv.Status = StatusInProgress
	sv.LastMessageAt = &now
	if err := s.repo.Update(ctx, sv); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeSurveyStarted, sv)
	return sv, nil
}

// HandleInbound applies one inbound SMS. Unknown numbers and provider
// retries are ignored without error; the webhook always acknowledges.
func (s *Service) HandleInbound(ctx context.Context, from, body, messageSID string) error {
	if messageSID != "" {
		first, err := s.repo.MarkProcessed(ctx, messageSID)
		if err != nil {
			return err
		}
		if !first {
			s.log.Debug("duplicate webhook delivery ignored",
				zap.String("message_sid", messageSID))
			return nil
		}
	}

	sv, err := s.repo.FindActiveByPhone(ctx, from)
	if err != nil {
		if errors.IsNotFound(err) {
			s.log.Debug("inbound sms from unknown number ignored")
			return nil
		}
		return err
	}

	if sv.Status.Terminal() {
		return nil
	}

	t := Apply(sv, body, time.Now())
	metrics.RecordSurveyTransition(string(t.Classification))

	if t.Mutated {
		if err := s.repo.Update(ctx, sv); err != nil {
			return err
		}
	}

	if t.Reply != "" {
		if err := s.sender.Send(ctx, from, t.Reply); err != nil {
			s.log.Error("failed to send survey reply",
				zap.String("survey_id", sv.ID.String()), zap.Error(err))
		}
	}

	switch sv.Status {
	case StatusCompleted:
		metrics.RecordSurveyCompleted()
		s.publish(ctx, events.TypeSurveyCompleted, sv)
	case StatusOptedOut:
		s.publish(ctx, events.TypeSurveyOptedOut, sv)
	}

	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, sv *Survey) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.NewEvent(eventType, "survey", map[string]any{
		"survey_id":  sv.ID,
		"patient_id": sv.PatientID,
		"status":     sv.Status,
	}))
}
