package survey

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/cardion-health/precert/internal/shared/database"
	"github.com/cardion-health/precert/internal/shared/errors"
	"github.com/cardion-health/precert/internal/shared/types"
)

// Repository handles survey data access
type Repository struct {
	db *database.DB
}

// NewRepository creates a new survey repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

const surveyColumns = `id, patient_id, phone_number, status, current_question_index,
	follow_up_pending, invalid_reply_count, answers, last_message_at, completed_at,
	created_at, updated_at`

// Create inserts a new survey
func (r *Repository) Create(ctx context.Context, s *Survey) error {
	query := `
		INSERT INTO sms_surveys (id, patient_id, phone_number, status,
			current_question_index, follow_up_pending, invalid_reply_count, answers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.Pool.QueryRow(ctx, query,
		s.ID, s.PatientID, s.PhoneNumber, s.Status,
		s.CurrentQuestionIndex, s.FollowUpPending, s.InvalidReplyCount, s.Answers,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to create survey")
	}
	return nil
}

// FindByID returns a survey by ID
func (r *Repository) FindByID(ctx context.Context, id types.ID) (*Survey, error) {
	query := `SELECT ` + surveyColumns + ` FROM sms_surveys WHERE id = $1`

	s, err := scanSurvey(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound("survey", id.String())
		}
		return nil, errors.Wrap(err, "failed to find survey")
	}
	return s, nil
}

// FindActiveByPhone returns the survey an inbound message from the given
// number should be applied to. IN_PROGRESS wins over PENDING wins over
// COMPLETED; OPTED_OUT surveys are never returned.
func (r *Repository) FindActiveByPhone(ctx context.Context, phone string) (*Survey, error) {
	query := `
		SELECT ` + surveyColumns + `
		FROM sms_surveys
		WHERE phone_number = $1 AND status IN ('IN_PROGRESS', 'PENDING', 'COMPLETED')
		ORDER BY
			CASE status WHEN 'IN_PROGRESS' THEN 0 WHEN 'PENDING' THEN 1 ELSE 2 END,
			created_at DESC
		LIMIT 1`

	s, err := scanSurvey(r.db.Pool.QueryRow(ctx, query, phone))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound("survey", phone)
		}
		return nil, errors.Wrap(err, "failed to find survey by phone")
	}
	return s, nil
}

// FindActiveByPatient returns the patient's PENDING or IN_PROGRESS
// survey, if any.
func (r *Repository) FindActiveByPatient(ctx context.Context, patientID types.ID) (*Survey, error) {
	query := `
		SELECT ` + surveyColumns + `
		FROM sms_surveys
		WHERE patient_id = $1 AND status IN ('PENDING', 'IN_PROGRESS')
		ORDER BY created_at DESC
		LIMIT 1`

	s, err := scanSurvey(r.db.Pool.QueryRow(ctx, query, patientID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound("survey", patientID.String())
		}
		return nil, errors.Wrap(err, "failed to find active survey")
	}
	return s, nil
}

// FindCompletedByPatient returns the patient's most recent completed
// survey, if any.
func (r *Repository) FindCompletedByPatient(ctx context.Context, patientID types.ID) (*Survey, error) {
	query := `
		SELECT ` + surveyColumns + `
		FROM sms_surveys
		WHERE patient_id = $1 AND status = 'COMPLETED'
		ORDER BY completed_at DESC NULLS LAST
		LIMIT 1`

	s, err := scanSurvey(r.db.Pool.QueryRow(ctx, query, patientID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound("survey", patientID.String())
		}
		return nil, errors.Wrap(err, "failed to find completed survey")
	}
	return s, nil
}

// Update persists the full mutable state of a survey
func (r *Repository) Update(ctx context.Context, s *Survey) error {
	query := `
		UPDATE sms_surveys
		SET status = $2,
			current_question_index = $3,
			follow_up_pending = $4,
			invalid_reply_count = $5,
			answers = $6,
			last_message_at = $7,
			completed_at = $8,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query,
		s.ID, s.Status, s.CurrentQuestionIndex, s.FollowUpPending,
		s.InvalidReplyCount, s.Answers, s.LastMessageAt, s.CompletedAt)
	if err != nil {
		return errors.Wrap(err, "failed to update survey")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("survey", s.ID.String())
	}
	return nil
}

// MarkProcessed records a provider message SID and reports whether this
// is the first time it was seen. Telephony providers retry webhook
// deliveries; only the first delivery mutates state.
func (r *Repository) MarkProcessed(ctx context.Context, messageSID string) (bool, error) {
	query := `INSERT INTO processed_messages (message_sid) VALUES ($1) ON CONFLICT DO NOTHING`

	tag, err := r.db.Pool.Exec(ctx, query, messageSID)
	if err != nil {
		return false, errors.Wrap(err, "failed to record message sid")
	}
	return tag.RowsAffected() == 1, nil
}

func scanSurvey(row pgx.Row) (*Survey, error) {
	var s Survey
	err := row.Scan(
		&s.ID, &s.PatientID, &s.PhoneNumber, &s.Status, &s.CurrentQuestionIndex,
		&s.FollowUpPending, &s.InvalidReplyCount, &s.Answers, &s.LastMessageAt,
		&s.CompletedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if s.Answers == nil {
		s.Answers = []QuestionRecord{}
	}
	return &s, nil
}
