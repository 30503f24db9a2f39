package review

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/cardion-health/precert/internal/rules"
	"github.com/cardion-health/precert/internal/shared/database"
	"github.com/cardion-health/precert/internal/shared/errors"
	"github.com/cardion-health/precert/internal/shared/types"
)

// Repository handles review and feedback data access
type Repository struct {
	db    *database.DB
	rules *rules.Repository
}

// NewRepository creates a new review repository
func NewRepository(db *database.DB, ruleRepo *rules.Repository) *Repository {
	return &Repository{db: db, rules: ruleRepo}
}

// Upsert writes the review verdict and updates the cited rules' counters
// in one transaction. Approvals count as agreement, holds as
// disagreement. Counters are applied as atomic SQL increments so
// concurrent reviewers on different patients citing the same rule never
// lose updates.
func (r *Repository) Upsert(ctx context.Context, rev *Review, citedRules []string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO reviews (id, patient_id, status, reviewer_id, reviewer_name, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (patient_id) DO UPDATE SET
			status = EXCLUDED.status,
			reviewer_id = EXCLUDED.reviewer_id,
			reviewer_name = EXCLUDED.reviewer_name,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err = tx.QueryRow(ctx, query,
		rev.ID, rev.PatientID, rev.Status, rev.ReviewerID, rev.ReviewerName, rev.Notes,
	).Scan(&rev.ID, &rev.CreatedAt, &rev.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to upsert review")
	}

	if len(citedRules) > 0 {
		switch rev.Status {
		case StatusApproved:
			err = r.rules.RecordAgreement(ctx, tx, citedRules)
		case StatusHeld:
			err = r.rules.RecordDisagreement(ctx, tx, citedRules)
		}
		if err != nil {
			return errors.Wrap(err, "failed to update rule counters")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit review")
	}
	return nil
}

// FindByPatient returns the review for a patient, if any
func (r *Repository) FindByPatient(ctx context.Context, patientID types.ID) (*Review, error) {
	query := `
		SELECT id, patient_id, status, reviewer_id, reviewer_name, notes, created_at, updated_at
		FROM reviews
		WHERE patient_id = $1`

	var rev Review
	err := r.db.Pool.QueryRow(ctx, query, patientID).Scan(
		&rev.ID, &rev.PatientID, &rev.Status, &rev.ReviewerID, &rev.ReviewerName,
		&rev.Notes, &rev.CreatedAt, &rev.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound("review", patientID.String())
		}
		return nil, errors.Wrap(err, "failed to find review")
	}
	return &rev, nil
}

// CreateFeedback appends one feedback record
func (r *Repository) CreateFeedback(ctx context.Context, f *DecisionFeedback) error {
	query := `
		INSERT INTO decision_feedback (id, patient_id, review_id, category,
			suggested_decision, notes, rule_update_suggestion, is_training_example, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err := r.db.Pool.QueryRow(ctx, query,
		f.ID, f.PatientID, f.ReviewID, f.Category,
		f.SuggestedDecision, f.Notes, f.RuleUpdateSuggestion, f.IsTrainingExample, f.SubmittedBy,
	).Scan(&f.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to create feedback")
	}
	return nil
}

// ListFeedback returns all feedback for a patient, newest first
func (r *Repository) ListFeedback(ctx context.Context, patientID types.ID) ([]DecisionFeedback, error) {
	query := `
		SELECT id, patient_id, review_id, category, suggested_decision, notes,
			rule_update_suggestion, is_training_example, created_by, created_at
		FROM decision_feedback
		WHERE patient_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, patientID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list feedback")
	}
	defer rows.Close()

	feedback := []DecisionFeedback{}
	for rows.Next() {
		var f DecisionFeedback
		err := rows.Scan(
			&f.ID, &f.PatientID, &f.ReviewID, &f.Category, &f.SuggestedDecision,
			&f.Notes, &f.RuleUpdateSuggestion, &f.IsTrainingExample, &f.SubmittedBy, &f.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan feedback")
		}
		feedback = append(feedback, f)
	}
	return feedback, rows.Err()
}

// MarkTrainingExample flags a feedback record as promoted
func (r *Repository) MarkTrainingExample(ctx context.Context, feedbackID types.ID) error {
	query := `UPDATE decision_feedback SET is_training_example = TRUE WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, feedbackID)
	if err != nil {
		return errors.Wrap(err, "failed to mark training example")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("feedback", feedbackID.String())
	}
	return nil
}
