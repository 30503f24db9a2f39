package training

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/cardion-health/precert/internal/shared/database"
	"github.com/cardion-health/precert/internal/shared/errors"
	"github.com/cardion-health/precert/internal/shared/types"
)

// Repository handles training example data access
type Repository struct {
	db *database.DB
}

// NewRepository creates a new training repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new training example
func (r *Repository) Create(ctx context.Context, e *Example) error {
	query := `
		INSERT INTO training_examples (id, clinical_pattern_summary, correct_decision,
			rationale, rules_cited, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.Pool.QueryRow(ctx, query,
		e.ID, e.ClinicalPatternSummary, e.CorrectDecision, e.Rationale, e.RulesCited, e.IsActive,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to create training example")
	}
	return nil
}

// FindByID returns a training example by ID
func (r *Repository) FindByID(ctx context.Context, id types.ID) (*Example, error) {
	query := `
		SELECT id, clinical_pattern_summary, correct_decision, rationale, rules_cited,
			is_active, usage_count, created_at, updated_at
		FROM training_examples
		WHERE id = $1`

	e, err := scanExample(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound("training example", id.String())
		}
		return nil, errors.Wrap(err, "failed to find training example")
	}
	return e, nil
}

// List returns training examples, optionally only active ones
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]Example, error) {
	query := `
		SELECT id, clinical_pattern_summary, correct_decision, rationale, rules_cited,
			is_active, usage_count, created_at, updated_at
		FROM training_examples`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list training examples")
	}
	defer rows.Close()

	examples := []Example{}
	for rows.Next() {
		e, err := scanExample(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan training example")
		}
		examples = append(examples, *e)
	}
	return examples, rows.Err()
}

// Update replaces the mutable fields of a training example
func (r *Repository) Update(ctx context.Context, e *Example) error {
	query := `
		UPDATE training_examples
		SET clinical_pattern_summary = $2,
			correct_decision = $3,
			rationale = $4,
			rules_cited = $5,
			is_active = $6,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query,
		e.ID, e.ClinicalPatternSummary, e.CorrectDecision, e.Rationale, e.RulesCited, e.IsActive)
	if err != nil {
		return errors.Wrap(err, "failed to update training example")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("training example", e.ID.String())
	}
	return nil
}

// IncrementUsage bumps the usage counter atomically
func (r *Repository) IncrementUsage(ctx context.Context, id types.ID) error {
	query := `UPDATE training_examples SET usage_count = usage_count + 1, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, "failed to increment usage")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("training example", id.String())
	}
	return nil
}

// Delete removes a training example
func (r *Repository) Delete(ctx context.Context, id types.ID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM training_examples WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete training example")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("training example", id.String())
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExample(row rowScanner) (*Example, error) {
	var e Example
	err := row.Scan(
		&e.ID, &e.ClinicalPatternSummary, &e.CorrectDecision, &e.Rationale, &e.RulesCited,
		&e.IsActive, &e.UsageCount, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if e.RulesCited == nil {
		e.RulesCited = []string{}
	}
	return &e, nil
}
