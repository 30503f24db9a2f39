package rules

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardion-health/precert/internal/shared/errors"
	"github.com/cardion-health/precert/internal/shared/types"
)

// Repository provides database operations for authorization rules
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new rules repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all rules ordered by name
func (r *Repository) List(ctx context.Context) ([]AuthorizationRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, criteria, updated_by, created_at, updated_at
		FROM authorization_rules
		ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list rules")
	}
	defer rows.Close()

	var result []AuthorizationRule
	for rows.Next() {
		var rule AuthorizationRule
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.Criteria, &rule.UpdatedBy, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan rule")
		}
		result = append(result, rule)
	}

	return result, nil
}

// FindByName finds a rule by its unique name
func (r *Repository) FindByName(ctx context.Context, name string) (*AuthorizationRule, error) {
	var rule AuthorizationRule
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, criteria, updated_by, created_at, updated_at
		FROM authorization_rules
		WHERE name = $1`, name).
		Scan(&rule.ID, &rule.Name, &rule.Criteria, &rule.UpdatedBy, &rule.CreatedAt, &rule.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("rule", name)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find rule")
	}

	return &rule, nil
}

// Upsert creates or updates a rule by name
func (r *Repository) Upsert(ctx context.Context, name, criteria, updatedBy string) (*AuthorizationRule, error) {
	var rule AuthorizationRule
	err := r.pool.QueryRow(ctx, `
		INSERT INTO authorization_rules (id, name, criteria, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			criteria = EXCLUDED.criteria,
			updated_by = EXCLUDED.updated_by,
			updated_at = NOW()
		RETURNING id, name, criteria, updated_by, created_at, updated_at`,
		types.NewID(), name, criteria, updatedBy).
		Scan(&rule.ID, &rule.Name, &rule.Criteria, &rule.UpdatedBy, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert rule")
	}

	return &rule, nil
}

// Delete removes a rule by name
func (r *Repository) Delete(ctx context.Context, name string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM authorization_rules WHERE name = $1`, name)
	if err != nil {
		return errors.Wrap(err, "failed to delete rule")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("rule", name)
	}

	return nil
}

// SeedDefaults inserts the default rule set when the table is empty
func (r *Repository) SeedDefaults(ctx context.Context) error {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM authorization_rules`).Scan(&count); err != nil {
		return errors.Wrap(err, "failed to count rules")
	}
	if count > 0 {
		return nil
	}

	for _, d := range defaultRules {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO authorization_rules (id, name, criteria, updated_by, created_at, updated_at)
			VALUES ($1, $2, $3, 'system', NOW(), NOW())
			ON CONFLICT (name) DO NOTHING`,
			types.NewID(), d.Name, strings.TrimSpace(d.Criteria))
		if err != nil {
			return errors.Wrap(err, "failed to seed rule")
		}
	}

	return nil
}

// --- rule performance counters ---

// RecordAgreement increments timesApplied and timesAgreed for each cited
// rule within the supplied transaction. Increments are applied in SQL so
// concurrent reviewers never lose updates.
func (r *Repository) RecordAgreement(ctx context.Context, tx pgx.Tx, ruleNames []string) error {
	for _, name := range ruleNames {
		if err := upsertCounter(ctx, tx, name, 1, 1, 0); err != nil {
			return err
		}
	}
	return nil
}

// RecordDisagreement increments timesDisagreed for each cited rule
// within the supplied transaction.
func (r *Repository) RecordDisagreement(ctx context.Context, tx pgx.Tx, ruleNames []string) error {
	for _, name := range ruleNames {
		if err := upsertCounter(ctx, tx, name, 0, 0, 1); err != nil {
			return err
		}
	}
	return nil
}

func upsertCounter(ctx context.Context, tx pgx.Tx, name string, applied, agreed, disagreed int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO rule_performance (id, rule_name, times_applied, times_agreed, times_disagreed, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (rule_name) DO UPDATE SET
			times_applied = rule_performance.times_applied + EXCLUDED.times_applied,
			times_agreed = rule_performance.times_agreed + EXCLUDED.times_agreed,
			times_disagreed = rule_performance.times_disagreed + EXCLUDED.times_disagreed,
			updated_at = NOW()`,
		types.NewID(), name, applied, agreed, disagreed)
	if err != nil {
		return errors.Wrap(err, "failed to update rule performance")
	}
	return nil
}

// ListPerformance returns counters for all rules
func (r *Repository) ListPerformance(ctx context.Context) ([]RulePerformance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, rule_name, times_applied, times_agreed, times_disagreed, updated_at
		FROM rule_performance
		ORDER BY rule_name`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list rule performance")
	}
	defer rows.Close()

	var result []RulePerformance
	for rows.Next() {
		var p RulePerformance
		if err := rows.Scan(&p.ID, &p.RuleName, &p.TimesApplied, &p.TimesAgreed, &p.TimesDisagreed, &p.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan rule performance")
		}
		result = append(result, p)
	}

	return result, nil
}
