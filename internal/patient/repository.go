package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardion-health/precert/internal/shared/errors"
	"github.com/cardion-health/precert/internal/shared/types"
)

// Repository provides database operations for patients
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new patient repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const patientColumns = `
	id, mrn, date_of_service, patient_type,
	clinical_notes, insurance, prior_studies, referral_document,
	status, decision, recommended_study, rationale, denial_reason,
	supporting_criteria, missing_fields,
	extracted_name, extracted_dob, extracted_physician,
	extracted_diagnoses, extracted_symptoms, extracted_prior_studies,
	qualified_via_symptom, qualifying_symptom, qualifying_rationale,
	second_recommended_study, second_qualifying_symptom, second_qualifying_rationale,
	original_decision, addenda, sms_survey_id, archived,
	created_at, updated_at`

// Create saves a new patient
func (r *Repository) Create(ctx context.Context, p *Patient) error {
	query := `
		INSERT INTO patients (
			id, mrn, date_of_service, patient_type,
			clinical_notes, insurance, prior_studies, referral_document,
			status, supporting_criteria, missing_fields,
			extracted_diagnoses, extracted_symptoms, extracted_prior_studies,
			addenda, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.MRN, p.DateOfService, p.PatientType,
		p.ClinicalNotes, p.Insurance, p.PriorStudies, p.ReferralDocument,
		p.Status, emptyCriteria(p.SupportingCriteria), emptyStrings(p.MissingFields),
		emptyStrings(p.ExtractedDiagnoses), emptyStrings(p.ExtractedSymptoms), emptyStrings(p.ExtractedPriorStudies),
		emptyAddenda(p.Addenda), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save patient")
	}

	return nil
}

// FindByID finds a patient by ID
func (r *Repository) FindByID(ctx context.Context, id types.ID) (*Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE id = $1`, patientColumns)

	p, err := scanPatient(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("patient", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find patient")
	}

	return p, nil
}

// List lists patients with filters
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Patient, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *filter.Status)
		argNum++
	}

	if filter.Decision != nil {
		conditions = append(conditions, fmt.Sprintf("decision = $%d", argNum))
		args = append(args, *filter.Decision)
		argNum++
	}

	if filter.Archived != nil {
		conditions = append(conditions, fmt.Sprintf("archived = $%d", argNum))
		args = append(args, *filter.Archived)
		argNum++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(mrn ILIKE $%d OR extracted_name ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM patients %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count patients")
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 200 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`SELECT %s FROM patients %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		patientColumns, whereClause, argNum, argNum+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list patients")
	}
	defer rows.Close()

	var patients []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan patient")
		}
		patients = append(patients, *p)
	}

	return patients, total, nil
}

// ApplyDecision patches the decision fields onto a patient as a single
// atomic update.
func (r *Repository) ApplyDecision(ctx context.Context, id types.ID, outcome DecisionOutcome) error {
	query := `
		UPDATE patients SET
			status = $2, decision = $3, recommended_study = $4,
			rationale = $5, denial_reason = $6,
			supporting_criteria = $7, missing_fields = $8,
			extracted_name = $9, extracted_dob = $10, extracted_physician = $11,
			extracted_diagnoses = $12, extracted_symptoms = $13, extracted_prior_studies = $14,
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		id, outcome.Status, outcome.Decision, outcome.RecommendedStudy,
		outcome.Rationale, outcome.DenialReason,
		emptyCriteria(outcome.SupportingCriteria), emptyStrings(outcome.MissingFields),
		outcome.ExtractedName, outcome.ExtractedDOB, outcome.ExtractedPhysician,
		emptyStrings(outcome.ExtractedDiagnoses), emptyStrings(outcome.ExtractedSymptoms),
		emptyStrings(outcome.ExtractedPriorStudies),
	)
	if err != nil {
		return errors.Wrap(err, "failed to apply decision")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("patient", id.String())
	}

	return nil
}

// ResetForReprocess clears decision-bearing fields and returns the patient
// to PROCESSING ahead of a new decision run.
func (r *Repository) ResetForReprocess(ctx context.Context, id types.ID) error {
	query := `
		UPDATE patients SET
			status = $2, decision = NULL, recommended_study = NULL,
			rationale = '', denial_reason = '',
			supporting_criteria = '[]', missing_fields = '[]',
			qualified_via_symptom = FALSE, qualifying_symptom = '', qualifying_rationale = '',
			second_recommended_study = NULL, second_qualifying_symptom = '', second_qualifying_rationale = '',
			original_decision = NULL,
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, StatusProcessing)
	if err != nil {
		return errors.Wrap(err, "failed to reset patient")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("patient", id.String())
	}

	return nil
}

// ApplyQualification applies a physician-accepted upgrade suggestion.
// The first qualification preserves the prior decision in original_decision
// and forces APPROVED_CLEAN; a second selection fills the second slot only.
func (r *Repository) ApplyQualification(ctx context.Context, id types.ID, q Qualification) error {
	var query string
	if q.Second {
		query = `
			UPDATE patients SET
				second_recommended_study = $2,
				second_qualifying_symptom = $3,
				second_qualifying_rationale = $4,
				updated_at = NOW()
			WHERE id = $1`
	} else {
		query = `
			UPDATE patients SET
				original_decision = COALESCE(original_decision, decision),
				decision = 'APPROVED_CLEAN',
				recommended_study = $2,
				qualified_via_symptom = TRUE,
				qualifying_symptom = $3,
				qualifying_rationale = $4,
				updated_at = NOW()
			WHERE id = $1`
	}

	result, err := r.pool.Exec(ctx, query, id, q.Study, q.Symptom, q.Rationale)
	if err != nil {
		return errors.Wrap(err, "failed to apply qualification")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("patient", id.String())
	}

	return nil
}

// AddAddendum appends an addendum record
func (r *Repository) AddAddendum(ctx context.Context, id types.ID, a Addendum) error {
	query := `
		UPDATE patients SET
			addenda = addenda || $2::jsonb,
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, []Addendum{a})
	if err != nil {
		return errors.Wrap(err, "failed to add addendum")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("patient", id.String())
	}

	return nil
}

// SetArchived toggles the soft-delete flag
func (r *Repository) SetArchived(ctx context.Context, id types.ID, archived bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE patients SET archived = $2, updated_at = NOW() WHERE id = $1`, id, archived)
	if err != nil {
		return errors.Wrap(err, "failed to update patient")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("patient", id.String())
	}

	return nil
}

// LinkSurvey records the survey attached to this patient
func (r *Repository) LinkSurvey(ctx context.Context, id types.ID, surveyID types.ID) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE patients SET sms_survey_id = $2, updated_at = NOW() WHERE id = $1`, id, surveyID)
	if err != nil {
		return errors.Wrap(err, "failed to link survey")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("patient", id.String())
	}

	return nil
}

// Delete removes a patient; child records cascade at the database level
func (r *Repository) Delete(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete patient")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("patient", id.String())
	}

	return nil
}

// PurgeOlderThan deletes patients created before the cutoff. Deleting an
// already-deleted patient is a silent no-op.
func (r *Repository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to purge patients")
	}

	return int(result.RowsAffected()), nil
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*Patient, error) {
	p := &Patient{}
	err := row.Scan(
		&p.ID, &p.MRN, &p.DateOfService, &p.PatientType,
		&p.ClinicalNotes, &p.Insurance, &p.PriorStudies, &p.ReferralDocument,
		&p.Status, &p.Decision, &p.RecommendedStudy, &p.Rationale, &p.DenialReason,
		&p.SupportingCriteria, &p.MissingFields,
		&p.ExtractedName, &p.ExtractedDOB, &p.ExtractedPhysician,
		&p.ExtractedDiagnoses, &p.ExtractedSymptoms, &p.ExtractedPriorStudies,
		&p.QualifiedViaSymptom, &p.QualifyingSymptom, &p.QualifyingRationale,
		&p.SecondRecommendedStudy, &p.SecondQualifyingSymptom, &p.SecondQualifyingRationale,
		&p.OriginalDecision, &p.Addenda, &p.SMSSurveyID, &p.Archived,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func emptyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyCriteria(s []SupportingCriterion) []SupportingCriterion {
	if s == nil {
		return []SupportingCriterion{}
	}
	return s
}

func emptyAddenda(s []Addendum) []Addendum {
	if s == nil {
		return []Addendum{}
	}
	return s
}
