// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Fanelemenzi/pholli-compare/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveSurvey stores or updates a survey.
func (r *SQLRepository) SaveSurvey(ctx context.Context, survey *domain.Survey) error {
	if survey == nil || survey.ID == "" {
		return fmt.Errorf("%w: survey ID is required", ErrInvalidInput)
	}
	if !survey.InsuranceType.Valid() {
		return fmt.Errorf("%w: unknown insurance type %q", ErrInvalidInput, survey.InsuranceType)
	}

	prefsJSON, err := json.Marshal(survey.Preferences)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	query := r.rebind(`
		INSERT INTO surveys (id, insurance_type, preferences, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			insurance_type = excluded.insurance_type,
			preferences = excluded.preferences,
			updated_at = excluded.updated_at`)

	_, err = r.db.ExecContext(ctx, query,
		survey.ID,
		string(survey.InsuranceType),
		string(prefsJSON),
		survey.CreatedAt,
		survey.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save survey: %w", err)
	}
	return nil
}

// GetSurvey retrieves a survey by ID.
func (r *SQLRepository) GetSurvey(ctx context.Context, surveyID string) (*domain.Survey, error) {
	if surveyID == "" {
		return nil, fmt.Errorf("%w: survey ID is required", ErrInvalidInput)
	}

	query := r.rebind(`
		SELECT id, insurance_type, preferences, created_at, updated_at
		FROM surveys WHERE id = ?`)

	row := r.db.QueryRowContext(ctx, query, surveyID)
	survey, err := scanSurvey(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}
	return survey, nil
}

// ListSurveys returns all surveys, newest first.
func (r *SQLRepository) ListSurveys(ctx context.Context) ([]*domain.Survey, error) {
	query := `
		SELECT id, insurance_type, preferences, created_at, updated_at
		FROM surveys ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list surveys: %w", err)
	}
	defer rows.Close()

	var surveys []*domain.Survey
	for rows.Next() {
		survey, err := scanSurvey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan survey: %w", err)
		}
		surveys = append(surveys, survey)
	}
	return surveys, rows.Err()
}

// SavePolicy stores or updates a policy and its feature record, if present.
func (r *SQLRepository) SavePolicy(ctx context.Context, policy *domain.Policy) error {
	if policy == nil || policy.ID == "" {
		return fmt.Errorf("%w: policy ID is required", ErrInvalidInput)
	}
	if !policy.InsuranceType.Valid() {
		return fmt.Errorf("%w: unknown insurance type %q", ErrInvalidInput, policy.InsuranceType)
	}

	query := r.rebind(`
		INSERT INTO policies (id, name, organization, insurance_type, base_premium, coverage_amount, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			organization = excluded.organization,
			insurance_type = excluded.insurance_type,
			base_premium = excluded.base_premium,
			coverage_amount = excluded.coverage_amount,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`)

	_, err := r.db.ExecContext(ctx, query,
		policy.ID,
		policy.Name,
		policy.Organization,
		string(policy.InsuranceType),
		policy.BasePremium,
		policy.CoverageAmount,
		boolToInt(policy.IsActive),
		policy.CreatedAt,
		policy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}

	if policy.Features != nil {
		return r.SavePolicyFeatures(ctx, policy.Features)
	}
	return nil
}

// GetPolicy retrieves a policy with its feature record attached.
func (r *SQLRepository) GetPolicy(ctx context.Context, policyID string) (*domain.Policy, error) {
	if policyID == "" {
		return nil, fmt.Errorf("%w: policy ID is required", ErrInvalidInput)
	}

	query := r.rebind(`
		SELECT id, name, organization, insurance_type, base_premium, coverage_amount, is_active, created_at, updated_at
		FROM policies WHERE id = ?`)

	row := r.db.QueryRowContext(ctx, query, policyID)
	policy, err := scanPolicy(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}

	features, err := r.getPolicyFeatures(ctx, policyID)
	if err != nil {
		return nil, err
	}
	policy.Features = features
	return policy, nil
}

// ListPolicies returns policies for an insurance type with features attached.
func (r *SQLRepository) ListPolicies(ctx context.Context, insuranceType domain.InsuranceType, activeOnly bool) ([]*domain.Policy, error) {
	if !insuranceType.Valid() {
		return nil, fmt.Errorf("%w: unknown insurance type %q", ErrInvalidInput, insuranceType)
	}

	query := `
		SELECT id, name, organization, insurance_type, base_premium, coverage_amount, is_active, created_at, updated_at
		FROM policies WHERE insurance_type = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), string(insuranceType))
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	var policies []*domain.Policy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, policy)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, policy := range policies {
		features, err := r.getPolicyFeatures(ctx, policy.ID)
		if err != nil {
			return nil, err
		}
		policy.Features = features
	}
	return policies, nil
}

// SavePolicyFeatures stores or updates the feature record for a policy.
func (r *SQLRepository) SavePolicyFeatures(ctx context.Context, features *domain.PolicyFeatureRecord) error {
	if features == nil || features.PolicyID == "" {
		return fmt.Errorf("%w: policy ID is required", ErrInvalidInput)
	}

	featuresJSON, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}

	query := r.rebind(`
		INSERT INTO policy_features (policy_id, insurance_type, features, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(policy_id) DO UPDATE SET
			insurance_type = excluded.insurance_type,
			features = excluded.features,
			updated_at = excluded.updated_at`)

	_, err = r.db.ExecContext(ctx, query,
		features.PolicyID,
		string(features.InsuranceType),
		string(featuresJSON),
		features.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save policy features: %w", err)
	}
	return nil
}

func (r *SQLRepository) getPolicyFeatures(ctx context.Context, policyID string) (*domain.PolicyFeatureRecord, error) {
	query := r.rebind(`SELECT features FROM policy_features WHERE policy_id = ?`)

	var featuresJSON string
	err := r.db.QueryRowContext(ctx, query, policyID).Scan(&featuresJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get policy features: %w", err)
	}

	var features domain.PolicyFeatureRecord
	if err := json.Unmarshal([]byte(featuresJSON), &features); err != nil {
		return nil, fmt.Errorf("failed to unmarshal features: %w", err)
	}
	return &features, nil
}

// ReplaceResults atomically replaces the survey's result set.
func (r *SQLRepository) ReplaceResults(ctx context.Context, surveyID string, results []*domain.CompatibilityResult) error {
	if surveyID == "" {
		return fmt.Errorf("%w: survey ID is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleteQuery := r.rebind(`DELETE FROM comparison_results WHERE survey_id = ?`)
	if _, err := tx.ExecContext(ctx, deleteQuery, surveyID); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}

	insertQuery := r.rebind(`
		INSERT INTO comparison_results (id, survey_id, policy_id, policy_name, overall_score, score_percent, matches, mismatches, feature_scores, total_features_compared, explanation, rank, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	for _, result := range results {
		if result == nil || result.ID == "" {
			return fmt.Errorf("%w: result ID is required", ErrInvalidInput)
		}

		matchesJSON, err := json.Marshal(result.Matches)
		if err != nil {
			return fmt.Errorf("failed to marshal matches: %w", err)
		}
		mismatchesJSON, err := json.Marshal(result.Mismatches)
		if err != nil {
			return fmt.Errorf("failed to marshal mismatches: %w", err)
		}
		scoresJSON, err := json.Marshal(result.FeatureScores)
		if err != nil {
			return fmt.Errorf("failed to marshal feature scores: %w", err)
		}

		_, err = tx.ExecContext(ctx, insertQuery,
			result.ID,
			surveyID,
			result.PolicyID,
			result.PolicyName,
			result.OverallScore,
			result.ScorePercent,
			string(matchesJSON),
			string(mismatchesJSON),
			string(scoresJSON),
			result.TotalFeaturesCompared,
			result.Explanation,
			result.Rank,
			string(result.Category),
			result.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

// GetResults returns a survey's results ordered by rank.
func (r *SQLRepository) GetResults(ctx context.Context, surveyID string) ([]*domain.CompatibilityResult, error) {
	if surveyID == "" {
		return nil, fmt.Errorf("%w: survey ID is required", ErrInvalidInput)
	}

	query := r.rebind(`
		SELECT id, survey_id, policy_id, policy_name, overall_score, score_percent, matches, mismatches, feature_scores, total_features_compared, explanation, rank, category, created_at
		FROM comparison_results WHERE survey_id = ?
		ORDER BY rank ASC`)

	rows, err := r.db.QueryContext(ctx, query, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}
	defer rows.Close()

	var results []*domain.CompatibilityResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// GetResult returns a single survey/policy result.
func (r *SQLRepository) GetResult(ctx context.Context, surveyID, policyID string) (*domain.CompatibilityResult, error) {
	if surveyID == "" || policyID == "" {
		return nil, fmt.Errorf("%w: survey ID and policy ID are required", ErrInvalidInput)
	}

	query := r.rebind(`
		SELECT id, survey_id, policy_id, policy_name, overall_score, score_percent, matches, mismatches, feature_scores, total_features_compared, explanation, rank, category, created_at
		FROM comparison_results WHERE survey_id = ? AND policy_id = ?`)

	row := r.db.QueryRowContext(ctx, query, surveyID, policyID)
	result, err := scanResult(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return result, nil
}

// CountResults returns how many results the survey currently has.
func (r *SQLRepository) CountResults(ctx context.Context, surveyID string) (int, error) {
	if surveyID == "" {
		return 0, fmt.Errorf("%w: survey ID is required", ErrInvalidInput)
	}

	query := r.rebind(`SELECT COUNT(*) FROM comparison_results WHERE survey_id = ?`)

	var count int
	if err := r.db.QueryRowContext(ctx, query, surveyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return count, nil
}

// DeleteResults removes all results for a survey.
func (r *SQLRepository) DeleteResults(ctx context.Context, surveyID string) error {
	if surveyID == "" {
		return fmt.Errorf("%w: survey ID is required", ErrInvalidInput)
	}

	query := r.rebind(`DELETE FROM comparison_results WHERE survey_id = ?`)
	if _, err := r.db.ExecContext(ctx, query, surveyID); err != nil {
		return fmt.Errorf("failed to delete results: %w", err)
	}
	return nil
}

// SurveyIDsWithResultsFor returns the surveys holding results for a policy.
func (r *SQLRepository) SurveyIDsWithResultsFor(ctx context.Context, policyID string) ([]string, error) {
	if policyID == "" {
		return nil, fmt.Errorf("%w: policy ID is required", ErrInvalidInput)
	}

	query := r.rebind(`
		SELECT DISTINCT survey_id FROM comparison_results
		WHERE policy_id = ? ORDER BY survey_id ASC`)

	rows, err := r.db.QueryContext(ctx, query, policyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query surveys: %w", err)
	}
	defer rows.Close()

	var surveyIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan survey ID: %w", err)
		}
		surveyIDs = append(surveyIDs, id)
	}
	return surveyIDs, rows.Err()
}

// Ping verifies the database connection.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $N for postgres.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 1
	for _, ch := range query {
		if ch == '?' {
			fmt.Fprintf(&b, "$%d", n)
			n++
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanSurvey(row scanner) (*domain.Survey, error) {
	var (
		survey        domain.Survey
		insuranceType string
		prefsJSON     string
		createdAt     time.Time
		updatedAt     time.Time
	)

	err := row.Scan(&survey.ID, &insuranceType, &prefsJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	survey.InsuranceType = domain.InsuranceType(insuranceType)
	survey.CreatedAt = createdAt
	survey.UpdatedAt = updatedAt

	if prefsJSON != "" {
		if err := json.Unmarshal([]byte(prefsJSON), &survey.Preferences); err != nil {
			return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
		}
	}
	return &survey, nil
}

func scanPolicy(row scanner) (*domain.Policy, error) {
	var (
		policy        domain.Policy
		organization  sql.NullString
		insuranceType string
		isActive      int
	)

	err := row.Scan(
		&policy.ID,
		&policy.Name,
		&organization,
		&insuranceType,
		&policy.BasePremium,
		&policy.CoverageAmount,
		&isActive,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	policy.Organization = organization.String
	policy.InsuranceType = domain.InsuranceType(insuranceType)
	policy.IsActive = isActive != 0
	return &policy, nil
}

func scanResult(row scanner) (*domain.CompatibilityResult, error) {
	var (
		result         domain.CompatibilityResult
		matchesJSON    sql.NullString
		mismatchesJSON sql.NullString
		scoresJSON     sql.NullString
		explanation    sql.NullString
		category       sql.NullString
	)

	err := row.Scan(
		&result.ID,
		&result.SurveyID,
		&result.PolicyID,
		&result.PolicyName,
		&result.OverallScore,
		&result.ScorePercent,
		&matchesJSON,
		&mismatchesJSON,
		&scoresJSON,
		&result.TotalFeaturesCompared,
		&explanation,
		&result.Rank,
		&category,
		&result.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	result.Explanation = explanation.String
	result.Category = domain.RecommendationCategory(category.String)

	if matchesJSON.Valid && matchesJSON.String != "" {
		if err := json.Unmarshal([]byte(matchesJSON.String), &result.Matches); err != nil {
			return nil, fmt.Errorf("failed to unmarshal matches: %w", err)
		}
	}
	if mismatchesJSON.Valid && mismatchesJSON.String != "" {
		if err := json.Unmarshal([]byte(mismatchesJSON.String), &result.Mismatches); err != nil {
			return nil, fmt.Errorf("failed to unmarshal mismatches: %w", err)
		}
	}
	if scoresJSON.Valid && scoresJSON.String != "" {
		if err := json.Unmarshal([]byte(scoresJSON.String), &result.FeatureScores); err != nil {
			return nil, fmt.Errorf("failed to unmarshal feature scores: %w", err)
		}
	}
	return &result, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
