// Package domain defines the core interfaces and types for Pholli Compare.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// Survey operations
	SaveSurvey(ctx context.Context, survey *Survey) error
	GetSurvey(ctx context.Context, surveyID string) (*Survey, error)
	ListSurveys(ctx context.Context) ([]*Survey, error)

	// Policy operations
	SavePolicy(ctx context.Context, policy *Policy) error
	GetPolicy(ctx context.Context, policyID string) (*Policy, error)
	ListPolicies(ctx context.Context, insuranceType InsuranceType, activeOnly bool) ([]*Policy, error)
	SavePolicyFeatures(ctx context.Context, features *PolicyFeatureRecord) error

	// Comparison results.
	// ReplaceResults atomically deletes the survey's existing result set and
	// inserts the new one in a single transaction.
	ReplaceResults(ctx context.Context, surveyID string, results []*CompatibilityResult) error
	GetResults(ctx context.Context, surveyID string) ([]*CompatibilityResult, error)
	GetResult(ctx context.Context, surveyID, policyID string) (*CompatibilityResult, error)
	CountResults(ctx context.Context, surveyID string) (int, error)
	DeleteResults(ctx context.Context, surveyID string) error

	// SurveyIDsWithResultsFor returns the surveys holding results for the
	// given policy. Used to re-rank after a policy feature change.
	SurveyIDsWithResultsFor(ctx context.Context, policyID string) ([]string, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
