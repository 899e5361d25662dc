package repository

// Schema definitions for the Pholli Compare database.
// Compatible with both SQLite and PostgreSQL.

const schemaSurveys = `
CREATE TABLE IF NOT EXISTS surveys (
    id TEXT PRIMARY KEY,
    insurance_type TEXT NOT NULL,
    preferences TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_surveys_type ON surveys(insurance_type);
`

const schemaPolicies = `
CREATE TABLE IF NOT EXISTS policies (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    organization TEXT,
    insurance_type TEXT NOT NULL,
    base_premium REAL NOT NULL DEFAULT 0,
    coverage_amount REAL NOT NULL DEFAULT 0,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_policies_type ON policies(insurance_type);
CREATE INDEX IF NOT EXISTS idx_policies_active ON policies(insurance_type, is_active);
`

const schemaPolicyFeatures = `
CREATE TABLE IF NOT EXISTS policy_features (
    policy_id TEXT PRIMARY KEY,
    insurance_type TEXT NOT NULL,
    features TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaComparisonResults = `
CREATE TABLE IF NOT EXISTS comparison_results (
    id TEXT PRIMARY KEY,
    survey_id TEXT NOT NULL,
    policy_id TEXT NOT NULL,
    policy_name TEXT NOT NULL,
    overall_score REAL NOT NULL,
    score_percent REAL NOT NULL,
    matches TEXT,
    mismatches TEXT,
    feature_scores TEXT,
    total_features_compared INTEGER NOT NULL DEFAULT 0,
    explanation TEXT,
    rank INTEGER NOT NULL DEFAULT 0,
    category TEXT,
    created_at TIMESTAMP NOT NULL,
    UNIQUE(survey_id, policy_id)
);

CREATE INDEX IF NOT EXISTS idx_results_survey ON comparison_results(survey_id, rank);
CREATE INDEX IF NOT EXISTS idx_results_policy ON comparison_results(policy_id);
`

// AllSchemas returns all schema definitions in dependency order.
func AllSchemas() []string {
	return []string{
		schemaSurveys,
		schemaPolicies,
		schemaPolicyFeatures,
		schemaComparisonResults,
	}
}
