package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Fanelemenzi/pholli-compare/internal/domain"
)

func TestSQLiteRepository(t *testing.T) {
	// Create temp database file
	tmpFile, err := os.CreateTemp("", "pholli-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetSurvey", func(t *testing.T) {
		survey := &domain.Survey{
			ID:            "survey-001",
			InsuranceType: domain.InsuranceHealth,
			Preferences: domain.PreferenceSet{
				"annual_limit_per_family":  domain.NumberValue(100000),
				"currently_on_medical_aid": domain.BoolValue(true),
			},
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := repo.SaveSurvey(ctx, survey); err != nil {
			t.Fatalf("SaveSurvey failed: %v", err)
		}

		retrieved, err := repo.GetSurvey(ctx, survey.ID)
		if err != nil {
			t.Fatalf("GetSurvey failed: %v", err)
		}

		if retrieved.InsuranceType != domain.InsuranceHealth {
			t.Errorf("expected insurance type HEALTH, got %s", retrieved.InsuranceType)
		}
		if got := retrieved.Preferences["annual_limit_per_family"].Number; got == nil || *got != 100000 {
			t.Errorf("expected family limit 100000, got %v", got)
		}
		if got := retrieved.Preferences["currently_on_medical_aid"].Bool; got == nil || !*got {
			t.Errorf("expected medical aid preference true, got %v", got)
		}
	})

	t.Run("SaveSurveyUpsert", func(t *testing.T) {
		survey := &domain.Survey{
			ID:            "survey-001",
			InsuranceType: domain.InsuranceHealth,
			Preferences: domain.PreferenceSet{
				"ambulance_coverage": domain.BoolValue(true),
			},
			CreatedAt: now,
			UpdatedAt: now.Add(time.Minute),
		}

		if err := repo.SaveSurvey(ctx, survey); err != nil {
			t.Fatalf("SaveSurvey upsert failed: %v", err)
		}

		retrieved, err := repo.GetSurvey(ctx, survey.ID)
		if err != nil {
			t.Fatalf("GetSurvey failed: %v", err)
		}
		if len(retrieved.Preferences) != 1 {
			t.Errorf("expected replaced preferences, got %d entries", len(retrieved.Preferences))
		}

		surveys, err := repo.ListSurveys(ctx)
		if err != nil {
			t.Fatalf("ListSurveys failed: %v", err)
		}
		if len(surveys) != 1 {
			t.Errorf("expected 1 survey after upsert, got %d", len(surveys))
		}
	})

	t.Run("SaveSurveyValidation", func(t *testing.T) {
		if err := repo.SaveSurvey(ctx, &domain.Survey{InsuranceType: domain.InsuranceHealth}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for missing ID, got: %v", err)
		}
		if err := repo.SaveSurvey(ctx, &domain.Survey{ID: "survey-bad", InsuranceType: "LIFE"}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for unknown type, got: %v", err)
		}
	})

	t.Run("SaveAndGetPolicy", func(t *testing.T) {
		limit := 50000.0
		onAid := true
		policy := &domain.Policy{
			ID:             "policy-001",
			Name:           "Essential Health Plan",
			Organization:   "Acme Insurance",
			InsuranceType:  domain.InsuranceHealth,
			BasePremium:    450,
			CoverageAmount: 50000,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
			Features: &domain.PolicyFeatureRecord{
				PolicyID:              "policy-001",
				InsuranceType:         domain.InsuranceHealth,
				AnnualLimitPerMember:  &limit,
				CurrentlyOnMedicalAid: &onAid,
				UpdatedAt:             now,
			},
		}

		if err := repo.SavePolicy(ctx, policy); err != nil {
			t.Fatalf("SavePolicy failed: %v", err)
		}

		retrieved, err := repo.GetPolicy(ctx, policy.ID)
		if err != nil {
			t.Fatalf("GetPolicy failed: %v", err)
		}

		if retrieved.Name != policy.Name {
			t.Errorf("expected name %q, got %q", policy.Name, retrieved.Name)
		}
		if !retrieved.IsActive {
			t.Error("expected policy to be active")
		}
		if retrieved.Features == nil {
			t.Fatal("expected feature record to be attached")
		}
		if retrieved.Features.AnnualLimitPerMember == nil || *retrieved.Features.AnnualLimitPerMember != limit {
			t.Errorf("expected member limit %.0f, got %v", limit, retrieved.Features.AnnualLimitPerMember)
		}
	})

	t.Run("PolicyWithoutFeatures", func(t *testing.T) {
		policy := &domain.Policy{
			ID:            "policy-bare",
			Name:          "Bare Plan",
			InsuranceType: domain.InsuranceFuneral,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := repo.SavePolicy(ctx, policy); err != nil {
			t.Fatalf("SavePolicy failed: %v", err)
		}

		retrieved, err := repo.GetPolicy(ctx, policy.ID)
		if err != nil {
			t.Fatalf("GetPolicy failed: %v", err)
		}
		if retrieved.Features != nil {
			t.Error("expected nil feature record")
		}
	})

	t.Run("ListPoliciesFiltersTypeAndActive", func(t *testing.T) {
		inactive := &domain.Policy{
			ID:            "policy-inactive",
			Name:          "Retired Plan",
			InsuranceType: domain.InsuranceHealth,
			IsActive:      false,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := repo.SavePolicy(ctx, inactive); err != nil {
			t.Fatalf("SavePolicy failed: %v", err)
		}

		active, err := repo.ListPolicies(ctx, domain.InsuranceHealth, true)
		if err != nil {
			t.Fatalf("ListPolicies failed: %v", err)
		}
		if len(active) != 1 {
			t.Fatalf("expected 1 active health policy, got %d", len(active))
		}
		if active[0].ID != "policy-001" {
			t.Errorf("expected policy-001, got %s", active[0].ID)
		}

		all, err := repo.ListPolicies(ctx, domain.InsuranceHealth, false)
		if err != nil {
			t.Fatalf("ListPolicies failed: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("expected 2 health policies, got %d", len(all))
		}
	})

	t.Run("SavePolicyFeaturesUpsert", func(t *testing.T) {
		cover := 30000.0
		features := &domain.PolicyFeatureRecord{
			PolicyID:      "policy-bare",
			InsuranceType: domain.InsuranceFuneral,
			CoverAmount:   &cover,
			UpdatedAt:     now.Add(time.Minute),
		}

		if err := repo.SavePolicyFeatures(ctx, features); err != nil {
			t.Fatalf("SavePolicyFeatures failed: %v", err)
		}

		retrieved, err := repo.GetPolicy(ctx, "policy-bare")
		if err != nil {
			t.Fatalf("GetPolicy failed: %v", err)
		}
		if retrieved.Features == nil || retrieved.Features.CoverAmount == nil || *retrieved.Features.CoverAmount != cover {
			t.Errorf("expected cover amount %.0f, got %+v", cover, retrieved.Features)
		}
	})

	t.Run("ReplaceAndGetResults", func(t *testing.T) {
		results := []*domain.CompatibilityResult{
			{
				ID:           "result-001",
				SurveyID:     "survey-001",
				PolicyID:     "policy-001",
				PolicyName:   "Essential Health Plan",
				OverallScore: 0.85,
				ScorePercent: 85,
				Matches: []domain.MatchEntry{
					{Feature: "annual_limit_per_family", DisplayName: "Annual Limit per Family", UserValue: "R100,000.00", PolicyValue: "R120,000.00", Score: 1.0, Quality: domain.QualityExcellent},
				},
				Mismatches: []domain.MismatchEntry{
					{Feature: "ambulance_coverage", DisplayName: "Ambulance Coverage", UserValue: "Yes", PolicyValue: "No", Score: 0.0, Severity: domain.SeverityMajor},
				},
				FeatureScores:         map[string]float64{"annual_limit_per_family": 1.0, "ambulance_coverage": 0.0},
				TotalFeaturesCompared: 2,
				Explanation:           "Very good match with 1 excellent feature match, 1 major mismatch",
				Rank:                  1,
				Category:              domain.CategoryExcellent,
				CreatedAt:             now,
			},
			{
				ID:           "result-002",
				SurveyID:     "survey-001",
				PolicyID:     "policy-inactive",
				PolicyName:   "Retired Plan",
				OverallScore: 0.42,
				ScorePercent: 42,
				Explanation:  "Partial match - no specific features compared",
				Rank:         2,
				Category:     domain.CategoryPartial,
				CreatedAt:    now,
			},
		}

		if err := repo.ReplaceResults(ctx, "survey-001", results); err != nil {
			t.Fatalf("ReplaceResults failed: %v", err)
		}

		retrieved, err := repo.GetResults(ctx, "survey-001")
		if err != nil {
			t.Fatalf("GetResults failed: %v", err)
		}
		if len(retrieved) != 2 {
			t.Fatalf("expected 2 results, got %d", len(retrieved))
		}
		if retrieved[0].Rank != 1 || retrieved[1].Rank != 2 {
			t.Errorf("expected results ordered by rank, got %d then %d", retrieved[0].Rank, retrieved[1].Rank)
		}
		if len(retrieved[0].Matches) != 1 || retrieved[0].Matches[0].Quality != domain.QualityExcellent {
			t.Errorf("expected match entries to round-trip, got %+v", retrieved[0].Matches)
		}
		if retrieved[0].FeatureScores["ambulance_coverage"] != 0.0 {
			t.Errorf("expected feature scores to round-trip, got %+v", retrieved[0].FeatureScores)
		}
		if retrieved[0].TotalFeaturesCompared != 2 {
			t.Errorf("expected feature count to round-trip, got %d", retrieved[0].TotalFeaturesCompared)
		}
		if retrieved[1].TotalFeaturesCompared != 0 {
			t.Errorf("expected zero feature count, got %d", retrieved[1].TotalFeaturesCompared)
		}
	})

	t.Run("ReplaceResultsIsAtomic", func(t *testing.T) {
		replacement := []*domain.CompatibilityResult{
			{
				ID:           "result-003",
				SurveyID:     "survey-001",
				PolicyID:     "policy-001",
				PolicyName:   "Essential Health Plan",
				OverallScore: 0.9,
				ScorePercent: 90,
				Rank:         1,
				Category:     domain.CategoryExcellent,
				CreatedAt:    now,
			},
		}

		if err := repo.ReplaceResults(ctx, "survey-001", replacement); err != nil {
			t.Fatalf("ReplaceResults failed: %v", err)
		}

		count, err := repo.CountResults(ctx, "survey-001")
		if err != nil {
			t.Fatalf("CountResults failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected old results replaced, count = %d", count)
		}

		// A replacement with an invalid entry must leave the old set intact.
		bad := []*domain.CompatibilityResult{{SurveyID: "survey-001", PolicyID: "policy-001"}}
		if err := repo.ReplaceResults(ctx, "survey-001", bad); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got: %v", err)
		}

		count, err = repo.CountResults(ctx, "survey-001")
		if err != nil {
			t.Fatalf("CountResults failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected failed replace to roll back, count = %d", count)
		}
	})

	t.Run("GetResult", func(t *testing.T) {
		result, err := repo.GetResult(ctx, "survey-001", "policy-001")
		if err != nil {
			t.Fatalf("GetResult failed: %v", err)
		}
		if result.ID != "result-003" {
			t.Errorf("expected result-003, got %s", result.ID)
		}

		_, err = repo.GetResult(ctx, "survey-001", "policy-none")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("SurveyIDsWithResultsFor", func(t *testing.T) {
		surveyIDs, err := repo.SurveyIDsWithResultsFor(ctx, "policy-001")
		if err != nil {
			t.Fatalf("SurveyIDsWithResultsFor failed: %v", err)
		}
		if len(surveyIDs) != 1 || surveyIDs[0] != "survey-001" {
			t.Errorf("expected [survey-001], got %v", surveyIDs)
		}

		surveyIDs, err = repo.SurveyIDsWithResultsFor(ctx, "policy-none")
		if err != nil {
			t.Fatalf("SurveyIDsWithResultsFor failed: %v", err)
		}
		if len(surveyIDs) != 0 {
			t.Errorf("expected no surveys, got %v", surveyIDs)
		}
	})

	t.Run("DeleteResults", func(t *testing.T) {
		if err := repo.DeleteResults(ctx, "survey-001"); err != nil {
			t.Fatalf("DeleteResults failed: %v", err)
		}

		count, err := repo.CountResults(ctx, "survey-001")
		if err != nil {
			t.Fatalf("CountResults failed: %v", err)
		}
		if count != 0 {
			t.Errorf("expected 0 results after delete, got %d", count)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetSurvey(ctx, "nonexistent")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}

		_, err = repo.GetPolicy(ctx, "nonexistent")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
