// Package comparison orchestrates the scoring, ranking and persistence of
// policy comparisons for a survey.
package comparison

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Fanelemenzi/pholli-compare/internal/domain"
	"github.com/Fanelemenzi/pholli-compare/internal/explain"
	"github.com/Fanelemenzi/pholli-compare/internal/matching"
	"github.com/Fanelemenzi/pholli-compare/internal/ranking"
)

// ErrNoResults is returned when a survey has no stored comparison results.
var ErrNoResults = errors.New("no comparison results for survey")

// Manager runs the comparison pipeline: score every active policy against a
// survey, rank the results, persist them atomically and serve the read paths
// through the cache.
type Manager struct {
	repo   domain.Repository
	cache  domain.Cache
	bus    domain.EventBus
	cfg    domain.ComparisonConfig
	logger *slog.Logger

	mu      sync.RWMutex
	engines map[domain.InsuranceType]*matching.Engine
}

// NewManager creates a comparison manager.
func NewManager(repo domain.Repository, cache domain.Cache, bus domain.EventBus, cfg domain.ComparisonConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BestMatchMinScore <= 0 {
		cfg.BestMatchMinScore = 60.0
	}
	if cfg.BestMatchLimit <= 0 {
		cfg.BestMatchLimit = 5
	}
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = 300
	}
	return &Manager{
		repo:    repo,
		cache:   cache,
		bus:     bus,
		cfg:     cfg,
		logger:  logger,
		engines: make(map[domain.InsuranceType]*matching.Engine),
	}
}

// engineFor returns the cached scoring engine for an insurance type,
// constructing it on first use.
func (m *Manager) engineFor(t domain.InsuranceType) (*matching.Engine, error) {
	m.mu.RLock()
	engine, ok := m.engines[t]
	m.mu.RUnlock()
	if ok {
		return engine, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if engine, ok := m.engines[t]; ok {
		return engine, nil
	}

	engine, err := matching.NewEngine(t, m.logger)
	if err != nil {
		return nil, err
	}
	m.engines[t] = engine
	return engine, nil
}

// GenerateComparisons scores all active policies of the survey's insurance
// type, ranks them and replaces the survey's stored result set. When the
// survey already has results and force is false, the stored set is returned
// unchanged.
func (m *Manager) GenerateComparisons(ctx context.Context, surveyID string, force bool) ([]*domain.CompatibilityResult, error) {
	survey, err := m.repo.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	if !force {
		count, err := m.repo.CountResults(ctx, surveyID)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			m.logger.Debug("reusing stored comparison results",
				"surveyId", surveyID,
				"count", count,
			)
			return m.repo.GetResults(ctx, surveyID)
		}
	}

	if len(survey.Preferences) == 0 {
		m.logger.Warn("survey has no preferences, skipping comparison",
			"surveyId", surveyID,
		)
		return nil, nil
	}

	engine, err := m.engineFor(survey.InsuranceType)
	if err != nil {
		m.publishFailed(ctx, surveyID, err)
		return nil, err
	}

	policies, err := m.repo.ListPolicies(ctx, survey.InsuranceType, true)
	if err != nil {
		m.publishFailed(ctx, surveyID, err)
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}

	start := time.Now()
	results := make([]*domain.CompatibilityResult, 0, len(policies))
	policyIndex := make(map[string]*domain.Policy, len(policies))
	for _, policy := range policies {
		result := engine.Compare(policy, survey.Preferences)
		result.ID = uuid.New().String()
		result.SurveyID = surveyID
		results = append(results, result)
		policyIndex[policy.ID] = policy
	}

	var strategy ranking.Strategy
	if m.cfg.UseCompositeRanking {
		strategy = ranking.NewCompositeStrategy()
	}
	results = ranking.Rank(results, policyIndex, strategy)

	if err := m.repo.ReplaceResults(ctx, surveyID, results); err != nil {
		m.publishFailed(ctx, surveyID, err)
		return nil, fmt.Errorf("failed to store results: %w", err)
	}

	m.invalidate(ctx, surveyID)

	if m.bus != nil {
		event := domain.ComparisonCompletedEvent{
			SurveyID:    surveyID,
			ResultCount: len(results),
		}
		if len(results) > 0 {
			event.BestScore = results[0].ScorePercent
		}
		payload, _ := json.Marshal(event)
		if err := m.bus.Publish(ctx, domain.TopicComparisonCompleted, payload); err != nil {
			m.logger.Error("failed to publish comparison completed event",
				"surveyId", surveyID,
				"error", err,
			)
		}
	}

	m.logger.Info("comparison generated",
		"surveyId", surveyID,
		"insuranceType", survey.InsuranceType,
		"policyCount", len(policies),
		"durationMs", time.Since(start).Milliseconds(),
	)

	return results, nil
}

// publishFailed notifies downstream consumers that a generation attempt for
// the survey did not complete.
func (m *Manager) publishFailed(ctx context.Context, surveyID string, cause error) {
	if m.bus == nil {
		return
	}
	payload, _ := json.Marshal(domain.ComparisonFailedEvent{
		SurveyID: surveyID,
		Reason:   cause.Error(),
	})
	if err := m.bus.Publish(ctx, domain.TopicComparisonFailed, payload); err != nil {
		m.logger.Error("failed to publish comparison failed event",
			"surveyId", surveyID,
			"error", err,
		)
	}
}

// GetResults returns a survey's ranked results, serving from cache when warm.
func (m *Manager) GetResults(ctx context.Context, surveyID string) ([]*domain.CompatibilityResult, error) {
	key := domain.ResultsCacheKey(surveyID)

	if m.cache != nil {
		if data, err := m.cache.Get(ctx, key); err == nil && data != nil {
			var results []*domain.CompatibilityResult
			if err := json.Unmarshal(data, &results); err == nil {
				return results, nil
			}
		}
	}

	results, err := m.repo.GetResults(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	if m.cache != nil && len(results) > 0 {
		if data, err := json.Marshal(results); err == nil {
			_ = m.cache.Set(ctx, key, data, m.summaryTTL())
		}
	}
	return results, nil
}

// GetBestMatches returns the top results at or above minScore (percent).
// Zero arguments fall back to the configured defaults.
func (m *Manager) GetBestMatches(ctx context.Context, surveyID string, minScore float64, limit int) ([]*domain.CompatibilityResult, error) {
	if minScore <= 0 {
		minScore = m.cfg.BestMatchMinScore
	}
	if limit <= 0 {
		limit = m.cfg.BestMatchLimit
	}

	results, err := m.GetResults(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	best := make([]*domain.CompatibilityResult, 0, limit)
	for _, result := range results {
		if result.ScorePercent >= minScore {
			best = append(best, result)
			if len(best) == limit {
				break
			}
		}
	}
	return best, nil
}

// GetRecommendationSummary aggregates a survey's result set, cached under the
// summary key.
func (m *Manager) GetRecommendationSummary(ctx context.Context, surveyID string) (*domain.RecommendationSummary, error) {
	key := domain.SummaryCacheKey(surveyID)

	if m.cache != nil {
		if data, err := m.cache.Get(ctx, key); err == nil && data != nil {
			var summary domain.RecommendationSummary
			if err := json.Unmarshal(data, &summary); err == nil {
				return &summary, nil
			}
		}
	}

	results, err := m.GetResults(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	summary := &domain.RecommendationSummary{
		SurveyID:      surveyID,
		TotalPolicies: len(results),
		Categories:    ranking.CategoryDistribution(results),
		GeneratedAt:   time.Now().UTC(),
	}

	var sum float64
	for _, result := range results {
		sum += result.ScorePercent
		if result.ScorePercent > summary.BestScore {
			summary.BestScore = result.ScorePercent
		}
		switch {
		case result.ScorePercent >= ranking.ExcellentMatchThreshold:
			summary.ExcellentCount++
		case result.ScorePercent >= ranking.GoodMatchThreshold:
			summary.GoodCount++
		}
	}
	summary.AverageScore = sum / float64(len(results))

	if m.cache != nil {
		if data, err := json.Marshal(summary); err == nil {
			_ = m.cache.Set(ctx, key, data, m.summaryTTL())
		}
	}
	return summary, nil
}

// SurveyAnalysis bundles the analytical views of a survey's result set.
type SurveyAnalysis struct {
	SurveyID        string                    `json:"surveyId"`
	Insights        *domain.RankingInsights   `json:"insights"`
	Features        *domain.FeatureAnalysis   `json:"featureAnalysis"`
	Recommendations *domain.RecommendationSet `json:"recommendations"`
	Considerations  []string                  `json:"considerations,omitempty"`
}

// AnalyzeSurvey builds the full analytical view: ranking insights, feature
// patterns, alternatives and type-specific considerations.
func (m *Manager) AnalyzeSurvey(ctx context.Context, surveyID string) (*SurveyAnalysis, error) {
	survey, err := m.repo.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	results, err := m.GetResults(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	policies, err := m.repo.ListPolicies(ctx, survey.InsuranceType, false)
	if err != nil {
		return nil, err
	}
	policyIndex := make(map[string]*domain.Policy, len(policies))
	for _, policy := range policies {
		policyIndex[policy.ID] = policy
	}

	return &SurveyAnalysis{
		SurveyID:        surveyID,
		Insights:        ranking.Insights(results),
		Features:        ranking.AnalyzeFeaturePatterns(surveyID, results),
		Recommendations: ranking.Recommendations(results, 3),
		Considerations:  ranking.Considerations(survey, results, policyIndex),
	}, nil
}

// Explain builds the detailed explanation bundle for one survey/policy result.
func (m *Manager) Explain(ctx context.Context, surveyID, policyID string) (*domain.ExplanationBundle, error) {
	survey, err := m.repo.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	result, err := m.repo.GetResult(ctx, surveyID, policyID)
	if err != nil {
		return nil, err
	}

	generator := explain.NewGenerator(survey.InsuranceType, m.logger)
	return generator.Generate(result, survey.Preferences), nil
}

// InvalidateSurvey drops the survey's cached read views. Called when the
// survey or its result set changes outside GenerateComparisons.
func (m *Manager) InvalidateSurvey(ctx context.Context, surveyID string) {
	m.invalidate(ctx, surveyID)
}

func (m *Manager) invalidate(ctx context.Context, surveyID string) {
	if m.cache == nil {
		return
	}
	_ = m.cache.Delete(ctx, domain.ResultsCacheKey(surveyID))
	_ = m.cache.Delete(ctx, domain.SummaryCacheKey(surveyID))
}

func (m *Manager) summaryTTL() time.Duration {
	return time.Duration(m.cfg.SummaryTTL) * time.Second
}
