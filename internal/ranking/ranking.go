// Package ranking orders, categorizes, and analyzes compatibility results.
package ranking

import (
	"fmt"
	"sort"
	"time"

	"github.com/Fanelemenzi/pholli-compare/internal/domain"
)

// Category thresholds on the 0-100 score scale.
const (
	PerfectMatchThreshold   = 95.0
	ExcellentMatchThreshold = 80.0
	GoodMatchThreshold      = 60.0
	PartialMatchThreshold   = 40.0
)

// Strategy computes the ordering score for a result. The recommendation
// category always comes from the compatibility score, whatever the strategy.
type Strategy interface {
	Name() string
	Score(result *domain.CompatibilityResult, policy *domain.Policy) float64
}

// CompatibilityStrategy orders purely by compatibility score.
type CompatibilityStrategy struct{}

func (CompatibilityStrategy) Name() string { return "compatibility" }

func (CompatibilityStrategy) Score(result *domain.CompatibilityResult, _ *domain.Policy) float64 {
	return result.ScorePercent
}

// CompositeStrategy blends compatibility with match ratio, policy popularity,
// and premium value.
type CompositeStrategy struct {
	CompatibilityWeight float64
	MatchRatioWeight    float64
	PopularityWeight    float64
	PremiumValueWeight  float64

	// now is injectable for tests.
	now func() time.Time
}

// NewCompositeStrategy returns the default composite weighting.
func NewCompositeStrategy() *CompositeStrategy {
	return &CompositeStrategy{
		CompatibilityWeight: 0.70,
		MatchRatioWeight:    0.15,
		PopularityWeight:    0.10,
		PremiumValueWeight:  0.05,
		now:                 time.Now,
	}
}

func (s *CompositeStrategy) Name() string { return "composite" }

func (s *CompositeStrategy) Score(result *domain.CompatibilityResult, policy *domain.Policy) float64 {
	score := result.ScorePercent * s.CompatibilityWeight

	if total := len(result.Matches) + len(result.Mismatches); total > 0 {
		ratio := float64(len(result.Matches)) / float64(total)
		score += ratio * 100 * s.MatchRatioWeight
	}

	score += s.popularityScore(policy) * s.PopularityWeight
	score += s.premiumValueScore(policy) * s.PremiumValueWeight

	return score
}

// popularityScore is a coarse heuristic: established organizations and
// policies older than a year get small boosts.
func (s *CompositeStrategy) popularityScore(policy *domain.Policy) float64 {
	score := 50.0
	if policy == nil {
		return score
	}
	if policy.Organization != "" {
		score += 10.0
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	if !policy.CreatedAt.IsZero() && now().Sub(policy.CreatedAt) > 365*24*time.Hour {
		score += 5.0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// premiumValueScore rewards coverage per rand of premium.
func (s *CompositeStrategy) premiumValueScore(policy *domain.Policy) float64 {
	score := 50.0
	if policy == nil || policy.BasePremium <= 0 || policy.CoverageAmount <= 0 {
		return score
	}

	ratio := policy.CoverageAmount / policy.BasePremium
	switch {
	case ratio > 100:
		boost := (ratio - 100) / 10
		if boost > 25 {
			boost = 25
		}
		score += boost
	case ratio < 50:
		penalty := (50 - ratio) / 2
		if penalty > 25 {
			penalty = 25
		}
		score -= penalty
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Rank sorts results by strategy score descending, breaking ties on policy ID
// for deterministic output, and assigns dense ranks 1..N plus categories.
// The input slice is modified in place and returned.
func Rank(results []*domain.CompatibilityResult, policies map[string]*domain.Policy, strategy Strategy) []*domain.CompatibilityResult {
	if len(results) == 0 {
		return results
	}
	if strategy == nil {
		strategy = CompatibilityStrategy{}
	}

	scores := make(map[string]float64, len(results))
	for _, r := range results {
		scores[r.PolicyID] = strategy.Score(r, policies[r.PolicyID])
	}

	sort.SliceStable(results, func(i, j int) bool {
		si, sj := scores[results[i].PolicyID], scores[results[j].PolicyID]
		if si != sj {
			return si > sj
		}
		return results[i].PolicyID < results[j].PolicyID
	})

	for i, r := range results {
		r.Rank = i + 1
		r.Category = Categorize(r.ScorePercent)
	}
	return results
}

// Categorize maps a 0-100 score to its recommendation category.
func Categorize(scorePercent float64) domain.RecommendationCategory {
	switch {
	case scorePercent >= PerfectMatchThreshold:
		return domain.CategoryPerfect
	case scorePercent >= ExcellentMatchThreshold:
		return domain.CategoryExcellent
	case scorePercent >= GoodMatchThreshold:
		return domain.CategoryGood
	case scorePercent >= PartialMatchThreshold:
		return domain.CategoryPartial
	default:
		return domain.CategoryPoor
	}
}

// StrengthFor maps a category to its recommendation strength label.
func StrengthFor(category domain.RecommendationCategory) string {
	switch category {
	case domain.CategoryPerfect:
		return "Highly Recommended"
	case domain.CategoryExcellent:
		return "Strongly Recommended"
	case domain.CategoryGood:
		return "Recommended"
	case domain.CategoryPartial:
		return "Consider with Caution"
	case domain.CategoryPoor:
		return "Not Recommended"
	default:
		return "Unknown"
	}
}

// CategoryDistribution counts results per category.
func CategoryDistribution(results []*domain.CompatibilityResult) map[domain.RecommendationCategory]int {
	dist := make(map[domain.RecommendationCategory]int)
	for _, r := range results {
		dist[r.Category]++
	}
	return dist
}

// Insights summarizes the score distribution of a ranked result set.
func Insights(results []*domain.CompatibilityResult) *domain.RankingInsights {
	if len(results) == 0 {
		return &domain.RankingInsights{}
	}

	best, worst, sum := results[0].ScorePercent, results[0].ScorePercent, 0.0
	for _, r := range results {
		if r.ScorePercent > best {
			best = r.ScorePercent
		}
		if r.ScorePercent < worst {
			worst = r.ScorePercent
		}
		sum += r.ScorePercent
	}

	insights := &domain.RankingInsights{
		BestScore:    best,
		WorstScore:   worst,
		AverageScore: sum / float64(len(results)),
		ScoreRange:   best - worst,
	}

	if insights.ScoreRange < 10 {
		insights.Notes = append(insights.Notes,
			"All policies have similar compatibility scores, indicating consistent quality options.")
	} else if insights.ScoreRange > 40 {
		insights.Notes = append(insights.Notes,
			"Wide variation in compatibility scores. Focus on top-ranked options.")
	}

	excellent := CategoryDistribution(results)[domain.CategoryExcellent]
	if excellent == 0 {
		insights.Notes = append(insights.Notes,
			"No excellent matches found. Consider adjusting your preferences or exploring more policies.")
	} else if excellent > 3 {
		insights.Notes = append(insights.Notes,
			fmt.Sprintf("Found %d excellent matches. You have great options to choose from.", excellent))
	}

	return insights
}
