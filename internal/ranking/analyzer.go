package ranking

import (
	"fmt"
	"sort"

	"github.com/Fanelemenzi/pholli-compare/internal/domain"
	"github.com/Fanelemenzi/pholli-compare/internal/matching"
)

// Feature-pattern thresholds over per-feature average scores.
const (
	challengingAverage = 0.5
	wellCoveredAverage = 0.8
)

// AnalyzeFeaturePatterns aggregates per-feature scores across a result set and
// flags features the market serves poorly or well.
func AnalyzeFeaturePatterns(surveyID string, results []*domain.CompatibilityResult) *domain.FeatureAnalysis {
	analysis := &domain.FeatureAnalysis{SurveyID: surveyID}

	scores := make(map[string][]float64)
	for _, r := range results {
		for feature, score := range r.FeatureScores {
			scores[feature] = append(scores[feature], score)
		}
	}

	features := make([]string, 0, len(scores))
	for f := range scores {
		features = append(features, f)
	}
	sort.Strings(features)

	for _, feature := range features {
		vals := scores[feature]
		best, worst, sum := vals[0], vals[0], 0.0
		for _, v := range vals {
			if v > best {
				best = v
			}
			if v < worst {
				worst = v
			}
			sum += v
		}
		avg := sum / float64(len(vals))

		analysis.Stats = append(analysis.Stats, domain.FeatureStat{
			Feature:      feature,
			DisplayName:  matching.DisplayName(feature),
			AverageScore: avg,
			BestScore:    best,
			WorstScore:   worst,
			PolicyCount:  len(vals),
		})

		if avg < challengingAverage {
			analysis.Challenging = append(analysis.Challenging, feature)
		} else if avg > wellCoveredAverage {
			analysis.WellCovered = append(analysis.WellCovered, feature)
		}
	}

	return analysis
}

// Recommendations picks the top-ranked result as the primary recommendation
// and the next few as alternatives, each with its key differentiator.
func Recommendations(results []*domain.CompatibilityResult, maxAlternatives int) *domain.RecommendationSet {
	set := &domain.RecommendationSet{}
	if len(results) == 0 {
		return set
	}
	if maxAlternatives <= 0 {
		maxAlternatives = 3
	}

	ordered := make([]*domain.CompatibilityResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })

	set.Primary = ordered[0]
	for _, alt := range ordered[1:] {
		if len(set.Alternatives) >= maxAlternatives {
			break
		}
		set.Alternatives = append(set.Alternatives, domain.Alternative{
			PolicyID:       alt.PolicyID,
			PolicyName:     alt.PolicyName,
			Score:          alt.ScorePercent,
			Differentiator: keyDifferentiator(set.Primary, alt),
		})
	}
	return set
}

// keyDifferentiator names the feature with the biggest score gap between the
// primary recommendation and an alternative.
func keyDifferentiator(primary, alternative *domain.CompatibilityResult) string {
	var biggest float64
	var feature string

	names := make([]string, 0, len(primary.FeatureScores))
	for name := range primary.FeatureScores {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		altScore, ok := alternative.FeatureScores[name]
		if !ok {
			continue
		}
		diff := primary.FeatureScores[name] - altScore
		if diff < 0 {
			diff = -diff
		}
		if diff > biggest {
			biggest = diff
			feature = name
		}
	}

	if feature == "" {
		return "Alternative pricing or coverage structure"
	}
	return fmt.Sprintf("Different %s coverage", matching.DisplayName(feature))
}

// Considerations returns survey-specific caveats worth surfacing alongside
// the recommendations.
func Considerations(survey *domain.Survey, results []*domain.CompatibilityResult, policies map[string]*domain.Policy) []string {
	if survey == nil || len(results) == 0 {
		return nil
	}

	var out []string
	switch survey.InsuranceType {
	case domain.InsuranceHealth:
		out = append(out, healthConsiderations(survey, results)...)
	case domain.InsuranceFuneral:
		out = append(out, funeralConsiderations(survey, results, policies)...)
	}
	return out
}

func healthConsiderations(survey *domain.Survey, results []*domain.CompatibilityResult) []string {
	var out []string

	if pref, ok := survey.Preferences[domain.FeatureChronicMedication]; ok && pref.Bool != nil && *pref.Bool {
		covered := 0
		for _, r := range results {
			for _, m := range r.Matches {
				if m.Feature == domain.FeatureChronicMedication {
					covered++
					break
				}
			}
		}
		if covered*2 < len(results) {
			out = append(out, "Limited chronic medication coverage available. Verify coverage details before deciding.")
		}
	}

	inPref, inOK := survey.Preferences[domain.FeatureInHospitalBenefit]
	outPref, outOK := survey.Preferences[domain.FeatureOutHospitalBenefit]
	if inOK && outOK && inPref.Bool != nil && *inPref.Bool && outPref.Bool != nil && *outPref.Bool {
		out = append(out, "You want both in-hospital and out-of-hospital benefits. Ensure your chosen policy covers both.")
	}

	return out
}

func funeralConsiderations(survey *domain.Survey, results []*domain.CompatibilityResult, policies map[string]*domain.Policy) []string {
	pref, ok := survey.Preferences[domain.FeatureCoverAmount]
	if !ok || pref.Number == nil {
		return nil
	}

	var sum float64
	var count int
	for _, r := range results {
		if p, ok := policies[r.PolicyID]; ok && p.CoverageAmount > 0 {
			sum += p.CoverageAmount
			count++
		}
	}
	if count == 0 {
		return nil
	}

	if *pref.Number > (sum/float64(count))*1.2 {
		return []string{"Your preferred coverage amount is higher than average. Consider if the additional cost is justified."}
	}
	return nil
}
