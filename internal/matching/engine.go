package matching

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Fanelemenzi/pholli-compare/internal/domain"
)

// Engine scores policies against survey preferences for one insurance type.
// Engines are immutable after construction and safe for concurrent use.
type Engine struct {
	catalog *Catalog
	logger  *slog.Logger
}

// NewEngine creates a scoring engine for the given insurance type.
// Unknown types fail fast.
func NewEngine(t domain.InsuranceType, logger *slog.Logger) (*Engine, error) {
	catalog, err := CatalogFor(t)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{catalog: catalog, logger: logger}, nil
}

// InsuranceType returns the type this engine scores.
func (e *Engine) InsuranceType() domain.InsuranceType { return e.catalog.InsuranceType() }

// Catalog returns the engine's feature catalog.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// Compare scores one policy against the preferences. It never returns an
// error: incompatible policies produce an empty result with an explanation,
// and unexpected failures degrade to an empty result carrying the failure
// message.
func (e *Engine) Compare(policy *domain.Policy, prefs domain.PreferenceSet) (result *domain.CompatibilityResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("compatibility calculation panic",
				"policyId", policy.ID,
				"panic", r,
			)
			result = e.emptyResult(policy, fmt.Sprintf("Error calculating compatibility: %v", r))
		}
	}()

	if policy.Features == nil || policy.Features.InsuranceType != e.catalog.InsuranceType() {
		return e.emptyResult(policy, "Policy type does not match survey type")
	}

	featureScores := make(map[string]float64)
	var matches []domain.MatchEntry
	var mismatches []domain.MismatchEntry

	for _, spec := range e.catalog.Features() {
		userPref, ok := prefs[spec.Name]
		if !ok || userPref.IsNull() {
			continue
		}
		policyValue := policy.Features.Value(spec.Name)
		if policyValue.IsNull() {
			continue
		}

		score := scoreFeature(spec, policyValue, userPref, e.logger)
		featureScores[spec.Name] = score

		switch {
		case score >= MatchThreshold:
			quality := domain.QualityGood
			if score >= ExcellentThreshold {
				quality = domain.QualityExcellent
			}
			matches = append(matches, domain.MatchEntry{
				Feature:     spec.Name,
				DisplayName: spec.DisplayName,
				UserValue:   FormatValue(spec.Name, userPref),
				PolicyValue: FormatValue(spec.Name, policyValue),
				Score:       score,
				Quality:     quality,
			})
		case score < MismatchThreshold:
			severity := domain.SeverityModerate
			if score < MajorSeverityThreshold {
				severity = domain.SeverityMajor
			}
			mismatches = append(mismatches, domain.MismatchEntry{
				Feature:     spec.Name,
				DisplayName: spec.DisplayName,
				UserValue:   FormatValue(spec.Name, userPref),
				PolicyValue: FormatValue(spec.Name, policyValue),
				Score:       score,
				Severity:    severity,
			})
		}
	}

	overall := e.overallScore(featureScores)

	return &domain.CompatibilityResult{
		PolicyID:              policy.ID,
		PolicyName:            policy.Name,
		OverallScore:          overall,
		ScorePercent:          math.Round(overall*10000) / 100,
		Matches:               matches,
		Mismatches:            mismatches,
		FeatureScores:         featureScores,
		TotalFeaturesCompared: len(featureScores),
		Explanation:           explanation(matches, mismatches, overall),
		CreatedAt:             time.Now().UTC(),
	}
}

// overallScore is the weighted average of the feature scores, rounded to
// three decimals. An empty score set yields 0.0.
func (e *Engine) overallScore(featureScores map[string]float64) float64 {
	if len(featureScores) == 0 {
		return 0.0
	}

	var weightedSum, totalWeight float64
	for name, score := range featureScores {
		w := e.catalog.Weight(name)
		weightedSum += score * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0.0
	}
	return math.Round(weightedSum/totalWeight*1000) / 1000
}

func (e *Engine) emptyResult(policy *domain.Policy, reason string) *domain.CompatibilityResult {
	return &domain.CompatibilityResult{
		PolicyID:              policy.ID,
		PolicyName:            policy.Name,
		OverallScore:          0.0,
		ScorePercent:          0.0,
		Matches:               nil,
		Mismatches:            nil,
		FeatureScores:         map[string]float64{},
		TotalFeaturesCompared: 0,
		Explanation:           reason,
		CreatedAt:             time.Now().UTC(),
	}
}

// explanation builds the one-line summary attached to every result.
func explanation(matches []domain.MatchEntry, mismatches []domain.MismatchEntry, overall float64) string {
	var base string
	switch {
	case overall >= 0.9:
		base = "Excellent match"
	case overall >= 0.75:
		base = "Very good match"
	case overall >= 0.6:
		base = "Good match"
	case overall >= 0.4:
		base = "Partial match"
	default:
		base = "Poor match"
	}

	var details []string

	excellent := 0
	for _, m := range matches {
		if m.Quality == domain.QualityExcellent {
			excellent++
		}
	}
	if excellent > 0 {
		details = append(details, fmt.Sprintf("%d excellent feature match%s", excellent, plural(excellent)))
	}
	if good := len(matches) - excellent; good > 0 {
		details = append(details, fmt.Sprintf("%d good feature match%s", good, plural(good)))
	}

	major := 0
	for _, m := range mismatches {
		if m.Severity == domain.SeverityMajor {
			major++
		}
	}
	if major > 0 {
		details = append(details, fmt.Sprintf("%d major mismatch%s", major, plural(major)))
	}
	if moderate := len(mismatches) - major; moderate > 0 {
		details = append(details, fmt.Sprintf("%d moderate mismatch%s", moderate, plural(moderate)))
	}

	if len(details) == 0 {
		return base + " - no specific features compared"
	}
	return base + " with " + strings.Join(details, ", ")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "es"
}
