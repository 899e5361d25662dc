package matching

import (
	"log/slog"
	"strings"

	"github.com/Fanelemenzi/pholli-compare/internal/domain"
)

// Score thresholds shared by the engine and its consumers.
const (
	// MatchThreshold is the minimum score for a feature to count as a match.
	MatchThreshold = 0.8

	// ExcellentThreshold splits matches into excellent vs good.
	ExcellentThreshold = 0.95

	// MismatchThreshold is the score below which a feature is a mismatch.
	// Scores in [MismatchThreshold, MatchThreshold) land in neither list but
	// still count toward the weighted average.
	MismatchThreshold = 0.5

	// MajorSeverityThreshold splits mismatches into major vs moderate.
	MajorSeverityThreshold = 0.2

	// neutralScore applies when a value is absent or the wrong shape.
	neutralScore = 0.5
)

// scoreFeature computes the [0,1] score for one feature. Dispatch follows the
// declared kind; values of the wrong shape get the neutral score. A panic in
// any branch degrades to 0.0.
func scoreFeature(spec FeatureSpec, policy, user domain.FeatureValue, logger *slog.Logger) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("feature scoring panic",
				"feature", spec.Name,
				"panic", r,
			)
			score = 0.0
		}
	}()

	if policy.IsNull() || user.IsNull() {
		return neutralScore
	}

	switch spec.Kind {
	case KindBool:
		if policy.Bool == nil || user.Bool == nil {
			return mismatchedShape(spec, policy, user, logger)
		}
		if *policy.Bool == *user.Bool {
			return 1.0
		}
		return 0.0

	case KindNumericHigherBetter:
		if policy.Number == nil || user.Number == nil {
			return mismatchedShape(spec, policy, user, logger)
		}
		return scoreHigherBetter(*policy.Number, *user.Number)

	case KindNumericLowerBetter:
		if policy.Number == nil || user.Number == nil {
			return mismatchedShape(spec, policy, user, logger)
		}
		return scoreLowerBetter(*policy.Number, *user.Number)

	case KindNumericGeneric:
		if policy.Number == nil || user.Number == nil {
			return mismatchedShape(spec, policy, user, logger)
		}
		return scoreGeneric(*policy.Number, *user.Number)

	case KindCategorical:
		if policy.Text == nil || user.Text == nil {
			return mismatchedShape(spec, policy, user, logger)
		}
		return scoreCategorical(spec, *policy.Text, *user.Text)

	default:
		logger.Warn("unhandled feature kind", "feature", spec.Name, "kind", string(spec.Kind))
		return neutralScore
	}
}

func mismatchedShape(spec FeatureSpec, policy, user domain.FeatureValue, logger *slog.Logger) float64 {
	logger.Warn("feature value shape does not match declared kind",
		"feature", spec.Name,
		"kind", string(spec.Kind),
	)
	return neutralScore
}

// scoreHigherBetter credits policies that meet or exceed the preference;
// below it, the score is the policy/preference ratio.
func scoreHigherBetter(policyVal, userPref float64) float64 {
	if policyVal >= userPref {
		return 1.0
	}
	if userPref <= 0 {
		return 0.0
	}
	return clamp01(policyVal / userPref)
}

// scoreLowerBetter credits requirements the user already satisfies; above the
// user's number, the score is the preference/policy ratio.
func scoreLowerBetter(policyVal, userPref float64) float64 {
	if policyVal <= userPref {
		return 1.0
	}
	if policyVal <= 0 {
		return 0.0
	}
	return clamp01(userPref / policyVal)
}

// scoreGeneric rewards proximity: within a 20% tolerance band the score
// decays linearly from 1.0 to 0.8, beyond it the gap is penalized directly.
func scoreGeneric(policyVal, userPref float64) float64 {
	if userPref == 0 {
		if policyVal == 0 {
			return 1.0
		}
		return 0.0
	}

	diff := abs(policyVal - userPref)
	maxAcceptable := userPref * 0.2

	if diff <= maxAcceptable {
		return 1.0 - (diff/maxAcceptable)*0.2
	}
	if s := 0.8 - diff/userPref; s > 0 {
		return s
	}
	return 0.0
}

// scoreCategorical matches normalized strings exactly, then through the
// feature's synonym buckets, then by substring containment at reduced credit.
func scoreCategorical(spec FeatureSpec, policyVal, userPref string) float64 {
	p := strings.ToLower(strings.TrimSpace(policyVal))
	u := strings.ToLower(strings.TrimSpace(userPref))

	if p == u {
		return 1.0
	}

	for _, variations := range spec.Synonyms {
		if containsString(variations, p) && containsString(variations, u) {
			return 1.0
		}
	}

	if strings.Contains(p, u) || strings.Contains(u, p) {
		return 0.7
	}
	return 0.0
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
