// Package explain builds user-facing explanations for ranked results.
package explain

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/Fanelemenzi/pholli-compare/internal/domain"
	"github.com/Fanelemenzi/pholli-compare/internal/matching"
)

// Caps on list-valued explanation sections.
const (
	maxReasons  = 5
	maxInsights = 4
	maxSteps    = 4
)

// Generator produces explanation bundles for one insurance type.
// Output is deterministic for a given input.
type Generator struct {
	insuranceType domain.InsuranceType
	logger        *slog.Logger
}

// NewGenerator creates an explanation generator.
func NewGenerator(t domain.InsuranceType, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{insuranceType: t, logger: logger}
}

// Generate assembles the full explanation bundle for one result.
func (g *Generator) Generate(result *domain.CompatibilityResult, prefs domain.PreferenceSet) *domain.ExplanationBundle {
	return &domain.ExplanationBundle{
		PolicyID:             result.PolicyID,
		PolicyName:           result.PolicyName,
		OverallAssessment:    assessment(result.OverallScore),
		WhyRecommended:       g.recommendationReasons(result.Matches, result.OverallScore),
		PotentialConcerns:    concerns(result.Mismatches),
		FeatureBreakdown:     featureBreakdown(result),
		PersonalizedInsights: g.personalizedInsights(result.Matches, result.Mismatches, prefs),
		ComparisonContext:    comparisonContext(result.OverallScore),
		NextSteps:            nextSteps(result.OverallScore, result.Mismatches),
	}
}

func assessment(overall float64) domain.Assessment {
	percent := math.Round(overall*1000) / 10

	var level, description, confidence string
	switch {
	case overall >= 0.9:
		level = "Excellent Match"
		description = "This policy aligns exceptionally well with your stated preferences and requirements."
		confidence = "Very High"
	case overall >= 0.75:
		level = "Very Good Match"
		description = "This policy meets most of your important requirements with only minor gaps."
		confidence = "High"
	case overall >= 0.6:
		level = "Good Match"
		description = "This policy covers your key needs but may not meet all your preferences."
		confidence = "Moderate"
	case overall >= 0.4:
		level = "Partial Match"
		description = "This policy meets some of your requirements but has several areas that don't align with your preferences."
		confidence = "Low"
	default:
		level = "Poor Match"
		description = "This policy does not align well with your stated preferences and requirements."
		confidence = "Very Low"
	}

	return domain.Assessment{
		Score:       percent,
		Level:       level,
		Description: description,
		Confidence:  confidence,
		Strength:    strengthFor(overall),
	}
}

func strengthFor(overall float64) string {
	switch {
	case overall >= 0.9:
		return "Highly Recommended"
	case overall >= 0.75:
		return "Strongly Recommended"
	case overall >= 0.6:
		return "Recommended"
	case overall >= 0.4:
		return "Consider with Caution"
	default:
		return "Not Recommended"
	}
}

func (g *Generator) recommendationReasons(matches []domain.MatchEntry, overall float64) []string {
	var reasons []string

	if len(matches) == 0 {
		if overall >= 0.5 {
			reasons = append(reasons, "While specific feature matches are limited, this policy shows overall compatibility with your needs.")
		}
		return reasons
	}

	var excellent, good []domain.MatchEntry
	for _, m := range matches {
		if m.Quality == domain.QualityExcellent {
			excellent = append(excellent, m)
		} else {
			good = append(good, m)
		}
	}

	if len(excellent) == 1 {
		reasons = append(reasons, fmt.Sprintf("Perfect alignment with your %s requirements.", strings.ToLower(excellent[0].DisplayName)))
	} else if len(excellent) > 1 {
		names := displayNames(excellent, 3)
		reasons = append(reasons, fmt.Sprintf("Perfect match for %s.", joinLower(names)))
	}

	switch {
	case len(good) == 1:
		reasons = append(reasons, fmt.Sprintf("Strong compatibility with your %s preferences.", strings.ToLower(good[0].DisplayName)))
	case len(good) > 1 && len(good) <= 3:
		names := displayNames(good, len(good))
		reasons = append(reasons, fmt.Sprintf("Good alignment with %s.", strings.ToLower(strings.Join(names, ", "))))
	case len(good) > 3:
		reasons = append(reasons, fmt.Sprintf("Good alignment with %d of your key requirements.", len(good)))
	}

	switch g.insuranceType {
	case domain.InsuranceHealth:
		reasons = append(reasons, healthReasons(matches)...)
	case domain.InsuranceFuneral:
		reasons = append(reasons, funeralReasons(matches)...)
	}

	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}
	return reasons
}

func healthReasons(matches []domain.MatchEntry) []string {
	var reasons []string

	important := map[string]bool{
		domain.FeatureAnnualLimitPerFamily:  true,
		domain.FeatureCurrentlyOnMedicalAid: true,
		domain.FeatureAmbulanceCoverage:     true,
		domain.FeatureChronicMedication:     true,
		domain.FeatureInHospitalBenefit:     true,
		domain.FeatureOutHospitalBenefit:    true,
	}

	var matched []string
	for _, m := range matches {
		if important[m.Feature] {
			matched = append(matched, m.DisplayName)
		}
	}
	if len(matched) >= 2 {
		reasons = append(reasons, fmt.Sprintf("Covers key health benefits: %s.", strings.ToLower(strings.Join(matched, ", "))))
	}

	if hasFeature(matches, domain.FeatureAnnualLimitPerFamily) {
		reasons = append(reasons, "Annual family limit meets your requirements.")
	}
	if hasFeature(matches, domain.FeatureAmbulanceCoverage) {
		reasons = append(reasons, "Includes ambulance coverage as requested.")
	}
	return reasons
}

func funeralReasons(matches []domain.MatchEntry) []string {
	if hasFeature(matches, domain.FeatureCoverAmount) {
		return []string{"Provides the coverage amount you're looking for."}
	}
	return nil
}

// High-impact features get a stronger impact assessment on mismatch.
var highImpactFeatures = map[string]bool{
	"Annual Limit per Member":              true,
	"Coverage Amount":                      true,
	"Monthly Household Income Requirement": true,
}

var mitigations = map[string]string{
	"Annual Limit per Member":              "Consider if the policy limit meets your minimum needs, or look for supplementary coverage.",
	"Coverage Amount":                      "Evaluate if this coverage amount provides adequate financial protection for your situation.",
	"Monthly Household Income Requirement": "Verify that you meet the income requirements for this policy.",
	"In-Hospital Benefits":                 "Consider the importance of in-hospital coverage for your health needs.",
	"Out-of-Hospital Benefits":             "Evaluate how often you might need out-of-hospital medical services.",
	"Chronic Medication Coverage":          "If you need chronic medication, this could be a significant gap in coverage.",
}

func concerns(mismatches []domain.MismatchEntry) []domain.Concern {
	out := make([]domain.Concern, 0, len(mismatches))
	for _, mm := range mismatches {
		out = append(out, domain.Concern{
			Feature:     mm.Feature,
			DisplayName: mm.DisplayName,
			Severity:    mm.Severity,
			Explanation: mismatchExplanation(mm),
			Impact:      mismatchImpact(mm.DisplayName, mm.Severity),
			Mitigation:  mitigations[mm.DisplayName],
		})
	}
	return out
}

func mismatchExplanation(mm domain.MismatchEntry) string {
	name := strings.ToLower(mm.DisplayName)
	if mm.Severity == domain.SeverityMajor {
		return fmt.Sprintf("This policy's %s (%s) significantly differs from your preference (%s).", name, mm.PolicyValue, mm.UserValue)
	}
	return fmt.Sprintf("This policy's %s (%s) doesn't fully match your preference (%s).", name, mm.PolicyValue, mm.UserValue)
}

func mismatchImpact(displayName, severity string) string {
	if highImpactFeatures[displayName] {
		if severity == domain.SeverityMajor {
			return "High impact - this could significantly affect your coverage or eligibility."
		}
		return "Moderate impact - this may affect your coverage or costs."
	}
	if severity == domain.SeverityMajor {
		return "Moderate impact - this affects an important aspect of your coverage."
	}
	return "Low impact - this is a minor difference that may not significantly affect you."
}

func featureBreakdown(result *domain.CompatibilityResult) domain.FeatureBreakdown {
	values := make(map[string][2]string)
	for _, m := range result.Matches {
		values[m.Feature] = [2]string{m.UserValue, m.PolicyValue}
	}
	for _, mm := range result.Mismatches {
		values[mm.Feature] = [2]string{mm.UserValue, mm.PolicyValue}
	}

	features := make([]string, 0, len(result.FeatureScores))
	for f := range result.FeatureScores {
		features = append(features, f)
	}
	sort.Strings(features)

	var breakdown domain.FeatureBreakdown
	breakdown.TotalFeaturesEvaluated = len(features)
	for _, feature := range features {
		score := result.FeatureScores[feature]
		outcome := domain.FeatureOutcome{
			Feature:     feature,
			DisplayName: matching.DisplayName(feature),
			Score:       score,
			Percentage:  math.Round(score*1000) / 10,
		}
		if v, ok := values[feature]; ok {
			outcome.UserValue, outcome.PolicyValue = v[0], v[1]
		}

		switch {
		case score >= 0.9:
			breakdown.Excellent = append(breakdown.Excellent, outcome)
			breakdown.Distribution.Excellent++
		case score >= 0.7:
			breakdown.Good = append(breakdown.Good, outcome)
			breakdown.Distribution.Good++
		case score >= 0.5:
			breakdown.Fair = append(breakdown.Fair, outcome)
			breakdown.Distribution.Fair++
		default:
			breakdown.Poor = append(breakdown.Poor, outcome)
			breakdown.Distribution.Poor++
		}
	}
	return breakdown
}

func (g *Generator) personalizedInsights(matches []domain.MatchEntry, mismatches []domain.MismatchEntry, prefs domain.PreferenceSet) []string {
	var insights []string

	switch g.insuranceType {
	case domain.InsuranceHealth:
		insights = append(insights, healthInsights(matches, mismatches, prefs)...)
	case domain.InsuranceFuneral:
		insights = append(insights, funeralInsights(matches, prefs)...)
	}

	if len(matches) > len(mismatches) {
		insights = append(insights, "This policy aligns well with most of your stated preferences.")
	} else if len(mismatches) > len(matches) {
		insights = append(insights, "This policy has several areas that don't match your preferences - consider if the benefits outweigh the drawbacks.")
	}

	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}

func healthInsights(matches []domain.MatchEntry, mismatches []domain.MismatchEntry, prefs domain.PreferenceSet) []string {
	var insights []string

	if pref, ok := prefs[domain.FeatureAnnualLimitPerFamily]; ok && pref.Number != nil {
		if hasFeature(matches, domain.FeatureAnnualLimitPerFamily) {
			insights = append(insights, fmt.Sprintf("The annual family limit meets your preference of %s.",
				matching.FormatValue(domain.FeatureAnnualLimitPerFamily, pref)))
		} else if hasMismatch(mismatches, domain.FeatureAnnualLimitPerFamily) {
			insights = append(insights, "The annual family limit may not meet your preferred amount.")
		}
	}

	if pref, ok := prefs[domain.FeatureCurrentlyOnMedicalAid]; ok && pref.Bool != nil {
		if hasFeature(matches, domain.FeatureCurrentlyOnMedicalAid) {
			if *pref.Bool {
				insights = append(insights, "This policy is compatible with your current medical aid status.")
			} else {
				insights = append(insights, "This policy is suitable for someone not currently on medical aid.")
			}
		}
	}

	if pref, ok := prefs[domain.FeatureAmbulanceCoverage]; ok && pref.Bool != nil && *pref.Bool {
		if hasFeature(matches, domain.FeatureAmbulanceCoverage) {
			insights = append(insights, "Great news - this policy includes ambulance coverage as you requested.")
		} else if hasMismatch(mismatches, domain.FeatureAmbulanceCoverage) {
			insights = append(insights, "Important: This policy may not include ambulance coverage, which you indicated as needed.")
		}
	}

	if pref, ok := prefs[domain.FeatureChronicMedication]; ok && pref.Bool != nil && *pref.Bool {
		if hasFeature(matches, domain.FeatureChronicMedication) {
			insights = append(insights, "Great news - this policy covers chronic medication as you requested.")
		} else if hasMismatch(mismatches, domain.FeatureChronicMedication) {
			insights = append(insights, "Important: This policy may not cover chronic medication, which you indicated as needed.")
		}
	}

	inPref, inOK := prefs[domain.FeatureInHospitalBenefit]
	outPref, outOK := prefs[domain.FeatureOutHospitalBenefit]
	if inOK && outOK && inPref.Bool != nil && *inPref.Bool && outPref.Bool != nil && *outPref.Bool {
		if hasFeature(matches, domain.FeatureInHospitalBenefit) && hasFeature(matches, domain.FeatureOutHospitalBenefit) {
			insights = append(insights, "This policy provides both in-hospital and out-of-hospital benefits as you wanted.")
		}
	}

	return insights
}

func funeralInsights(matches []domain.MatchEntry, prefs domain.PreferenceSet) []string {
	var insights []string

	if pref, ok := prefs[domain.FeatureCoverAmount]; ok && pref.Number != nil {
		if hasFeature(matches, domain.FeatureCoverAmount) {
			insights = append(insights, fmt.Sprintf("The coverage amount meets your preference of %s.",
				matching.FormatValue(domain.FeatureCoverAmount, pref)))
		} else {
			insights = append(insights, "Consider whether the coverage amount provides adequate financial protection.")
		}
	}

	if pref, ok := prefs[domain.FeatureMonthlyNetIncome]; ok && pref.Number != nil {
		if hasFeature(matches, domain.FeatureMonthlyNetIncome) {
			insights = append(insights, "Your income meets the policy requirements.")
		} else {
			insights = append(insights, "Please verify that your income meets this policy's requirements.")
		}
	}

	return insights
}

func comparisonContext(overall float64) domain.ComparisonContext {
	percent := overall * 100

	var interpretation string
	switch {
	case percent >= 90:
		interpretation = fmt.Sprintf("Exceptional compatibility (%.1f%%) - this policy aligns very well with your needs.", percent)
	case percent >= 75:
		interpretation = fmt.Sprintf("High compatibility (%.1f%%) - this policy meets most of your requirements.", percent)
	case percent >= 60:
		interpretation = fmt.Sprintf("Good compatibility (%.1f%%) - this policy covers your main needs.", percent)
	case percent >= 40:
		interpretation = fmt.Sprintf("Moderate compatibility (%.1f%%) - this policy has some alignment with your needs.", percent)
	default:
		interpretation = fmt.Sprintf("Low compatibility (%.1f%%) - this policy doesn't align well with your preferences.", percent)
	}

	var relative string
	switch {
	case overall >= 0.9:
		relative = "This is an exceptionally high compatibility score."
	case overall >= 0.75:
		relative = "This is a very good compatibility score."
	case overall >= 0.6:
		relative = "This is a solid compatibility score."
	case overall >= 0.4:
		relative = "This is a moderate compatibility score."
	default:
		relative = "This is a below-average compatibility score."
	}

	return domain.ComparisonContext{
		Interpretation: interpretation,
		TypicalRanges: map[string]float64{
			"excellent": 0.9,
			"very_good": 0.75,
			"good":      0.6,
			"fair":      0.4,
			"poor":      0.0,
		},
		RelativePerformance: relative,
	}
}

func nextSteps(overall float64, mismatches []domain.MismatchEntry) []string {
	var steps []string
	switch {
	case overall >= 0.8:
		steps = append(steps,
			"This is a strong match - consider requesting a detailed quote.",
			"Contact the insurer to discuss specific terms and conditions.")
	case overall >= 0.6:
		steps = append(steps,
			"This policy shows good potential - review the areas of concern carefully.",
			"Consider speaking with an agent to address any questions about mismatched features.")
	case overall >= 0.4:
		steps = append(steps,
			"This policy has mixed compatibility - weigh the pros and cons carefully.",
			"Consider comparing with other options before making a decision.")
	default:
		steps = append(steps,
			"This policy may not be the best fit - consider exploring other options.",
			"If interested, discuss with the insurer how the gaps might be addressed.")
	}

	for _, mm := range mismatches {
		if mm.Severity == domain.SeverityMajor {
			steps = append(steps, "Pay special attention to the major mismatches identified.")
			break
		}
	}

	if len(steps) > maxSteps {
		steps = steps[:maxSteps]
	}
	return steps
}

func hasFeature(matches []domain.MatchEntry, feature string) bool {
	for _, m := range matches {
		if m.Feature == feature {
			return true
		}
	}
	return false
}

func hasMismatch(mismatches []domain.MismatchEntry, feature string) bool {
	for _, m := range mismatches {
		if m.Feature == feature {
			return true
		}
	}
	return false
}

func displayNames(matches []domain.MatchEntry, limit int) []string {
	if limit > len(matches) {
		limit = len(matches)
	}
	names := make([]string, 0, limit)
	for _, m := range matches[:limit] {
		names = append(names, m.DisplayName)
	}
	return names
}

func joinLower(names []string) string {
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}
	if len(lowered) <= 2 {
		return strings.Join(lowered, " and ")
	}
	return strings.Join(lowered[:len(lowered)-1], ", ") + ", and " + lowered[len(lowered)-1]
}
