package explain

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/Fanelemenzi/pholli-compare/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func strongResult() *domain.CompatibilityResult {
	return &domain.CompatibilityResult{
		PolicyID:     "pol-1",
		PolicyName:   "ComprehensiveCare Plus",
		OverallScore: 0.85,
		ScorePercent: 85.0,
		Matches: []domain.MatchEntry{
			{Feature: domain.FeatureAnnualLimitPerFamily, DisplayName: "Annual Limit per Family", UserValue: "R100,000.00", PolicyValue: "R120,000.00", Score: 1.0, Quality: domain.QualityExcellent},
			{Feature: domain.FeatureAmbulanceCoverage, DisplayName: "Ambulance Coverage", UserValue: "Yes", PolicyValue: "Yes", Score: 1.0, Quality: domain.QualityExcellent},
			{Feature: domain.FeatureAnnualLimitPerMember, DisplayName: "Annual Limit per Member", UserValue: "R50,000.00", PolicyValue: "R45,000.00", Score: 0.9, Quality: domain.QualityGood},
		},
		Mismatches: []domain.MismatchEntry{
			{Feature: domain.FeatureChronicMedication, DisplayName: "Chronic Medication Coverage", UserValue: "Yes", PolicyValue: "No", Score: 0.0, Severity: domain.SeverityMajor},
		},
		FeatureScores: map[string]float64{
			domain.FeatureAnnualLimitPerFamily:   1.0,
			domain.FeatureAmbulanceCoverage:      1.0,
			domain.FeatureAnnualLimitPerMember:   0.9,
			domain.FeatureChronicMedication:      0.0,
			domain.FeatureMonthlyHouseholdIncome: 0.65,
		},
	}
}

func strongPrefs() domain.PreferenceSet {
	return domain.PreferenceSet{
		domain.FeatureAnnualLimitPerFamily: domain.NumberValue(100000),
		domain.FeatureAmbulanceCoverage:    domain.BoolValue(true),
		domain.FeatureChronicMedication:    domain.BoolValue(true),
	}
}

func TestAssessmentTiers(t *testing.T) {
	tests := []struct {
		score      float64
		level      string
		confidence string
		strength   string
	}{
		{0.95, "Excellent Match", "Very High", "Highly Recommended"},
		{0.80, "Very Good Match", "High", "Strongly Recommended"},
		{0.65, "Good Match", "Moderate", "Recommended"},
		{0.45, "Partial Match", "Low", "Consider with Caution"},
		{0.20, "Poor Match", "Very Low", "Not Recommended"},
	}

	for _, tt := range tests {
		got := assessment(tt.score)
		if got.Level != tt.level {
			t.Errorf("assessment(%v).Level = %q, want %q", tt.score, got.Level, tt.level)
		}
		if got.Confidence != tt.confidence {
			t.Errorf("assessment(%v).Confidence = %q, want %q", tt.score, got.Confidence, tt.confidence)
		}
		if got.Strength != tt.strength {
			t.Errorf("assessment(%v).Strength = %q, want %q", tt.score, got.Strength, tt.strength)
		}
	}
}

func TestGenerateBundle(t *testing.T) {
	gen := NewGenerator(domain.InsuranceHealth, testLogger)
	bundle := gen.Generate(strongResult(), strongPrefs())

	if bundle.PolicyID != "pol-1" || bundle.PolicyName != "ComprehensiveCare Plus" {
		t.Errorf("bundle identity = %s / %s", bundle.PolicyID, bundle.PolicyName)
	}
	if bundle.OverallAssessment.Score != 85.0 {
		t.Errorf("assessment score = %v, want 85.0", bundle.OverallAssessment.Score)
	}
	if len(bundle.WhyRecommended) == 0 || len(bundle.WhyRecommended) > 5 {
		t.Errorf("WhyRecommended = %d entries", len(bundle.WhyRecommended))
	}
	if len(bundle.PersonalizedInsights) > 4 {
		t.Errorf("PersonalizedInsights = %d entries, cap is 4", len(bundle.PersonalizedInsights))
	}
	if len(bundle.NextSteps) > 4 {
		t.Errorf("NextSteps = %d entries, cap is 4", len(bundle.NextSteps))
	}
}

func TestConcernSeverityAndImpact(t *testing.T) {
	bundle := NewGenerator(domain.InsuranceHealth, testLogger).Generate(strongResult(), strongPrefs())

	if len(bundle.PotentialConcerns) != 1 {
		t.Fatalf("concerns = %d, want 1", len(bundle.PotentialConcerns))
	}
	c := bundle.PotentialConcerns[0]
	if c.Severity != domain.SeverityMajor {
		t.Errorf("severity = %q", c.Severity)
	}
	if !strings.Contains(c.Explanation, "significantly differs") {
		t.Errorf("major mismatch explanation = %q", c.Explanation)
	}
	// Chronic medication is not a high-impact feature, so a major mismatch
	// lands on moderate impact.
	if !strings.HasPrefix(c.Impact, "Moderate impact") {
		t.Errorf("impact = %q", c.Impact)
	}
	if c.Mitigation != "If you need chronic medication, this could be a significant gap in coverage." {
		t.Errorf("mitigation = %q", c.Mitigation)
	}
}

func TestHighImpactConcern(t *testing.T) {
	result := strongResult()
	result.Mismatches = []domain.MismatchEntry{
		{Feature: domain.FeatureAnnualLimitPerMember, DisplayName: "Annual Limit per Member", UserValue: "R500,000.00", PolicyValue: "R50,000.00", Score: 0.1, Severity: domain.SeverityMajor},
	}

	bundle := NewGenerator(domain.InsuranceHealth, testLogger).Generate(result, strongPrefs())
	if got := bundle.PotentialConcerns[0].Impact; !strings.HasPrefix(got, "High impact") {
		t.Errorf("impact = %q, want high impact", got)
	}
}

func TestFeatureBreakdownBuckets(t *testing.T) {
	bundle := NewGenerator(domain.InsuranceHealth, testLogger).Generate(strongResult(), strongPrefs())
	b := bundle.FeatureBreakdown

	if len(b.Excellent) != 3 {
		t.Errorf("excellent = %d, want 3", len(b.Excellent))
	}
	if len(b.Good) != 0 {
		t.Errorf("good = %d, want 0", len(b.Good))
	}
	if len(b.Fair) != 1 {
		t.Errorf("fair = %d, want 1", len(b.Fair))
	}
	if len(b.Poor) != 1 {
		t.Errorf("poor = %d, want 1", len(b.Poor))
	}
	if b.TotalFeaturesEvaluated != 5 {
		t.Errorf("total features evaluated = %d, want 5", b.TotalFeaturesEvaluated)
	}
	if b.Distribution.Excellent != 3 || b.Distribution.Good != 0 || b.Distribution.Fair != 1 || b.Distribution.Poor != 1 {
		t.Errorf("distribution = %+v, want 3/0/1/1", b.Distribution)
	}

	// Values carried over from the match entries.
	for _, o := range b.Excellent {
		if o.Feature == domain.FeatureAnnualLimitPerFamily && o.PolicyValue != "R120,000.00" {
			t.Errorf("family limit policy value = %q", o.PolicyValue)
		}
	}
}

func TestFeatureBreakdownTotalsAndPercentages(t *testing.T) {
	result := &domain.CompatibilityResult{
		PolicyID:     "pol-2",
		PolicyName:   "EssentialCare",
		OverallScore: 0.62,
		ScorePercent: 62.0,
		FeatureScores: map[string]float64{
			domain.FeatureAnnualLimitPerFamily: 0.95,
			domain.FeatureAmbulanceCoverage:    0.6,
			domain.FeatureChronicMedication:    0.3,
		},
	}

	b := featureBreakdown(result)

	if b.TotalFeaturesEvaluated != 3 {
		t.Errorf("total features evaluated = %d, want 3", b.TotalFeaturesEvaluated)
	}
	if b.Distribution.Excellent != 1 || b.Distribution.Good != 0 || b.Distribution.Fair != 1 || b.Distribution.Poor != 1 {
		t.Errorf("distribution = %+v, want 1/0/1/1", b.Distribution)
	}
	if len(b.Excellent) != 1 || b.Excellent[0].Percentage != 95.0 {
		t.Errorf("excellent = %+v, want one entry at 95.0%%", b.Excellent)
	}
	if len(b.Fair) != 1 || b.Fair[0].Percentage != 60.0 {
		t.Errorf("fair = %+v, want one entry at 60.0%%", b.Fair)
	}
	if len(b.Poor) != 1 || b.Poor[0].Percentage != 30.0 {
		t.Errorf("poor = %+v, want one entry at 30.0%%", b.Poor)
	}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, field := range []string{`"totalFeaturesEvaluated":3`, `"scoreDistribution"`, `"percentage":95`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("marshaled breakdown missing %s: %s", field, data)
		}
	}
}

func TestPersonalizedInsightsHealth(t *testing.T) {
	bundle := NewGenerator(domain.InsuranceHealth, testLogger).Generate(strongResult(), strongPrefs())

	joined := strings.Join(bundle.PersonalizedInsights, " | ")
	if !strings.Contains(joined, "annual family limit meets your preference of R100,000.00") {
		t.Errorf("missing family limit insight: %q", joined)
	}
	if !strings.Contains(joined, "ambulance coverage as you requested") {
		t.Errorf("missing ambulance insight: %q", joined)
	}
	if !strings.Contains(joined, "may not cover chronic medication") {
		t.Errorf("missing chronic medication warning: %q", joined)
	}
}

func TestPersonalizedInsightsFuneral(t *testing.T) {
	result := &domain.CompatibilityResult{
		PolicyID:     "pol-f",
		PolicyName:   "Family Dignity Plan",
		OverallScore: 0.7,
		ScorePercent: 70.0,
		Matches: []domain.MatchEntry{
			{Feature: domain.FeatureCoverAmount, DisplayName: "Coverage Amount", Score: 1.0, Quality: domain.QualityExcellent},
		},
		FeatureScores: map[string]float64{domain.FeatureCoverAmount: 1.0},
	}
	prefs := domain.PreferenceSet{
		domain.FeatureCoverAmount: domain.NumberValue(50000),
	}

	bundle := NewGenerator(domain.InsuranceFuneral, testLogger).Generate(result, prefs)
	joined := strings.Join(bundle.PersonalizedInsights, " | ")
	if !strings.Contains(joined, "coverage amount meets your preference of R50,000.00") {
		t.Errorf("missing coverage insight: %q", joined)
	}
}

func TestNextStepsTiers(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.85, "This is a strong match - consider requesting a detailed quote."},
		{0.65, "This policy shows good potential - review the areas of concern carefully."},
		{0.45, "This policy has mixed compatibility - weigh the pros and cons carefully."},
		{0.20, "This policy may not be the best fit - consider exploring other options."},
	}
	for _, tt := range tests {
		steps := nextSteps(tt.score, nil)
		if len(steps) != 2 || steps[0] != tt.want {
			t.Errorf("nextSteps(%v)[0] = %q, want %q", tt.score, steps[0], tt.want)
		}
	}

	withMajor := nextSteps(0.85, []domain.MismatchEntry{{Severity: domain.SeverityMajor}})
	if len(withMajor) != 3 || withMajor[2] != "Pay special attention to the major mismatches identified." {
		t.Errorf("major mismatch step missing: %v", withMajor)
	}
}

func TestComparisonContext(t *testing.T) {
	ctx := comparisonContext(0.85)
	if !strings.Contains(ctx.Interpretation, "High compatibility (85.0%)") {
		t.Errorf("interpretation = %q", ctx.Interpretation)
	}
	if ctx.TypicalRanges["very_good"] != 0.75 {
		t.Errorf("typical ranges = %v", ctx.TypicalRanges)
	}
	if ctx.RelativePerformance != "This is a very good compatibility score." {
		t.Errorf("relative performance = %q", ctx.RelativePerformance)
	}
}

func TestReasonsNoMatches(t *testing.T) {
	gen := NewGenerator(domain.InsuranceHealth, testLogger)

	if got := gen.recommendationReasons(nil, 0.55); len(got) != 1 {
		t.Errorf("reasons = %v, want the limited-matches fallback", got)
	}
	if got := gen.recommendationReasons(nil, 0.3); len(got) != 0 {
		t.Errorf("reasons = %v, want none", got)
	}
}
