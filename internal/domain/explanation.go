package domain

// ExplanationBundle is the full user-facing explanation for one ranked result.
type ExplanationBundle struct {
	PolicyID   string `json:"policyId"`
	PolicyName string `json:"policyName"`

	OverallAssessment    Assessment        `json:"overallAssessment"`
	WhyRecommended       []string          `json:"whyRecommended"`
	PotentialConcerns    []Concern         `json:"potentialConcerns"`
	FeatureBreakdown     FeatureBreakdown  `json:"featureBreakdown"`
	PersonalizedInsights []string          `json:"personalizedInsights"`
	ComparisonContext    ComparisonContext `json:"comparisonContext"`
	NextSteps            []string          `json:"nextSteps"`
}

// Assessment is the headline judgement for a result.
type Assessment struct {
	Score       float64 `json:"score"` // percent
	Level       string  `json:"level"` // "Excellent", "Very Good", ...
	Description string  `json:"description"`
	Confidence  string  `json:"confidence"`
	Strength    string  `json:"recommendationStrength"`
}

// Concern explains one mismatched feature and how to mitigate it.
type Concern struct {
	Feature     string `json:"feature"`
	DisplayName string `json:"featureName"`
	Severity    string `json:"severity"`
	Explanation string `json:"explanation"`
	Impact      string `json:"impact"`
	Mitigation  string `json:"mitigation"`
}

// FeatureOutcome is one feature's score with its formatted values.
// Percentage is the score on the 0-100 scale, rounded to 1 decimal.
type FeatureOutcome struct {
	Feature     string  `json:"feature"`
	DisplayName string  `json:"featureName"`
	Score       float64 `json:"score"`
	Percentage  float64 `json:"percentage"`
	UserValue   string  `json:"userPreference,omitempty"`
	PolicyValue string  `json:"policyValue,omitempty"`
}

// FeatureBreakdown buckets feature outcomes by score band.
type FeatureBreakdown struct {
	TotalFeaturesEvaluated int               `json:"totalFeaturesEvaluated"`
	Excellent              []FeatureOutcome  `json:"excellent"` // >= 0.9
	Good                   []FeatureOutcome  `json:"good"`      // >= 0.7
	Fair                   []FeatureOutcome  `json:"fair"`      // >= 0.5
	Poor                   []FeatureOutcome  `json:"poor"`      // < 0.5
	Distribution           ScoreDistribution `json:"scoreDistribution"`
}

// ScoreDistribution counts features per score band.
type ScoreDistribution struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Fair      int `json:"fair"`
	Poor      int `json:"poor"`
}

// ComparisonContext situates a score against typical outcomes.
type ComparisonContext struct {
	Interpretation      string             `json:"interpretation"`
	TypicalRanges       map[string]float64 `json:"typicalRanges"`
	RelativePerformance string             `json:"relativePerformance"`
}
