package domain

import (
	"time"
)

// CompatibilityResult is the scored comparison of one policy against one survey.
type CompatibilityResult struct {
	ID         string `json:"id"`
	SurveyID   string `json:"surveyId"`
	PolicyID   string `json:"policyId"`
	PolicyName string `json:"policyName"`

	// OverallScore is the weighted average on [0,1], rounded to 3 decimals.
	OverallScore float64 `json:"overallScore"`

	// ScorePercent is OverallScore on the 0-100 display scale.
	ScorePercent float64 `json:"scorePercent"`

	Matches    []MatchEntry    `json:"matchedFeatures"`
	Mismatches []MismatchEntry `json:"mismatchedFeatures"`

	// FeatureScores holds the raw per-feature scores, including features in
	// neither the match nor mismatch list.
	FeatureScores map[string]float64 `json:"featureScores,omitempty"`

	// TotalFeaturesCompared is the number of features that produced a score.
	TotalFeaturesCompared int `json:"totalFeaturesCompared"`

	Explanation string `json:"explanation"`

	// Ranking fields, populated once the result set is ranked.
	Rank     int                    `json:"rank,omitempty"`
	Category RecommendationCategory `json:"category,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// MatchEntry describes a feature where the policy meets the preference well.
type MatchEntry struct {
	Feature     string  `json:"feature"`
	DisplayName string  `json:"featureName"`
	UserValue   string  `json:"userPreference"`
	PolicyValue string  `json:"policyValue"`
	Score       float64 `json:"score"`
	Quality     string  `json:"matchQuality"` // "excellent" or "good"
}

// MismatchEntry describes a feature where the policy falls short.
type MismatchEntry struct {
	Feature     string  `json:"feature"`
	DisplayName string  `json:"featureName"`
	UserValue   string  `json:"userPreference"`
	PolicyValue string  `json:"policyValue"`
	Score       float64 `json:"score"`
	Severity    string  `json:"severity"` // "major" or "moderate"
}

// Match quality and mismatch severity labels.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"

	SeverityMajor    = "major"
	SeverityModerate = "moderate"
)

// RecommendationCategory bands a ranked result on the 0-100 scale.
type RecommendationCategory string

const (
	CategoryPerfect   RecommendationCategory = "PERFECT_MATCH"   // >= 95
	CategoryExcellent RecommendationCategory = "EXCELLENT_MATCH" // >= 80
	CategoryGood      RecommendationCategory = "GOOD_MATCH"      // >= 60
	CategoryPartial   RecommendationCategory = "PARTIAL_MATCH"   // >= 40
	CategoryPoor      RecommendationCategory = "POOR_MATCH"
)

// RecommendationSummary aggregates a survey's ranked result set.
type RecommendationSummary struct {
	SurveyID       string                         `json:"surveyId"`
	TotalPolicies  int                            `json:"totalPolicies"`
	BestScore      float64                        `json:"bestScore"`    // percent
	AverageScore   float64                        `json:"averageScore"` // percent
	ExcellentCount int                            `json:"excellentCount"`
	GoodCount      int                            `json:"goodCount"`
	Categories     map[RecommendationCategory]int `json:"categories"`
	GeneratedAt    time.Time                      `json:"generatedAt"`
}

// RankingInsights summarizes the shape of a ranked result set.
type RankingInsights struct {
	BestScore    float64  `json:"bestScore"`
	WorstScore   float64  `json:"worstScore"`
	AverageScore float64  `json:"averageScore"`
	ScoreRange   float64  `json:"scoreRange"`
	Notes        []string `json:"notes,omitempty"`
}

// FeatureStat aggregates one feature's scores across a result set.
type FeatureStat struct {
	Feature      string  `json:"feature"`
	DisplayName  string  `json:"featureName"`
	AverageScore float64 `json:"averageScore"`
	BestScore    float64 `json:"bestScore"`
	WorstScore   float64 `json:"worstScore"`
	PolicyCount  int     `json:"policyCount"`
}

// FeatureAnalysis identifies which features the market serves well or poorly
// for a given survey.
type FeatureAnalysis struct {
	SurveyID    string        `json:"surveyId"`
	Stats       []FeatureStat `json:"stats"`
	Challenging []string      `json:"challengingFeatures"` // average < 0.5
	WellCovered []string      `json:"wellCoveredFeatures"` // average > 0.8
}

// Alternative is a non-primary recommendation with its differentiator.
type Alternative struct {
	PolicyID       string  `json:"policyId"`
	PolicyName     string  `json:"policyName"`
	Score          float64 `json:"score"` // percent
	Differentiator string  `json:"keyDifferentiator"`
}

// RecommendationSet pairs the primary recommendation with alternatives.
type RecommendationSet struct {
	Primary      *CompatibilityResult `json:"primary,omitempty"`
	Alternatives []Alternative        `json:"alternatives,omitempty"`
}
