// Package matching provides the feature compatibility scoring engine.
package matching

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Fanelemenzi/pholli-compare/internal/domain"
)

// FeatureKind declares how a feature is scored. Dispatch happens on this tag,
// never on runtime value inspection.
type FeatureKind string

const (
	// KindBool scores 1.0 on exact equality, 0.0 otherwise.
	KindBool FeatureKind = "bool"

	// KindNumericHigherBetter gives full credit when the policy value meets or
	// exceeds the preference (coverage amounts, annual limits).
	KindNumericHigherBetter FeatureKind = "numeric_higher_better"

	// KindNumericLowerBetter gives full credit when the preference meets or
	// exceeds the policy value (income requirements).
	KindNumericLowerBetter FeatureKind = "numeric_lower_better"

	// KindNumericGeneric rewards proximity with a 20% tolerance band.
	KindNumericGeneric FeatureKind = "numeric_generic"

	// KindCategorical matches strings through synonym buckets with a
	// substring fallback.
	KindCategorical FeatureKind = "categorical"
)

// FeatureSpec describes one comparable feature: how it is scored, how much it
// weighs in the overall score, and how its values are shown to users.
type FeatureSpec struct {
	Name        string
	Kind        FeatureKind
	Weight      float64
	DisplayName string

	// Synonyms holds canonical -> variations buckets for categorical features.
	Synonyms map[string][]string
}

// Catalog is the immutable feature configuration for one insurance type.
type Catalog struct {
	insuranceType domain.InsuranceType
	features      []FeatureSpec
	byName        map[string]FeatureSpec
}

// defaultWeight applies to features outside the per-type weight tables.
const defaultWeight = 1.0

var maritalSynonyms = map[string][]string{
	"single":   {"unmarried", "not married", "single"},
	"married":  {"married", "wed"},
	"divorced": {"divorced", "separated"},
	"widowed":  {"widowed", "widow", "widower"},
	"any":      {"any", "all", "no requirement", "none"},
}

var genderSynonyms = map[string][]string{
	"male":   {"male", "m", "man"},
	"female": {"female", "f", "woman"},
	"any":    {"any", "all", "both", "no requirement", "none"},
}

var healthFeatures = []FeatureSpec{
	{Name: domain.FeatureAnnualLimitPerMember, Kind: KindNumericHigherBetter, Weight: 1.8, DisplayName: "Annual Limit per Member"},
	{Name: domain.FeatureAnnualLimitPerFamily, Kind: KindNumericHigherBetter, Weight: 2.2, DisplayName: "Annual Limit per Family"},
	{Name: domain.FeatureMonthlyHouseholdIncome, Kind: KindNumericLowerBetter, Weight: 1.8, DisplayName: "Monthly Household Income Requirement"},
	{Name: domain.FeatureCurrentlyOnMedicalAid, Kind: KindBool, Weight: 1.6, DisplayName: "Current Medical Aid Status"},
	{Name: domain.FeatureAmbulanceCoverage, Kind: KindBool, Weight: 1.4, DisplayName: "Ambulance Coverage"},
	{Name: domain.FeatureInHospitalBenefit, Kind: KindBool, Weight: 1.5, DisplayName: "In-Hospital Benefits"},
	{Name: domain.FeatureOutHospitalBenefit, Kind: KindBool, Weight: 1.5, DisplayName: "Out-of-Hospital Benefits"},
	{Name: domain.FeatureChronicMedication, Kind: KindBool, Weight: 1.3, DisplayName: "Chronic Medication Coverage"},
}

var funeralFeatures = []FeatureSpec{
	{Name: domain.FeatureCoverAmount, Kind: KindNumericHigherBetter, Weight: 2.0, DisplayName: "Coverage Amount"},
	{Name: domain.FeatureMaritalStatusRequirement, Kind: KindCategorical, Weight: 1.0, DisplayName: "Marital Status Requirement", Synonyms: maritalSynonyms},
	{Name: domain.FeatureGenderRequirement, Kind: KindCategorical, Weight: 1.0, DisplayName: "Gender Requirement", Synonyms: genderSynonyms},
}

// CatalogFor returns the feature catalog for the given insurance type.
// Unknown types fail fast.
func CatalogFor(t domain.InsuranceType) (*Catalog, error) {
	var features []FeatureSpec
	switch t {
	case domain.InsuranceHealth:
		features = healthFeatures
	case domain.InsuranceFuneral:
		features = funeralFeatures
	default:
		return nil, fmt.Errorf("unknown insurance type: %q", t)
	}

	byName := make(map[string]FeatureSpec, len(features))
	for _, f := range features {
		byName[f.Name] = f
	}
	return &Catalog{insuranceType: t, features: features, byName: byName}, nil
}

// InsuranceType returns the type this catalog covers.
func (c *Catalog) InsuranceType() domain.InsuranceType { return c.insuranceType }

// Features returns the relevant features in comparison order.
func (c *Catalog) Features() []FeatureSpec { return c.features }

// Spec looks up a feature by canonical name.
func (c *Catalog) Spec(name string) (FeatureSpec, bool) {
	spec, ok := c.byName[name]
	return spec, ok
}

// Weight returns the feature's weight, or the default for unknown features.
func (c *Catalog) Weight(name string) float64 {
	if spec, ok := c.byName[name]; ok {
		return spec.Weight
	}
	return defaultWeight
}

var displayNames = map[string]string{
	domain.FeatureAnnualLimitPerMember:     "Annual Limit per Member",
	domain.FeatureAnnualLimitPerFamily:     "Annual Limit per Family",
	domain.FeatureMonthlyHouseholdIncome:   "Monthly Household Income Requirement",
	domain.FeatureCurrentlyOnMedicalAid:    "Current Medical Aid Status",
	domain.FeatureAmbulanceCoverage:        "Ambulance Coverage",
	domain.FeatureInHospitalBenefit:        "In-Hospital Benefits",
	domain.FeatureOutHospitalBenefit:       "Out-of-Hospital Benefits",
	domain.FeatureChronicMedication:        "Chronic Medication Coverage",
	domain.FeatureCoverAmount:              "Coverage Amount",
	domain.FeatureMaritalStatusRequirement: "Marital Status Requirement",
	domain.FeatureGenderRequirement:        "Gender Requirement",
	domain.FeatureMonthlyNetIncome:         "Monthly Net Income Requirement",
}

// DisplayName returns the human-readable name for a feature. Unknown features
// fall back to title-cased words.
func DisplayName(feature string) string {
	if name, ok := displayNames[feature]; ok {
		return name
	}
	return titleWords(strings.ReplaceAll(feature, "_", " "))
}

// Features whose numeric values are shown as rand amounts.
var currencyFeatures = map[string]bool{
	domain.FeatureAnnualLimitPerMember:   true,
	domain.FeatureAnnualLimitPerFamily:   true,
	domain.FeatureCoverAmount:            true,
	domain.FeatureMonthlyHouseholdIncome: true,
	domain.FeatureMonthlyNetIncome:       true,
}

// FormatValue renders a feature value for display: booleans as Yes/No,
// currency features as rand amounts, other text title-cased.
func FormatValue(feature string, v domain.FeatureValue) string {
	switch {
	case v.Bool != nil:
		if *v.Bool {
			return "Yes"
		}
		return "No"
	case v.Number != nil:
		if currencyFeatures[feature] {
			return "R" + humanize.FormatFloat("#,###.##", *v.Number)
		}
		return strconv.FormatFloat(*v.Number, 'f', -1, 64)
	case v.Text != nil:
		return titleWords(*v.Text)
	default:
		return ""
	}
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
