package domain

import (
	"time"
)

// Policy represents an insurance product offered by an organization.
type Policy struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Organization   string        `json:"organization,omitempty"`
	InsuranceType  InsuranceType `json:"insuranceType"`
	BasePremium    float64       `json:"basePremium"`
	CoverageAmount float64       `json:"coverageAmount"`
	IsActive       bool          `json:"isActive"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`

	// Features is nil when the policy has no feature record yet.
	Features *PolicyFeatureRecord `json:"features,omitempty"`
}

// PolicyFeatureRecord holds the comparable feature values of a policy.
// Nil fields mean the policy does not declare that feature.
type PolicyFeatureRecord struct {
	PolicyID      string        `json:"policyId"`
	InsuranceType InsuranceType `json:"insuranceType"`

	// Health features
	AnnualLimitPerMember          *float64 `json:"annualLimitPerMember,omitempty"`
	AnnualLimitPerFamily          *float64 `json:"annualLimitPerFamily,omitempty"`
	MonthlyHouseholdIncome        *float64 `json:"monthlyHouseholdIncome,omitempty"`
	CurrentlyOnMedicalAid         *bool    `json:"currentlyOnMedicalAid,omitempty"`
	AmbulanceCoverage             *bool    `json:"ambulanceCoverage,omitempty"`
	InHospitalBenefit             *bool    `json:"inHospitalBenefit,omitempty"`
	OutHospitalBenefit            *bool    `json:"outHospitalBenefit,omitempty"`
	ChronicMedicationAvailability *bool    `json:"chronicMedicationAvailability,omitempty"`

	// Funeral features
	CoverAmount              *float64 `json:"coverAmount,omitempty"`
	MaritalStatusRequirement *string  `json:"maritalStatusRequirement,omitempty"`
	GenderRequirement        *string  `json:"genderRequirement,omitempty"`
	MonthlyNetIncome         *float64 `json:"monthlyNetIncome,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Value returns the feature value for the given canonical feature name.
// Absent fields and unknown names come back as a null FeatureValue.
func (r *PolicyFeatureRecord) Value(feature string) FeatureValue {
	if r == nil {
		return FeatureValue{}
	}
	switch feature {
	case FeatureAnnualLimitPerMember:
		return numberOrNull(r.AnnualLimitPerMember)
	case FeatureAnnualLimitPerFamily:
		return numberOrNull(r.AnnualLimitPerFamily)
	case FeatureMonthlyHouseholdIncome:
		return numberOrNull(r.MonthlyHouseholdIncome)
	case FeatureCurrentlyOnMedicalAid:
		return boolOrNull(r.CurrentlyOnMedicalAid)
	case FeatureAmbulanceCoverage:
		return boolOrNull(r.AmbulanceCoverage)
	case FeatureInHospitalBenefit:
		return boolOrNull(r.InHospitalBenefit)
	case FeatureOutHospitalBenefit:
		return boolOrNull(r.OutHospitalBenefit)
	case FeatureChronicMedication:
		return boolOrNull(r.ChronicMedicationAvailability)
	case FeatureCoverAmount:
		return numberOrNull(r.CoverAmount)
	case FeatureMaritalStatusRequirement:
		return textOrNull(r.MaritalStatusRequirement)
	case FeatureGenderRequirement:
		return textOrNull(r.GenderRequirement)
	case FeatureMonthlyNetIncome:
		return numberOrNull(r.MonthlyNetIncome)
	default:
		return FeatureValue{}
	}
}

func numberOrNull(f *float64) FeatureValue {
	if f == nil {
		return FeatureValue{}
	}
	return FeatureValue{Number: f}
}

func boolOrNull(b *bool) FeatureValue {
	if b == nil {
		return FeatureValue{}
	}
	return FeatureValue{Bool: b}
}

func textOrNull(s *string) FeatureValue {
	if s == nil {
		return FeatureValue{}
	}
	return FeatureValue{Text: s}
}

// Canonical feature names shared by surveys and policy feature records.
const (
	FeatureAnnualLimitPerMember     = "annual_limit_per_member"
	FeatureAnnualLimitPerFamily     = "annual_limit_per_family"
	FeatureMonthlyHouseholdIncome   = "monthly_household_income"
	FeatureCurrentlyOnMedicalAid    = "currently_on_medical_aid"
	FeatureAmbulanceCoverage        = "ambulance_coverage"
	FeatureInHospitalBenefit        = "in_hospital_benefit"
	FeatureOutHospitalBenefit       = "out_hospital_benefit"
	FeatureChronicMedication        = "chronic_medication_availability"
	FeatureCoverAmount              = "cover_amount"
	FeatureMaritalStatusRequirement = "marital_status_requirement"
	FeatureGenderRequirement        = "gender_requirement"
	FeatureMonthlyNetIncome         = "monthly_net_income"
)

// PolicyRequest is the API request payload for creating a policy.
type PolicyRequest struct {
	Name           string               `json:"name"`
	Organization   string               `json:"organization,omitempty"`
	InsuranceType  InsuranceType        `json:"insuranceType"`
	BasePremium    float64              `json:"basePremium"`
	CoverageAmount float64              `json:"coverageAmount"`
	Features       *PolicyFeatureRecord `json:"features,omitempty"`
}

// ToPolicy converts a request to a Policy domain object.
func (r *PolicyRequest) ToPolicy(id string) *Policy {
	now := time.Now().UTC()
	p := &Policy{
		ID:             id,
		Name:           r.Name,
		Organization:   r.Organization,
		InsuranceType:  r.InsuranceType,
		BasePremium:    r.BasePremium,
		CoverageAmount: r.CoverageAmount,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if r.Features != nil {
		f := *r.Features
		f.PolicyID = id
		f.InsuranceType = r.InsuranceType
		f.UpdatedAt = now
		p.Features = &f
	}
	return p
}
