package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// InsuranceType identifies the product line a survey or policy belongs to.
type InsuranceType string

const (
	InsuranceHealth  InsuranceType = "HEALTH"
	InsuranceFuneral InsuranceType = "FUNERAL"
)

// Valid reports whether t is a known insurance type.
func (t InsuranceType) Valid() bool {
	return t == InsuranceHealth || t == InsuranceFuneral
}

// Survey represents a completed needs-assessment survey.
type Survey struct {
	ID            string        `json:"id"`
	InsuranceType InsuranceType `json:"insuranceType"`
	Preferences   PreferenceSet `json:"preferences"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// PreferenceSet maps feature names to the respondent's stated preferences.
// Keys use the canonical snake_case feature vocabulary
// (e.g. "annual_limit_per_family", "cover_amount").
type PreferenceSet map[string]FeatureValue

// FeatureValue is a tagged union holding one of the three value kinds a
// preference or policy feature may carry. At most one field is non-nil;
// all nil means the value is absent.
type FeatureValue struct {
	Bool   *bool
	Number *float64
	Text   *string
}

// BoolValue wraps a boolean feature value.
func BoolValue(b bool) FeatureValue { return FeatureValue{Bool: &b} }

// NumberValue wraps a numeric feature value.
func NumberValue(f float64) FeatureValue { return FeatureValue{Number: &f} }

// TextValue wraps a string feature value.
func TextValue(s string) FeatureValue { return FeatureValue{Text: &s} }

// IsNull reports whether the value is absent.
func (v FeatureValue) IsNull() bool {
	return v.Bool == nil && v.Number == nil && v.Text == nil
}

// MarshalJSON encodes the underlying value, or null when absent.
func (v FeatureValue) MarshalJSON() ([]byte, error) {
	switch {
	case v.Bool != nil:
		return json.Marshal(*v.Bool)
	case v.Number != nil:
		return json.Marshal(*v.Number)
	case v.Text != nil:
		return json.Marshal(*v.Text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar into the matching variant.
func (v *FeatureValue) UnmarshalJSON(data []byte) error {
	*v = FeatureValue{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		v.Bool = &b
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v.Text = &s
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("feature value: unsupported JSON %q", data)
		}
		v.Number = &f
	}
	return nil
}

// SurveyRequest is the API request payload for creating a survey.
type SurveyRequest struct {
	InsuranceType InsuranceType `json:"insuranceType"`
	Preferences   PreferenceSet `json:"preferences"`
}

// ToSurvey converts a request to a Survey domain object.
func (r *SurveyRequest) ToSurvey(id string) *Survey {
	now := time.Now().UTC()
	return &Survey{
		ID:            id,
		InsuranceType: r.InsuranceType,
		Preferences:   r.Preferences,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
