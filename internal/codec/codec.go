package codec

import (
	"math"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/delay-risk-cli/internal/model"
)

// Policy decides how absent inputs are handled at inference time.
type Policy string

const (
	// PolicyStrict rejects any absent field.
	PolicyStrict Policy = "strict"
	// PolicyImpute fills absent fields the way training did: numeric fields
	// with the persisted training medians, categorical fields with the
	// Unknown bucket.
	PolicyImpute Policy = "impute"
)

// ParsePolicy converts a config value to a Policy. Empty means strict.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyImpute:
		return PolicyImpute, nil
	}
	return "", eris.Errorf("codec: unknown missing-value policy %q (want strict or impute)", s)
}

// Vectorize performs the categorical lookup, the numeric presence check, and
// the concatenation in model.Fields order. It does not scale.
func Vectorize(raw model.FeatureRow, encoders EncoderTable) ([]float64, error) {
	return vectorize(raw, encoders, PolicyStrict, nil)
}

// Encode is Vectorize followed by the scaler, with the strict policy.
func Encode(raw model.FeatureRow, encoders EncoderTable, scaler Scaler) ([]float64, error) {
	vec, err := Vectorize(raw, encoders)
	if err != nil {
		return nil, err
	}
	return scaler.Transform(vec)
}

func vectorize(raw model.FeatureRow, encoders EncoderTable, policy Policy, medians map[model.Field]float64) ([]float64, error) {
	vec := make([]float64, model.NumFeatures)

	for i, f := range model.Fields {
		if !f.Categorical() {
			continue
		}
		v := raw.Category(f)
		if v == "" {
			if policy != PolicyImpute {
				return nil, &MissingValueError{Field: f}
			}
			v = model.UnknownCategory
		}
		code, err := encoders.Code(f, v)
		if err != nil {
			return nil, err
		}
		vec[i] = float64(code)
	}

	for i, f := range model.Fields {
		if f.Categorical() {
			continue
		}
		v, ok := raw.Number(f)
		if !ok || math.IsNaN(v) {
			fill, have := medians[f]
			if policy != PolicyImpute || !have {
				return nil, &MissingValueError{Field: f}
			}
			v = fill
		}
		if math.IsInf(v, 0) {
			return nil, eris.Errorf("codec: %s is not finite", f)
		}
		vec[i] = v
	}

	return vec, nil
}

// Codec binds a fitted encoder table and scaler to a missing-value policy.
// It is immutable and safe for concurrent use.
type Codec struct {
	encoders EncoderTable
	scaler   Scaler
	policy   Policy
}

// New validates the artifacts and returns a Codec.
func New(encoders EncoderTable, scaler Scaler, policy Policy) (*Codec, error) {
	if err := encoders.Validate(); err != nil {
		return nil, err
	}
	if err := scaler.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = PolicyStrict
	}
	return &Codec{encoders: encoders, scaler: scaler, policy: policy}, nil
}

// Policy returns the configured missing-value policy.
func (c *Codec) Policy() Policy {
	return c.policy
}

// Encoders returns the encoder table.
func (c *Codec) Encoders() EncoderTable {
	return c.encoders
}

// Scaler returns the scaler.
func (c *Codec) Scaler() Scaler {
	return c.scaler
}

// Encode turns raw into a scaled vector of model.NumFeatures values.
func (c *Codec) Encode(raw model.FeatureRow) ([]float64, error) {
	vec, err := vectorize(raw, c.encoders, c.policy, c.scaler.Medians)
	if err != nil {
		return nil, err
	}
	return c.scaler.Transform(vec)
}

// FieldSummary describes how one feature column is encoded.
type FieldSummary struct {
	Field       model.Field `json:"field" yaml:"field"`
	Column      string      `json:"column" yaml:"column"`
	Categorical bool        `json:"categorical" yaml:"categorical"`
	Classes     []string    `json:"classes,omitempty" yaml:"classes,omitempty"`
	Mean        float64     `json:"mean" yaml:"mean"`
	Scale       float64     `json:"scale" yaml:"scale"`
	Median      *float64    `json:"median,omitempty" yaml:"median,omitempty"`
}

// Describe summarizes every feature column in model.Fields order.
func (c *Codec) Describe() []FieldSummary {
	out := make([]FieldSummary, len(model.Fields))
	for i, f := range model.Fields {
		s := FieldSummary{
			Field:       f,
			Column:      f.Column(),
			Categorical: f.Categorical(),
			Mean:        c.scaler.Mean[i],
			Scale:       c.scaler.Scale[i],
		}
		if f.Categorical() {
			s.Classes = slices.Clone(c.encoders.Encoders[f].Classes)
		} else if m, ok := c.scaler.Medians[f]; ok {
			s.Median = &m
		}
		out[i] = s
	}
	return out
}
