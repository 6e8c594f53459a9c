// Package risk scores feature rows against a loaded artifact bundle and maps
// the probability to a tier.
package risk

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/delay-risk-cli/internal/artifact"
	"github.com/sells-group/delay-risk-cli/internal/classifier"
	"github.com/sells-group/delay-risk-cli/internal/codec"
	"github.com/sells-group/delay-risk-cli/internal/model"
)

// ModelNotLoadedError is returned when scoring is attempted without a
// loaded bundle.
type ModelNotLoadedError struct{}

func (e *ModelNotLoadedError) Error() string {
	return "risk: model not loaded"
}

// ScoringContext holds the artifacts of one training run. It is built once,
// never mutated, and safe to share between goroutines.
type ScoringContext struct {
	model    *classifier.LogisticRegression
	codec    *codec.Codec
	manifest *artifact.Manifest
}

// NewScoringContext validates the bundle and binds it to a missing-value
// policy.
func NewScoringContext(b *artifact.Bundle, policy codec.Policy) (*ScoringContext, error) {
	if b == nil || b.Model == nil {
		return nil, &ModelNotLoadedError{}
	}
	if err := b.Model.Validate(model.NumFeatures); err != nil {
		return nil, eris.Wrap(err, "risk: invalid model")
	}
	c, err := codec.New(b.Encoders, b.Scaler, policy)
	if err != nil {
		return nil, eris.Wrap(err, "risk: invalid codec artifacts")
	}
	return &ScoringContext{model: b.Model, codec: c, manifest: b.Manifest}, nil
}

// Load reads the bundle in dir and builds a ScoringContext from it.
func Load(dir string, policy codec.Policy) (*ScoringContext, error) {
	b, err := artifact.Load(dir)
	if err != nil {
		return nil, err
	}
	return NewScoringContext(b, policy)
}

// Codec returns the bound codec.
func (s *ScoringContext) Codec() *codec.Codec {
	if s == nil {
		return nil
	}
	return s.codec
}

// Model returns the fitted classifier.
func (s *ScoringContext) Model() *classifier.LogisticRegression {
	if s == nil {
		return nil
	}
	return s.model
}

// Manifest returns the bundle manifest, which may be nil.
func (s *ScoringContext) Manifest() *artifact.Manifest {
	if s == nil {
		return nil
	}
	return s.manifest
}

// Encode runs the codec over raw.
func (s *ScoringContext) Encode(raw model.FeatureRow) ([]float64, error) {
	if s == nil || s.codec == nil {
		return nil, &ModelNotLoadedError{}
	}
	return s.codec.Encode(raw)
}

// Score returns the delay probability of an encoded vector.
func (s *ScoringContext) Score(vec []float64) (float64, error) {
	if s == nil || s.model == nil {
		return 0, &ModelNotLoadedError{}
	}
	p, err := s.model.PredictProba(vec)
	if err != nil {
		return 0, eris.Wrap(err, "risk: score")
	}
	return p, nil
}

// Assess encodes, scores, and classifies one row.
func (s *ScoringContext) Assess(raw model.FeatureRow) (model.Assessment, error) {
	vec, err := s.Encode(raw)
	if err != nil {
		return model.Assessment{}, err
	}
	p, err := s.Score(vec)
	if err != nil {
		return model.Assessment{}, err
	}
	return model.Assessment{Probability: p, Tier: Classify(p), Vector: vec}, nil
}

// Classify maps a probability to a tier. Both cut points are exclusive: a
// probability equal to a threshold falls into the lower tier.
func Classify(p float64) model.Tier {
	switch {
	case p > model.HighThreshold:
		return model.TierHigh
	case p > model.MediumThreshold:
		return model.TierMedium
	default:
		return model.TierLow
	}
}
