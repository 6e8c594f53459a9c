package model

// Tier is a delay-risk classification derived from a probability.
type Tier string

const (
	TierHigh   Tier = "HIGH"
	TierMedium Tier = "MEDIUM"
	TierLow    Tier = "LOW"
)

// Tiers lists every tier from most to least severe.
var Tiers = []Tier{TierHigh, TierMedium, TierLow}

// Valid reports whether t is one of the three tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierHigh, TierMedium, TierLow:
		return true
	}
	return false
}

// Assessment is the outcome of scoring one FeatureRow.
type Assessment struct {
	Probability float64   `json:"probability"`
	Tier        Tier      `json:"tier"`
	Vector      []float64 `json:"vector,omitempty"`
}

// Tier cut points. A probability must exceed a threshold to reach the tier.
const (
	HighThreshold   = 0.70
	MediumThreshold = 0.40
)
