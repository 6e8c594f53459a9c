// Package artifacttest provides a hand-built artifact bundle for tests.
package artifacttest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/delay-risk-cli/internal/artifact"
	"github.com/sells-group/delay-risk-cli/internal/classifier"
	"github.com/sells-group/delay-risk-cli/internal/codec"
	"github.com/sells-group/delay-risk-cli/internal/model"
)

// Bundle returns a small, fully specified bundle. Risk rises with distance
// and traffic delay and falls with rating, so ScenarioA scores LOW and
// ScenarioB scores HIGH.
func Bundle() *artifact.Bundle {
	return &artifact.Bundle{
		Model: &classifier.LogisticRegression{
			Weights:    []float64{0.3, 0.1, 0.2, 0.6, 0.9, 0.1, 0.1, 0.2, -0.8},
			Intercept:  -0.5,
			Iterations: 7,
			Converged:  true,
		},
		Encoders: codec.EncoderTable{Encoders: map[model.Field]codec.LabelEncoder{
			model.FieldPriority:        {Classes: []string{"Economy", "Express", "Standard"}},
			model.FieldProductCategory: {Classes: []string{"Electronics", "Fashion", "Food", "Industrial"}},
		}},
		Scaler: codec.Scaler{
			Mean:  []float64{1, 1.5, 10000, 1000, 30, 1000, 800, 2000, 3},
			Scale: []float64{0.5, 1, 5000, 500, 20, 400, 300, 1000, 1.25},
			Medians: map[model.Field]float64{
				model.FieldOrderValue:   9000,
				model.FieldDistance:     800,
				model.FieldTrafficDelay: 25,
				model.FieldFuelCost:     900,
				model.FieldLaborCost:    700,
				model.FieldDeliveryCost: 1800,
				model.FieldRating:       4,
			},
		},
	}
}

// Save writes Bundle, with a manifest, into dir.
func Save(t *testing.T, dir string) *artifact.Bundle {
	t.Helper()
	b := Bundle()
	b.Manifest = artifact.NewManifest("run-test", fixedTime)
	b.Manifest.Rows = artifact.RowCounts{Joined: 100, Train: 80, Test: 20}
	b.Manifest.Holdout = classifier.Metrics{Samples: 20, Positives: 8, Accuracy: 0.85, AUC: 0.9, LogLoss: 0.35}
	require.NoError(t, artifact.Save(dir, b))
	return b
}

// ScenarioA is a short, uncongested, well-rated order.
func ScenarioA() model.FeatureRow {
	return model.FeatureRow{
		Priority:        "Express",
		ProductCategory: "Electronics",
		OrderValue:      model.Float(5000),
		Distance:        model.Float(200),
		TrafficDelay:    model.Float(10),
		FuelCost:        model.Float(300),
		LaborCost:       model.Float(200),
		DeliveryCost:    model.Float(400),
		Rating:          model.Float(5),
	}
}

// ScenarioB is ScenarioA with heavy traffic and a poor rating.
func ScenarioB() model.FeatureRow {
	r := ScenarioA()
	r.Rating = model.Float(1)
	r.TrafficDelay = model.Float(110)
	return r
}

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
