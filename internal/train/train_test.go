package train

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/delay-risk-cli/internal/artifact"
	"github.com/sells-group/delay-risk-cli/internal/classifier"
	"github.com/sells-group/delay-risk-cli/internal/codec"
	"github.com/sells-group/delay-risk-cli/internal/dataset"
	"github.com/sells-group/delay-risk-cli/internal/fetcher"
	"github.com/sells-group/delay-risk-cli/internal/model"
	"github.com/sells-group/delay-risk-cli/internal/risk"
	"github.com/sells-group/delay-risk-cli/internal/store"
)

const sampleOrders = 60

// writeSources writes five CSVs where delay tracks traffic, with a few
// flipped labels and some orders missing feedback.
func writeSources(t *testing.T, dir string) dataset.Sources {
	t.Helper()
	priorities := []string{"Express", "Standard", "Economy"}
	categories := []string{"Electronics", "Fashion", "Industrial", "Food"}

	var orders, delivery, routes, feedback, costs strings.Builder
	orders.WriteString("Order_ID,Order_Date,Priority,Product_Category,Order_Value_INR\n")
	delivery.WriteString("Order_ID,Carrier,Promised_Delivery_Days,Actual_Delivery_Days\n")
	routes.WriteString("Order_ID,Distance_KM,Traffic_Delay_Minutes\n")
	feedback.WriteString("Order_ID,Rating,Would_Recommend\n")
	costs.WriteString("Order_ID,Fuel_Cost,Labor_Cost,Delivery_Cost_INR\n")

	for i := range sampleOrders {
		id := fmt.Sprintf("ORD%03d", i)
		traffic := (i * 13) % 120
		delayed := traffic > 60
		if i%9 == 0 {
			delayed = !delayed
		}
		actual := 3
		if delayed {
			actual = 5
		}
		fmt.Fprintf(&orders, "%s,2024-01-01,%s,%s,%d\n", id, priorities[i%3], categories[i%4], 1000+i*50)
		fmt.Fprintf(&delivery, "%s,SpeedyLogistics,3,%d\n", id, actual)
		fmt.Fprintf(&routes, "%s,%d,%d\n", id, 100+(i*37)%900, traffic)
		if i%10 != 0 {
			fmt.Fprintf(&feedback, "%s,%d,Yes\n", id, i%5+1)
		}
		fmt.Fprintf(&costs, "%s,%d,%d,%d\n", id, 200+i*3, 150+i*2, 500+i*10)
	}

	write := func(name string, b *strings.Builder) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(b.String()), 0o644))
		return p
	}
	return dataset.Sources{
		Orders:   write("orders.csv", &orders),
		Delivery: write("delivery_performance.csv", &delivery),
		Routes:   write("routes_distance.csv", &routes),
		Feedback: write("customer_feedback.csv", &feedback),
		Costs:    write("cost_breakdown.csv", &costs),
	}
}

func testOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{
		Sources:     writeSources(t, dir),
		ArtifactDir: filepath.Join(dir, "artifacts"),
		TestSize:    0.2,
		Seed:        42,
		Fit:         classifier.DefaultOptions(),
	}
}

type mockStore struct {
	mock.Mock
	store.Store
}

func (m *mockStore) RecordTrainingRun(ctx context.Context, run *model.TrainingRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func TestRun_EndToEnd(t *testing.T) {
	opts := testOptions(t)
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	defer st.Close() //nolint:errcheck

	res, err := New(fetcher.NewOpener(fetcher.OpenerOptions{}), st).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, sampleOrders, res.Run.JoinedRows)
	assert.Equal(t, 48, res.Run.TrainRows)
	assert.Equal(t, 12, res.Run.TestRows)
	assert.Equal(t, 12, res.Metrics.Samples)
	assert.Greater(t, res.Run.DelayRate, 0.0)
	assert.Less(t, res.Run.DelayRate, 1.0)
	assert.Len(t, res.Bundle.Model.Weights, model.NumFeatures)

	// Delay tracks traffic, so the holdout must score well above chance.
	require.False(t, res.Metrics.SingleClass)
	assert.Greater(t, res.Metrics.AUC, 0.7)
	assert.Greater(t, res.Metrics.Accuracy, 0.6)
	assert.InDelta(t, res.Metrics.AUC, res.Run.AUC, 1e-12)

	for _, name := range []string{artifact.ModelFile, artifact.EncodersFile, artifact.ScalerFile, artifact.ManifestFile} {
		assert.FileExists(t, filepath.Join(opts.ArtifactDir, name))
	}

	latest, err := st.LatestTrainingRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, res.Run.ID, latest.ID)
	assert.Equal(t, sampleOrders, latest.JoinedRows)

	sc, err := risk.Load(opts.ArtifactDir, codec.PolicyStrict)
	require.NoError(t, err)
	require.NotNil(t, sc.Manifest())
	assert.Equal(t, res.Run.ID, sc.Manifest().RunID)
	assert.Equal(t, 48, sc.Manifest().Rows.Train)
	assert.Equal(t, uint64(42), sc.Manifest().Training.Seed)

	// Orders with missing feedback were filled with the median rating.
	_, ok := sc.Codec().Scaler().Medians[model.FieldRating]
	assert.True(t, ok)

	row := model.FeatureRow{
		Priority:        "Express",
		ProductCategory: "Food",
		OrderValue:      model.Float(2000),
		Distance:        model.Float(400),
		TrafficDelay:    model.Float(110),
		FuelCost:        model.Float(250),
		LaborCost:       model.Float(180),
		DeliveryCost:    model.Float(700),
		Rating:          model.Float(3),
	}
	busy, err := sc.Assess(row)
	require.NoError(t, err)
	row.TrafficDelay = model.Float(0)
	quiet, err := sc.Assess(row)
	require.NoError(t, err)
	assert.Greater(t, busy.Probability, quiet.Probability)
}

func TestRun_Deterministic(t *testing.T) {
	opts := testOptions(t)
	p := New(fetcher.NewOpener(fetcher.OpenerOptions{}), nil)

	first, err := p.Run(context.Background(), opts)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, first.Bundle.Model.Weights, second.Bundle.Model.Weights)
	assert.Equal(t, first.Bundle.Model.Intercept, second.Bundle.Model.Intercept)
	assert.Equal(t, first.Metrics, second.Metrics)
	assert.NotEqual(t, first.Run.ID, second.Run.ID)
}

func TestRun_MissingSource(t *testing.T) {
	opts := testOptions(t)
	opts.Sources.Costs = filepath.Join(t.TempDir(), "missing.csv")

	_, err := New(fetcher.NewOpener(fetcher.OpenerOptions{}), nil).Run(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), dataset.TableCosts)
	assert.NoDirExists(t, opts.ArtifactDir)
}

func TestRun_BadTestSize(t *testing.T) {
	opts := testOptions(t)
	opts.TestSize = 1.5

	_, err := New(fetcher.NewOpener(fetcher.OpenerOptions{}), nil).Run(context.Background(), opts)
	require.Error(t, err)
	assert.NoDirExists(t, opts.ArtifactDir)
}

func TestRun_QualityGateBlocksArtifacts(t *testing.T) {
	opts := testOptions(t)
	opts.MinAUC = 1.01
	st := &mockStore{}

	res, err := New(fetcher.NewOpener(fetcher.OpenerOptions{}), st).Run(context.Background(), opts)
	require.Error(t, err)
	assert.Nil(t, res)

	var qe *QualityError
	require.ErrorAs(t, err, &qe)
	assert.InDelta(t, 1.01, qe.MinAUC, 1e-12)
	assert.Less(t, qe.AUC, 1.01)
	assert.NoDirExists(t, opts.ArtifactDir)
	st.AssertNotCalled(t, "RecordTrainingRun", mock.Anything, mock.Anything)
}

func TestRun_RequiresArtifactDir(t *testing.T) {
	opts := testOptions(t)
	opts.ArtifactDir = ""

	_, err := New(fetcher.NewOpener(fetcher.OpenerOptions{}), nil).Run(context.Background(), opts)
	assert.EqualError(t, err, "train: artifact dir is required")
}

func TestRun_RecordFailureSurfaces(t *testing.T) {
	opts := testOptions(t)
	st := &mockStore{}
	st.On("RecordTrainingRun", mock.Anything, mock.AnythingOfType("*model.TrainingRun")).
		Return(errors.New("disk full"))

	res, err := New(fetcher.NewOpener(fetcher.OpenerOptions{}), st).Run(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NotNil(t, res)
	assert.FileExists(t, filepath.Join(opts.ArtifactDir, artifact.ModelFile))
	st.AssertExpectations(t)
}

func TestCheckQuality(t *testing.T) {
	tests := []struct {
		name    string
		metrics classifier.Metrics
		minAUC  float64
		wantErr bool
	}{
		{"disabled", classifier.Metrics{AUC: 0.1}, 0, false},
		{"above", classifier.Metrics{AUC: 0.8}, 0.7, false},
		{"equal", classifier.Metrics{AUC: 0.7}, 0.7, false},
		{"below", classifier.Metrics{AUC: 0.6}, 0.7, true},
		{"single class", classifier.Metrics{AUC: 0.5, SingleClass: true}, 0.7, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkQuality(tt.metrics, tt.minAUC)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var qe *QualityError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, tt.minAUC, qe.MinAUC)
			assert.Contains(t, err.Error(), "below minimum")
		})
	}
}
