package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/delay-risk-cli/internal/artifact"
	"github.com/sells-group/delay-risk-cli/internal/classifier"
	"github.com/sells-group/delay-risk-cli/internal/config"
	"github.com/sells-group/delay-risk-cli/internal/model"
	"github.com/sells-group/delay-risk-cli/internal/store"
	"github.com/sells-group/delay-risk-cli/internal/train"
)

// writeTrainingCSVs writes a small five-table dataset into dir and points
// the DELAYRISK_DATA_* variables at it.
func writeTrainingCSVs(t *testing.T, dir string) {
	t.Helper()
	files := map[string]*strings.Builder{
		"orders":   {},
		"delivery": {},
		"routes":   {},
		"feedback": {},
		"costs":    {},
	}
	files["orders"].WriteString("Order_ID,Priority,Product_Category,Order_Value_INR\n")
	files["delivery"].WriteString("Order_ID,Promised_Delivery_Days,Actual_Delivery_Days\n")
	files["routes"].WriteString("Order_ID,Distance_KM,Traffic_Delay_Minutes\n")
	files["feedback"].WriteString("Order_ID,Rating,Would_Recommend\n")
	files["costs"].WriteString("Order_ID,Fuel_Cost,Labor_Cost,Delivery_Cost_INR\n")

	for i := range 40 {
		id := fmt.Sprintf("ORD%03d", i)
		traffic := (i * 17) % 120
		actual := 3
		if (traffic > 50) != (i%8 == 0) {
			actual = 6
		}
		fmt.Fprintf(files["orders"], "%s,%s,%s,%d\n", id, model.Priorities[i%3], model.ProductCategories[i%4], 800+i*40)
		fmt.Fprintf(files["delivery"], "%s,3,%d\n", id, actual)
		fmt.Fprintf(files["routes"], "%s,%d,%d\n", id, 50+(i*41)%700, traffic)
		fmt.Fprintf(files["feedback"], "%s,%d,No\n", id, i%5+1)
		fmt.Fprintf(files["costs"], "%s,%d,%d,%d\n", id, 100+i*5, 80+i*3, 300+i*7)
	}

	for name, b := range files {
		p := filepath.Join(dir, name+".csv")
		require.NoError(t, os.WriteFile(p, []byte(b.String()), 0o644))
		t.Setenv("DELAYRISK_DATA_"+strings.ToUpper(name), p)
	}
}

func TestTrainPredictHistory_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	artifacts := filepath.Join(dir, "artifacts")
	dbPath := filepath.Join(dir, "delay-risk.db")

	writeTrainingCSVs(t, dir)
	t.Setenv("DELAYRISK_STORE_DRIVER", "sqlite")
	t.Setenv("DELAYRISK_STORE_DATABASE_URL", dbPath)
	t.Setenv("DELAYRISK_LOG_LEVEL", "error")

	rootCmd.SetArgs([]string{"train", "--artifacts", artifacts})
	require.NoError(t, rootCmd.Execute())
	assert.FileExists(t, filepath.Join(artifacts, artifact.ManifestFile))

	rootCmd.SetArgs([]string{
		"predict", "--artifacts", artifacts, "--output", "json", "--record",
		"--priority", "Standard", "--category", "Fashion",
		"--order-value", "1500", "--distance", "300", "--traffic-delay", "100",
		"--fuel-cost", "200", "--labor-cost", "150", "--delivery-cost", "500",
		"--rating", "2",
	})
	require.NoError(t, rootCmd.Execute())

	st, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	run, err := st.LatestTrainingRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 40, run.JoinedRows)

	preds, err := st.ListPredictions(context.Background(), store.PredictionFilter{})
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, run.ID, preds[0].ModelRunID)
	assert.True(t, preds[0].Tier.Valid())

	rootCmd.SetArgs([]string{"history", "--limit", "5"})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"monitor", "--lookback", "1", "--output", "json"})
	require.NoError(t, rootCmd.Execute())
}

func TestPredict_RejectsOutOfBounds(t *testing.T) {
	dir := t.TempDir()
	artifactsDir := filepath.Join(dir, "artifacts")
	t.Setenv("DELAYRISK_STORE_DRIVER", "none")
	t.Setenv("DELAYRISK_LOG_LEVEL", "error")

	rootCmd.SetArgs([]string{"predict", "--artifacts", artifactsDir, "--rating", "9", "--record=false", "--output", "text"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rating must be between 1 and 5")
}

func TestTrainOptions(t *testing.T) {
	c := &config.Config{
		Data:      config.DataConfig{Orders: "o.csv", Delivery: "d.csv", Routes: "r.csv", Feedback: "f.csv", Costs: "c.csv"},
		Artifacts: config.ArtifactsConfig{Dir: "out"},
		Training:  config.TrainingConfig{TestSize: 0.25, Seed: 7, MaxIter: 50, Tolerance: 1e-4, L2: 0.5, MinAUC: 0.6},
	}

	opts := trainOptions(c)
	assert.Equal(t, "o.csv", opts.Sources.Orders)
	assert.Equal(t, "c.csv", opts.Sources.Costs)
	assert.Equal(t, "out", opts.ArtifactDir)
	assert.Equal(t, 0.25, opts.TestSize)
	assert.Equal(t, uint64(7), opts.Seed)
	assert.Equal(t, classifier.Options{C: 0.5, MaxIter: 50, Tolerance: 1e-4}, opts.Fit)
	assert.Equal(t, 0.6, opts.MinAUC)
}

func TestFormatTrainSummary(t *testing.T) {
	res := &train.Result{
		Run: model.TrainingRun{
			ID: "abc", ArtifactDir: "artifacts", JoinedRows: 100, TrainRows: 80, TestRows: 20,
			DelayRate: 0.45, Iterations: 6,
		},
		Bundle:  &artifact.Bundle{Model: &classifier.LogisticRegression{Converged: true}},
		Metrics: classifier.Metrics{Accuracy: 0.85, AUC: 0.91, LogLoss: 0.33},
	}

	var buf bytes.Buffer
	formatTrainSummary(&buf, res)
	output := buf.String()
	assert.Contains(t, output, "100 joined, 80 train, 20 test")
	assert.Contains(t, output, "45.0%")
	assert.Contains(t, output, "0.9100")
	assert.Contains(t, output, "6 (converged)")

	res.Metrics.SingleClass = true
	buf.Reset()
	formatTrainSummary(&buf, res)
	assert.Contains(t, buf.String(), "single-class holdout")
}
