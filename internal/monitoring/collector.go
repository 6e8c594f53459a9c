// Package monitoring watches recently recorded predictions and raises
// webhook alerts when the delay-risk mix or the model itself looks wrong.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/delay-risk-cli/internal/model"
	"github.com/sells-group/delay-risk-cli/internal/store"
)

// windowLimit caps how many predictions one snapshot reads.
const windowLimit = 10000

// Snapshot summarizes the predictions recorded within a lookback window.
type Snapshot struct {
	Predictions    int                `json:"predictions"`
	Tiers          map[model.Tier]int `json:"tiers"`
	HighRate       float64            `json:"high_rate"`
	AvgProbability float64            `json:"avg_probability"`
	// Truncated is set when the window held more than windowLimit rows.
	Truncated bool `json:"truncated,omitempty"`

	// Latest training run; empty when no model has been trained.
	ModelRunID     string    `json:"model_run_id,omitempty"`
	ModelTrainedAt time.Time `json:"model_trained_at,omitzero"`
	ModelAUC       float64   `json:"model_auc,omitempty"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// ModelAge returns how long ago the latest model finished training.
func (s *Snapshot) ModelAge() time.Duration {
	if s.ModelTrainedAt.IsZero() {
		return 0
	}
	return s.CollectedAt.Sub(s.ModelTrainedAt)
}

// Collector gathers snapshots from the prediction log.
type Collector struct {
	store store.Store
	now   func() time.Time
}

// NewCollector creates a collector reading from st.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st, now: func() time.Time { return time.Now().UTC() }}
}

// Collect summarizes predictions made in the last lookbackHours.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now()
	snap := &Snapshot{
		Tiers:         make(map[model.Tier]int, len(model.Tiers)),
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	for _, t := range model.Tiers {
		snap.Tiers[t] = 0
	}

	preds, err := c.store.ListPredictions(ctx, store.PredictionFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        windowLimit + 1,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list predictions")
	}
	if len(preds) > windowLimit {
		preds = preds[:windowLimit]
		snap.Truncated = true
	}

	var total float64
	for _, p := range preds {
		snap.Tiers[p.Tier]++
		total += p.Probability
	}
	snap.Predictions = len(preds)
	if snap.Predictions > 0 {
		snap.HighRate = float64(snap.Tiers[model.TierHigh]) / float64(snap.Predictions)
		snap.AvgProbability = total / float64(snap.Predictions)
	}

	run, err := c.store.LatestTrainingRun(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: latest training run")
	}
	if run != nil {
		snap.ModelRunID = run.ID
		snap.ModelTrainedAt = run.FinishedAt.UTC()
		snap.ModelAUC = run.AUC
	}

	return snap, nil
}
