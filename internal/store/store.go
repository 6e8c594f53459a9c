// Package store records training runs and scored predictions.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/delay-risk-cli/internal/model"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// PredictionFilter specifies criteria for listing predictions.
type PredictionFilter struct {
	Tier   model.Tier             `json:"tier,omitempty"`
	Source model.PredictionSource `json:"source,omitempty"`
	Limit  int                    `json:"limit,omitempty"`
	Offset int                    `json:"offset,omitempty"`

	// CreatedAfter keeps predictions made at or after this instant.
	CreatedAfter time.Time `json:"created_after,omitempty"`
}

// Store defines the persistence interface for training runs and predictions.
type Store interface {
	// Training runs
	RecordTrainingRun(ctx context.Context, run *model.TrainingRun) error
	LatestTrainingRun(ctx context.Context) (*model.TrainingRun, error)

	// Predictions
	RecordPrediction(ctx context.Context, p *model.Prediction) error
	RecordPredictions(ctx context.Context, ps []model.Prediction) (int64, error)
	ListPredictions(ctx context.Context, filter PredictionFilter) ([]model.Prediction, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured driver and runs migrations. Driver "none"
// (or empty) returns a nil Store and no error.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch strings.ToLower(driver) {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		st, err = NewSQLite(dsn)
	case DriverPostgres:
		st, err = NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

// prepare fills the id and timestamp of a prediction before insert.
func prepare(p *model.Prediction) {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
}
