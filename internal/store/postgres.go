package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/delay-risk-cli/internal/db"
	"github.com/sells-group/delay-risk-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS training_runs (
	id           TEXT PRIMARY KEY,
	artifact_dir TEXT NOT NULL,
	joined_rows  INTEGER NOT NULL,
	train_rows   INTEGER NOT NULL,
	test_rows    INTEGER NOT NULL,
	delay_rate   DOUBLE PRECISION NOT NULL,
	accuracy     DOUBLE PRECISION NOT NULL,
	auc          DOUBLE PRECISION NOT NULL,
	log_loss     DOUBLE PRECISION NOT NULL,
	iterations   INTEGER NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS predictions (
	id               TEXT PRIMARY KEY,
	source           TEXT NOT NULL,
	priority         TEXT NOT NULL,
	product_category TEXT NOT NULL,
	order_value      DOUBLE PRECISION,
	distance         DOUBLE PRECISION,
	traffic_delay    DOUBLE PRECISION,
	fuel_cost        DOUBLE PRECISION,
	labor_cost       DOUBLE PRECISION,
	delivery_cost    DOUBLE PRECISION,
	rating           DOUBLE PRECISION,
	probability      DOUBLE PRECISION NOT NULL,
	tier             TEXT NOT NULL,
	model_run_id     TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_predictions_tier ON predictions(tier);
CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
CREATE INDEX IF NOT EXISTS idx_training_runs_finished_at ON training_runs(finished_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) RecordTrainingRun(ctx context.Context, run *model.TrainingRun) error {
	if run.ID == "" {
		run.ID = newID()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO training_runs (id, artifact_dir, joined_rows, train_rows, test_rows, delay_rate,
			accuracy, auc, log_loss, iterations, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, run.ArtifactDir, run.JoinedRows, run.TrainRows, run.TestRows, run.DelayRate,
		run.Accuracy, run.AUC, run.LogLoss, run.Iterations, run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: insert training run")
}

func (s *PostgresStore) LatestTrainingRun(ctx context.Context) (*model.TrainingRun, error) {
	var r model.TrainingRun
	err := s.pool.QueryRow(ctx,
		`SELECT id, artifact_dir, joined_rows, train_rows, test_rows, delay_rate,
			accuracy, auc, log_loss, iterations, started_at, finished_at
		 FROM training_runs ORDER BY finished_at DESC LIMIT 1`,
	).Scan(&r.ID, &r.ArtifactDir, &r.JoinedRows, &r.TrainRows, &r.TestRows, &r.DelayRate,
		&r.Accuracy, &r.AUC, &r.LogLoss, &r.Iterations, &r.StartedAt, &r.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest training run")
	}
	return &r, nil
}

func (s *PostgresStore) RecordPrediction(ctx context.Context, p *model.Prediction) error {
	prepare(p)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO predictions (id, source, priority, product_category,
			order_value, distance, traffic_delay, fuel_cost, labor_cost, delivery_cost, rating,
			probability, tier, model_run_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		predictionArgs(p)...,
	)
	return eris.Wrap(err, "postgres: insert prediction")
}

// RecordPredictions bulk-loads a batch with COPY.
func (s *PostgresStore) RecordPredictions(ctx context.Context, ps []model.Prediction) (int64, error) {
	rows := make([][]any, len(ps))
	for i := range ps {
		prepare(&ps[i])
		rows[i] = predictionArgs(&ps[i])
	}
	n, err := db.CopyFrom(ctx, s.pool, "predictions", predictionColumns, rows)
	if err != nil {
		return n, eris.Wrap(err, "postgres: record predictions")
	}
	return n, nil
}

func (s *PostgresStore) ListPredictions(ctx context.Context, filter PredictionFilter) ([]model.Prediction, error) {
	query := `SELECT id, source, priority, product_category, order_value, distance, traffic_delay,
		fuel_cost, labor_cost, delivery_cost, rating, probability, tier, model_run_id, created_at
	 FROM predictions WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Tier != "" {
		query += fmt.Sprintf(` AND tier = $%d`, argIdx)
		args = append(args, string(filter.Tier))
		argIdx++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(` AND source = $%d`, argIdx)
		args = append(args, string(filter.Source))
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.CreatedAfter.UTC())
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list predictions")
	}
	defer rows.Close()

	var out []model.Prediction
	for rows.Next() {
		var p model.Prediction
		var source, tier string
		var runID *string
		var nums [7]*float64

		if err := rows.Scan(&p.ID, &source, &p.Row.Priority, &p.Row.ProductCategory,
			&nums[0], &nums[1], &nums[2], &nums[3], &nums[4], &nums[5], &nums[6],
			&p.Probability, &tier, &runID, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan prediction")
		}
		p.Source = model.PredictionSource(source)
		p.Tier = model.Tier(tier)
		if runID != nil {
			p.ModelRunID = *runID
		}
		for i, f := range numericFields {
			if nums[i] != nil {
				p.Row.SetNumber(f, *nums[i])
			}
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list predictions iterate")
}
