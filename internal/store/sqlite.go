package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/delay-risk-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS training_runs (
	id           TEXT PRIMARY KEY,
	artifact_dir TEXT NOT NULL,
	joined_rows  INTEGER NOT NULL,
	train_rows   INTEGER NOT NULL,
	test_rows    INTEGER NOT NULL,
	delay_rate   REAL NOT NULL,
	accuracy     REAL NOT NULL,
	auc          REAL NOT NULL,
	log_loss     REAL NOT NULL,
	iterations   INTEGER NOT NULL,
	started_at   DATETIME NOT NULL,
	finished_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS predictions (
	id               TEXT PRIMARY KEY,
	source           TEXT NOT NULL,
	priority         TEXT NOT NULL,
	product_category TEXT NOT NULL,
	order_value      REAL,
	distance         REAL,
	traffic_delay    REAL,
	fuel_cost        REAL,
	labor_cost       REAL,
	delivery_cost    REAL,
	rating           REAL,
	probability      REAL NOT NULL,
	tier             TEXT NOT NULL,
	model_run_id     TEXT,
	created_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_predictions_tier ON predictions(tier);
CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
CREATE INDEX IF NOT EXISTS idx_training_runs_finished_at ON training_runs(finished_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordTrainingRun(ctx context.Context, run *model.TrainingRun) error {
	if run.ID == "" {
		run.ID = newID()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO training_runs (id, artifact_dir, joined_rows, train_rows, test_rows, delay_rate,
			accuracy, auc, log_loss, iterations, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ArtifactDir, run.JoinedRows, run.TrainRows, run.TestRows, run.DelayRate,
		run.Accuracy, run.AUC, run.LogLoss, run.Iterations, run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: insert training run")
}

func (s *SQLiteStore) LatestTrainingRun(ctx context.Context) (*model.TrainingRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, artifact_dir, joined_rows, train_rows, test_rows, delay_rate,
			accuracy, auc, log_loss, iterations, started_at, finished_at
		 FROM training_runs ORDER BY finished_at DESC LIMIT 1`,
	)
	var r model.TrainingRun
	err := row.Scan(&r.ID, &r.ArtifactDir, &r.JoinedRows, &r.TrainRows, &r.TestRows, &r.DelayRate,
		&r.Accuracy, &r.AUC, &r.LogLoss, &r.Iterations, &r.StartedAt, &r.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest training run")
	}
	return &r, nil
}

const sqliteInsertPrediction = `INSERT INTO predictions (id, source, priority, product_category,
	order_value, distance, traffic_delay, fuel_cost, labor_cost, delivery_cost, rating,
	probability, tier, model_run_id, created_at)
 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) RecordPrediction(ctx context.Context, p *model.Prediction) error {
	prepare(p)
	_, err := s.db.ExecContext(ctx, sqliteInsertPrediction, predictionArgs(p)...)
	return eris.Wrap(err, "sqlite: insert prediction")
}

func (s *SQLiteStore) RecordPredictions(ctx context.Context, ps []model.Prediction) (int64, error) {
	if len(ps) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteInsertPrediction)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert prediction")
	}
	defer stmt.Close() //nolint:errcheck

	for i := range ps {
		prepare(&ps[i])
		if _, err := stmt.ExecContext(ctx, predictionArgs(&ps[i])...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert prediction %d", i)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return int64(len(ps)), nil
}

func (s *SQLiteStore) ListPredictions(ctx context.Context, filter PredictionFilter) ([]model.Prediction, error) {
	query := `SELECT id, source, priority, product_category, order_value, distance, traffic_delay,
		fuel_cost, labor_cost, delivery_cost, rating, probability, tier, model_run_id, created_at
	 FROM predictions WHERE 1=1`
	var args []any

	if filter.Tier != "" {
		query += ` AND tier = ?`
		args = append(args, string(filter.Tier))
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(filter.Source))
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list predictions")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Prediction
	for rows.Next() {
		p, err := scanSQLitePrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list predictions iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLitePrediction(row scannable) (*model.Prediction, error) {
	var p model.Prediction
	var nums [7]sql.NullFloat64
	var runID sql.NullString
	var createdAt time.Time

	err := row.Scan(&p.ID, &p.Source, &p.Row.Priority, &p.Row.ProductCategory,
		&nums[0], &nums[1], &nums[2], &nums[3], &nums[4], &nums[5], &nums[6],
		&p.Probability, &p.Tier, &runID, &createdAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan prediction")
	}

	for i, f := range numericFields {
		if nums[i].Valid {
			p.Row.SetNumber(f, nums[i].Float64)
		}
	}
	p.ModelRunID = runID.String
	p.CreatedAt = createdAt.UTC()
	return &p, nil
}
