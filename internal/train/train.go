// Package train runs the offline pipeline: load the five source tables, join
// and label them, fit the codec and classifier, evaluate on a holdout split,
// and write the artifact set.
package train

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/delay-risk-cli/internal/artifact"
	"github.com/sells-group/delay-risk-cli/internal/classifier"
	"github.com/sells-group/delay-risk-cli/internal/codec"
	"github.com/sells-group/delay-risk-cli/internal/dataset"
	"github.com/sells-group/delay-risk-cli/internal/model"
	"github.com/sells-group/delay-risk-cli/internal/store"
)

// Options configures a training run.
type Options struct {
	Sources     dataset.Sources
	ArtifactDir string
	TestSize    float64
	Seed        uint64
	Fit         classifier.Options
	MinAUC      float64 // 0 disables the quality gate
}

// Result is the outcome of a successful run.
type Result struct {
	Run     model.TrainingRun
	Bundle  *artifact.Bundle
	Metrics classifier.Metrics
}

// QualityError reports a holdout AUC below the configured floor. No
// artifacts are written when it is returned.
type QualityError struct {
	AUC    float64
	MinAUC float64
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("train: holdout AUC %.4f is below minimum %.4f", e.AUC, e.MinAUC)
}

// Pipeline wires the table reader and the optional run store.
type Pipeline struct {
	reader dataset.TableReader
	store  store.Store
	now    func() time.Time
}

// New creates a Pipeline. st may be nil.
func New(reader dataset.TableReader, st store.Store) *Pipeline {
	return &Pipeline{
		reader: reader,
		store:  st,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run executes the pipeline end to end.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.ArtifactDir == "" {
		return nil, eris.New("train: artifact dir is required")
	}
	runID := uuid.New().String()
	started := p.now()
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("train: starting", zap.String("artifact_dir", opts.ArtifactDir))

	tables, err := dataset.LoadTables(ctx, p.reader, opts.Sources)
	if err != nil {
		return nil, err
	}
	ds, err := dataset.Build(tables)
	if err != nil {
		return nil, err
	}

	bundle, x, err := fitCodec(ds)
	if err != nil {
		return nil, err
	}

	trainIdx, testIdx, err := dataset.Split(len(x), opts.TestSize, opts.Seed)
	if err != nil {
		return nil, err
	}
	xTrain, yTrain := dataset.Subset(x, trainIdx), dataset.Subset(ds.Labels, trainIdx)
	xTest, yTest := dataset.Subset(x, testIdx), dataset.Subset(ds.Labels, testIdx)

	clf, err := classifier.Fit(xTrain, yTrain, opts.Fit)
	if err != nil {
		return nil, eris.Wrap(err, "train: fit")
	}
	bundle.Model = clf

	metrics, err := classifier.Evaluate(clf, xTest, yTest)
	if err != nil {
		return nil, eris.Wrap(err, "train: evaluate")
	}
	log.Info("train: holdout evaluation",
		zap.Int("samples", metrics.Samples),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("auc", metrics.AUC),
		zap.Float64("log_loss", metrics.LogLoss),
	)
	if metrics.SingleClass {
		log.Warn("train: holdout contains a single class, AUC is undefined")
	}

	if err := checkQuality(metrics, opts.MinAUC); err != nil {
		return nil, err
	}

	m := artifact.NewManifest(runID, p.now())
	m.Rows = artifact.RowCounts{Joined: len(ds.Rows), Train: len(trainIdx), Test: len(testIdx)}
	m.DelayRate = ds.DelayRate()
	m.Training = artifact.TrainingParams{
		TestSize:   opts.TestSize,
		Seed:       opts.Seed,
		C:          opts.Fit.C,
		MaxIter:    opts.Fit.MaxIter,
		Tolerance:  opts.Fit.Tolerance,
		Iterations: clf.Iterations,
		Converged:  clf.Converged,
	}
	m.Holdout = metrics
	bundle.Manifest = m

	if err := artifact.Save(opts.ArtifactDir, bundle); err != nil {
		return nil, err
	}

	res := &Result{
		Bundle:  bundle,
		Metrics: metrics,
		Run: model.TrainingRun{
			ID:          runID,
			ArtifactDir: opts.ArtifactDir,
			JoinedRows:  len(ds.Rows),
			TrainRows:   len(trainIdx),
			TestRows:    len(testIdx),
			DelayRate:   m.DelayRate,
			Accuracy:    metrics.Accuracy,
			AUC:         metrics.AUC,
			LogLoss:     metrics.LogLoss,
			Iterations:  clf.Iterations,
			StartedAt:   started,
			FinishedAt:  p.now(),
		},
	}

	if p.store != nil {
		if err := p.store.RecordTrainingRun(ctx, &res.Run); err != nil {
			return res, eris.Wrap(err, "train: record run")
		}
	}

	log.Info("train: complete",
		zap.Int("joined_rows", res.Run.JoinedRows),
		zap.Duration("elapsed", res.Run.FinishedAt.Sub(started)),
	)
	return res, nil
}

// fitCodec fits the encoders and scaler over the full dataset and returns
// the scaled matrix alongside a bundle carrying both.
func fitCodec(ds *dataset.Dataset) (*artifact.Bundle, [][]float64, error) {
	columns := make(map[model.Field][]string)
	for _, row := range ds.Rows {
		for _, f := range model.Fields {
			if f.Categorical() {
				columns[f] = append(columns[f], row.Category(f))
			}
		}
	}
	enc, err := codec.FitEncoderTable(columns)
	if err != nil {
		return nil, nil, err
	}

	vectors := make([][]float64, len(ds.Rows))
	for i, row := range ds.Rows {
		v, err := codec.Vectorize(row, enc)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "train: vectorize row %d", i)
		}
		vectors[i] = v
	}

	scaler, err := codec.FitScaler(vectors)
	if err != nil {
		return nil, nil, err
	}
	scaler.Medians = ds.Medians

	x := make([][]float64, len(vectors))
	for i, v := range vectors {
		if x[i], err = scaler.Transform(v); err != nil {
			return nil, nil, err
		}
	}
	return &artifact.Bundle{Encoders: enc, Scaler: scaler}, x, nil
}

func checkQuality(m classifier.Metrics, minAUC float64) error {
	if minAUC <= 0 || m.SingleClass {
		return nil
	}
	if m.AUC < minAUC {
		return &QualityError{AUC: m.AUC, MinAUC: minAUC}
	}
	return nil
}
