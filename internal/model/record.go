package model

import "time"

// PredictionSource identifies the surface that requested a prediction.
type PredictionSource string

const (
	SourceCLI PredictionSource = "cli"
	SourceAPI PredictionSource = "api"
)

// Prediction is a logged scoring request.
type Prediction struct {
	ID          string           `json:"id"`
	Row         FeatureRow       `json:"row"`
	Probability float64          `json:"probability"`
	Tier        Tier             `json:"tier"`
	Source      PredictionSource `json:"source"`
	ModelRunID  string           `json:"model_run_id,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// TrainingRun summarizes one execution of the training pipeline.
type TrainingRun struct {
	ID          string    `json:"id"`
	ArtifactDir string    `json:"artifact_dir"`
	JoinedRows  int       `json:"joined_rows"`
	TrainRows   int       `json:"train_rows"`
	TestRows    int       `json:"test_rows"`
	DelayRate   float64   `json:"delay_rate"`
	Accuracy    float64   `json:"accuracy"`
	AUC         float64   `json:"auc"`
	LogLoss     float64   `json:"log_loss"`
	Iterations  int       `json:"iterations"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}
