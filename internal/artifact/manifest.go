package artifact

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/delay-risk-cli/internal/classifier"
	"github.com/sells-group/delay-risk-cli/internal/model"
)

// Manifest describes how an artifact set was produced.
type Manifest struct {
	FormatVersion int                `yaml:"format_version" json:"format_version"`
	RunID         string             `yaml:"run_id" json:"run_id"`
	CreatedAt     time.Time          `yaml:"created_at" json:"created_at"`
	Features      []string           `yaml:"features" json:"features"`
	Rows          RowCounts          `yaml:"rows" json:"rows"`
	DelayRate     float64            `yaml:"delay_rate" json:"delay_rate"`
	Training      TrainingParams     `yaml:"training" json:"training"`
	Holdout       classifier.Metrics `yaml:"holdout" json:"holdout"`
	Thresholds    Thresholds         `yaml:"thresholds" json:"thresholds"`
}

// RowCounts records dataset sizes.
type RowCounts struct {
	Joined int `yaml:"joined" json:"joined"`
	Train  int `yaml:"train" json:"train"`
	Test   int `yaml:"test" json:"test"`
}

// TrainingParams records the fit settings and outcome.
type TrainingParams struct {
	TestSize   float64 `yaml:"test_size" json:"test_size"`
	Seed       uint64  `yaml:"seed" json:"seed"`
	C          float64 `yaml:"c" json:"c"`
	MaxIter    int     `yaml:"max_iter" json:"max_iter"`
	Tolerance  float64 `yaml:"tolerance" json:"tolerance"`
	Iterations int     `yaml:"iterations" json:"iterations"`
	Converged  bool    `yaml:"converged" json:"converged"`
}

// Thresholds records the tier cut points in force when the model was built.
type Thresholds struct {
	High   float64 `yaml:"high" json:"high"`
	Medium float64 `yaml:"medium" json:"medium"`
}

// NewManifest returns a manifest stamped with the current format, feature
// order, and tier thresholds.
func NewManifest(runID string, createdAt time.Time) *Manifest {
	features := make([]string, len(model.Fields))
	for i, f := range model.Fields {
		features[i] = f.Column()
	}
	return &Manifest{
		FormatVersion: FormatVersion,
		RunID:         runID,
		CreatedAt:     createdAt.UTC(),
		Features:      features,
		Thresholds: Thresholds{
			High:   model.HighThreshold,
			Medium: model.MediumThreshold,
		},
	}
}

// SaveManifest writes manifest.yaml into dir.
func SaveManifest(dir string, m *Manifest) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return eris.Wrap(err, "artifact: marshal manifest")
	}
	if err := enc.Close(); err != nil {
		return eris.Wrap(err, "artifact: marshal manifest")
	}
	return writeAtomic(filepath.Join(dir, ManifestFile), func(w io.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// LoadManifest reads manifest.yaml from dir.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, eris.Wrap(err, "artifact: read manifest")
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "artifact: parse manifest")
	}
	return &m, nil
}
