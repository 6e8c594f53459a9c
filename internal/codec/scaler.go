package codec

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/delay-risk-cli/internal/model"
)

// zeroScale matches the threshold below which a column is treated as constant.
const zeroScale = 10 * 2.220446049250313e-16

// Scaler standardizes every column of the encoded vector, categorical codes
// included. Medians holds the training-time fill values for numeric fields;
// only the impute policy reads it.
type Scaler struct {
	Mean    []float64               `msgpack:"mean" yaml:"mean"`
	Scale   []float64               `msgpack:"scale" yaml:"scale"`
	Medians map[model.Field]float64 `msgpack:"medians" yaml:"medians"`
}

// FitScaler computes per-column mean and population standard deviation.
// Columns with zero variance get a scale of 1.
func FitScaler(rows [][]float64) (Scaler, error) {
	if len(rows) == 0 {
		return Scaler{}, eris.New("codec: fit scaler on empty matrix")
	}
	width := len(rows[0])
	s := Scaler{Mean: make([]float64, width), Scale: make([]float64, width)}
	col := make([]float64, len(rows))
	for j := range width {
		for i, row := range rows {
			if len(row) != width {
				return Scaler{}, eris.Errorf("codec: row %d has %d columns, want %d", i, len(row), width)
			}
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if math.IsNaN(std) || std < zeroScale {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s, nil
}

// Transform returns (x - mean) / scale for each column.
func (s Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, eris.Errorf("codec: scaler expects %d columns, got %d", len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// Validate checks the scaler covers the full feature vector.
func (s Scaler) Validate() error {
	if len(s.Mean) != model.NumFeatures || len(s.Scale) != model.NumFeatures {
		return eris.Errorf("codec: scaler has %d/%d columns, want %d",
			len(s.Mean), len(s.Scale), model.NumFeatures)
	}
	for j, v := range s.Scale {
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return eris.Errorf("codec: scaler column %d has invalid scale %v", j, v)
		}
	}
	return nil
}
