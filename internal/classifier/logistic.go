// Package classifier fits and applies an L2-regularized logistic regression.
package classifier

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Options controls fitting.
type Options struct {
	// C is the inverse regularization strength. The objective is
	// 0.5*|w|^2 + C*sum(logloss); the intercept is not penalized.
	C         float64
	MaxIter   int
	Tolerance float64
}

// DefaultOptions mirrors the settings the delay model was first trained with.
func DefaultOptions() Options {
	return Options{C: 1.0, MaxIter: 1000, Tolerance: 1e-6}
}

// LogisticRegression is a fitted binary classifier. The positive class is
// "delayed". It is never mutated after Fit returns.
type LogisticRegression struct {
	Weights    []float64 `msgpack:"weights" yaml:"weights"`
	Intercept  float64   `msgpack:"intercept" yaml:"intercept"`
	Iterations int       `msgpack:"iterations" yaml:"iterations"`
	Converged  bool      `msgpack:"converged" yaml:"converged"`
}

// Sigmoid is the logistic link, stable for large |z|.
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// Decision returns the linear decision function w.x + b.
func (m *LogisticRegression) Decision(x []float64) (float64, error) {
	if len(x) != len(m.Weights) {
		return 0, eris.Errorf("classifier: model expects %d features, got %d", len(m.Weights), len(x))
	}
	z := m.Intercept
	for j, v := range x {
		z += m.Weights[j] * v
	}
	return z, nil
}

// PredictProba returns P(delayed | x).
func (m *LogisticRegression) PredictProba(x []float64) (float64, error) {
	z, err := m.Decision(x)
	if err != nil {
		return 0, err
	}
	return Sigmoid(z), nil
}

// Validate checks the model is usable.
func (m *LogisticRegression) Validate(features int) error {
	if len(m.Weights) != features {
		return eris.Errorf("classifier: model has %d weights, want %d", len(m.Weights), features)
	}
	for j, w := range m.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return eris.Errorf("classifier: weight %d is not finite", j)
		}
	}
	if math.IsNaN(m.Intercept) || math.IsInf(m.Intercept, 0) {
		return eris.New("classifier: intercept is not finite")
	}
	return nil
}

// Fit trains a model with Newton-Raphson steps on the regularized log loss.
// Labels must be 0 or 1 and both classes must be present.
func Fit(x [][]float64, y []int, opts Options) (*LogisticRegression, error) {
	if len(x) == 0 {
		return nil, eris.New("classifier: no training samples")
	}
	if len(x) != len(y) {
		return nil, eris.Errorf("classifier: %d samples but %d labels", len(x), len(y))
	}
	if opts.C <= 0 {
		return nil, eris.Errorf("classifier: C must be > 0, got %v", opts.C)
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultOptions().MaxIter
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}

	d := len(x[0])
	var pos int
	for i, label := range y {
		if label != 0 && label != 1 {
			return nil, eris.Errorf("classifier: label %d at row %d is not 0 or 1", label, i)
		}
		if len(x[i]) != d {
			return nil, eris.Errorf("classifier: row %d has %d features, want %d", i, len(x[i]), d)
		}
		pos += label
	}
	if pos == 0 || pos == len(y) {
		return nil, eris.New("classifier: training labels contain a single class")
	}

	// theta holds the weights followed by the intercept.
	k := d + 1
	theta := make([]float64, k)
	grad := mat.NewVecDense(k, nil)
	hess := mat.NewSymDense(k, nil)
	step := mat.NewVecDense(k, nil)
	row := make([]float64, k)
	row[d] = 1

	m := &LogisticRegression{}
	for iter := 1; iter <= opts.MaxIter; iter++ {
		for j := range k {
			g := 0.0
			if j < d {
				g = theta[j]
			}
			grad.SetVec(j, g)
			for l := j; l < k; l++ {
				h := 0.0
				if j == l && j < d {
					h = 1
				}
				hess.SetSym(j, l, h)
			}
		}

		for i, xi := range x {
			copy(row, xi)
			z := theta[d]
			for j := range d {
				z += theta[j] * xi[j]
			}
			p := Sigmoid(z)
			r := opts.C * (p - float64(y[i]))
			s := opts.C * p * (1 - p)
			for j := range k {
				grad.SetVec(j, grad.AtVec(j)+r*row[j])
				sj := s * row[j]
				for l := j; l < k; l++ {
					hess.SetSym(j, l, hess.At(j, l)+sj*row[l])
				}
			}
		}

		if err := solveNewton(hess, grad, step); err != nil {
			return nil, eris.Wrapf(err, "classifier: newton step %d", iter)
		}

		maxStep := 0.0
		for j := range k {
			delta := step.AtVec(j)
			theta[j] -= delta
			maxStep = math.Max(maxStep, math.Abs(delta))
		}
		m.Iterations = iter
		if maxStep < opts.Tolerance {
			m.Converged = true
			break
		}
	}

	if !m.Converged {
		zap.L().Warn("classifier: did not converge",
			zap.Int("max_iter", opts.MaxIter),
			zap.Float64("tolerance", opts.Tolerance),
		)
	}

	m.Weights = theta[:d:d]
	m.Intercept = theta[d]
	return m, nil
}

// solveNewton solves hess * step = grad, preferring a Cholesky factorization.
func solveNewton(hess *mat.SymDense, grad, step *mat.VecDense) error {
	var chol mat.Cholesky
	if chol.Factorize(hess) {
		return chol.SolveVecTo(step, grad)
	}
	return step.SolveVec(hess, grad)
}
