package classifier

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
)

// logLossEps clips probabilities before taking logs.
const logLossEps = 1e-15

// Metrics summarizes classifier quality on a labelled sample.
type Metrics struct {
	Samples   int     `json:"samples" yaml:"samples" msgpack:"samples"`
	Positives int     `json:"positives" yaml:"positives" msgpack:"positives"`
	Accuracy  float64 `json:"accuracy" yaml:"accuracy" msgpack:"accuracy"`
	AUC       float64 `json:"auc" yaml:"auc" msgpack:"auc"`
	LogLoss   float64 `json:"log_loss" yaml:"log_loss" msgpack:"log_loss"`
	// SingleClass is set when the sample holds only one label, in which
	// case AUC is reported as 0.5.
	SingleClass bool `json:"single_class,omitempty" yaml:"single_class,omitempty" msgpack:"single_class"`
}

// Evaluate scores every row and compares against the labels. Accuracy uses a
// 0.5 cut; it is independent of the risk tiers.
func Evaluate(m *LogisticRegression, x [][]float64, y []int) (Metrics, error) {
	if len(x) == 0 {
		return Metrics{}, eris.New("classifier: evaluate on empty sample")
	}
	if len(x) != len(y) {
		return Metrics{}, eris.Errorf("classifier: %d samples but %d labels", len(x), len(y))
	}

	probs := make([]float64, len(x))
	var correct int
	var loss float64
	met := Metrics{Samples: len(x)}
	for i, xi := range x {
		p, err := m.PredictProba(xi)
		if err != nil {
			return Metrics{}, eris.Wrapf(err, "classifier: evaluate row %d", i)
		}
		probs[i] = p
		pred := 0
		if p >= 0.5 {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
		met.Positives += y[i]

		pc := math.Min(math.Max(p, logLossEps), 1-logLossEps)
		if y[i] == 1 {
			loss -= math.Log(pc)
		} else {
			loss -= math.Log(1 - pc)
		}
	}

	met.Accuracy = float64(correct) / float64(len(x))
	met.LogLoss = loss / float64(len(x))
	met.AUC, met.SingleClass = AUC(probs, y)
	return met, nil
}

// AUC computes the area under the ROC curve from the Mann-Whitney rank
// statistic, averaging ranks over tied scores. The second return value is
// true when only one class is present.
func AUC(scores []float64, y []int) (float64, bool) {
	n := len(scores)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && scores[idx[j+1]] == scores[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	var pos, rankSum float64
	for i, label := range y {
		if label == 1 {
			pos++
			rankSum += ranks[i]
		}
	}
	neg := float64(n) - pos
	if pos == 0 || neg == 0 {
		return 0.5, true
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg), false
}
