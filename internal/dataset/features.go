package dataset

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/delay-risk-cli/internal/fetcher"
	"github.com/sells-group/delay-risk-cli/internal/model"
)

// Labels derives the target for every joined row: 1 when the actual delivery
// took longer than promised, else 0.
func Labels(j *Joined) ([]int, error) {
	labels := make([]int, len(j.Rows))
	for r := range j.Rows {
		actual, err := parseDays(j.Value(r, ColActualDays))
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: row %d %s", r+1, ColActualDays)
		}
		promised, err := parseDays(j.Value(r, ColPromisedDays))
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: row %d %s", r+1, ColPromisedDays)
		}
		if actual-promised > 0 {
			labels[r] = 1
		}
	}
	return labels, nil
}

func parseDays(s string) (float64, error) {
	v, ok, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, eris.New("delivery days are missing")
	}
	return v, nil
}

// parseNumber reads a numeric cell. Empty and NaN cells are reported as
// absent rather than as errors.
func parseNumber(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, eris.Wrapf(err, "parse %q", s)
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	return v, true, nil
}

// ExtractFeatures pulls the nine predictor columns out of the joined rows.
// Absent cells stay absent; Impute fills them.
func ExtractFeatures(j *Joined) ([]model.FeatureRow, error) {
	for _, f := range model.Fields {
		if j.Index(f.Column()) < 0 {
			return nil, &SchemaError{Table: "joined", Column: f.Column()}
		}
	}

	rows := make([]model.FeatureRow, len(j.Rows))
	for r := range j.Rows {
		for _, f := range model.Fields {
			cell := j.Value(r, f.Column())
			if f.Categorical() {
				rows[r].SetCategory(f, strings.TrimSpace(cell))
				continue
			}
			v, ok, err := parseNumber(cell)
			if err != nil {
				return nil, eris.Wrapf(err, "dataset: row %d %s", r+1, f.Column())
			}
			if ok {
				rows[r].SetNumber(f, v)
			}
		}
	}
	return rows, nil
}

// Impute fills absent values in place: numeric fields with the column
// median, categorical fields with model.UnknownCategory. It returns the
// medians so inference can repeat the fill.
func Impute(rows []model.FeatureRow) (map[model.Field]float64, error) {
	medians := make(map[model.Field]float64)
	for _, f := range model.Fields {
		if f.Categorical() {
			continue
		}
		present := make([]float64, 0, len(rows))
		for _, r := range rows {
			if v, ok := r.Number(f); ok {
				present = append(present, v)
			}
		}
		if len(present) == 0 {
			return nil, eris.Errorf("dataset: column %s has no values to impute from", f.Column())
		}
		medians[f] = Median(present)
	}

	filled := make(map[model.Field]int)
	for i := range rows {
		for _, f := range model.Fields {
			if f.Categorical() {
				if rows[i].Category(f) == "" {
					rows[i].SetCategory(f, model.UnknownCategory)
					filled[f]++
				}
				continue
			}
			if _, ok := rows[i].Number(f); !ok {
				rows[i].SetNumber(f, medians[f])
				filled[f]++
			}
		}
	}

	for f, n := range filled {
		zap.L().Debug("dataset: imputed values", zap.String("column", f.Column()), zap.Int("count", n))
	}
	return medians, nil
}

// Median returns the middle value of xs, averaging the two middle values
// when the count is even. xs is not modified.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Dataset is the imputed training set.
type Dataset struct {
	Rows    []model.FeatureRow
	Labels  []int
	Medians map[model.Field]float64
}

// DelayRate is the share of delayed rows.
func (d *Dataset) DelayRate() float64 {
	if len(d.Labels) == 0 {
		return 0
	}
	var n int
	for _, y := range d.Labels {
		n += y
	}
	return float64(n) / float64(len(d.Labels))
}

// Build joins the tables, derives labels, and extracts imputed features.
func Build(t Tables) (*Dataset, error) {
	joined, err := Join(t)
	if err != nil {
		return nil, err
	}
	labels, err := Labels(joined)
	if err != nil {
		return nil, err
	}
	rows, err := ExtractFeatures(joined)
	if err != nil {
		return nil, err
	}
	medians, err := Impute(rows)
	if err != nil {
		return nil, err
	}

	d := &Dataset{Rows: rows, Labels: labels, Medians: medians}
	zap.L().Info("dataset: built",
		zap.Int("rows", len(rows)),
		zap.Float64("delay_rate", d.DelayRate()),
	)
	return d, nil
}

// FeatureRows extracts the predictor columns of a single flat table that
// uses the training headers, such as a batch of orders to score. Absent
// cells stay absent so the missing-value policy applies to them.
func FeatureRows(t *fetcher.Table) ([]model.FeatureRow, error) {
	j := &Joined{Header: make([]string, len(t.Header)), Rows: t.Rows, index: make(map[string]int, len(t.Header))}
	for i, h := range t.Header {
		h = strings.TrimSpace(h)
		j.Header[i] = h
		if _, dup := j.index[h]; !dup {
			j.index[h] = i
		}
	}
	rows, err := ExtractFeatures(j)
	if err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			se.Table = t.Name
		}
		return nil, err
	}
	return rows, nil
}
