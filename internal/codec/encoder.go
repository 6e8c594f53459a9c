// Package codec turns raw feature rows into the scaled numeric vectors the
// classifier consumes. The same code path runs at training and inference.
package codec

import (
	"slices"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/delay-risk-cli/internal/model"
)

// LabelEncoder maps category strings to integer codes. Classes are sorted and
// the code of a class is its index.
type LabelEncoder struct {
	Classes []string `msgpack:"classes" yaml:"classes"`
}

// FitLabelEncoder builds an encoder over the distinct values.
func FitLabelEncoder(values []string) LabelEncoder {
	classes := slices.Clone(values)
	sort.Strings(classes)
	return LabelEncoder{Classes: slices.Compact(classes)}
}

// Code returns the integer code of v.
func (e LabelEncoder) Code(v string) (int, bool) {
	i := sort.SearchStrings(e.Classes, v)
	if i < len(e.Classes) && e.Classes[i] == v {
		return i, true
	}
	return 0, false
}

// Class returns the category for a code.
func (e LabelEncoder) Class(code int) (string, bool) {
	if code < 0 || code >= len(e.Classes) {
		return "", false
	}
	return e.Classes[code], true
}

// EncoderTable holds one LabelEncoder per categorical field.
type EncoderTable struct {
	Encoders map[model.Field]LabelEncoder `msgpack:"encoders" yaml:"encoders"`
}

// FitEncoderTable fits an encoder for every categorical field in columns.
func FitEncoderTable(columns map[model.Field][]string) (EncoderTable, error) {
	t := EncoderTable{Encoders: make(map[model.Field]LabelEncoder, len(columns))}
	for _, f := range model.Fields {
		if !f.Categorical() {
			continue
		}
		values, ok := columns[f]
		if !ok || len(values) == 0 {
			return EncoderTable{}, eris.Errorf("codec: no values to fit encoder for %s", f)
		}
		t.Encoders[f] = FitLabelEncoder(values)
	}
	return t, nil
}

// Code looks up the code of value for a categorical field.
func (t EncoderTable) Code(f model.Field, value string) (int, error) {
	enc, ok := t.Encoders[f]
	if !ok {
		return 0, eris.Errorf("codec: no encoder for %s", f)
	}
	code, ok := enc.Code(value)
	if !ok {
		return 0, &UnknownCategoryError{Field: f, Value: value, Known: enc.Classes}
	}
	return code, nil
}

// Validate checks that every categorical field has a non-empty encoder.
func (t EncoderTable) Validate() error {
	for _, f := range model.Fields {
		if !f.Categorical() {
			continue
		}
		enc, ok := t.Encoders[f]
		if !ok || len(enc.Classes) == 0 {
			return eris.Errorf("codec: encoder table has no classes for %s", f)
		}
		if !sort.StringsAreSorted(enc.Classes) {
			return eris.Errorf("codec: encoder classes for %s are not sorted", f)
		}
	}
	return nil
}
