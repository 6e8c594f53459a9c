package model

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// Bound is the accepted input range of a numeric form control.
type Bound struct {
	Min     float64
	Max     float64
	Integer bool
}

// Bounds lists the input ranges operators may enter. They constrain the
// interactive surfaces only; the codec itself accepts any finite number.
var Bounds = map[Field]Bound{
	FieldOrderValue:   {Min: 100, Max: 50000},
	FieldDistance:     {Min: 10, Max: 5000},
	FieldTrafficDelay: {Min: 0, Max: 120},
	FieldFuelCost:     {Min: 50, Max: 5000},
	FieldLaborCost:    {Min: 50, Max: 5000},
	FieldDeliveryCost: {Min: 100, Max: 10000},
	FieldRating:       {Min: 1, Max: 5, Integer: true},
}

// Choices returns the form enumeration of a categorical field.
func Choices(f Field) []string {
	switch f {
	case FieldPriority:
		return Priorities
	case FieldProductCategory:
		return ProductCategories
	}
	return nil
}

// ValidateInput checks a row entered through a form against Bounds and the
// categorical enumerations. Absent fields are left to the codec so that the
// configured missing-value policy decides their fate.
func ValidateInput(r FeatureRow) error {
	var errs []string
	for _, f := range Fields {
		if f.Categorical() {
			v := r.Category(f)
			if v != "" && !slices.Contains(Choices(f), v) {
				errs = append(errs, fmt.Sprintf("%s must be one of %s", f, strings.Join(Choices(f), ", ")))
			}
			continue
		}
		v, ok := r.Number(f)
		if !ok {
			continue
		}
		b := Bounds[f]
		if math.IsNaN(v) || v < b.Min || v > b.Max {
			errs = append(errs, fmt.Sprintf("%s must be between %g and %g", f, b.Min, b.Max))
			continue
		}
		if b.Integer && v != math.Trunc(v) {
			errs = append(errs, fmt.Sprintf("%s must be a whole number", f))
		}
	}
	if len(errs) > 0 {
		return eris.Errorf("model: invalid input: %s", strings.Join(errs, "; "))
	}
	return nil
}
