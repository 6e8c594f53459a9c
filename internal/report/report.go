// Package report turns an assessment into operator-facing text.
package report

import (
	"fmt"
	"io"
	"math"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/delay-risk-cli/internal/model"
)

// Title is the product name shown above rendered reports.
const Title = "Logistics Delivery Delay Risk Predictor"

var actions = map[model.Tier][]string{
	model.TierHigh: {
		"Reassign order to faster carrier",
		"Prioritize warehouse processing",
		"Optimize route to avoid traffic",
		"Proactively notify customer",
	},
	model.TierMedium: {
		"Monitor shipment closely",
		"Alert operations team",
		"Prepare alternate route or vehicle",
	},
	model.TierLow: {
		"Continue with standard delivery process",
	},
}

var headlines = map[model.Tier]string{
	model.TierHigh:   "High Risk of Delay",
	model.TierMedium: "Medium Risk of Delay",
	model.TierLow:    "Low Risk of Delay",
}

var labels = map[model.Field]string{
	model.FieldPriority:        "Delivery Priority",
	model.FieldProductCategory: "Product Category",
	model.FieldOrderValue:      "Order Value (INR)",
	model.FieldDistance:        "Route Distance (KM)",
	model.FieldTrafficDelay:    "Traffic Delay (Minutes)",
	model.FieldFuelCost:        "Fuel Cost (INR)",
	model.FieldLaborCost:       "Labor Cost (INR)",
	model.FieldDeliveryCost:    "Delivery Cost (INR)",
	model.FieldRating:          "Customer Rating",
}

// Actions returns the recommended actions for a tier. The slice is a copy.
func Actions(t model.Tier) []string {
	return append([]string(nil), actions[t]...)
}

// Headline returns the one-line summary for a tier.
func Headline(t model.Tier) string {
	return headlines[t]
}

// Label returns the form label of a field.
func Label(f model.Field) string {
	return labels[f]
}

// RoundProbability rounds p to two decimals, the precision shown to users.
func RoundProbability(p float64) float64 {
	return math.Round(p*100) / 100
}

var printer = message.NewPrinter(language.English)

// FormatINR renders an amount with thousands separators and two decimals.
func FormatINR(v float64) string {
	return printer.Sprintf("₹%.2f", v)
}

// Options controls rendering.
type Options struct {
	NoColor bool
	// ShowInput echoes the feature row above the result.
	ShowInput bool
}

func tierColor(t model.Tier) *color.Color {
	switch t {
	case model.TierHigh:
		return color.New(color.FgRed, color.Bold)
	case model.TierMedium:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgGreen, color.Bold)
	}
}

// Render writes a human-readable report for one assessment.
func Render(w io.Writer, row model.FeatureRow, a model.Assessment, opts Options) error {
	bold := color.New(color.Bold)
	headline := tierColor(a.Tier)
	if opts.NoColor {
		bold.DisableColor()
		headline.DisableColor()
	}

	ew := &errWriter{w: w}
	bold.Fprintln(ew, Title) //nolint:errcheck
	ew.printf("\n")

	if opts.ShowInput {
		bold.Fprintln(ew, "Order Details") //nolint:errcheck
		for _, f := range model.Fields {
			ew.printf("  %-24s %s\n", Label(f)+":", formatField(row, f))
		}
		ew.printf("\n")
	}

	ew.printf("Delay Risk Probability: %.2f\n", a.Probability)
	headline.Fprintf(ew, "%s (%s)\n", Headline(a.Tier), a.Tier) //nolint:errcheck
	ew.printf("\nRecommended Actions:\n")
	for _, act := range actions[a.Tier] {
		ew.printf("  - %s\n", act)
	}
	return ew.err
}

func formatField(row model.FeatureRow, f model.Field) string {
	if f.Categorical() {
		if v := row.Category(f); v != "" {
			return v
		}
		return "-"
	}
	v, ok := row.Number(f)
	if !ok {
		return "-"
	}
	switch f {
	case model.FieldOrderValue, model.FieldFuelCost, model.FieldLaborCost, model.FieldDeliveryCost:
		return FormatINR(v)
	case model.FieldRating:
		return fmt.Sprintf("%.0f / 5", v)
	default:
		return printer.Sprintf("%.1f", v)
	}
}

// errWriter keeps the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

func (e *errWriter) printf(format string, args ...any) {
	fmt.Fprintf(e, format, args...) //nolint:errcheck
}
