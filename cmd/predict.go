package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/delay-risk-cli/internal/config"
	"github.com/sells-group/delay-risk-cli/internal/dataset"
	"github.com/sells-group/delay-risk-cli/internal/model"
	"github.com/sells-group/delay-risk-cli/internal/report"
	"github.com/sells-group/delay-risk-cli/internal/risk"
)

// predictFlags maps each numeric field to its flag name.
var predictFlags = map[model.Field]string{
	model.FieldOrderValue:   "order-value",
	model.FieldDistance:     "distance",
	model.FieldTrafficDelay: "traffic-delay",
	model.FieldFuelCost:     "fuel-cost",
	model.FieldLaborCost:    "labor-cost",
	model.FieldDeliveryCost: "delivery-cost",
	model.FieldRating:       "rating",
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Score one order, or a CSV of orders, for delay risk",
	Long:  "Encodes the order with the trained artifacts, prints the delay probability and risk tier, and lists the recommended actions. Omitted fields are handled by inference.missing_policy.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()

		dir, _ := flags.GetString("artifacts")
		output, _ := flags.GetString("output")
		input, _ := flags.GetString("input")
		record, _ := flags.GetBool("record")
		noColor, _ := flags.GetBool("no-color")

		if output != "text" && output != "json" {
			return eris.Errorf("predict: --output must be text or json, got %q", output)
		}
		cfg.Artifacts.Dir = artifactDir(dir)
		if err := cfg.Validate(config.ModePredict); err != nil {
			return err
		}

		var rows []model.FeatureRow
		if input != "" {
			tbl, err := initOpener().ReadTable(ctx, "input", input)
			if err != nil {
				return eris.Wrap(err, "predict: read input")
			}
			if rows, err = dataset.FeatureRows(tbl); err != nil {
				return eris.Wrap(err, "predict: read input")
			}
		} else {
			row, err := rowFromFlags(flags)
			if err != nil {
				return err
			}
			rows = []model.FeatureRow{row}
		}
		for i, row := range rows {
			if err := model.ValidateInput(row); err != nil {
				if input != "" {
					return eris.Wrapf(err, "predict: input row %d", i+1)
				}
				return err
			}
		}

		sc, err := loadScoring(cfg.Artifacts.Dir)
		if err != nil {
			return eris.Wrap(err, "predict: load artifacts")
		}

		preds, err := assessAll(sc, rows)
		if err != nil {
			return err
		}

		if record {
			if err := recordPredictions(ctx, preds); err != nil {
				return err
			}
		}

		if output == "json" {
			return writePredictionsJSON(os.Stdout, preds, input == "")
		}
		if input != "" {
			formatPredictionTable(os.Stdout, preds)
			return nil
		}
		return report.Render(os.Stdout, preds[0].Row, assessmentOf(preds[0]), report.Options{NoColor: noColor, ShowInput: true})
	},
}

// rowFromFlags builds a FeatureRow from the flags the user actually set.
func rowFromFlags(flags *pflag.FlagSet) (model.FeatureRow, error) {
	var row model.FeatureRow
	row.Priority, _ = flags.GetString("priority")
	row.ProductCategory, _ = flags.GetString("category")
	for f, name := range predictFlags {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetFloat64(name)
		if err != nil {
			return row, eris.Wrapf(err, "predict: --%s", name)
		}
		row.SetNumber(f, v)
	}
	return row, nil
}

// assessAll scores every row and stamps each with the model run id.
func assessAll(sc *risk.ScoringContext, rows []model.FeatureRow) ([]model.Prediction, error) {
	var runID string
	if m := sc.Manifest(); m != nil {
		runID = m.RunID
	}
	preds := make([]model.Prediction, len(rows))
	for i, row := range rows {
		a, err := sc.Assess(row)
		if err != nil {
			if len(rows) > 1 {
				return nil, eris.Wrapf(err, "predict: row %d", i+1)
			}
			return nil, eris.Wrap(err, "predict")
		}
		preds[i] = model.Prediction{
			Row:         row,
			Probability: a.Probability,
			Tier:        a.Tier,
			Source:      model.SourceCLI,
			ModelRunID:  runID,
		}
	}
	return preds, nil
}

// recordPredictions writes preds to the configured store, filling in their
// ids. A single prediction is inserted directly; a batch goes through the
// store's bulk path.
func recordPredictions(ctx context.Context, preds []model.Prediction) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	if st == nil {
		return eris.New("predict: --record needs store.driver sqlite or postgres")
	}
	defer st.Close() //nolint:errcheck

	if len(preds) == 1 {
		return eris.Wrap(st.RecordPrediction(ctx, &preds[0]), "predict: record")
	}
	n, err := st.RecordPredictions(ctx, preds)
	if err != nil {
		return eris.Wrap(err, "predict: record batch")
	}
	zap.L().Info("predict: recorded predictions", zap.Int64("count", n))
	return nil
}

func assessmentOf(p model.Prediction) model.Assessment {
	return model.Assessment{Probability: p.Probability, Tier: p.Tier}
}

type predictionOutput struct {
	ID                 string           `json:"id,omitempty"`
	Row                model.FeatureRow `json:"row"`
	Probability        float64          `json:"probability"`
	ProbabilityRounded float64          `json:"probability_rounded"`
	Tier               model.Tier       `json:"tier"`
	Headline           string           `json:"headline"`
	Actions            []string         `json:"actions"`
	ModelRunID         string           `json:"model_run_id,omitempty"`
}

func toOutput(p model.Prediction) predictionOutput {
	return predictionOutput{
		ID:                 p.ID,
		Row:                p.Row,
		Probability:        p.Probability,
		ProbabilityRounded: report.RoundProbability(p.Probability),
		Tier:               p.Tier,
		Headline:           report.Headline(p.Tier),
		Actions:            report.Actions(p.Tier),
		ModelRunID:         p.ModelRunID,
	}
}

// writePredictionsJSON writes a single object when single is true, else an
// array.
func writePredictionsJSON(out io.Writer, preds []model.Prediction, single bool) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if single && len(preds) == 1 {
		return enc.Encode(toOutput(preds[0]))
	}
	outs := make([]predictionOutput, len(preds))
	for i, p := range preds {
		outs[i] = toOutput(p)
	}
	return enc.Encode(outs)
}

// formatPredictionTable writes one line per scored row to w.
func formatPredictionTable(out io.Writer, preds []model.Prediction) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ROW\tPRIORITY\tCATEGORY\tPROBABILITY\tTIER")
	_, _ = fmt.Fprintln(w, "---\t--------\t--------\t-----------\t----")
	for i, p := range preds {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\n",
			i+1, p.Row.Priority, p.Row.ProductCategory, p.Probability, p.Tier)
	}
	_ = w.Flush()
}

// addPredictFlags registers the order fields and output options on f.
func addPredictFlags(f *pflag.FlagSet) {
	f.String("priority", "", "delivery priority ("+strings.Join(model.Priorities, ", ")+")")
	f.String("category", "", "product category ("+strings.Join(model.ProductCategories, ", ")+")")
	for _, fld := range model.Fields {
		name, ok := predictFlags[fld]
		if !ok {
			continue
		}
		b := model.Bounds[fld]
		f.Float64(name, 0, fmt.Sprintf("%s, %g to %g", report.Label(fld), b.Min, b.Max))
	}
	f.String("input", "", "CSV (or xlsx/zip/URL) of orders with training column headers to score in bulk")
	f.String("artifacts", "", "artifact directory (default from config)")
	f.String("output", "text", "output format: text or json")
	f.Bool("record", false, "write predictions to the configured store")
	f.Bool("no-color", false, "disable colored output")
}

func init() {
	addPredictFlags(predictCmd.Flags())
	rootCmd.AddCommand(predictCmd)
}
