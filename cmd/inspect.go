package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/delay-risk-cli/internal/artifact"
	"github.com/sells-group/delay-risk-cli/internal/codec"
	"github.com/sells-group/delay-risk-cli/internal/risk"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [artifact-dir]",
	Short: "Show the manifest, vocabularies, scaler, and weights of an artifact set",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		dir := cfg.Artifacts.Dir
		if len(args) == 1 {
			dir = args[0]
		}

		sc, err := risk.Load(dir, codec.PolicyStrict)
		if err != nil {
			return eris.Wrap(err, "inspect")
		}
		summary := summarize(sc)

		switch output {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		case "yaml":
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close() //nolint:errcheck
			return enc.Encode(summary)
		case "text":
			formatInspect(os.Stdout, summary)
			return nil
		default:
			return eris.Errorf("inspect: --output must be text, json, or yaml, got %q", output)
		}
	},
}

type featureSummary struct {
	codec.FieldSummary `yaml:",inline"`
	Weight             float64 `json:"weight" yaml:"weight"`
}

type artifactSummary struct {
	Manifest  *artifact.Manifest `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	Intercept float64            `json:"intercept" yaml:"intercept"`
	Converged bool               `json:"converged" yaml:"converged"`
	Features  []featureSummary   `json:"features" yaml:"features"`
}

func summarize(sc *risk.ScoringContext) artifactSummary {
	m := sc.Model()
	s := artifactSummary{
		Manifest:  sc.Manifest(),
		Intercept: m.Intercept,
		Converged: m.Converged,
	}
	for i, f := range sc.Codec().Describe() {
		s.Features = append(s.Features, featureSummary{FieldSummary: f, Weight: m.Weights[i]})
	}
	return s
}

// formatInspect writes a human-readable artifact summary to w.
func formatInspect(out io.Writer, s artifactSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if m := s.Manifest; m != nil {
		_, _ = fmt.Fprintf(w, "Run:\t%s\n", m.RunID)
		_, _ = fmt.Fprintf(w, "Created:\t%s\n", m.CreatedAt.Format("2006-01-02 15:04"))
		_, _ = fmt.Fprintf(w, "Rows:\t%d joined, %d train, %d test\n", m.Rows.Joined, m.Rows.Train, m.Rows.Test)
		_, _ = fmt.Fprintf(w, "Delay rate:\t%.1f%%\n", m.DelayRate*100)
		_, _ = fmt.Fprintf(w, "Holdout:\taccuracy %.4f, AUC %.4f, log loss %.4f\n",
			m.Holdout.Accuracy, m.Holdout.AUC, m.Holdout.LogLoss)
		_, _ = fmt.Fprintf(w, "Thresholds:\tHIGH > %.2f, MEDIUM > %.2f\n", m.Thresholds.High, m.Thresholds.Medium)
	} else {
		_, _ = fmt.Fprintln(w, "Manifest:\tnone")
	}
	_, _ = fmt.Fprintf(w, "Intercept:\t%.6f\n", s.Intercept)
	_, _ = fmt.Fprintf(w, "Converged:\t%t\n", s.Converged)
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "FEATURE\tCOLUMN\tMEAN\tSCALE\tWEIGHT\tCLASSES / MEDIAN")
	_, _ = fmt.Fprintln(w, "-------\t------\t----\t-----\t------\t----------------")
	for _, f := range s.Features {
		extra := strings.Join(f.Classes, ", ")
		if f.Median != nil {
			extra = fmt.Sprintf("median %g", *f.Median)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.4g\t%.4g\t%+.4f\t%s\n",
			f.Field, f.Column, f.Mean, f.Scale, f.Weight, extra)
	}
	_ = w.Flush()
}

func init() {
	inspectCmd.Flags().String("output", "text", "output format: text, json, or yaml")
	rootCmd.AddCommand(inspectCmd)
}
