package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/delay-risk-cli/internal/config"
	"github.com/sells-group/delay-risk-cli/internal/model"
	"github.com/sells-group/delay-risk-cli/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded predictions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		tier, _ := cmd.Flags().GetString("tier")
		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")
		output, _ := cmd.Flags().GetString("output")

		filter := store.PredictionFilter{
			Tier:   model.Tier(tier),
			Source: model.PredictionSource(source),
			Limit:  limit,
		}
		if filter.Tier != "" && !filter.Tier.Valid() {
			return eris.Errorf("history: unknown tier %q", tier)
		}
		if err := cfg.Validate(config.ModeHistory); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		preds, err := st.ListPredictions(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "history")
		}

		if output == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(preds)
		}

		if latest, err := st.LatestTrainingRun(ctx); err != nil {
			return eris.Wrap(err, "history")
		} else if latest != nil {
			fmt.Fprintf(os.Stdout, "Latest training run %s (AUC %.4f, %s)\n\n",
				truncateID(latest.ID), latest.AUC, latest.FinishedAt.Format("2006-01-02 15:04"))
		}

		if len(preds) == 0 {
			fmt.Fprintln(os.Stderr, "No predictions found.")
			return nil
		}
		formatPredictionHistory(os.Stdout, preds)
		return nil
	},
}

// formatPredictionHistory writes a tabular list of predictions to w.
func formatPredictionHistory(out io.Writer, preds []model.Prediction) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tSOURCE\tPRIORITY\tCATEGORY\tPROBABILITY\tTIER\tMODEL")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t--------\t--------\t-----------\t----\t-----")
	for _, p := range preds {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
			truncateID(p.ID),
			p.CreatedAt.Format("2006-01-02 15:04"),
			p.Source,
			p.Row.Priority,
			p.Row.ProductCategory,
			p.Probability,
			p.Tier,
			truncateID(p.ModelRunID),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	historyCmd.Flags().String("tier", "", "filter by tier (HIGH, MEDIUM, LOW)")
	historyCmd.Flags().String("source", "", "filter by source (cli, api)")
	historyCmd.Flags().Int("limit", 50, "max number of predictions to display")
	historyCmd.Flags().String("output", "text", "output format: text or json")
	rootCmd.AddCommand(historyCmd)
}
