package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/delay-risk-cli/internal/classifier"
	"github.com/sells-group/delay-risk-cli/internal/config"
	"github.com/sells-group/delay-risk-cli/internal/dataset"
	"github.com/sells-group/delay-risk-cli/internal/train"
)

var (
	trainArtifacts string
	trainMinAUC    float64
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the delay classifier and write artifacts",
	Long:  "Loads the five source tables, joins them on Order_ID, labels late deliveries, fits the encoders, scaler, and logistic regression, and writes the artifact set.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cmd.Flags().Changed("min-auc") {
			cfg.Training.MinAUC = trainMinAUC
		}
		cfg.Artifacts.Dir = artifactDir(trainArtifacts)
		if err := cfg.Validate(config.ModeTrain); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		res, err := train.New(initOpener(), st).Run(ctx, trainOptions(cfg))
		if err != nil {
			return eris.Wrap(err, "train")
		}

		formatTrainSummary(os.Stdout, res)
		return nil
	},
}

func trainOptions(c *config.Config) train.Options {
	return train.Options{
		Sources: dataset.Sources{
			Orders:   c.Data.Orders,
			Delivery: c.Data.Delivery,
			Routes:   c.Data.Routes,
			Feedback: c.Data.Feedback,
			Costs:    c.Data.Costs,
		},
		ArtifactDir: c.Artifacts.Dir,
		TestSize:    c.Training.TestSize,
		Seed:        c.Training.Seed,
		Fit: classifier.Options{
			C:         c.Training.L2,
			MaxIter:   c.Training.MaxIter,
			Tolerance: c.Training.Tolerance,
		},
		MinAUC: c.Training.MinAUC,
	}
}

// formatTrainSummary writes the outcome of a training run to w.
func formatTrainSummary(out io.Writer, res *train.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", res.Run.ID)
	_, _ = fmt.Fprintf(w, "Artifacts:\t%s\n", res.Run.ArtifactDir)
	_, _ = fmt.Fprintf(w, "Rows:\t%d joined, %d train, %d test\n", res.Run.JoinedRows, res.Run.TrainRows, res.Run.TestRows)
	_, _ = fmt.Fprintf(w, "Delay rate:\t%.1f%%\n", res.Run.DelayRate*100)
	_, _ = fmt.Fprintf(w, "Accuracy:\t%.4f\n", res.Metrics.Accuracy)
	if res.Metrics.SingleClass {
		_, _ = fmt.Fprintf(w, "AUC:\tn/a (single-class holdout)\n")
	} else {
		_, _ = fmt.Fprintf(w, "AUC:\t%.4f\n", res.Metrics.AUC)
	}
	_, _ = fmt.Fprintf(w, "Log loss:\t%.4f\n", res.Metrics.LogLoss)
	converged := "converged"
	if !res.Bundle.Model.Converged {
		converged = "not converged"
	}
	_, _ = fmt.Fprintf(w, "Iterations:\t%d (%s)\n", res.Run.Iterations, converged)
	_ = w.Flush()
}

func init() {
	trainCmd.Flags().StringVar(&trainArtifacts, "artifacts", "", "artifact output directory (default from config)")
	trainCmd.Flags().Float64Var(&trainMinAUC, "min-auc", 0, "fail when holdout AUC is below this value (default from config)")
	rootCmd.AddCommand(trainCmd)
}
