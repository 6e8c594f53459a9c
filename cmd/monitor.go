package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/delay-risk-cli/internal/config"
	"github.com/sells-group/delay-risk-cli/internal/model"
	"github.com/sells-group/delay-risk-cli/internal/monitoring"
	"github.com/sells-group/delay-risk-cli/internal/store"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Check recent predictions and send alerts",
	Long: `Summarizes the predictions recorded within the lookback window, evaluates
the alert thresholds and posts any breaches to monitoring.webhook_url.
With --watch the check repeats every monitoring.check_interval_secs.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		lookback, _ := cmd.Flags().GetInt("lookback")
		watch, _ := cmd.Flags().GetBool("watch")
		output, _ := cmd.Flags().GetString("output")

		if lookback > 0 {
			cfg.Monitoring.LookbackWindowHours = lookback
		}
		if err := cfg.Validate(config.ModeMonitor); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		checker := newChecker(st)
		if watch {
			checker.Run(ctx)
			return nil
		}

		report, err := checker.Check(ctx)
		if err != nil {
			return eris.Wrap(err, "monitor")
		}
		if output == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		formatMonitorReport(os.Stdout, report)
		return nil
	},
}

func newChecker(st store.Store) *monitoring.Checker {
	return monitoring.NewChecker(
		monitoring.NewCollector(st),
		monitoring.NewAlerter(cfg.Monitoring),
		cfg.Monitoring,
	)
}

// formatMonitorReport writes a snapshot summary and its alerts to out.
func formatMonitorReport(out io.Writer, r *monitoring.Report) {
	s := r.Snapshot
	fmt.Fprintf(out, "Window:       last %dh (%d predictions)\n", s.LookbackHours, s.Predictions)
	if s.Truncated {
		fmt.Fprintln(out, "              window truncated; rates cover the newest rows only")
	}
	for _, t := range model.Tiers {
		share := 0.0
		if s.Predictions > 0 {
			share = float64(s.Tiers[t]) / float64(s.Predictions)
		}
		fmt.Fprintf(out, "  %-10s %6d  %5.1f%%\n", t, s.Tiers[t], share*100)
	}
	fmt.Fprintf(out, "Mean prob:    %.4f\n", s.AvgProbability)
	if s.ModelRunID == "" {
		fmt.Fprintln(out, "Model:        none recorded")
	} else {
		fmt.Fprintf(out, "Model:        %s (AUC %.4f, trained %s, %.0fh ago)\n",
			truncateID(s.ModelRunID), s.ModelAUC, s.ModelTrainedAt.Format("2006-01-02 15:04"), s.ModelAge().Hours())
	}

	if len(r.Alerts) == 0 {
		fmt.Fprintln(out, "\nNo alerts.")
		return
	}
	fmt.Fprintf(out, "\nAlerts (%d, %d sent):\n", len(r.Alerts), r.Sent)
	for _, a := range r.Alerts {
		fmt.Fprintf(out, "  [%s] %s: %s\n", a.Severity, a.Type, a.Message)
	}
}

func init() {
	monitorCmd.Flags().Int("lookback", 0, "lookback window in hours (default from config)")
	monitorCmd.Flags().Bool("watch", false, "keep checking on the configured interval")
	monitorCmd.Flags().String("output", "text", "output format: text or json")
	rootCmd.AddCommand(monitorCmd)
}
