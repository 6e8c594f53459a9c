package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/delay-risk-cli/internal/api"
	"github.com/sells-group/delay-risk-cli/internal/config"
	"github.com/sells-group/delay-risk-cli/internal/risk"
)

var (
	servePort      int
	serveArtifacts string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP scoring API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		cfg.Artifacts.Dir = artifactDir(serveArtifacts)
		if err := cfg.Validate(config.ModeServe); err != nil {
			return err
		}

		sc, err := loadScoring(cfg.Artifacts.Dir)
		if err != nil {
			return eris.Wrap(err, "serve: load artifacts")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}
		if cfg.Monitoring.Enabled {
			go newChecker(st).Run(ctx)
		}

		handler, err := api.NewRouter(sc, st, api.Options{
			RateLimit:      cfg.Server.RateLimit,
			Burst:          cfg.Server.Burst,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		})
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", cfg.Server.Port),
			zap.String("model_run_id", runID(sc)),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveArtifacts, "artifacts", "", "artifact directory (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runID(sc *risk.ScoringContext) string {
	if m := sc.Manifest(); m != nil {
		return m.RunID
	}
	return ""
}
