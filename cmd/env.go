package main

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/sells-group/delay-risk-cli/internal/codec"
	"github.com/sells-group/delay-risk-cli/internal/fetcher"
	"github.com/sells-group/delay-risk-cli/internal/resilience"
	"github.com/sells-group/delay-risk-cli/internal/risk"
	"github.com/sells-group/delay-risk-cli/internal/store"
)

// initStore opens the configured prediction log. It returns a nil Store
// when the driver is "none".
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}

// initOpener builds the table reader used for training data and batch input.
func initOpener() *fetcher.Opener {
	return fetcher.NewOpener(fetcher.OpenerOptions{
		HTTP: fetcher.HTTPOptions{
			UserAgent: cfg.Fetch.UserAgent,
			Timeout:   cfg.Fetch.Timeout(),
			RateLimit: rate.Limit(cfg.Fetch.RateLimit),
		},
		FTP: fetcher.FTPOptions{Timeout: cfg.Fetch.Timeout()},
		CSV: fetcher.CSVOptions{
			Delimiter: cfg.Data.DelimiterRune(),
			Encoding:  cfg.Data.Encoding,
			TrimSpace: true,
		},
		TempDir: cfg.Fetch.TempDir,
		Retry:   resilience.RetryConfig{MaxAttempts: cfg.Fetch.MaxAttempts},
	})
}

// loadScoring reads the artifact bundle from dir with the configured
// missing-value policy.
func loadScoring(dir string) (*risk.ScoringContext, error) {
	policy, err := codec.ParsePolicy(cfg.Inference.MissingPolicy)
	if err != nil {
		return nil, err
	}
	return risk.Load(dir, policy)
}

// artifactDir returns the flag value when set, else the configured dir.
func artifactDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return cfg.Artifacts.Dir
}
