package config

import (
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// Validation modes, one per command that needs configuration.
const (
	ModeTrain   = "train"
	ModePredict = "predict"
	ModeServe   = "serve"
	ModeHistory = "history"
	ModeMonitor = "monitor"
)

// Validate checks the settings a mode depends on and reports every problem
// at once.
func (c *Config) Validate(mode string) error {
	var errs []string
	add := func(msg string) { errs = append(errs, msg) }

	switch c.Log.Format {
	case "", "json", "console":
	default:
		add("log.format must be json or console")
	}

	needArtifacts := mode == ModeTrain || mode == ModePredict || mode == ModeServe
	if needArtifacts && strings.TrimSpace(c.Artifacts.Dir) == "" {
		add("artifacts.dir is required")
	}

	if mode == ModePredict || mode == ModeServe {
		switch c.Inference.MissingPolicy {
		case "", "strict", "impute":
		default:
			add("inference.missing_policy must be strict or impute")
		}
	}

	if mode == ModeTrain {
		for key, v := range map[string]string{
			"data.orders":   c.Data.Orders,
			"data.delivery": c.Data.Delivery,
			"data.routes":   c.Data.Routes,
			"data.feedback": c.Data.Feedback,
			"data.costs":    c.Data.Costs,
		} {
			if strings.TrimSpace(v) == "" {
				add(key + " is required")
			}
		}
		if c.Data.Delimiter != "" && utf8.RuneCountInString(c.Data.Delimiter) != 1 {
			add("data.delimiter must be a single character")
		}
		if c.Training.TestSize <= 0 || c.Training.TestSize >= 1 {
			add("training.test_size must be between 0 and 1 (exclusive)")
		}
		if c.Training.MaxIter <= 0 {
			add("training.max_iter must be positive")
		}
		if c.Training.Tolerance <= 0 {
			add("training.tolerance must be positive")
		}
		if c.Training.L2 <= 0 {
			add("training.l2 must be positive")
		}
		if c.Training.MinAUC < 0 || c.Training.MinAUC > 1 {
			add("training.min_auc must be between 0 and 1")
		}
	}

	if mode == ModeServe {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			add("server.port must be between 1 and 65535")
		}
		if c.Server.RateLimit < 0 {
			add("server.rate_limit must not be negative")
		}
		if c.Server.RateLimit > 0 && c.Server.Burst <= 0 {
			add("server.burst must be positive when rate_limit is set")
		}
	}

	monitoring := mode == ModeMonitor || (mode == ModeServe && c.Monitoring.Enabled)
	if monitoring {
		m := c.Monitoring
		if m.HighRateThreshold <= 0 || m.HighRateThreshold > 1 {
			add("monitoring.high_rate_threshold must be in (0, 1]")
		}
		if m.MinPredictions < 0 {
			add("monitoring.min_predictions must not be negative")
		}
		if m.MaxModelAgeHours < 0 {
			add("monitoring.max_model_age_hours must not be negative")
		}
		if m.LookbackWindowHours <= 0 {
			add("monitoring.lookback_window_hours must be positive")
		}
	}

	switch strings.ToLower(c.Store.Driver) {
	case "", "none":
		if mode == ModeHistory {
			add("store.driver must be sqlite or postgres to read history")
		}
		if monitoring {
			add("store.driver must be sqlite or postgres for monitoring")
		}
	case "sqlite", "postgres":
		if strings.TrimSpace(c.Store.DatabaseURL) == "" {
			add("store.database_url is required")
		}
	default:
		add("store.driver must be sqlite, postgres, or none")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DelimiterRune returns the configured CSV delimiter, defaulting to ','.
func (d DataConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(d.Delimiter)
	if r == utf8.RuneError {
		return ','
	}
	return r
}
