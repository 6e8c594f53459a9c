package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	// Change to temp dir so no stray config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/orders.csv", cfg.Data.Orders)
	assert.Equal(t, "data/cost_breakdown.csv", cfg.Data.Costs)
	assert.Equal(t, "artifacts", cfg.Artifacts.Dir)
	assert.InDelta(t, 0.2, cfg.Training.TestSize, 1e-12)
	assert.Equal(t, uint64(42), cfg.Training.Seed)
	assert.Equal(t, 1000, cfg.Training.MaxIter)
	assert.InDelta(t, 1e-6, cfg.Training.Tolerance, 1e-12)
	assert.InDelta(t, 1.0, cfg.Training.L2, 1e-12)
	assert.Equal(t, "strict", cfg.Inference.MissingPolicy)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Fetch.MaxAttempts)
	assert.False(t, cfg.Monitoring.Enabled)
	assert.InDelta(t, 0.5, cfg.Monitoring.HighRateThreshold, 1e-12)
	assert.Equal(t, 24, cfg.Monitoring.LookbackWindowHours)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ',', cfg.Data.DelimiterRune())

	assert.NoError(t, cfg.Validate(ModeTrain))
	assert.NoError(t, cfg.Validate(ModeServe))
	assert.NoError(t, cfg.Validate(ModePredict))
	assert.NoError(t, cfg.Validate(ModeMonitor))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
data:
  orders: https://example.com/orders.csv
  delimiter: ";"
inference:
  missing_policy: impute
store:
  driver: none
log:
  level: debug
  format: console
server:
  port: 9090
training:
  min_auc: 0.6
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/orders.csv", cfg.Data.Orders)
	assert.Equal(t, ';', cfg.Data.DelimiterRune())
	assert.Equal(t, "impute", cfg.Inference.MissingPolicy)
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 0.6, cfg.Training.MinAUC, 1e-12)
	// Defaults still apply for unset values
	assert.Equal(t, "data/routes_distance.csv", cfg.Data.Routes)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("DELAYRISK_STORE_DRIVER", "postgres")
	t.Setenv("DELAYRISK_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("DELAYRISK_SERVER_PORT", "3000")
	t.Setenv("DELAYRISK_ARTIFACTS_DIR", "/var/lib/delay-risk")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/var/lib/delay-risk", cfg.Artifacts.Dir)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [port"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Data = DataConfig{Orders: "o.csv", Delivery: "d.csv", Routes: "r.csv", Feedback: "f.csv", Costs: "c.csv"}
	cfg.Artifacts.Dir = "artifacts"
	cfg.Training = TrainingConfig{TestSize: 0.2, Seed: 42, MaxIter: 1000, Tolerance: 1e-6, L2: 1}
	cfg.Inference.MissingPolicy = "strict"
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "delay-risk.db"
	cfg.Server = ServerConfig{Port: 8080, RateLimit: 20, Burst: 40}
	cfg.Monitoring = MonitoringConfig{HighRateThreshold: 0.5, MinPredictions: 10, LookbackWindowHours: 24}
	return cfg
}

func TestValidateTrain_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Data.Routes = ""
	cfg.Training.TestSize = 1.5
	cfg.Training.MaxIter = 0

	err := cfg.Validate(ModeTrain)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data.routes is required")
	assert.Contains(t, err.Error(), "training.test_size")
	assert.Contains(t, err.Error(), "training.max_iter must be positive")
}

func TestValidateTrain_BadDelimiter(t *testing.T) {
	cfg := validDefaults()
	cfg.Data.Delimiter = ",,"
	err := cfg.Validate(ModeTrain)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data.delimiter")
}

func TestValidatePredict_BadPolicy(t *testing.T) {
	cfg := validDefaults()
	cfg.Inference.MissingPolicy = "lenient"

	err := cfg.Validate(ModePredict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inference.missing_policy")

	// Training does not read the inference policy.
	assert.NoError(t, cfg.Validate(ModeTrain))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate(ModeServe)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidateServe_BurstRequired(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Burst = 0

	err := cfg.Validate(ModeServe)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.burst")
}

func TestValidateStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	assert.ErrorContains(t, cfg.Validate(ModePredict), "store.driver")

	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""
	assert.ErrorContains(t, cfg.Validate(ModePredict), "store.database_url is required")

	cfg.Store.Driver = "none"
	assert.NoError(t, cfg.Validate(ModePredict))
	assert.ErrorContains(t, cfg.Validate(ModeHistory), "to read history")
}

func TestValidateMonitor(t *testing.T) {
	cfg := validDefaults()
	cfg.Monitoring.HighRateThreshold = 0
	cfg.Monitoring.LookbackWindowHours = 0

	err := cfg.Validate(ModeMonitor)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring.high_rate_threshold")
	assert.Contains(t, err.Error(), "monitoring.lookback_window_hours")

	// Serve only checks monitoring settings when the checker is enabled.
	assert.NoError(t, cfg.Validate(ModeServe))
	cfg.Monitoring.Enabled = true
	assert.ErrorContains(t, cfg.Validate(ModeServe), "monitoring.high_rate_threshold")

	cfg = validDefaults()
	cfg.Store.Driver = "none"
	assert.ErrorContains(t, cfg.Validate(ModeMonitor), "for monitoring")
}

func TestValidate_LogFormat(t *testing.T) {
	cfg := validDefaults()
	cfg.Log.Format = "xml"
	assert.ErrorContains(t, cfg.Validate(ModePredict), "log.format")
}

func TestFetchTimeout(t *testing.T) {
	assert.Equal(t, "30s", FetchConfig{TimeoutSecs: 30}.Timeout().String())
}
