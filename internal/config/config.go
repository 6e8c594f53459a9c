package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts" mapstructure:"artifacts"`
	Training   TrainingConfig   `yaml:"training" mapstructure:"training"`
	Inference  InferenceConfig  `yaml:"inference" mapstructure:"inference"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the five training tables. Each source is a local
// path, an http(s) or ftp URL, a "file.zip#member" reference, or a
// "book.xlsx#sheet" reference.
type DataConfig struct {
	Orders    string `yaml:"orders" mapstructure:"orders"`
	Delivery  string `yaml:"delivery" mapstructure:"delivery"`
	Routes    string `yaml:"routes" mapstructure:"routes"`
	Feedback  string `yaml:"feedback" mapstructure:"feedback"`
	Costs     string `yaml:"costs" mapstructure:"costs"`
	Encoding  string `yaml:"encoding" mapstructure:"encoding"`
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"`
}

// ArtifactsConfig locates the model bundle.
type ArtifactsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// TrainingConfig configures the training pipeline.
type TrainingConfig struct {
	TestSize  float64 `yaml:"test_size" mapstructure:"test_size"`
	Seed      uint64  `yaml:"seed" mapstructure:"seed"`
	MaxIter   int     `yaml:"max_iter" mapstructure:"max_iter"`
	Tolerance float64 `yaml:"tolerance" mapstructure:"tolerance"`
	L2        float64 `yaml:"l2" mapstructure:"l2"`
	// MinAUC fails the run when holdout AUC falls below it. Zero disables.
	MinAUC float64 `yaml:"min_auc" mapstructure:"min_auc"`
}

// InferenceConfig configures scoring.
type InferenceConfig struct {
	MissingPolicy string `yaml:"missing_policy" mapstructure:"missing_policy"`
}

// StoreConfig configures the prediction log backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst          int      `yaml:"burst" mapstructure:"burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// FetchConfig configures remote table downloads.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TempDir     string  `yaml:"temp_dir" mapstructure:"temp_dir"`
	// MaxAttempts counts the first download; 1 disables retries.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// Timeout returns the download timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// MonitoringConfig configures alerts over recently recorded predictions.
type MonitoringConfig struct {
	// Enabled runs the checker alongside serve.
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
	// HighRateThreshold is the share of HIGH predictions that triggers an alert.
	HighRateThreshold float64 `yaml:"high_rate_threshold" mapstructure:"high_rate_threshold"`
	// MinPredictions is the window size below which the rate is not judged.
	MinPredictions int `yaml:"min_predictions" mapstructure:"min_predictions"`
	// MaxModelAgeHours flags a stale model. Zero disables.
	MaxModelAgeHours    int `yaml:"max_model_age_hours" mapstructure:"max_model_age_hours"`
	LookbackWindowHours int `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs   int `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DELAYRISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.orders", "data/orders.csv")
	v.SetDefault("data.delivery", "data/delivery_performance.csv")
	v.SetDefault("data.routes", "data/routes_distance.csv")
	v.SetDefault("data.feedback", "data/customer_feedback.csv")
	v.SetDefault("data.costs", "data/cost_breakdown.csv")
	v.SetDefault("data.encoding", "")
	v.SetDefault("data.delimiter", ",")
	v.SetDefault("artifacts.dir", "artifacts")
	v.SetDefault("training.test_size", 0.2)
	v.SetDefault("training.seed", 42)
	v.SetDefault("training.max_iter", 1000)
	v.SetDefault("training.tolerance", 1e-6)
	v.SetDefault("training.l2", 1.0)
	v.SetDefault("training.min_auc", 0.0)
	v.SetDefault("inference.missing_policy", "strict")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "delay-risk.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.burst", 40)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.user_agent", "delay-risk/1.0")
	v.SetDefault("fetch.rate_limit", 5.0)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.high_rate_threshold", 0.5)
	v.SetDefault("monitoring.min_predictions", 10)
	v.SetDefault("monitoring.max_model_age_hours", 720)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
