package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Input   InputConfig   `yaml:"input" mapstructure:"input"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Quality QualityConfig `yaml:"quality" mapstructure:"quality"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// InputConfig configures the claims input file.
type InputConfig struct {
	Path  string `yaml:"path" mapstructure:"path"`
	Sheet string `yaml:"sheet" mapstructure:"sheet"` // XLSX only; "" = first sheet
}

// OutputConfig configures where pipeline artifacts are written.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// QualityConfig configures the integrity checks and cleaning pass.
type QualityConfig struct {
	RulesPath     string `yaml:"rules_path" mapstructure:"rules_path"` // optional rules.yaml override
	MaxFutureDays int    `yaml:"max_future_days" mapstructure:"max_future_days"`
}

// MetricsConfig configures the metrics engine. Thresholds and cutoffs are
// explicit here rather than buried as literals in the computation.
type MetricsConfig struct {
	ConcentrationCutoffs []float64 `yaml:"concentration_cutoffs" mapstructure:"concentration_cutoffs"` // percent of patients
	AnomalyPercentile    float64   `yaml:"anomaly_percentile" mapstructure:"anomaly_percentile"`       // 0.0-1.0
	TopDiagnoses         int       `yaml:"top_diagnoses" mapstructure:"top_diagnoses"`
	RollingMonths        int       `yaml:"rolling_months" mapstructure:"rolling_months"`
}

// StoreConfig configures the run-ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite", "postgres", or "none"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
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
	v.SetEnvPrefix("CLAIMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.path", "claim_data.csv")
	v.SetDefault("output.dir", "outputs")
	v.SetDefault("quality.max_future_days", 1)
	v.SetDefault("metrics.concentration_cutoffs", []float64{1, 5, 10})
	v.SetDefault("metrics.anomaly_percentile", 0.99)
	v.SetDefault("metrics.top_diagnoses", 10)
	v.SetDefault("metrics.rolling_months", 3)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "claims.db")
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
