// Package config loads application configuration from file, environment and
// defaults, and owns global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/competitorlens/lens-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Scan      ScanConfig      `yaml:"scan" mapstructure:"scan"`
	Classify  ClassifyConfig  `yaml:"classify" mapstructure:"classify"`
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard"`
	Push      PushConfig      `yaml:"push" mapstructure:"push"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string            `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ScanConfig configures the reconciliation scan.
type ScanConfig struct {
	Root    string `yaml:"root" mapstructure:"root"`
	Workers int    `yaml:"workers" mapstructure:"workers"`
}

// ClassifyConfig points at optional table overrides.
type ClassifyConfig struct {
	KeywordTable string `yaml:"keyword_table" mapstructure:"keyword_table"`
	AliasFile    string `yaml:"alias_file" mapstructure:"alias_file"`
}

// DashboardConfig holds the remote API settings.
type DashboardConfig struct {
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	APIKey       string `yaml:"api_key" mapstructure:"api_key"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MinDelayMS   int    `yaml:"min_delay_ms" mapstructure:"min_delay_ms"`
	MaxAttempts  int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	ListLimit    int    `yaml:"list_limit" mapstructure:"list_limit"`
}

// PushConfig configures remote sync runs.
type PushConfig struct {
	Checkpoint string `yaml:"checkpoint" mapstructure:"checkpoint"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from ./config.yaml (optional), LENS_-prefixed
// environment variables and built-in defaults, in that order of precedence.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "lens.db")
	v.SetDefault("scan.root", "screenshots")
	v.SetDefault("scan.workers", 0)
	v.SetDefault("dashboard.timeout_secs", 60)
	v.SetDefault("dashboard.min_delay_ms", 500)
	v.SetDefault("dashboard.max_attempts", 4)
	v.SetDefault("dashboard.list_limit", 10000)
	v.SetDefault("push.checkpoint", ".lens/push-progress.json")
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
