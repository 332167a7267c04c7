// Package config loads application settings from the config file,
// environment variables and defaults via Viper.
package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultDataRoot       = "data"
	DefaultUserAgent      = "eventcrawl/1.0 (+https://github.com/jonesrussell/eventcrawl)"
	DefaultTimeoutSeconds = 30
	DefaultMaxConcurrency = 3
	DefaultMaxQPS         = 2.0
	DefaultIntervalSecs   = 60
	DefaultSourcesCSV     = "source_registry/sources.csv"
	DefaultSchemasDir     = "config/schemas"
)

// AppConfig holds the tiered data layout directories.
type AppConfig struct {
	DataRoot      string `mapstructure:"data_root"`
	BronzeDir     string `mapstructure:"bronze_dir"`
	SilverDir     string `mapstructure:"silver_dir"`
	GoldDir       string `mapstructure:"gold_dir"`
	MetricsDir    string `mapstructure:"metrics_dir"`
	QuarantineDir string `mapstructure:"quarantine_dir"`
	QueueDir      string `mapstructure:"queue_dir"`
}

// FetchConfig holds HTTP fetch settings.
type FetchConfig struct {
	UserAgent      string  `mapstructure:"user_agent"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxConcurrency int     `mapstructure:"max_concurrency"`
	MaxQPS         float64 `mapstructure:"max_qps"`
}

// ScheduledJob configures a single scheduler entry.
type ScheduledJob struct {
	SourceType string `mapstructure:"source_type"`
	Cron       string `mapstructure:"cron"`
	Limit      int    `mapstructure:"limit"`
}

// SchedulerConfig holds the scheduler loop settings.
type SchedulerConfig struct {
	RunManifestDir   string         `mapstructure:"run_manifest_dir"`
	JobCheckpointDir string         `mapstructure:"job_checkpoint_dir"`
	IntervalSeconds  int            `mapstructure:"interval_seconds"`
	Jobs             []ScheduledJob `mapstructure:"jobs"`
}

// Config is the root application configuration.
type Config struct {
	App        AppConfig       `mapstructure:"app"`
	Fetch      FetchConfig     `mapstructure:"fetch"`
	Scheduler  SchedulerConfig `mapstructure:"scheduler"`
	SourcesCSV string          `mapstructure:"sources_csv"`
	SchemasDir string          `mapstructure:"schemas_dir"`
}

// SetDefaults registers default values on the supplied Viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.data_root", DefaultDataRoot)
	v.SetDefault("app.bronze_dir", filepath.Join(DefaultDataRoot, "bronze"))
	v.SetDefault("app.silver_dir", filepath.Join(DefaultDataRoot, "silver"))
	v.SetDefault("app.gold_dir", filepath.Join(DefaultDataRoot, "gold"))
	v.SetDefault("app.metrics_dir", filepath.Join(DefaultDataRoot, "metrics"))
	v.SetDefault("app.quarantine_dir", filepath.Join(DefaultDataRoot, "quarantine"))
	v.SetDefault("app.queue_dir", filepath.Join(DefaultDataRoot, "queue"))
	v.SetDefault("fetch.user_agent", DefaultUserAgent)
	v.SetDefault("fetch.timeout_seconds", DefaultTimeoutSeconds)
	v.SetDefault("fetch.max_concurrency", DefaultMaxConcurrency)
	v.SetDefault("fetch.max_qps", DefaultMaxQPS)
	v.SetDefault("scheduler.run_manifest_dir", filepath.Join(DefaultDataRoot, "manifests"))
	v.SetDefault("scheduler.job_checkpoint_dir", filepath.Join(DefaultDataRoot, "checkpoints"))
	v.SetDefault("scheduler.interval_seconds", DefaultIntervalSecs)
	v.SetDefault("sources_csv", DefaultSourcesCSV)
	v.SetDefault("schemas_dir", DefaultSchemasDir)
}

// Load unmarshals the current Viper state into a Config.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for obviously broken values.
func (c *Config) Validate() error {
	if c.App.DataRoot == "" {
		return errors.New("app.data_root must not be empty")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return errors.New("fetch.timeout_seconds must be positive")
	}
	if c.Fetch.MaxConcurrency <= 0 {
		return errors.New("fetch.max_concurrency must be positive")
	}
	if c.Fetch.MaxQPS <= 0 {
		return errors.New("fetch.max_qps must be positive")
	}
	for i := range c.Scheduler.Jobs {
		if c.Scheduler.Jobs[i].SourceType == "" {
			return fmt.Errorf("scheduler.jobs[%d].source_type must not be empty", i)
		}
	}
	return nil
}
