// Package config loads gantry's settings from flags, environment, and
// .gantry.yaml through viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/papapumpkin/gantry/internal/calendar"
	"github.com/papapumpkin/gantry/internal/logging"
)

// Config holds all runtime configuration for a gantry invocation.
// Values are populated from .gantry.yaml, GANTRY_* env vars, and CLI flags.
type Config struct {
	DBPath       string `mapstructure:"db_path"`
	Workers      int    `mapstructure:"workers"`
	LogLevel     string `mapstructure:"log_level"`
	LogFormat    string `mapstructure:"log_format"`
	SkipWeekends bool   `mapstructure:"skip_weekends"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
	ProjectStart string `mapstructure:"project_start"`
	Verbose      bool   `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags, and validates the
// result.
func Load() (Config, error) {
	viper.SetDefault("db_path", ".gantry/runs.db")
	viper.SetDefault("workers", 4)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", logging.FormatText)
	viper.SetDefault("skip_weekends", false)
	viper.SetDefault("metrics_addr", "")
	viper.SetDefault("project_start", "")
	viper.SetDefault("verbose", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no command could act on.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("log_format must be %q or %q, got %q", logging.FormatText, logging.FormatJSON, c.LogFormat)
	}
	if _, err := c.Start(); err != nil {
		return fmt.Errorf("project_start: %w", err)
	}
	return nil
}

// Start returns the configured project start date, or the zero time when
// unset.
func (c Config) Start() (time.Time, error) {
	if c.ProjectStart == "" {
		return time.Time{}, nil
	}
	return calendar.ParseDate(c.ProjectStart)
}
