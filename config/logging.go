package config

import (
	"fmt"

	"github.com/kilianp07/dustplan/core/factory"
	"github.com/kilianp07/dustplan/infra/logger"
)

// LoggingConfig defines settings for the run log store and its rotation.
type LoggingConfig struct {
	// Enabled turns the run log off when explicitly false.
	Enabled *bool `json:"enabled"`
	// Backend selects the log store type: "jsonl" or "sqlite".
	Backend string `json:"backend"`
	// Path is the file location of the log store.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		if c.Backend == "sqlite" {
			c.Path = "runs.db"
		} else {
			c.Path = "runs.jsonl"
		}
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	if c.Backend != "jsonl" && c.Backend != "sqlite" {
		return fmt.Errorf("logging: unknown backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("logging: path is required")
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("logging: rotation settings must not be negative")
	}
	return nil
}

// On reports whether runs should be recorded.
func (c LoggingConfig) On() bool { return c.Enabled == nil || *c.Enabled }

// Module returns the run log store description understood by runlog.Open.
func (c LoggingConfig) Module() factory.ModuleConfig {
	return factory.ModuleConfig{
		Type: c.Backend,
		Conf: map[string]any{
			"path":         c.Path,
			"max_size_mb":  c.MaxSizeMB,
			"max_backups":  c.MaxBackups,
			"max_age_days": c.MaxAgeDays,
		},
	}
}

// LogConfig selects the level and format of process logs.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Options converts the section for logger.Configure.
func (c LogConfig) Options() logger.Options {
	return logger.Options{Level: c.Level, Format: c.Format}
}
