// Package config loads the dustplan configuration file.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/dustplan/core/metrics"
	"github.com/kilianp07/dustplan/infra/mqtt"
	"github.com/kilianp07/dustplan/pkg/export"
)

type Config struct {
	Planning PlanningConfig `json:"planning"`
	Solver   SolverConfig   `json:"solver"`
	Metrics  metrics.Config `json:"metrics"`
	Logging  LoggingConfig  `json:"logging"`
	Log      LogConfig      `json:"log"`
	MQTT     mqtt.Config    `json:"mqtt"`
	Export   ExportConfig   `json:"export"`
}

// Load reads a YAML or JSON file and applies K_ prefixed environment
// overrides, e.g. K_SOLVER__TIME_LIMIT_SECONDS=30. An empty path, or a file
// without a planning section, plans the reference instance; environment
// overrides still apply on top of it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	var cfg Config
	if !k.Exists("planning") {
		cfg.Planning = ReferencePlanning()
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section's defaults.
func (c *Config) SetDefaults() {
	c.Solver.SetDefaults()
	c.Logging.SetDefaults()
	c.MQTT.SetDefaults()
}

// Validate checks every section. Planning values are checked when the
// parameter set is built.
func (c Config) Validate() error {
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	if c.Export.Path != "" {
		if _, err := export.FormatFor(c.Export.Format, c.Export.Path); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	return nil
}

// Default returns the configuration of the reference instance with every
// default applied.
func Default() *Config {
	cfg := &Config{Planning: ReferencePlanning()}
	cfg.SetDefaults()
	return cfg
}
