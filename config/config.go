// Package config loads sharkcast settings from an optional YAML or JSON file
// and SHARK_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/Noofbiz/sharkcast/tracker"
)

// EnvPrefix prefixes environment overrides. Nested keys use "__", e.g.
// SHARK_TRAINING__MIN_EXAMPLES=12 or SHARK_DATA__PATH=tracks.csv.
const EnvPrefix = "SHARK_"

// Config is the root of the configuration tree. Keys follow the json tags.
type Config struct {
	Data     DataConfig     `json:"data"`
	Training tracker.Config `json:"training"`
	Logging  LoggingConfig  `json:"logging"`
	Metrics  MetricsConfig  `json:"metrics"`
	Output   OutputConfig   `json:"output"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	cfg := Config{Training: tracker.DefaultConfig()}
	cfg.Data.SetDefaults()
	cfg.Logging.SetDefaults()
	return cfg
}

// Load reads path (if it exists) and then the environment over Default().
// An empty path or a missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			parser, err := parserFor(path)
			if err != nil {
				return nil, err
			}
			if err := k.Load(file.Provider(path), parser); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
}

// SetDefaults fills zero fields of every section.
func (c *Config) SetDefaults() {
	c.Data.SetDefaults()
	c.Training.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section. It runs again after CLI flags are applied.
func (c Config) Validate() error {
	if err := c.Data.Validate(); err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if err := c.Training.Validate(); err != nil {
		return fmt.Errorf("training: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
