package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Noofbiz/sharkcast/telemetry"
)

// DefaultDataPath is the tracking table read when no path is configured.
const DefaultDataPath = "seguimiento_con_datos_ambientales.csv"

// DataConfig locates the input CSV.
type DataConfig struct {
	// Path is the tracking CSV, or a directory holding it.
	Path string `json:"path"`
	// Columns overrides header names; empty fields use telemetry.DefaultAliases.
	Columns telemetry.Columns `json:"columns"`
}

// SetDefaults falls back to DefaultDataPath.
func (c *DataConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = DefaultDataPath
	}
}

// Validate requires a non-blank path.
func (c DataConfig) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// LoggingConfig sets the minimum log level.
type LoggingConfig struct {
	// Level is a zerolog level name. Default: "info".
	Level string `json:"level"`
}

// SetDefaults sets the level to "info" when empty.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks that Level is a zerolog level name.
func (c LoggingConfig) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil {
		return fmt.Errorf("unknown level %q", c.Level)
	}
	return nil
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address serving /metrics, e.g. ":9100". Empty disables it.
	Listen string `json:"listen"`
}

// OutputConfig names the files written by the evaluate and tracks commands.
// Empty fields disable the corresponding output.
type OutputConfig struct {
	CSV     string `json:"csv"`
	SQLite  string `json:"sqlite"`
	PlotDir string `json:"plot_dir"`
	Tracks  string `json:"tracks"`
}
