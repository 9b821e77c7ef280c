// Package config manages forge configuration: a TOML file discovered by
// walking up from the working directory, overlaid with FORGE_* environment
// variables, overlaid again by command-line flags in the commands package.
package config

import (
	"github.com/teranos/forge/errors"
)

// ConfigFileName is the project-level config file forge searches for.
const ConfigFileName = "forge.toml"

// Config is the full forge configuration tree.
type Config struct {
	Engine     string        `mapstructure:"engine" toml:"engine"`
	Extensions []string      `mapstructure:"extensions" toml:"extensions"`
	Compile    CompileConfig `mapstructure:"compile" toml:"compile"`
	History    HistoryConfig `mapstructure:"history" toml:"history"`
	Watch      WatchConfig   `mapstructure:"watch" toml:"watch"`
}

// CompileConfig holds defaults for the compile command's flags.
type CompileConfig struct {
	Jobs         int    `mapstructure:"jobs" toml:"jobs"` // 0 = one per processor
	Recursive    bool   `mapstructure:"recursive" toml:"recursive"`
	KeepGoing    bool   `mapstructure:"keep_going" toml:"keep_going"`
	DebugSymbols bool   `mapstructure:"debug_symbols" toml:"debug_symbols"`
	OutputDir    string `mapstructure:"output_dir" toml:"output_dir"`
}

// HistoryConfig controls the optional run-history database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Path    string `mapstructure:"path" toml:"path"`
}

// WatchConfig tunes watch-mode rebuild behavior.
type WatchConfig struct {
	DebounceMS        int     `mapstructure:"debounce_ms" toml:"debounce_ms"`
	MaxRebuildsPerSec float64 `mapstructure:"max_rebuilds_per_sec" toml:"max_rebuilds_per_sec"`
}

// Validate checks the configuration tree.
func (c *Config) Validate() error {
	if c.Engine == "" {
		return errors.Wrap(errors.ErrInvalidConfig, "engine cannot be empty")
	}
	if len(c.Extensions) == 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "extensions cannot be empty")
	}
	if c.Compile.Jobs < 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "compile.jobs must be >= 0, got %d", c.Compile.Jobs)
	}
	if c.Watch.DebounceMS < 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "watch.debounce_ms must be >= 0, got %d", c.Watch.DebounceMS)
	}
	if c.Watch.MaxRebuildsPerSec <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "watch.max_rebuilds_per_sec must be > 0, got %f", c.Watch.MaxRebuildsPerSec)
	}
	if c.History.Enabled && c.History.Path == "" {
		return errors.Wrap(errors.ErrInvalidConfig, "history.path cannot be empty when history is enabled")
	}
	return nil
}
