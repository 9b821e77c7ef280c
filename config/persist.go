package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/forge/errors"
)

// Save writes the configuration as TOML. The previous file, if any, is
// kept as a .back copy so a bad write never destroys a working config.
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating config directory for %s", path)
	}

	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".back"); err != nil {
			return errors.Wrap(err, "backing up existing config")
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing config %s", path)
	}
	return nil
}

// Default returns the built-in configuration, the one Load yields when no
// file and no environment overrides exist.
func Default() *Config {
	return &Config{
		Engine:     "null",
		Extensions: []string{".nss"},
		Compile:    CompileConfig{},
		History:    HistoryConfig{Path: defaultHistoryPath()},
		Watch:      WatchConfig{DebounceMS: 500, MaxRebuildsPerSec: 4.0},
	}
}
