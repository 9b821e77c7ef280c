package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/teranos/forge/errors"
)

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("engine", "null")
	v.SetDefault("extensions", []string{".nss"})

	v.SetDefault("compile.jobs", 0) // 0 = one worker per processor
	v.SetDefault("compile.recursive", false)
	v.SetDefault("compile.keep_going", false)
	v.SetDefault("compile.debug_symbols", false)
	v.SetDefault("compile.output_dir", "")

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", defaultHistoryPath())

	v.SetDefault("watch.debounce_ms", 500)
	v.SetDefault("watch.max_rebuilds_per_sec", 4.0)
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "forge.db"
	}
	return filepath.Join(home, ".forge", "forge.db")
}

// Load reads the forge configuration: defaults, then the nearest forge.toml
// found by walking up from the working directory (or ~/.forge/forge.toml),
// then FORGE_* environment variables. A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	v.SetEnvPrefix("FORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if path := findProjectConfig(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
	}

	return unmarshal(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", configPath)
	}
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// findProjectConfig searches for forge.toml by walking up the directory
// tree, falling back to the user-level ~/.forge/forge.toml. Returns ""
// when no config file exists.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".forge", ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
