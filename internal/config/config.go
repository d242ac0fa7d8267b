// Package config loads and validates tvrank's runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// SortMode selects the ordering applied to query results.
type SortMode string

const (
	// SortByScore sorts descending by rating score, then votes, then
	// ascending by year, then ascending by title.
	SortByScore SortMode = "score"
	// SortByYear sorts ascending by year, then descending by score,
	// then descending by votes, then ascending by title.
	SortByYear SortMode = "year"
)

// OutputFormat selects how the CLI renders results (handled outside
// this engine; recorded here only so it can flow through one config).
type OutputFormat string

const (
	OutputTable OutputFormat = "table"
	OutputJSON  OutputFormat = "json"
	OutputYAML  OutputFormat = "yaml"
)

// Config is tvrank's full runtime configuration.
type Config struct {
	CacheDir    string       `mapstructure:"cache_dir"`
	ForceUpdate bool         `mapstructure:"force_update"`
	ShardCount  int          `mapstructure:"shard_count"`
	SortMode    SortMode     `mapstructure:"sort_mode"`
	Output      OutputFormat `mapstructure:"output"`
	Color       bool         `mapstructure:"color"`
	Verbosity   int          `mapstructure:"verbosity"`
	Logger      LoggerConfig `mapstructure:"logger"`
}

// LoggerConfig configures the zap-backed logger (see internal/logging).
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	Output      string `mapstructure:"output"`
	Development bool   `mapstructure:"development"`
}

// Default returns a Config with sensible defaults, matching the
// fallbacks the CLI applies when no config file is present.
func Default() *Config {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = "."
	}
	return &Config{
		CacheDir:   filepath.Join(dir, "tvrank"),
		ShardCount: 0, // 0 means "use runtime.GOMAXPROCS(0)"
		SortMode:   SortByScore,
		Output:     OutputTable,
		Color:      true,
		Logger: LoggerConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// Load reads configFile (if it exists) over the defaults, applies the
// TVRANK_CACHE_DIR environment override, and validates the result.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetEnvPrefix("tvrank")
	v.AutomaticEnv()

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", configFile, err)
			}
			if err := v.Unmarshal(cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", configFile, err)
			}
		}
	}

	if dir := os.Getenv("TVRANK_CACHE_DIR"); dir != "" {
		cfg.CacheDir = dir
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.CacheDir == "" {
		return fmt.Errorf("cache_dir must not be empty")
	}
	if cfg.ShardCount < 0 {
		return fmt.Errorf("shard_count must be non-negative, got: %d", cfg.ShardCount)
	}
	switch cfg.SortMode {
	case SortByScore, SortByYear:
	default:
		return fmt.Errorf("invalid sort_mode: %s (valid: score, year)", cfg.SortMode)
	}
	switch cfg.Output {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("invalid output: %s (valid: table, json, yaml)", cfg.Output)
	}
	if cfg.Verbosity < 0 || cfg.Verbosity > 2 {
		return fmt.Errorf("verbosity must be between 0 and 2, got: %d", cfg.Verbosity)
	}
	return nil
}
