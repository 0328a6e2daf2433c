package util

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	ReplacerClock = "clock"
	ReplacerLRU   = "lru"
)

// LogConfig configures the zap logger built by internal/logger.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	OutputFile string `yaml:"output_file"`
}

// MetricsConfig controls the Prometheus endpoint of the clockpool binary.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Config represents buffer pool and page file options
type Config struct {
	Path         string        `yaml:"path"`
	InitialPages int           `yaml:"initial_pages"`
	PoolSize     int           `yaml:"pool_size"`
	Replacer     string        `yaml:"replacer"`
	Log          LogConfig     `yaml:"log"`
	Metrics      MetricsConfig `yaml:"metrics"`
}

// DefaultConfig returns default options
func DefaultConfig() Config {
	return Config{
		Path:         "clockpool.db",
		InitialPages: 16,
		PoolSize:     1000, // 4MB default buffer pool
		Replacer:     ReplacerClock,
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			OutputFile: "stderr",
		},
		Metrics: MetricsConfig{
			Addr: ":9464",
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool_size %d: %w", c.PoolSize, ErrInvalidPoolSize)
	}
	if c.InitialPages <= 0 {
		return fmt.Errorf("initial_pages %d: %w", c.InitialPages, ErrInvalidInitialPages)
	}
	switch c.Replacer {
	case ReplacerClock, ReplacerLRU:
	default:
		return fmt.Errorf("replacer %q: %w", c.Replacer, ErrUnknownReplacer)
	}
	return nil
}
