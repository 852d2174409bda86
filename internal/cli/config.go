package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration file of the sig binary.
type Config struct {
	LogLevel        string        `yaml:"log_level"`
	MaxEffectReruns int           `yaml:"max_effect_reruns"`
	Metrics         MetricsConfig `yaml:"metrics"`
	Bench           BenchConfig   `yaml:"bench"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type BenchConfig struct {
	Signals int `yaml:"signals"`
	Effects int `yaml:"effects"`
	Writes  int `yaml:"writes"`
	Batch   int `yaml:"batch"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Metrics:  MetricsConfig{Addr: ":9090"},
		Bench: BenchConfig{
			Signals: 1000,
			Effects: 100,
			Writes:  100000,
			Batch:   10,
		},
	}
}

// LoadConfig reads path over the defaults. Unknown fields are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MaxEffectReruns < 0 {
		return fmt.Errorf("max_effect_reruns must not be negative, got %d", c.MaxEffectReruns)
	}

	return c.Bench.Validate()
}

func (b BenchConfig) Validate() error {
	if b.Signals < 2 || b.Effects < 1 || b.Writes < 0 || b.Batch < 1 {
		return fmt.Errorf("bench needs at least 2 signals, 1 effect and a batch of 1, got %+v", b)
	}

	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
