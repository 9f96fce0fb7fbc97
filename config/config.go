// Package config loads furrykeys CLI settings.
//
// Settings come from three layers, later ones winning: built-in defaults, an
// optional YAML file, then FURRYKEYS_* environment variables.
//
// Example file:
//
//	log_level: debug
//	log_format: json
//	seed: ./state.yaml
//	color: false
//	style: dracula
//	debounce: 100ms
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds CLI settings.
type Config struct {
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level" env:"FURRYKEYS_LOG_LEVEL"`

	// LogFormat is text or json.
	LogFormat string `yaml:"log_format" env:"FURRYKEYS_LOG_FORMAT"`

	// Seed is the default seed file for dump and watch.
	Seed string `yaml:"seed" env:"FURRYKEYS_SEED"`

	// Color enables syntax highlighting of YAML and JSON output.
	Color bool `yaml:"color" env:"FURRYKEYS_COLOR"`

	// Style is the chroma style used when Color is set.
	Style string `yaml:"style" env:"FURRYKEYS_STYLE"`

	// Debounce delays seed reloads after a file change.
	Debounce time.Duration `yaml:"debounce" env:"FURRYKEYS_DEBOUNCE"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		Color:     true,
		Style:     "monokai",
		Debounce:  50 * time.Millisecond,
	}
}

// Load applies the file at path, if any, and the environment over Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", c.Debounce)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Logger builds a logger writing to w.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := c.Level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
