// Package config loads the sampler's settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ministryofjustice/probation-case-sampler/internal/allocation"
)

const (
	DefaultBufferPercentage = 20.0
	DefaultMaxPerAgent      = allocation.DefaultMaxPerAgent
	DefaultAddr             = ":8080"
)

// Config holds every tunable setting.
type Config struct {
	Sample   Sample   `yaml:"sample"`
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
}

type Sample struct {
	BufferPercentage float64 `yaml:"buffer_percentage"`
	MaxPerAgent      int     `yaml:"max_per_agent"`
	// Seed fixes the random draw when set.
	Seed *uint64 `yaml:"seed"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Database struct {
	// URL is a postgres connection string. Reports are not stored when empty.
	URL string `yaml:"url"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Sample: Sample{BufferPercentage: DefaultBufferPercentage, MaxPerAgent: DefaultMaxPerAgent},
		Server: Server{Addr: DefaultAddr},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the sampler cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Sample.BufferPercentage < 0 {
		errs = append(errs, fmt.Errorf("sample.buffer_percentage must be >= 0, got %.2f", c.Sample.BufferPercentage))
	}
	if c.Sample.MaxPerAgent <= 0 {
		errs = append(errs, fmt.Errorf("sample.max_per_agent must be > 0, got %d", c.Sample.MaxPerAgent))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must be set"))
	}
	return errors.Join(errs...)
}
