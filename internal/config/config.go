// Package config holds the engine and tool configuration.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"segment-reshape/internal/reshape"
	"segment-reshape/internal/topology"
)

// Config holds all engine settings.
type Config struct {
	Matching MatchingConfig `yaml:"matching"`
	Editing  EditingConfig  `yaml:"editing"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MatchingConfig holds the segment matcher tolerances.
type MatchingConfig struct {
	// Epsilon is the absolute coordinate-coincidence tolerance.
	Epsilon float64 `yaml:"epsilon"`
	// TriggerTolerance is the snap radius for locating the seed vertex.
	TriggerTolerance float64 `yaml:"trigger_tolerance"`
}

// EditingConfig holds the reshape editor settings.
type EditingConfig struct {
	// DefaultZ is assigned to inserted vertices on 3D parts when the
	// replacement chain carries no Z.
	DefaultZ float64 `yaml:"default_z"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Matching: MatchingConfig{
			Epsilon:          topology.DefaultEpsilon,
			TriggerTolerance: topology.DefaultTriggerTolerance,
		},
		Editing: EditingConfig{
			DefaultZ: 0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file over the defaults. A missing path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// Save writes the config as YAML, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "creating config directory")
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return os.WriteFile(path, data, 0644)
}

// MatcherOptions bridges the config to topology matcher options.
func (c *Config) MatcherOptions() topology.Options {
	return topology.Options{
		Epsilon:          c.Matching.Epsilon,
		TriggerTolerance: c.Matching.TriggerTolerance,
	}
}

// EditorOptions bridges the config to reshape editor options.
func (c *Config) EditorOptions() reshape.Options {
	return reshape.Options{
		Epsilon:  c.Matching.Epsilon,
		DefaultZ: c.Editing.DefaultZ,
	}
}
