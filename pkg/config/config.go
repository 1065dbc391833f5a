// Package config provides configuration loading and management for ndarith.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumThreads is the number of workers per operator; 0 uses every CPU
		NumThreads int `yaml:"numThreads"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Quiet suppresses warnings
		Quiet bool `yaml:"quiet"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// MultipleOutputs allows more than one dataset to remain on the stack
		MultipleOutputs bool `yaml:"multipleOutputs"`

		// Metadata carries name, unit and comment into written files
		Metadata bool `yaml:"metadata"`

		// File is the output file name; extra outputs get a numbered suffix
		File string `yaml:"file"`
	} `yaml:"output"`

	// Collapse fill parameters
	Collapse struct {
		// FillErodeMargin is the number of erosions after hole filling
		FillErodeMargin int `yaml:"fillErodeMargin"`

		// FillDilateMargin is the number of dilations after the erosions
		FillDilateMargin int `yaml:"fillDilateMargin"`

		// FillMaxFraction is the flagged fraction above which a whole line or
		// slab is rejected
		FillMaxFraction float64 `yaml:"fillMaxFraction"`
	} `yaml:"collapse"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumThreads = 0

	cfg.Output.File = "ndarith.txt"

	cfg.Collapse.FillErodeMargin = 1
	cfg.Collapse.FillDilateMargin = 2
	cfg.Collapse.FillMaxFraction = 0.95

	return cfg
}

// Validate rejects values no operator can work with.
func (c *Config) Validate() error {
	if c.Processing.NumThreads < 0 {
		return errors.Errorf("processing.numThreads must not be negative, got %d", c.Processing.NumThreads)
	}
	if c.Collapse.FillErodeMargin < 0 || c.Collapse.FillDilateMargin < 0 {
		return errors.Errorf("collapse fill margins must not be negative, got %d and %d",
			c.Collapse.FillErodeMargin, c.Collapse.FillDilateMargin)
	}
	if c.Collapse.FillMaxFraction <= 0 || c.Collapse.FillMaxFraction > 1 {
		return errors.Errorf("collapse.fillMaxFraction must be in (0, 1], got %g", c.Collapse.FillMaxFraction)
	}
	if c.Output.Quiet && c.Output.Verbose {
		return errors.New("output.quiet and output.verbose are mutually exclusive")
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "error parsing config file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, configPath)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "error creating config directory")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "error marshaling config")
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrap(err, "error writing config file")
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
