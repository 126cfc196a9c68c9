// Package config loads the optional YAML configuration for apply-patch.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds everything tunable from a config file. Zero values are
// replaced with defaults by Load and Default.
type Config struct {
	Workspace struct {
		Root string `yaml:"root"`
	} `yaml:"workspace"`

	Fuzzy struct {
		Enabled        *bool   `yaml:"enabled"` // nil means enabled
		MinRatio       float64 `yaml:"min_ratio"`
		AcceptScore    float64 `yaml:"accept_score"`
		MinCodeMatches int     `yaml:"min_code_matches"`
	} `yaml:"fuzzy"`

	Log struct {
		Path string `yaml:"path"`
	} `yaml:"log"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Resolve the workspace root relative to the current directory, not
	// relative to the config file.
	if cfg.Workspace.Root != "" {
		absRoot, err := filepath.Abs(cfg.Workspace.Root)
		if err != nil {
			return nil, fmt.Errorf("resolve workspace root: %w", err)
		}
		cfg.Workspace.Root = absRoot
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Workspace.Root == "" {
		c.Workspace.Root = "."
	}
	if c.Fuzzy.MinRatio == 0 {
		c.Fuzzy.MinRatio = 0.6
	}
	if c.Fuzzy.AcceptScore == 0 {
		c.Fuzzy.AcceptScore = 0.9
	}
	if c.Fuzzy.MinCodeMatches == 0 {
		c.Fuzzy.MinCodeMatches = 2
	}
}

// FuzzyEnabled reports whether the fuzzy fallback should run. Unset means
// enabled.
func (c *Config) FuzzyEnabled() bool {
	return c.Fuzzy.Enabled == nil || *c.Fuzzy.Enabled
}
