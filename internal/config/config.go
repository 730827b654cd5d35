// Package config holds the engine's file-backed settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries the knobs that are set per installation rather than
// per project: render defaults, cache sizing, logging.
type Config struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	FPS        int    `yaml:"fps"`
	Background string `yaml:"background"` // #rrggbb

	// CacheBudgetMB caps the texture cache. Zero means derive the
	// budget from system memory.
	CacheBudgetMB int `yaml:"cacheBudgetMB"`

	// DPI used when rasterizing document pages.
	DPI int `yaml:"dpi"`

	Workers int  `yaml:"workers"`
	Verbose bool `yaml:"verbose"`
}

// Default returns the settings used when no config file is given.
func Default() *Config {
	return &Config{
		Width:      1280,
		Height:     720,
		FPS:        30,
		Background: "#000000",
		DPI:        150,
		Workers:    4,
	}
}

// Read loads a config file and fills unset fields with defaults.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Write saves the config as YAML.
func Write(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.FPS <= 0 {
		c.FPS = d.FPS
	}
	if c.Background == "" {
		c.Background = d.Background
	}
	if c.DPI <= 0 {
		c.DPI = d.DPI
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
}
