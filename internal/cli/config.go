// Package cli wires the scheduler engine up to a Cobra command surface
// and a YAML config file: a nested config struct, one subcommand
// builder per verb.
package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors configs/default.yaml. Field groups match the
// packages they configure one-to-one.
type Config struct {
	Scheduler struct {
		PoolSize       int    `yaml:"pool_size"`
		Lockfile       string `yaml:"lockfile"`
		TickIntervalMs int    `yaml:"tick_interval_ms"`
	} `yaml:"scheduler"`

	Clock struct {
		Zone string `yaml:"zone"`
	} `yaml:"clock"`

	Audit struct {
		Dir             string `yaml:"dir"`
		BufferSize      int    `yaml:"buffer_size"`
		FlushIntervalMs int    `yaml:"flush_interval_ms"`
	} `yaml:"audit"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return &cfg, nil
}
