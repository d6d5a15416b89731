// Package config loads the engine's yaml configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string `yaml:"log_level"`
	Listen   string `yaml:"listen"`

	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Batch     BatchConfig     `yaml:"batch"`
}

type DatabaseConfig struct {
	// Path is the sqlite database file. When empty, TriggerFile must point
	// at a json5 trigger store and execution history is kept only in the
	// run log.
	Path        string `yaml:"path"`
	TriggerFile string `yaml:"trigger_file"`
}

type SchedulerConfig struct {
	TickMs            int64  `yaml:"tick_ms"`
	LookAheadMs       int64  `yaml:"look_ahead_ms"`
	MaxConcurrentRuns int    `yaml:"max_concurrent_runs"`
	RunLogDir         string `yaml:"run_log_dir"`
}

type PipelineConfig struct {
	ActionDelayMs   int64 `yaml:"action_delay_ms"`
	ActionTimeoutMs int64 `yaml:"action_timeout_ms"`
}

type BatchConfig struct {
	SendDelayMs int64 `yaml:"send_delay_ms"`
}

// WithDefaults fills unset fields with production defaults.
func (c *Config) WithDefaults() *Config {
	if c == nil {
		c = &Config{}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Listen == "" {
		c.Listen = "localhost:8480"
	}
	if c.Database.Path == "" && c.Database.TriggerFile == "" {
		c.Database.Path = "pulse.db"
	}
	if c.Scheduler.TickMs <= 0 {
		c.Scheduler.TickMs = 60_000
	}
	if c.Scheduler.LookAheadMs <= 0 {
		c.Scheduler.LookAheadMs = 300_000
	}
	if c.Scheduler.MaxConcurrentRuns <= 0 {
		c.Scheduler.MaxConcurrentRuns = 4
	}
	if c.Pipeline.ActionDelayMs <= 0 {
		c.Pipeline.ActionDelayMs = 500
	}
	if c.Pipeline.ActionTimeoutMs <= 0 {
		c.Pipeline.ActionTimeoutMs = 10_000
	}
	if c.Batch.SendDelayMs <= 0 {
		c.Batch.SendDelayMs = 2_000
	}
	return c
}

// Load reads a yaml config file. A missing file yields pure defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg.WithDefaults(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg.WithDefaults(), nil
}
