package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// fileConfig mirrors Config with optional fields so an absent key leaves
// the default untouched.
type fileConfig struct {
	BaseURL          *string `yaml:"base_url"`
	Topic            *string `yaml:"topic"`
	MaxPages         *int    `yaml:"max_pages"`
	Parallelism      *int    `yaml:"parallelism"`
	DelayMs          *int    `yaml:"delay_ms"`
	RandomDelayMs    *int    `yaml:"random_delay_ms"`
	TimeoutSec       *int    `yaml:"timeout_sec"`
	MaxRetries       *int    `yaml:"max_retries"`
	OutputFile       *string `yaml:"output_file"`
	OutputFormat     *string `yaml:"output_format"`
	UserAgent        *string `yaml:"user_agent"`
	RespectRobotsTxt *bool   `yaml:"respect_robots_txt"`
	FetchDetails     *bool   `yaml:"fetch_details"`
	MetricsAddr      *string `yaml:"metrics_addr"`
}

// ApplyFile overlays values from a YAML file onto cfg. A missing file is
// reported as ErrConfigNotFound so callers can decide whether that matters.
func ApplyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigNotFound
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.BaseURL != nil {
		cfg.BaseURL = *fc.BaseURL
	}
	if fc.Topic != nil {
		cfg.Topic = *fc.Topic
	}
	if fc.MaxPages != nil {
		cfg.MaxPages = *fc.MaxPages
	}
	if fc.Parallelism != nil {
		cfg.Parallelism = *fc.Parallelism
	}
	if fc.DelayMs != nil {
		cfg.Delay = time.Duration(*fc.DelayMs) * time.Millisecond
	}
	if fc.RandomDelayMs != nil {
		cfg.RandomDelay = time.Duration(*fc.RandomDelayMs) * time.Millisecond
	}
	if fc.TimeoutSec != nil {
		cfg.Timeout = time.Duration(*fc.TimeoutSec) * time.Second
	}
	if fc.MaxRetries != nil {
		cfg.MaxRetries = *fc.MaxRetries
	}
	if fc.OutputFile != nil {
		cfg.OutputFile = *fc.OutputFile
	}
	if fc.OutputFormat != nil {
		cfg.OutputFormat = *fc.OutputFormat
	}
	if fc.UserAgent != nil {
		cfg.UserAgent = *fc.UserAgent
	}
	if fc.RespectRobotsTxt != nil {
		cfg.RespectRobotsTxt = *fc.RespectRobotsTxt
	}
	if fc.FetchDetails != nil {
		cfg.FetchDetails = *fc.FetchDetails
	}
	if fc.MetricsAddr != nil {
		cfg.MetricsAddr = *fc.MetricsAddr
	}

	return nil
}
