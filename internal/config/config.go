package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Dashboard struct {
		HorizonDays int `yaml:"horizon_days"`
	} `yaml:"dashboard"`
	Digest struct {
		// Cron is a standard 5-field cron expression. Empty disables the
		// renewal digest.
		Cron string `yaml:"cron"`
	} `yaml:"digest"`
	Import struct {
		QueueSize int `yaml:"queue_size"`
	} `yaml:"import"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error; overrides and
// defaults still apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DASHBOARD_HORIZON_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			cfg.Dashboard.HorizonDays = days
		}
	}
	if v := os.Getenv("DIGEST_CRON"); v != "" {
		cfg.Digest.Cron = v
	}
	if v := os.Getenv("IMPORT_QUEUE_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			cfg.Import.QueueSize = size
		}
	}

	// Defaults
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Dashboard.HorizonDays == 0 {
		cfg.Dashboard.HorizonDays = 14
	}
	if cfg.Import.QueueSize == 0 {
		cfg.Import.QueueSize = 100
	}

	return cfg, nil
}

// Validate checks that all configured values are usable.
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server.port must be numeric, got %q", c.Server.Port)
	}
	if c.Dashboard.HorizonDays < 0 {
		return fmt.Errorf("dashboard.horizon_days must not be negative")
	}
	if c.Import.QueueSize <= 0 {
		return fmt.Errorf("import.queue_size must be positive")
	}
	return nil
}
