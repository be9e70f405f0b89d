package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the service configuration loaded from YAML.
type Config struct {
	Server struct {
		Port         string `yaml:"port"`
		SharedDir    string `yaml:"sharedDir"`
		DatabasePath string `yaml:"databasePath"`
	} `yaml:"server"`

	Quota struct {
		// RescanIntervalMinutes controls periodic reconciliation of the
		// used-capacity counter against the real tree. Zero disables the
		// periodic rescan; a reconcile always runs once at startup.
		RescanIntervalMinutes int `yaml:"rescanIntervalMinutes"`
	} `yaml:"quota"`

	RateLimit struct {
		Requests      int `yaml:"requests"`
		WindowSeconds int `yaml:"windowSeconds"`
	} `yaml:"rateLimit"`
}

// RescanInterval returns the periodic quota rescan interval; zero means
// disabled.
func (c *Config) RescanInterval() time.Duration {
	return time.Duration(c.Quota.RescanIntervalMinutes) * time.Minute
}

// RateLimitWindow returns the rate limiter window duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

// Default returns a Config with all defaults applied, used when no config
// file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and validates the YAML config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.SharedDir == "" {
		cfg.Server.SharedDir = "shared_files"
	}
	if cfg.Server.DatabasePath == "" {
		cfg.Server.DatabasePath = "data/lanshare.db"
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 120
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
	}
}

func validate(cfg *Config) error {
	if cfg.Quota.RescanIntervalMinutes < 0 {
		return fmt.Errorf("quota.rescanIntervalMinutes must not be negative")
	}
	if cfg.RateLimit.Requests < 0 {
		return fmt.Errorf("rateLimit.requests must not be negative")
	}
	return nil
}
