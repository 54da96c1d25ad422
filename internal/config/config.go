// Package config loads the controller's JSON configuration file, adapted
// from the teacher's loadConfig (cmd/karoo/main.go): read file, unmarshal,
// fill defaults, validate.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ephemeral-minigames/controller/internal/connrate"
)

// Config is the controller's full runtime configuration.
type Config struct {
	Acceptor struct {
		Listen  string `json:"listen"`
		ReadBuf int    `json:"read_buf"`
	} `json:"acceptor"`

	Status struct {
		Listen string `json:"listen"`
	} `json:"status"`

	RateLimit struct {
		Enabled                 bool `json:"enabled"`
		MaxConnectionsPerIP     int  `json:"max_connections_per_ip"`
		MaxConnectionsPerMinute int  `json:"max_connections_per_minute"`
		BanDurationSeconds      int  `json:"ban_duration_seconds"`
		CleanupIntervalSeconds  int  `json:"cleanup_interval_seconds"`
	} `json:"rate_limit"`

	Docker struct {
		Network string `json:"network"`
	} `json:"docker"`

	Metrics struct {
		Namespace string `json:"namespace"`
	} `json:"metrics"`

	LogLevel string `json:"log_level"`
}

// Load reads path, parses it as JSON, fills in defaults for zero-valued
// fields, and validates the result. rate_limit.enabled is not defaulted: when
// it is absent the rate limiter is disabled.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Acceptor.Listen == "" {
		cfg.Acceptor.Listen = ":25550"
	}
	if cfg.Acceptor.ReadBuf == 0 {
		cfg.Acceptor.ReadBuf = 4096
	}
	if cfg.Status.Listen == "" {
		cfg.Status.Listen = ":25580"
	}
	if cfg.Docker.Network == "" {
		cfg.Docker.Network = "ems_network"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "controller"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	rlDefault := connrate.DefaultConfig()
	if cfg.RateLimit.MaxConnectionsPerIP == 0 {
		cfg.RateLimit.MaxConnectionsPerIP = rlDefault.MaxConnectionsPerIP
	}
	if cfg.RateLimit.MaxConnectionsPerMinute == 0 {
		cfg.RateLimit.MaxConnectionsPerMinute = rlDefault.MaxConnectionsPerMinute
	}
	if cfg.RateLimit.BanDurationSeconds == 0 {
		cfg.RateLimit.BanDurationSeconds = rlDefault.BanDurationSeconds
	}
	if cfg.RateLimit.CleanupIntervalSeconds == 0 {
		cfg.RateLimit.CleanupIntervalSeconds = rlDefault.CleanupIntervalSeconds
	}
}

func validate(cfg *Config) error {
	if cfg.Acceptor.Listen == cfg.Status.Listen {
		return fmt.Errorf("acceptor.listen and status.listen must differ (both %q)", cfg.Acceptor.Listen)
	}
	return nil
}

// RateLimitConfig translates this config's rate-limit section into a
// connrate.Config.
func (cfg *Config) RateLimitConfig() connrate.Config {
	return connrate.Config{
		Enabled:                 cfg.RateLimit.Enabled,
		MaxConnectionsPerIP:     cfg.RateLimit.MaxConnectionsPerIP,
		MaxConnectionsPerMinute: cfg.RateLimit.MaxConnectionsPerMinute,
		BanDurationSeconds:      cfg.RateLimit.BanDurationSeconds,
		CleanupIntervalSeconds:  cfg.RateLimit.CleanupIntervalSeconds,
	}
}
