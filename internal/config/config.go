// Package config provides configuration for the relay daemon.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EndpointConfig describes one configured agent endpoint.
type EndpointConfig struct {
	Label    string            `yaml:"label"`
	BaseURL  string            `yaml:"base_url"`
	Username string            `yaml:"username,omitempty"`
	Password string            `yaml:"password,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
}

// Config holds the relay daemon configuration.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port"`

	// Optional archive for terminal sessions; empty disables archiving.
	DatabaseURL string `yaml:"database_url,omitempty"`

	// Relay bounds
	HopLimit            int   `yaml:"hop_limit"`
	FrameCeiling        int   `yaml:"frame_ceiling"`
	HopTimeoutMs        int   `yaml:"hop_timeout_ms"`
	MaxConcurrentRelays int64 `yaml:"max_concurrent_relays"`

	// Optional custom rego policy file; empty uses the built-in default.
	PolicyFile string `yaml:"policy_file,omitempty"`

	// Logging
	LogLevel string `yaml:"log_level"`

	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// Load reads configuration from an optional YAML file and applies
// environment variable overrides on top.
func Load(path string) (*Config, error) {
	cfg := &Config{
		HTTPPort:            8080,
		HopLimit:            6,
		FrameCeiling:        256,
		HopTimeoutMs:        120000,
		MaxConcurrentRelays: 8,
		LogLevel:            "info",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.HopLimit = getEnvInt("HOP_LIMIT", cfg.HopLimit)
	cfg.FrameCeiling = getEnvInt("FRAME_CEILING", cfg.FrameCeiling)
	cfg.HopTimeoutMs = getEnvInt("HOP_TIMEOUT_MS", cfg.HopTimeoutMs)
	cfg.MaxConcurrentRelays = int64(getEnvInt("MAX_CONCURRENT_RELAYS", int(cfg.MaxConcurrentRelays)))
	cfg.PolicyFile = getEnv("RELAY_POLICY_FILE", cfg.PolicyFile)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	// Quick two-endpoint setup without a config file.
	if url := os.Getenv("ENDPOINT_A_URL"); url != "" {
		cfg.setEndpoint("A", url)
	}
	if url := os.Getenv("ENDPOINT_B_URL"); url != "" {
		cfg.setEndpoint("B", url)
	}

	return cfg, nil
}

// HopTimeout returns the per-hop time ceiling.
func (c *Config) HopTimeout() time.Duration {
	return time.Duration(c.HopTimeoutMs) * time.Millisecond
}

func (c *Config) setEndpoint(label, baseURL string) {
	for i := range c.Endpoints {
		if c.Endpoints[i].Label == label {
			c.Endpoints[i].BaseURL = baseURL
			return
		}
	}
	c.Endpoints = append(c.Endpoints, EndpointConfig{Label: label, BaseURL: baseURL})
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
