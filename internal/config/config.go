// Package config loads server configuration from defaults, an optional
// YAML file and environment variable overrides, in that order of
// precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	Data      Data      `yaml:"data"`
	History   History   `yaml:"history"`
	WebSocket WebSocket `yaml:"websocket"`
	Logging   Logging   `yaml:"logging"`
	Metrics   Metrics   `yaml:"metrics"`
}

// Server configures the HTTP listener.
type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// Data locates the snapshot files.
type Data struct {
	Dir string `yaml:"dir" validate:"required"`
}

// History configures the retention sweep.
type History struct {
	RetentionWindow time.Duration `yaml:"retentionWindow" validate:"gt=0"`
	SweepInterval   time.Duration `yaml:"sweepInterval" validate:"gt=0"`
}

// WebSocket configures the upgrade buffers.
type WebSocket struct {
	ReadBufferSize  int `yaml:"readBufferSize"`
	WriteBufferSize int `yaml:"writeBufferSize"`
}

// Logging configures zap.
type Logging struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Metrics configures the prometheus namespace.
type Metrics struct {
	Namespace string `yaml:"namespace"`
}

// Default returns the configuration the server runs with when no file and
// no environment overrides are present.
func Default() *Config {
	return &Config{
		Server: Server{
			Host:            "0.0.0.0",
			Port:            5050,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Data: Data{
			Dir: "data",
		},
		History: History{
			RetentionWindow: 7 * 24 * time.Hour,
			SweepInterval:   24 * time.Hour,
		},
		WebSocket: WebSocket{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Metrics: Metrics{
			Namespace: "shoplist",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (when
// it exists), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// File is optional
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		cfg.Data.Dir = val
	}
	if val := os.Getenv("HISTORY_RETENTION_WINDOW"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			cfg.History.RetentionWindow = d
		}
	}
	if val := os.Getenv("HISTORY_SWEEP_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			cfg.History.SweepInterval = d
		}
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}
