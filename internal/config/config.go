// Package config provides application configuration management with support for
// TOML files, environment variable overrides, and configuration overlays.
package config

import (
	"fmt"
	"os"

	"github.com/annostudio/annostudio/pkg/logging"
	"github.com/annostudio/annostudio/pkg/pagination"
	"github.com/pelletier/go-toml/v2"
)

const (
	// BaseConfigFile is the primary configuration file name.
	BaseConfigFile = "config.toml"

	// OverlayConfigPattern is the file name pattern for environment-specific overlays.
	OverlayConfigPattern = "config.%s.toml"

	// EnvServiceEnv specifies the environment name for configuration overlays.
	EnvServiceEnv = "SERVICE_ENV"
)

// Config represents the root service configuration.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Logging     logging.Config    `toml:"logging"`
	CORS        CORSConfig        `toml:"cors"`
	Storage     StorageConfig     `toml:"storage"`
	Pagination  pagination.Config `toml:"pagination"`
	Assignments AssignmentsConfig `toml:"assignments"`
}

// Load reads and parses the base configuration file and applies any
// environment-specific overlay.
func Load() (*Config, error) {
	cfg, err := load(BaseConfigFile)
	if err != nil {
		return nil, err
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}
	return cfg, nil
}

// Finalize applies defaults, loads environment overrides, and validates
// every configuration section.
func (c *Config) Finalize() error {
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Logging.Finalize(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.CORS.Finalize(); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Storage.Finalize(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Pagination.Finalize(); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.Assignments.Finalize(); err != nil {
		return fmt.Errorf("assignments: %w", err)
	}
	return nil
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *Config) Merge(overlay *Config) {
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Logging.Merge(&overlay.Logging)
	c.CORS.Merge(&overlay.CORS)
	c.Storage.Merge(&overlay.Storage)
	c.Pagination.Merge(&overlay.Pagination)
	c.Assignments.Merge(&overlay.Assignments)
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvServiceEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
