// Package config handles application configuration and environment loading.
package config

import (
	"log/slog"
	"os"
)

// Config holds the tool's configuration. Every field has a corresponding
// CVMIGRATE_* environment variable; command-line flags override both.
type Config struct {
	LogLevel         string // debug, info, warn, error (default "info")
	MappingsPath     string // field-mapping CSV file
	OverridesPath    string // override mapping CSV file
	MappingsDBPath   string // sqlite database with a field_mappings table
	CustomTablesPath string // custom-table pattern list file
	TransparentPath  string // transparent-table list file
}

// LoadFromEnv reads configuration from the environment.
func LoadFromEnv() *Config {
	cfg := &Config{
		LogLevel:         os.Getenv("CVMIGRATE_LOG_LEVEL"),
		MappingsPath:     os.Getenv("CVMIGRATE_MAPPINGS"),
		OverridesPath:    os.Getenv("CVMIGRATE_OVERRIDES"),
		MappingsDBPath:   os.Getenv("CVMIGRATE_MAPPINGS_DB"),
		CustomTablesPath: os.Getenv("CVMIGRATE_CUSTOM_TABLES"),
		TransparentPath:  os.Getenv("CVMIGRATE_TRANSPARENT_TABLES"),
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a text logger at the configured level.
func (c *Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.SlogLevel()}))
}
