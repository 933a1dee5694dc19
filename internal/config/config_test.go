package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CVMIGRATE_LOG_LEVEL", "debug")
	t.Setenv("CVMIGRATE_MAPPINGS", "/data/mappings.csv")
	t.Setenv("CVMIGRATE_CUSTOM_TABLES", "/data/custom.txt")

	cfg := LoadFromEnv()
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/data/mappings.csv", cfg.MappingsPath)
	assert.Equal(t, "/data/custom.txt", cfg.CustomTablesPath)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLogLevelDefaults(t *testing.T) {
	t.Setenv("CVMIGRATE_LOG_LEVEL", "")

	cfg := LoadFromEnv()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())

	cfg.LogLevel = "nonsense"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
