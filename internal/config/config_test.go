package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{configPathEnv, databasePathEnv, logLevelEnv, braveAPIKeyEnv, openAIKeyEnv, openAIModelEnv, openAIBaseEnv} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "newscurator.db", cfg.Database.Path)
	assert.Equal(t, "rss", cfg.Search.Provider)
	assert.Equal(t, 24*time.Hour, cfg.Search.GetFreshness())
	assert.Equal(t, time.Hour, cfg.Scheduler.GetInterval())
	assert.Equal(t, 30*24*time.Hour, cfg.Retention.Window())
	assert.False(t, cfg.LLM.Enabled(), "no key means no model")
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
database:
  path: /tmp/curator.db
search:
  provider: Brave
  limit: 25
  freshness: 6h
fetch:
  maxConcurrent: 4
  batchCeiling: 2m
logging:
  format: json
`)
	t.Setenv(braveAPIKeyEnv, "brave-key")
	t.Setenv(openAIKeyEnv, "sk-test")
	t.Setenv(databasePathEnv, "/data/override.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/data/override.db", cfg.Database.Path)
	assert.Equal(t, "brave", cfg.Search.Provider)
	assert.Equal(t, "brave-key", cfg.Search.APIKey)
	assert.Equal(t, 25, cfg.Search.Limit)
	assert.Equal(t, 6*time.Hour, cfg.Search.GetFreshness())
	assert.Equal(t, "en-US", cfg.Search.Locale, "unset fields keep their defaults")
	assert.Equal(t, 4, cfg.Fetch.MaxConcurrent)
	_, _, _, ceiling, robots := cfg.Fetch.Durations()
	assert.Equal(t, 2*time.Minute, ceiling)
	assert.Zero(t, robots)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.LLM.Enabled())
}

func TestLoadUsesEnvPath(t *testing.T) {
	clearEnv(t)
	t.Setenv(configPathEnv, writeConfig(t, "scheduler:\n  interval: 15m\n"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.GetInterval())
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "search: [not, a, map]"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"brave without key", func(c *Config) { c.Search.Provider = "brave" }},
		{"openai without key", func(c *Config) { c.LLM.Provider = "openai" }},
		{"unknown provider", func(c *Config) { c.Search.Provider = "bing" }},
		{"bad duration", func(c *Config) { c.Fetch.BatchCeiling = "soon" }},
		{"zero limit", func(c *Config) { c.Search.Limit = 0 }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
