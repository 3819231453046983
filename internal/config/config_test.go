package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, SourceYahoo, cfg.DataSource.Source)
	assert.Equal(t, "relaxed", cfg.Indicators.MinPeriods)
	assert.Equal(t, "above-ma", cfg.Screen.Policy)
	assert.Equal(t, "score", cfg.Screen.Ranking)
	assert.Equal(t, 5, cfg.Screen.TopK)
	require.NotNil(t, cfg.Screen.MaxEligible)
	assert.Equal(t, 20, *cfg.Screen.MaxEligible)
	assert.Equal(t, 100, cfg.Screen.UniverseLimit)
	assert.Equal(t, 1, cfg.Screen.Workers)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, ":8080", cfg.API.Addr)
	assert.Equal(t, "data/watch_state.json", cfg.Schedule.StateFile)
	assert.Equal(t, "0 30 22 * * 1-5", cfg.Schedule.ScreenCron)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
data_source:
  source: mock
tickers:
  symbols: [AAPL, BRK.B]
screen:
  policy: pre-breakout
  ranking: distance
  max_eligible: 0
  workers: 4
cache:
  ttl: 15m
`)
	t.Setenv("TELEGRAM_CHAT_ID", "12345")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, SourceMock, cfg.DataSource.Source)
	assert.Equal(t, []string{"AAPL", "BRK.B"}, cfg.Tickers.Symbols)
	assert.Equal(t, "pre-breakout", cfg.Screen.Policy)
	assert.Equal(t, 0, *cfg.Screen.MaxEligible)
	assert.Equal(t, 4, cfg.Screen.Workers)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, int64(12345), cfg.Telegram.ChatID)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "screen: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
		require.NoError(t, err)
		cfg.Tickers.Symbols = []string{"AAPL"}
		return cfg
	}

	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no tickers", func(c *Config) { c.Tickers.Symbols = nil }},
		{"bad source", func(c *Config) { c.DataSource.Source = "bloomberg" }},
		{"alpaca without keys", func(c *Config) { c.DataSource.Source = SourceAlpaca }},
		{"bad policy", func(c *Config) { c.Screen.Policy = "momentum" }},
		{"bad ranking", func(c *Config) { c.Screen.Ranking = "alpha" }},
		{"bad min periods", func(c *Config) { c.Indicators.MinPeriods = "loose" }},
		{"zero workers", func(c *Config) { c.Screen.Workers = 0 }},
		{"negative universe limit", func(c *Config) { c.Screen.UniverseLimit = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
