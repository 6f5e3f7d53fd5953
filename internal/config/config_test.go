package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadFromEnvOnly(t *testing.T) {
	cfg, err := LoadWithEnv("", envFrom(map[string]string{
		"LEAGUE_ID":       "123456",
		"YEAR":            "2025",
		"SWID":            "{ABC}",
		"ESPN_S2":         "s2cookie",
		"LOOKBACK_HOURS":  "48",
		"EMAIL_TO":        "a@example.com; b@example.com, ",
		"EMAIL_BCC":       "c@example.com",
		"GMAIL_TOKEN_B64": "dG9rZW4=",
	}))
	require.NoError(t, err)

	assert.Equal(t, 123456, cfg.League.LeagueID)
	assert.Equal(t, 2025, cfg.League.Year)
	assert.Equal(t, "{ABC}", cfg.League.SWID)
	assert.Equal(t, "s2cookie", cfg.League.ESPNS2)
	assert.Equal(t, 48*time.Hour, cfg.Digest.Lookback)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Mail.To)
	assert.Equal(t, []string{"c@example.com"}, cfg.Mail.Bcc)
	assert.False(t, cfg.Debug)

	// defaults
	assert.Equal(t, "espn", cfg.Source.Type)
	assert.Equal(t, 300, cfg.Source.ActivityLimit)
	assert.Equal(t, "America/Chicago", cfg.Digest.Timezone)
	assert.Equal(t, "reports", cfg.Digest.ReportsDir)
	assert.Equal(t, ":9109", cfg.Server.ListenAddress)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
league:
  league_id: 1
  year: 2024
source:
  max_retries: 2
  backoff: 100ms
digest:
  lookback: 12h
  timezone: UTC
loki:
  url: http://loki:3100
debug: true
`), 0o644))

	cfg, err := LoadWithEnv(path, envFrom(map[string]string{"YEAR": "2025"}))
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.League.LeagueID)
	assert.Equal(t, 2025, cfg.League.Year)
	assert.Equal(t, 2, cfg.Source.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Source.Backoff)
	assert.Equal(t, 12*time.Hour, cfg.Digest.Lookback)
	assert.Equal(t, "UTC", cfg.Digest.Timezone)
	assert.Equal(t, "league-digest", cfg.Loki.Job)
	assert.True(t, cfg.Debug)
}

func TestLoadFailsFast(t *testing.T) {
	t.Run("missing league settings", func(t *testing.T) {
		_, err := LoadWithEnv("", envFrom(map[string]string{"DEBUG": "yes"}))
		require.Error(t, err)

		var cfgErr *Error
		require.True(t, errors.As(err, &cfgErr))
		assert.Contains(t, err.Error(), "LEAGUE_ID")
		assert.Contains(t, err.Error(), "YEAR")
	})

	t.Run("mail token required outside debug", func(t *testing.T) {
		_, err := LoadWithEnv("", envFrom(map[string]string{"LEAGUE_ID": "1", "YEAR": "2025"}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GMAIL_TOKEN_B64")
	})

	t.Run("non-numeric league id", func(t *testing.T) {
		_, err := LoadWithEnv("", envFrom(map[string]string{"LEAGUE_ID": "abc"}))
		var cfgErr *Error
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "LEAGUE_ID", cfgErr.Setting)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadWithEnv(filepath.Join(t.TempDir(), "nope.yml"), envFrom(nil))
		require.Error(t, err)
	})
}

func TestTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes", "on", " On "} {
		assert.True(t, Truthy(v), v)
	}
	for _, v := range []string{"", "0", "false", "no", "off", "debug"} {
		assert.False(t, Truthy(v), v)
	}
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com"}, ParseList("a@x.com, b@x.com;c@x.com"))
	assert.Empty(t, ParseList(" ; , "))
}
