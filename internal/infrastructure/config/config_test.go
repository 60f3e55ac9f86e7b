package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// App config
	assert.Equal(t, "https://tweetdeck.twitter.com", cfg.App.EntryURL)
	assert.Equal(t, "twitter.com", cfg.App.HostDomain)
	assert.Equal(t, "tweetdeck.twitter.com", cfg.App.AppHost)
	assert.Equal(t, "tweetdeck_version", cfg.App.VersionCookie)
	assert.Equal(t, "twid", cfg.App.SessionCookie)

	// Readiness config
	assert.Equal(t, 100*time.Millisecond, cfg.Readiness.PollInterval)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Diagnostics config
	assert.False(t, cfg.Diagnostics.Enabled)
	assert.Equal(t, "127.0.0.1:7799", cfg.Diagnostics.Addr)

	require.NoError(t, cfg.Validate())
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "https://tweetdeck.twitter.com", cfg.App.EntryURL)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"APP_ENTRY_URL":           "https://tweetdeck.example.org",
		"APP_HOST":                "tweetdeck.example.org",
		"READINESS_POLL_INTERVAL": "250ms",
		"LOG_LEVEL":               "debug",
		"LOG_DEV":                 "true",
		"DIAG_ENABLED":            "true",
		"DIAG_ADDR":               "127.0.0.1:9000",
		"UPDATES_ENABLED":         "false",
	}

	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://tweetdeck.example.org", cfg.App.EntryURL)
	assert.Equal(t, "tweetdeck.example.org", cfg.App.AppHost)
	assert.Equal(t, 250*time.Millisecond, cfg.Readiness.PollInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.True(t, cfg.Diagnostics.Enabled)
	assert.Equal(t, "127.0.0.1:9000", cfg.Diagnostics.Addr)
	assert.False(t, cfg.Updates.Enabled)

	// Untouched sections keep defaults
	assert.Equal(t, "twitter.com", cfg.App.HostDomain)
	assert.Equal(t, 1280, cfg.Browser.WindowWidth)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown log level", key: "LOG_LEVEL", value: "verbose"},
		{name: "entry url not a url", key: "APP_ENTRY_URL", value: "tweetdeck"},
		{name: "window too small", key: "WINDOW_WIDTH", value: "10"},
		{name: "update interval too short", key: "UPDATES_INTERVAL", value: "5s"},
		{name: "unparseable duration", key: "READINESS_POLL_INTERVAL", value: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)

			// LoadOrDefault falls back instead of failing
			cfg := LoadOrDefault()
			assert.Equal(t, Default().Logging.Level, cfg.Logging.Level)
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/.env", []byte("LOG_LEVEL=warn\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	os.Unsetenv("LOG_LEVEL")
	defer os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}
