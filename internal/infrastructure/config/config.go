package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	App         AppConfig
	Browser     BrowserConfig
	Readiness   ReadinessConfig
	Logging     LogConfig
	Diagnostics DiagnosticsConfig
	Updates     UpdatesConfig
	Preferences PreferencesConfig
}

// AppConfig describes the hosted application.
type AppConfig struct {
	EntryURL           string `envconfig:"APP_ENTRY_URL" default:"https://tweetdeck.twitter.com" validate:"required,url"`
	HostDomain         string `envconfig:"APP_HOST_DOMAIN" default:"twitter.com" validate:"required,fqdn"`
	AppHost            string `envconfig:"APP_HOST" default:"tweetdeck.twitter.com" validate:"required,fqdn"`
	VersionCookie      string `envconfig:"APP_VERSION_COOKIE" default:"tweetdeck_version" validate:"required"`
	SessionCookie      string `envconfig:"APP_SESSION_COOKIE" default:"twid" validate:"required"`
	UpdateActionScheme string `envconfig:"APP_UPDATE_SCHEME" default:"tweetduck" validate:"required,alpha"`
}

// BrowserConfig holds Chrome launch settings.
type BrowserConfig struct {
	ChromePath     string `envconfig:"CHROME_PATH"`
	Headless       bool   `envconfig:"CHROME_HEADLESS" default:"false"`
	WindowWidth    int    `envconfig:"WINDOW_WIDTH" default:"1280" validate:"gte=320"`
	WindowHeight   int    `envconfig:"WINDOW_HEIGHT" default:"820" validate:"gte=240"`
	ProfileBaseDir string `envconfig:"PROFILE_BASE_DIR"`
}

// ReadinessConfig controls the readiness poll.
type ReadinessConfig struct {
	PollInterval time.Duration `envconfig:"READINESS_POLL_INTERVAL" default:"100ms" validate:"gt=0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
	File        string `envconfig:"LOG_FILE"`
}

// DiagnosticsConfig holds the local inspection server settings.
type DiagnosticsConfig struct {
	Enabled bool   `envconfig:"DIAG_ENABLED" default:"false"`
	Addr    string `envconfig:"DIAG_ADDR" default:"127.0.0.1:7799" validate:"required,hostname_port"`
}

// UpdatesConfig holds release feed settings.
type UpdatesConfig struct {
	Enabled        bool          `envconfig:"UPDATES_ENABLED" default:"true"`
	FeedURL        string        `envconfig:"UPDATES_FEED_URL" default:"https://api.github.com/repos/chylex/TweetDuck/releases/latest" validate:"required,url"`
	Interval       time.Duration `envconfig:"UPDATES_INTERVAL" default:"6h" validate:"gte=1m"`
	CurrentVersion string        `envconfig:"UPDATES_CURRENT_VERSION" default:"v1.0.0" validate:"required"`
}

// PreferencesConfig points at the persisted preference file.
type PreferencesConfig struct {
	Path string `envconfig:"PREFERENCES_PATH"`
}

var validate = validator.New()

// Load loads configuration from .env and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		App: AppConfig{
			EntryURL:           "https://tweetdeck.twitter.com",
			HostDomain:         "twitter.com",
			AppHost:            "tweetdeck.twitter.com",
			VersionCookie:      "tweetdeck_version",
			SessionCookie:      "twid",
			UpdateActionScheme: "tweetduck",
		},
		Browser: BrowserConfig{
			WindowWidth:  1280,
			WindowHeight: 820,
		},
		Readiness: ReadinessConfig{
			PollInterval: 100 * time.Millisecond,
		},
		Logging: LogConfig{
			Level: "info",
		},
		Diagnostics: DiagnosticsConfig{
			Addr: "127.0.0.1:7799",
		},
		Updates: UpdatesConfig{
			Enabled:        true,
			FeedURL:        "https://api.github.com/repos/chylex/TweetDuck/releases/latest",
			Interval:       6 * time.Hour,
			CurrentVersion: "v1.0.0",
		},
	}
}
