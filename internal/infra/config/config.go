// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig           `yaml:"server"`
	Chat     ChatConfig             `yaml:"chat"`
	Queue    QueueConfig            `yaml:"queue"`
	Guards   map[string]GuardConfig `yaml:"guards"`
	Votes    VotesConfig            `yaml:"votes"`
	Playback PlaybackConfig         `yaml:"playback"`
	Admins   map[string][]string    `yaml:"admins"`
	Banned   map[string][]string    `yaml:"banned"`
	Messages MessagesConfig         `yaml:"messages"`
	Spotify  SpotifyConfig          `yaml:"spotify"`
}

// ServerConfig represents the overlay/viewer server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// ChatConfig represents chat command configuration.
type ChatConfig struct {
	Prefix          string `yaml:"prefix" default:"!"`
	DedupWindowSec  int    `yaml:"dedup_window_sec" default:"3" validate:"gte=1"`
	ConsoleEnabled  bool   `yaml:"console_enabled"`
	ConsolePlatform string `yaml:"console_platform" default:"console"`
}

// QueueConfig represents request queue configuration.
type QueueConfig struct {
	File string `yaml:"file" default:"requests.json"`
}

// GuardConfig represents an admission guard's configuration.
type GuardConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// VotesConfig represents vote-skip configuration.
type VotesConfig struct {
	Threshold int `yaml:"threshold" default:"3" validate:"gte=1"`
}

// PlaybackConfig represents playback scheduler configuration.
type PlaybackConfig struct {
	EndBufferMs         int `yaml:"end_buffer_ms" default:"800" validate:"gte=0,lte=10000"`
	FallbackDurationSec int `yaml:"fallback_duration_sec" default:"30" validate:"gte=1"`
	RetryDelayMs        int `yaml:"retry_delay_ms" default:"1500" validate:"gte=0,lte=60000"`
	WatchdogIntervalSec int `yaml:"watchdog_interval_sec" default:"4" validate:"gte=1"`
}

// MessagesConfig represents user-facing messages keyed by reject code.
type MessagesConfig struct {
	Success       string `yaml:"success" default:"Added to queue"`
	DefaultError  string `yaml:"default_error" default:"Request rejected"`
	Banned        string `yaml:"banned" default:"You are banned from requesting"`
	CapReached    string `yaml:"cap_reached" default:"You reached your request limit"`
	OnCooldown    string `yaml:"on_cooldown" default:"Please wait before requesting again"`
	TrackNotFound string `yaml:"track_not_found" default:"Song not found"`
	NotAuthorized string `yaml:"not_authorized" default:"Not authorized"`
}

// SpotifyConfig represents Spotify API configuration.
// The refresh token is the durable credential the process refuses to start without.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	RefreshToken string `yaml:"refresh_token" validate:"required"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for credentials.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// GetMessage returns the user-facing message for the given reject code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "success":
		return c.Messages.Success
	case "banned":
		return c.Messages.Banned
	case "cap_reached":
		return c.Messages.CapReached
	case "on_cooldown":
		return c.Messages.OnCooldown
	case "track_not_found":
		return c.Messages.TrackNotFound
	case "not_authorized":
		return c.Messages.NotAuthorized
	default:
		return c.Messages.DefaultError
	}
}

// IsGuardEnabled checks if an admission guard is enabled.
func (c *Config) IsGuardEnabled(name string) bool {
	if g, ok := c.Guards[name]; ok {
		return g.Enabled
	}
	return false
}

// GuardSettings returns the settings map for a guard, or nil.
func (c *Config) GuardSettings(name string) map[string]any {
	if g, ok := c.Guards[name]; ok {
		return g.Settings
	}
	return nil
}
