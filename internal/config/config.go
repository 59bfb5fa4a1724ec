// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Loading and validation errors wrap this package's sentinel kinds.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Feed sources.
const (
	FeedFirebase = "firebase"
	FeedFile     = "file"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// FeedSource picks the snapshot feed implementation: firebase or file.
	FeedSource string `koanf:"feed_source"`
	// DatabaseURL is the Firebase Realtime Database root, e.g.
	// https://coc-keys-default-rtdb.asia-southeast1.firebasedatabase.app
	DatabaseURL string `koanf:"database_url"`
	// FixturePath is the JSON file read by the file feed.
	FixturePath string `koanf:"fixture_path"`
	// StreamTimeoutMS bounds a single full-value fetch against the database.
	StreamTimeoutMS int `koanf:"stream_timeout_ms"`

	// ReconnectMinMS and ReconnectMaxMS bound the resubscribe backoff.
	ReconnectMinMS int `koanf:"reconnect_min_ms"`
	ReconnectMaxMS int `koanf:"reconnect_max_ms"`

	// LeaderboardSize caps both leaderboards.
	LeaderboardSize int `koanf:"leaderboard_size"`
	// Timezone is used for zone-less timestamps and date formatting.
	Timezone string `koanf:"timezone"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		FeedSource:      FeedFirebase,
		DatabaseURL:     "https://coc-keys-default-rtdb.asia-southeast1.firebasedatabase.app",
		FixturePath:     "fixtures.json",
		StreamTimeoutMS: 15_000,
		ReconnectMinMS:  500,
		ReconnectMaxMS:  30_000,
		LeaderboardSize: 10,
		Timezone:        "UTC",
	}
}

// Location resolves Timezone; callers run Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ReconnectMin returns the initial resubscribe delay.
func (c *Config) ReconnectMin() time.Duration {
	return time.Duration(c.ReconnectMinMS) * time.Millisecond
}

// ReconnectMax returns the resubscribe delay ceiling.
func (c *Config) ReconnectMax() time.Duration {
	return time.Duration(c.ReconnectMaxMS) * time.Millisecond
}

// StreamTimeout returns the full-value fetch timeout.
func (c *Config) StreamTimeout() time.Duration {
	return time.Duration(c.StreamTimeoutMS) * time.Millisecond
}

// Validate checks field combinations.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LeaderboardSize < 1:
		return fmt.Errorf("%w: leaderboard_size must be positive", ErrInvalidConfig)
	case c.ReconnectMinMS < 1 || c.ReconnectMaxMS < c.ReconnectMinMS:
		return fmt.Errorf("%w: reconnect bounds must satisfy 0 < min <= max", ErrInvalidConfig)
	case c.StreamTimeoutMS < 1:
		return fmt.Errorf("%w: stream_timeout_ms must be positive", ErrInvalidConfig)
	}

	switch c.FeedSource {
	case FeedFirebase:
		if !strings.HasPrefix(c.DatabaseURL, "http://") && !strings.HasPrefix(c.DatabaseURL, "https://") {
			return fmt.Errorf("%w: database_url must be an http(s) URL", ErrInvalidConfig)
		}
	case FeedFile:
		if strings.TrimSpace(c.FixturePath) == "" {
			return fmt.Errorf("%w: fixture_path must not be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown feed_source %q", ErrInvalidConfig, c.FeedSource)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: timezone: %v", ErrInvalidConfig, err)
	}
	return nil
}
