// Package config loads fetchsql configuration from file, environment
// variables, and CLI flags.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Default values applied before any configuration source.
const (
	DefaultOutput          = "table"
	DefaultCacheTTLMinutes = 15
)

// Config holds the resolved fetchsql configuration.
type Config struct {
	// EnvironmentURL is the base URL of the target environment, e.g.
	// https://org.crm.dynamics.com. Required for commands that talk to
	// the service.
	EnvironmentURL string `koanf:"environment_url"`

	// AccessToken is the bearer token used against the Web API. Token
	// acquisition is out of scope; it is supplied ready-made.
	AccessToken string `koanf:"access_token"`

	// CachePath is the SQLite metadata cache location. Empty disables
	// on-disk caching.
	CachePath string `koanf:"cache_path"`

	// CacheTTLMinutes is how long cached metadata stays fresh.
	CacheTTLMinutes int `koanf:"cache_ttl_minutes"`

	// NoMetadata disables metadata fetching and with it the virtual
	// column rewrite.
	NoMetadata bool `koanf:"no_metadata"`

	// Output selects the result rendering: table, csv, or json.
	Output string `koanf:"output"`

	Verbose bool `koanf:"verbose"`
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	if c.CacheTTLMinutes <= 0 {
		return DefaultCacheTTLMinutes * time.Minute
	}
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// RequireEnvironment validates that the config can reach a service
// environment.
func (c *Config) RequireEnvironment() error {
	if c.EnvironmentURL == "" {
		return fmt.Errorf("no environment configured: set environment_url in fetchsql.yaml, FETCHSQL_ENVIRONMENT_URL, or --url")
	}
	if !strings.HasPrefix(c.EnvironmentURL, "http://") && !strings.HasPrefix(c.EnvironmentURL, "https://") {
		return fmt.Errorf("environment_url %q must be an http(s) URL", c.EnvironmentURL)
	}
	return nil
}

// NewLogger builds the CLI logger. Verbose enables debug level.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
