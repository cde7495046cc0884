// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration for Petrel tools.
type Config struct {
	// Profile names the profile section to apply. Empty means the
	// base configuration is used as-is.
	Profile string `yaml:"profile,omitempty"`

	// Server configures which backend to connect to and how to
	// authenticate.
	Server ServerConfig `yaml:"server"`

	// Session tunes the session's timeouts and reconnection behavior.
	Session SessionConfig `yaml:"session"`

	// Output configures logging and terminal rendering.
	Output OutputConfig `yaml:"output"`

	// Capture configures event capture files written by --record.
	Capture CaptureConfig `yaml:"capture"`

	// Profiles contains named override sections. These are applied on
	// top of the base configuration when selected.
	Profiles map[string]*ConfigOverrides `yaml:"profiles,omitempty"`
}

// ConfigOverrides contains the sections a profile can override.
type ConfigOverrides struct {
	Server  *ServerConfig  `yaml:"server,omitempty"`
	Session *SessionConfig `yaml:"session,omitempty"`
	Output  *OutputConfig  `yaml:"output,omitempty"`
	Capture *CaptureConfig `yaml:"capture,omitempty"`
}

// ServerConfig configures the backend connection.
type ServerConfig struct {
	// URL is the stream endpoint. Schemes ws and http connect in the
	// clear; wss and https use TLS.
	URL string `yaml:"url"`

	// TokenFile is the path to the access token, either plaintext or
	// sealed with petrel-credentials. "-" reads the token from stdin.
	TokenFile string `yaml:"token_file"`

	// DefaultChannel is used by tools that take an optional channel
	// argument, such as petrel-send.
	DefaultChannel string `yaml:"default_channel"`
}

// SessionConfig tunes session behavior. Duration fields hold strings
// in time.ParseDuration syntax ("30s", "1m30s").
type SessionConfig struct {
	// CallTimeout bounds each outbound call.
	// Default: 30s
	CallTimeout string `yaml:"call_timeout"`

	// InitialBackoff is the delay before the first reconnection
	// attempt.
	// Default: 1s
	InitialBackoff string `yaml:"initial_backoff"`

	// MaxBackoff caps the reconnection delay.
	// Default: 30s
	MaxBackoff string `yaml:"max_backoff"`

	// EventBuffer is the capacity of the event channel. Zero uses the
	// session default.
	EventBuffer int `yaml:"event_buffer"`
}

// OutputConfig configures logging and terminal rendering.
type OutputConfig struct {
	// LogLevel is one of debug, info, warn, error.
	// Default: info
	LogLevel string `yaml:"log_level"`

	// LogFormat is one of auto, text, json. auto picks text on a
	// terminal and json otherwise.
	// Default: auto
	LogFormat string `yaml:"log_format"`

	// Color is one of auto, always, never. Controls styled rendering
	// in petrel-watch and petrel-tail.
	// Default: auto
	Color string `yaml:"color"`
}

// CaptureConfig configures capture files.
type CaptureConfig struct {
	// Directory is where capture files are written when --record is
	// given without a path.
	Directory string `yaml:"directory"`

	// Compression is one of none, lz4, zstd.
	// Default: zstd
	Compression string `yaml:"compression"`
}

// Default returns the default configuration. Every field is usable
// without a config file; Server.URL is the only value that must come
// from the file or a flag before connecting.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	configDir, _ := os.UserConfigDir()

	return &Config{
		Server: ServerConfig{
			TokenFile: filepath.Join(configDir, "petrel", "token"),
		},
		Session: SessionConfig{
			CallTimeout:    "30s",
			InitialBackoff: "1s",
			MaxBackoff:     "30s",
		},
		Output: OutputConfig{
			LogLevel:  "info",
			LogFormat: "auto",
			Color:     "auto",
		},
		Capture: CaptureConfig{
			Directory:   filepath.Join(homeDir, ".local", "share", "petrel", "captures"),
			Compression: "zstd",
		},
	}
}

// DefaultPath returns the per-user default config file location, or
// "" when the user config directory cannot be determined.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, "petrel", "config.yaml")
}

// Load loads configuration from the path in the PETREL_CONFIG
// environment variable, falling back to [DefaultPath]. A missing
// default file yields [Default] without error; a missing
// PETREL_CONFIG file is an error, since it was named explicitly.
func Load() (*Config, error) {
	if path := os.Getenv("PETREL_CONFIG"); path != "" {
		return LoadFile(path)
	}

	path := DefaultPath()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return Default(), nil
}

// LoadFile loads configuration from a specific file path.
//
// The file is merged over [Default], the active profile (PETREL_PROFILE
// or the file's profile key) is applied, and path variables are
// expanded. Environment variables do not override individual values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	profile := os.Getenv("PETREL_PROFILE")
	if profile == "" {
		profile = cfg.Profile
	}
	if profile != "" {
		if err := cfg.ApplyProfile(profile); err != nil {
			return nil, err
		}
	}

	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// ApplyProfile applies the named profile's overrides. Selecting an
// undefined profile is an error so a typo fails loudly instead of
// silently using the base configuration.
func (c *Config) ApplyProfile(name string) error {
	overrides, ok := c.Profiles[name]
	if !ok {
		known := slices.Sorted(maps.Keys(c.Profiles))
		if len(known) == 0 {
			return fmt.Errorf("config: profile %q is not defined (the file has no profiles section)", name)
		}
		return fmt.Errorf("config: profile %q is not defined (have: %s)", name, strings.Join(known, ", "))
	}

	c.Profile = name
	c.applyOverrides(overrides)
	return nil
}

// applyOverrides merges a profile section over the base configuration.
// String fields override when non-empty; EventBuffer overrides when
// positive.
func (c *Config) applyOverrides(overrides *ConfigOverrides) {
	if overrides.Server != nil {
		if overrides.Server.URL != "" {
			c.Server.URL = overrides.Server.URL
		}
		if overrides.Server.TokenFile != "" {
			c.Server.TokenFile = overrides.Server.TokenFile
		}
		if overrides.Server.DefaultChannel != "" {
			c.Server.DefaultChannel = overrides.Server.DefaultChannel
		}
	}

	if overrides.Session != nil {
		if overrides.Session.CallTimeout != "" {
			c.Session.CallTimeout = overrides.Session.CallTimeout
		}
		if overrides.Session.InitialBackoff != "" {
			c.Session.InitialBackoff = overrides.Session.InitialBackoff
		}
		if overrides.Session.MaxBackoff != "" {
			c.Session.MaxBackoff = overrides.Session.MaxBackoff
		}
		if overrides.Session.EventBuffer > 0 {
			c.Session.EventBuffer = overrides.Session.EventBuffer
		}
	}

	if overrides.Output != nil {
		if overrides.Output.LogLevel != "" {
			c.Output.LogLevel = overrides.Output.LogLevel
		}
		if overrides.Output.LogFormat != "" {
			c.Output.LogFormat = overrides.Output.LogFormat
		}
		if overrides.Output.Color != "" {
			c.Output.Color = overrides.Output.Color
		}
	}

	if overrides.Capture != nil {
		if overrides.Capture.Directory != "" {
			c.Capture.Directory = overrides.Capture.Directory
		}
		if overrides.Capture.Compression != "" {
			c.Capture.Compression = overrides.Capture.Compression
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Server.TokenFile = expandVars(c.Server.TokenFile, vars)
	c.Capture.Directory = expandVars(c.Capture.Directory, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. Server.URL may be
// empty here; tools require it only when they actually connect, so a
// flag can still supply it.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.URL != "" {
		if err := validateURL(c.Server.URL); err != nil {
			errs = append(errs, fmt.Errorf("server.url: %w", err))
		}
	}

	for _, field := range []struct {
		name  string
		value string
	}{
		{"session.call_timeout", c.Session.CallTimeout},
		{"session.initial_backoff", c.Session.InitialBackoff},
		{"session.max_backoff", c.Session.MaxBackoff},
	} {
		if field.value == "" {
			continue
		}
		duration, err := time.ParseDuration(field.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field.name, err))
			continue
		}
		if duration <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", field.name, field.value))
		}
	}

	if c.Session.EventBuffer < 0 {
		errs = append(errs, fmt.Errorf("session.event_buffer must not be negative, got %d", c.Session.EventBuffer))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Output.LogLevel) {
		errs = append(errs, fmt.Errorf("output.log_level must be one of debug, info, warn, error; got %q", c.Output.LogLevel))
	}
	if !slices.Contains([]string{"auto", "text", "json"}, c.Output.LogFormat) {
		errs = append(errs, fmt.Errorf("output.log_format must be one of auto, text, json; got %q", c.Output.LogFormat))
	}
	if !slices.Contains([]string{"auto", "always", "never"}, c.Output.Color) {
		errs = append(errs, fmt.Errorf("output.color must be one of auto, always, never; got %q", c.Output.Color))
	}

	if !slices.Contains([]string{"none", "lz4", "zstd"}, c.Capture.Compression) {
		errs = append(errs, fmt.Errorf("capture.compression must be one of none, lz4, zstd; got %q", c.Capture.Compression))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch parsed.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("scheme must be ws, wss, http, or https; got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

// EnsurePaths creates the capture directory if it does not exist.
func (c *Config) EnsurePaths() error {
	if c.Capture.Directory == "" {
		return nil
	}
	if err := os.MkdirAll(c.Capture.Directory, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", c.Capture.Directory, err)
	}
	return nil
}
