// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// the Gandalf TUI.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.gandalf/config.toml
//   - ~/.gandalf/config.json
//   - Built-in defaults
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/gandalf-chat/gandalf-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete Gandalf front-end configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Backend is the reply-generation service configuration.
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Telemetry is the analytics beacon configuration.
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry"`

	// Geo is the geolocation lookup boundary configuration.
	Geo GeoConfig `toml:"geo" json:"geo"`

	// RateLimit is the client-side send throttle configuration.
	RateLimit RateLimitConfig `toml:"rate_limit" json:"rate_limit"`

	// History is the conversation persistence configuration.
	History HistoryConfig `toml:"history" json:"history"`

	// UI configuration.
	UI UIConfig `toml:"ui" json:"ui"`
}

// BackendConfig contains the reply service settings.
type BackendConfig struct {
	// URL is the base URL of the reply-generation service.
	URL string `toml:"url" json:"url"`
	// APIKey authenticates requests; empty means anonymous.
	APIKey string `toml:"api_key" json:"api_key"`
	// TimeoutSecs bounds a single reply request.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// ProbeIntervalSecs is how often the availability probe runs.
	ProbeIntervalSecs int `toml:"probe_interval_secs" json:"probe_interval_secs"`
}

// TelemetryConfig contains the analytics beacon settings.
type TelemetryConfig struct {
	// Enabled controls whether events are delivered at all.
	Enabled bool `toml:"enabled" json:"enabled"`
	// Endpoint receives batched beacon events.
	Endpoint string `toml:"endpoint" json:"endpoint"`
}

// GeoConfig contains the geolocation lookup settings.
type GeoConfig struct {
	// Enabled controls whether region tagging happens at startup.
	Enabled bool `toml:"enabled" json:"enabled"`
	// Endpoint is the ipinfo-compatible lookup service.
	Endpoint string `toml:"endpoint" json:"endpoint"`
	// Token authenticates lookups; empty uses the anonymous tier.
	Token string `toml:"token" json:"token"`
}

// RateLimitConfig contains the client-side send throttle settings.
type RateLimitConfig struct {
	// MessagesPerMinute is the sustained send rate per session.
	MessagesPerMinute int `toml:"messages_per_minute" json:"messages_per_minute"`
	// Burst is how many sends may happen back to back.
	Burst int `toml:"burst" json:"burst"`
}

// HistoryConfig contains conversation persistence settings.
type HistoryConfig struct {
	// Enabled controls whether conversations are saved.
	Enabled bool `toml:"enabled" json:"enabled"`
	// MaxConversations limits stored history (0 = unlimited).
	MaxConversations int `toml:"max_conversations" json:"max_conversations"`
	// DBPath overrides the history database location.
	DBPath string `toml:"db_path" json:"db_path"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto".
	Theme string `toml:"theme" json:"theme"`
	// CompactMode uses a more compact layout.
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// ShowLatency displays reply round-trip times next to messages.
	ShowLatency bool `toml:"show_latency" json:"show_latency"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Backend: BackendConfig{
			URL:               "http://127.0.0.1:8080",
			APIKey:            "",
			TimeoutSecs:       60,
			ProbeIntervalSecs: 15,
		},

		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "",
		},

		Geo: GeoConfig{
			Enabled:  false,
			Endpoint: "https://ipinfo.io",
			Token:    "",
		},

		RateLimit: RateLimitConfig{
			MessagesPerMinute: 20,
			Burst:             5,
		},

		History: HistoryConfig{
			Enabled:          true,
			MaxConversations: 100,
		},

		UI: UIConfig{
			Theme:       "auto",
			CompactMode: false,
			ShowLatency: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the Gandalf configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".gandalf"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				return nil, fmt.Errorf("failed to load TOML config: %w", err)
			}
			return finishLoad(cfg)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				return nil, fmt.Errorf("failed to load JSON config: %w", err)
			}
			return finishLoad(cfg)
		}
	}

	return finishLoad(cfg)
}

// LoadFromPath loads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finishLoad(cfg)
}

// finishLoad applies env overrides, defaults for zero values, and validation.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	ensureSecurePermissions(path)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	ensureSecurePermissions(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// ensureSecurePermissions tightens config file permissions to 0600 so the
// API key is not world-readable. Best effort.
func ensureSecurePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm() != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not fix permissions on %s: %v\n", path, err)
		}
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file atomically.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to a TOML file atomically with 0600
// permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// =============================================================================
// ENV OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies GANDALF_* environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("GANDALF_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("GANDALF_API_KEY"); v != "" {
		c.Backend.APIKey = v
	}
	if v := os.Getenv("GANDALF_TELEMETRY"); v != "" {
		c.Telemetry.Enabled = isTruthy(v)
	}
	if v := os.Getenv("GANDALF_TELEMETRY_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
	if v := os.Getenv("GANDALF_GEO_TOKEN"); v != "" {
		c.Geo.Token = v
	}
	if v := os.Getenv("GANDALF_THEME"); v != "" {
		c.UI.Theme = v
	}
}

func isTruthy(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Backend.URL == "" {
		c.Backend.URL = defaults.Backend.URL
	}
	if c.Backend.TimeoutSecs <= 0 {
		c.Backend.TimeoutSecs = defaults.Backend.TimeoutSecs
	}
	if c.Backend.ProbeIntervalSecs <= 0 {
		c.Backend.ProbeIntervalSecs = defaults.Backend.ProbeIntervalSecs
	}
	if c.Geo.Endpoint == "" {
		c.Geo.Endpoint = defaults.Geo.Endpoint
	}
	if c.RateLimit.MessagesPerMinute <= 0 {
		c.RateLimit.MessagesPerMinute = defaults.RateLimit.MessagesPerMinute
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = defaults.RateLimit.Burst
	}
	if c.History.MaxConversations < 0 {
		c.History.MaxConversations = defaults.History.MaxConversations
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if err := validateURL(c.Backend.URL, "backend.url"); err != nil {
		return err
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint != "" {
		if err := validateURL(c.Telemetry.Endpoint, "telemetry.endpoint"); err != nil {
			return err
		}
	}
	if err := validateURL(c.Geo.Endpoint, "geo.endpoint"); err != nil {
		return err
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		return fmt.Errorf("ui.theme must be one of dark, light, auto (got %q)", c.UI.Theme)
	}
	return nil
}

func validateURL(raw, field string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https (got %q)", field, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", field)
	}
	return nil
}

// =============================================================================
// GLOBAL CONFIG
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first use.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal replaces the process-wide configuration. Used by the hot-reload
// watcher and by tests.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	globalConfig = cfg
	globalConfigMu.Unlock()
}
