// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://127.0.0.1:8080", cfg.Backend.URL)
	assert.Equal(t, 60, cfg.Backend.TimeoutSecs)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "https://ipinfo.io", cfg.Geo.Endpoint)
	assert.Equal(t, 20, cfg.RateLimit.MessagesPerMinute)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "auto", cfg.UI.Theme)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromPathTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
version = "1.0.0"

[backend]
url = "https://gandalf.example.com"
api_key = "secret-key"
timeout_secs = 30

[rate_limit]
messages_per_minute = 10
burst = 2

[ui]
theme = "dark"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "https://gandalf.example.com", cfg.Backend.URL)
	assert.Equal(t, "secret-key", cfg.Backend.APIKey)
	assert.Equal(t, 30, cfg.Backend.TimeoutSecs)
	assert.Equal(t, 10, cfg.RateLimit.MessagesPerMinute)
	assert.Equal(t, 2, cfg.RateLimit.Burst)
	assert.Equal(t, "dark", cfg.UI.Theme)

	// Unspecified sections keep defaults.
	assert.Equal(t, "https://ipinfo.io", cfg.Geo.Endpoint)
	assert.True(t, cfg.History.Enabled)
}

func TestLoadFromPathJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"backend": {"url": "http://localhost:9090", "timeout_secs": 15},
		"ui": {"theme": "light"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9090", cfg.Backend.URL)
	assert.Equal(t, 15, cfg.Backend.TimeoutSecs)
	assert.Equal(t, "light", cfg.UI.Theme)
}

func TestLoadFixesInsecurePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`version = "1.0.0"`), 0644))

	_, err := LoadFromPath(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GANDALF_BACKEND_URL", "https://env.example.com")
	t.Setenv("GANDALF_API_KEY", "env-key")
	t.Setenv("GANDALF_TELEMETRY", "true")
	t.Setenv("GANDALF_THEME", "light")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "https://env.example.com", cfg.Backend.URL)
	assert.Equal(t, "env-key", cfg.Backend.APIKey)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "light", cfg.UI.Theme)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad backend scheme", func(c *Config) { c.Backend.URL = "ftp://example.com" }},
		{"missing backend host", func(c *Config) { c.Backend.URL = "http://" }},
		{"unknown theme", func(c *Config) { c.UI.Theme = "solarized" }},
		{"bad telemetry endpoint", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = "not a url at all\x00"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveTOMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Backend.URL = "https://saved.example.com"
	cfg.RateLimit.Burst = 7
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "https://saved.example.com", loaded.Backend.URL)
	assert.Equal(t, 7, loaded.RateLimit.Burst)
}

func TestFillDefaultsRepairsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.fillDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", cfg.Backend.URL)
	assert.Equal(t, 60, cfg.Backend.TimeoutSecs)
	assert.Equal(t, 20, cfg.RateLimit.MessagesPerMinute)
	assert.Equal(t, "auto", cfg.UI.Theme)
}

func TestSetGlobal(t *testing.T) {
	cfg := Default()
	cfg.Backend.URL = "http://global.example.com"
	SetGlobal(cfg)

	assert.Equal(t, "http://global.example.com", Global().Backend.URL)
}
