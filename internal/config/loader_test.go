package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644))
	return dir
}

func TestLoadConfig_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8420, cfg.Server.Port)
	assert.Equal(t, "localhost:8420", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Upstream.RequestTimeout.Std())
	assert.Equal(t, 60*time.Second, cfg.Session.GraceDelay.Std())
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout.Std())
	assert.Equal(t, 10000, cfg.Session.MaxSessions)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := writeConfigFile(t, `
server:
  host: 0.0.0.0
  port: 9000
upstream:
  baseURL: https://api.example.com
  requestTimeout: 10s
session:
  graceDelay: 5s
  maxSessions: 50
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr())
	assert.Equal(t, "https://api.example.com", cfg.Upstream.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Upstream.RequestTimeout.Std())
	assert.Equal(t, 5*time.Second, cfg.Session.GraceDelay.Std())
	assert.Equal(t, 50, cfg.Session.MaxSessions)

	// Unset fields keep their defaults.
	assert.Equal(t, GetDefaultConfig().Upstream.TokenURL, cfg.Upstream.TokenURL)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout.Std())
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := writeConfigFile(t, `
server:
  port: 9000
`)

	t.Setenv("CHATGATE_HOST", "0.0.0.0")
	t.Setenv("CHATGATE_PORT", "7777")
	t.Setenv("CHATGATE_UPSTREAM_URL", "https://api.override.example")
	t.Setenv("CHATGATE_OAUTH_TOKEN_URL", "https://auth.override.example/token")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:7777", cfg.Server.Addr())
	assert.Equal(t, "https://api.override.example", cfg.Upstream.BaseURL)
	assert.Equal(t, "https://auth.override.example/token", cfg.Upstream.TokenURL)
}

func TestLoadConfig_InvalidPortEnv(t *testing.T) {
	t.Setenv("CHATGATE_PORT", "not-a-port")

	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHATGATE_PORT")
}

func TestLoadConfig_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "port out of range",
			content: "server:\n  port: 70000\n",
			wantErr: "out of range",
		},
		{
			name:    "upstream URL without scheme",
			content: "upstream:\n  baseURL: api.example.com\n",
			wantErr: "not a valid URL",
		},
		{
			name:    "malformed duration",
			content: "session:\n  graceDelay: sixty\n",
			wantErr: "invalid duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeConfigFile(t, tt.content)
			_, err := LoadConfig(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDuration_RoundTrip(t *testing.T) {
	out, err := yaml.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)

	var d Duration
	require.NoError(t, yaml.Unmarshal(out, &d))
	assert.Equal(t, 90*time.Second, d.Std())
}
