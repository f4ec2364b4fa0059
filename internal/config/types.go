package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure for chatgate.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Session  SessionConfig  `yaml:"session"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"` // Host to bind to (default: localhost)
	Port int    `yaml:"port,omitempty"` // Port for the MCP endpoint (default: 8420)
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// UpstreamConfig describes the ChatHub API and its OAuth token endpoint.
type UpstreamConfig struct {
	BaseURL        string   `yaml:"baseURL,omitempty"`        // ChatHub REST API base URL
	TokenURL       string   `yaml:"tokenURL,omitempty"`       // OAuth client-credentials token endpoint
	RequestTimeout Duration `yaml:"requestTimeout,omitempty"` // Per-request timeout (default: 30s)
}

// SessionConfig describes session lifecycle knobs.
type SessionConfig struct {
	GraceDelay  Duration `yaml:"graceDelay,omitempty"`  // Closed-session reap delay (default: 60s)
	IdleTimeout Duration `yaml:"idleTimeout,omitempty"` // Idle-session sweep threshold (default: 30m)
	MaxSessions int      `yaml:"maxSessions,omitempty"` // Concurrent session cap (default: 10000)
}

// Duration wraps time.Duration so config files can use "60s", "30m", etc.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
