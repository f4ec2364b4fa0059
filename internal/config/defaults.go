package config

import "time"

// GetDefaultConfig returns the default configuration for chatgate.
func GetDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8420,
		},
		Upstream: UpstreamConfig{
			BaseURL:        "https://api.chathub.example",
			TokenURL:       "https://auth.chathub.example/oauth/token",
			RequestTimeout: Duration(30 * time.Second),
		},
		Session: SessionConfig{
			GraceDelay:  Duration(60 * time.Second),
			IdleTimeout: Duration(30 * time.Minute),
			MaxSessions: 10000,
		},
	}
}
