package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"chatgate/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/chatgate"
	configFileName = "config.yaml"
)

// DefaultConfigPath returns the per-user configuration directory.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads configuration from the given directory, starting from
// defaults, then the config.yaml file if present, then environment
// overrides. An empty configPath means the per-user directory.
func LoadConfig(configPath string) (Config, error) {
	cfg := GetDefaultConfig()

	if configPath == "" {
		var err error
		configPath, err = DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
	}

	configFilePath := filepath.Join(configPath, configFileName)
	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return Config{}, fmt.Errorf("error reading config from %s: %w", configFilePath, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides layers deployment knobs from the environment on top of
// the file config. A .env file, if any, has already been loaded by the serve
// command.
func applyEnvOverrides(cfg *Config) error {
	if host := os.Getenv("CHATGATE_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("CHATGATE_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid CHATGATE_PORT value %q: %w", port, err)
		}
		cfg.Server.Port = p
	}
	if baseURL := os.Getenv("CHATGATE_UPSTREAM_URL"); baseURL != "" {
		cfg.Upstream.BaseURL = baseURL
	}
	if tokenURL := os.Getenv("CHATGATE_OAUTH_TOKEN_URL"); tokenURL != "" {
		cfg.Upstream.TokenURL = tokenURL
	}
	return nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if err := validateURL("upstream.baseURL", c.Upstream.BaseURL); err != nil {
		return err
	}
	if err := validateURL("upstream.tokenURL", c.Upstream.TokenURL); err != nil {
		return err
	}
	if c.Upstream.RequestTimeout < 0 {
		return fmt.Errorf("upstream.requestTimeout must not be negative")
	}
	if c.Session.GraceDelay < 0 {
		return fmt.Errorf("session.graceDelay must not be negative")
	}
	if c.Session.IdleTimeout < 0 {
		return fmt.Errorf("session.idleTimeout must not be negative")
	}
	if c.Session.MaxSessions < 0 {
		return fmt.Errorf("session.maxSessions must not be negative")
	}
	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s %q is not a valid URL", field, raw)
	}
	return nil
}
