// Package config loads and validates the chatgate configuration.
//
// Configuration layers, later wins: built-in defaults, config.yaml from the
// configured directory, environment variables (CHATGATE_HOST, CHATGATE_PORT,
// CHATGATE_UPSTREAM_URL, CHATGATE_OAUTH_TOKEN_URL).
package config
