package config

import (
	"errors"
	"os"
	"strings"
)

// Environment variables consulted before the config file.
const (
	EnvAPIKey    = "ANTHROPIC_API_KEY"
	EnvJWTSecret = "ORCBOT_JWT_SECRET"
)

var (
	// ErrNoAPIKey is returned when no API key is configured.
	ErrNoAPIKey = errors.New("no Anthropic API key configured")
	// ErrNoJWTSecret is returned when the gateway has no signing secret.
	ErrNoJWTSecret = errors.New("no gateway JWT secret configured")
)

// KeySource represents where a secret was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// resolveSecret checks the environment variable, then the configured value.
// Unexpanded ${VAR} references count as unset.
func resolveSecret(env, configured string) (string, KeySource) {
	if v := os.Getenv(env); v != "" {
		return v, KeySourceEnv
	}
	if configured == "" {
		return "", KeySourceNone
	}
	v := os.ExpandEnv(configured)
	if v == "" || strings.HasPrefix(v, "${") {
		return "", KeySourceNone
	}
	return v, KeySourceConfig
}

// GetAPIKey returns the Anthropic API key.
func GetAPIKey(cfg *Config) (string, error) {
	var configured string
	if cfg != nil {
		configured = cfg.Anthropic.APIKey
	}
	key, src := resolveSecret(EnvAPIKey, configured)
	if src == KeySourceNone {
		return "", ErrNoAPIKey
	}
	return key, nil
}

// GetAPIKeySource returns where the API key was sourced from.
func GetAPIKeySource(cfg *Config) KeySource {
	var configured string
	if cfg != nil {
		configured = cfg.Anthropic.APIKey
	}
	_, src := resolveSecret(EnvAPIKey, configured)
	return src
}

// GetJWTSecret returns the gateway signing secret.
func GetJWTSecret(cfg *Config) ([]byte, error) {
	var configured string
	if cfg != nil {
		configured = cfg.Gateway.JWTSecret
	}
	secret, src := resolveSecret(EnvJWTSecret, configured)
	if src == KeySourceNone {
		return nil, ErrNoJWTSecret
	}
	return []byte(secret), nil
}

// ValidateAPIKey checks the key format without calling the API.
func ValidateAPIKey(key string) error {
	if key == "" {
		return ErrNoAPIKey
	}
	if !strings.HasPrefix(key, "sk-ant-") {
		return errors.New("invalid API key format: expected 'sk-ant-' prefix")
	}
	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}
	return nil
}

// MaskSecret returns a display-safe form of a secret.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return "(not set)"
	case len(s) <= 15:
		return "***"
	default:
		return s[:7] + "..." + s[len(s)-4:]
	}
}
