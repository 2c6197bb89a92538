package config

import (
	"errors"
	"testing"
)

func TestGetAPIKey(t *testing.T) {
	t.Run("from environment variable", func(t *testing.T) {
		t.Setenv(EnvAPIKey, "sk-ant-test-key")

		key, err := GetAPIKey(&Config{})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if key != "sk-ant-test-key" {
			t.Errorf("expected 'sk-ant-test-key', got %q", key)
		}
	})

	t.Run("from config", func(t *testing.T) {
		t.Setenv(EnvAPIKey, "")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-config-key"}}
		key, err := GetAPIKey(cfg)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if key != "sk-ant-config-key" {
			t.Errorf("expected 'sk-ant-config-key', got %q", key)
		}
	})

	t.Run("unresolved reference", func(t *testing.T) {
		t.Setenv(EnvAPIKey, "")
		t.Setenv("ORCBOT_TEST_UNSET", "")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "${ORCBOT_TEST_UNSET}"}}
		if _, err := GetAPIKey(cfg); !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})

	t.Run("no key configured", func(t *testing.T) {
		t.Setenv(EnvAPIKey, "")

		if _, err := GetAPIKey(nil); !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})
}

func TestGetJWTSecret(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		t.Setenv(EnvJWTSecret, "env-secret")

		secret, err := GetJWTSecret(&Config{Gateway: GatewayConfig{JWTSecret: "file-secret"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(secret) != "env-secret" {
			t.Errorf("expected env secret, got %q", secret)
		}
	})

	t.Run("from config", func(t *testing.T) {
		t.Setenv(EnvJWTSecret, "")

		secret, err := GetJWTSecret(&Config{Gateway: GatewayConfig{JWTSecret: "file-secret"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(secret) != "file-secret" {
			t.Errorf("expected file secret, got %q", secret)
		}
	})

	t.Run("missing", func(t *testing.T) {
		t.Setenv(EnvJWTSecret, "")

		if _, err := GetJWTSecret(&Config{}); !errors.Is(err, ErrNoJWTSecret) {
			t.Errorf("expected ErrNoJWTSecret, got %v", err)
		}
	})
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid key", "sk-ant-REDACTED", false},
		{"empty key", "", true},
		{"wrong prefix", "sk-openai-12345678901234567890", true},
		{"too short", "sk-ant-abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKey() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{"valid key", "sk-ant-REDACTED", "sk-ant-...wxyz"},
		{"empty key", "", "(not set)"},
		{"short key", "short", "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MaskSecret(tt.key)
			if result != tt.expected {
				t.Errorf("MaskSecret() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestGetAPIKeySource(t *testing.T) {
	tests := []struct {
		name   string
		env    string
		cfgKey string
		want   KeySource
	}{
		{"from environment", "test-key", "", KeySourceEnv},
		{"environment wins", "test-key", "sk-ant-config-key", KeySourceEnv},
		{"from config", "", "sk-ant-config-key", KeySourceConfig},
		{"none", "", "", KeySourceNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvAPIKey, tt.env)
			cfg := &Config{Anthropic: AnthropicConfig{APIKey: tt.cfgKey}}
			if got := GetAPIKeySource(cfg); got != tt.want {
				t.Errorf("GetAPIKeySource() = %v, want %v", got, tt.want)
			}
		})
	}
}
