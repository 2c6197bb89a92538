// Package config handles configuration loading and management for orcbot.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/orcbot/internal/orchestrator/policy"
	"github.com/ShayCichocki/orcbot/internal/state"
)

// ProjectConfigName is the per-project override file searched upward from
// the working directory.
const ProjectConfigName = ".orcbot.yaml"

// Worker providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
	ProviderDry       = "dry"
)

// Config holds all configuration for orcbot.
type Config struct {
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Distribution DistributionConfig `mapstructure:"distribution"`
	Worker       WorkerConfig       `mapstructure:"worker"`
	Anthropic    AnthropicConfig    `mapstructure:"anthropic"`
	Gateway      GatewayConfig      `mapstructure:"gateway"`
	TUI          TUIConfig          `mapstructure:"tui"`
}

// OrchestratorConfig holds coordinator settings.
type OrchestratorConfig struct {
	// DataDir holds the database, agent directories and logs.
	// Empty means the XDG data directory.
	DataDir      string   `mapstructure:"data_dir"`
	WorkerBinary string   `mapstructure:"worker_binary"`
	WorkerArgs   []string `mapstructure:"worker_args"`
	DebugLog     bool     `mapstructure:"debug_log"`
}

// DistributionConfig holds task distribution settings.
type DistributionConfig struct {
	// Policy is "capability" or "round_robin".
	Policy string `mapstructure:"policy"`
	// RulesFile is an optional YAML file of capability keywords.
	RulesFile string `mapstructure:"rules_file"`
}

// WorkerConfig holds settings passed to the reference worker.
type WorkerConfig struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	MaxTokens  int64         `mapstructure:"max_tokens"`
	AWSRegion  string        `mapstructure:"aws_region"`
	AWSProfile string        `mapstructure:"aws_profile"`
	Poll       time.Duration `mapstructure:"poll"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// GatewayConfig holds HTTP gateway settings.
type GatewayConfig struct {
	Addr string `mapstructure:"addr"`
	// JWTSecret enables bearer-token auth when set.
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
}

// TUIConfig holds TUI display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// DataDir returns the configured data directory or the XDG default.
func (c *Config) DataDir() string {
	if c.Orchestrator.DataDir != "" {
		return expandHome(c.Orchestrator.DataDir)
	}
	return state.DefaultDataDir()
}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	if _, err := policy.ParseMode(c.Distribution.Policy); err != nil {
		return err
	}
	switch c.Worker.Provider {
	case ProviderAnthropic, ProviderBedrock, ProviderDry:
	default:
		return fmt.Errorf("unknown worker provider %q", c.Worker.Provider)
	}
	if c.Orchestrator.WorkerBinary == "" {
		return fmt.Errorf("orchestrator.worker_binary must not be empty")
	}
	return nil
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, ORCBOT_JWT_SECRET, ORCBOT_<SECTION>_<KEY>)
// 2. Project config (.orcbot.yaml in current directory or parent)
// 3. User config (~/.config/orcbot/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Load user config from XDG path
	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	bindEnv(v)
	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	bindEnv(v)
	return unmarshal(v)
}

// Save writes the current configuration to the user config file.
// Secrets are written only if they are ${VAR} references.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("orchestrator.data_dir", cfg.Orchestrator.DataDir)
	v.Set("orchestrator.worker_binary", cfg.Orchestrator.WorkerBinary)
	v.Set("orchestrator.worker_args", cfg.Orchestrator.WorkerArgs)
	v.Set("orchestrator.debug_log", cfg.Orchestrator.DebugLog)
	v.Set("distribution.policy", cfg.Distribution.Policy)
	v.Set("distribution.rules_file", cfg.Distribution.RulesFile)
	v.Set("worker.provider", cfg.Worker.Provider)
	v.Set("worker.model", cfg.Worker.Model)
	v.Set("worker.max_tokens", cfg.Worker.MaxTokens)
	v.Set("worker.aws_region", cfg.Worker.AWSRegion)
	v.Set("worker.aws_profile", cfg.Worker.AWSProfile)
	v.Set("worker.poll", cfg.Worker.Poll.String())
	v.Set("anthropic.api_key", referenceOnly(cfg.Anthropic.APIKey))
	v.Set("gateway.addr", cfg.Gateway.Addr)
	v.Set("gateway.jwt_secret", referenceOnly(cfg.Gateway.JWTSecret))
	v.Set("gateway.token_expiry", cfg.Gateway.TokenExpiry.String())
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("orchestrator.data_dir", d.Orchestrator.DataDir)
	v.SetDefault("orchestrator.worker_binary", d.Orchestrator.WorkerBinary)
	v.SetDefault("orchestrator.worker_args", d.Orchestrator.WorkerArgs)
	v.SetDefault("orchestrator.debug_log", d.Orchestrator.DebugLog)

	v.SetDefault("distribution.policy", d.Distribution.Policy)
	v.SetDefault("distribution.rules_file", d.Distribution.RulesFile)

	v.SetDefault("worker.provider", d.Worker.Provider)
	v.SetDefault("worker.model", d.Worker.Model)
	v.SetDefault("worker.max_tokens", d.Worker.MaxTokens)
	v.SetDefault("worker.aws_region", d.Worker.AWSRegion)
	v.SetDefault("worker.aws_profile", d.Worker.AWSProfile)
	v.SetDefault("worker.poll", d.Worker.Poll.String())

	v.SetDefault("anthropic.api_key", "")

	v.SetDefault("gateway.addr", d.Gateway.Addr)
	v.SetDefault("gateway.jwt_secret", "")
	v.SetDefault("gateway.token_expiry", d.Gateway.TokenExpiry.String())

	v.SetDefault("tui.refresh_rate", d.TUI.RefreshRate.String())
}

// bindEnv maps ORCBOT_SECTION_KEY variables plus the well-known secrets.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("orcbot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("gateway.jwt_secret", EnvJWTSecret)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.Gateway.JWTSecret = expandEnv(cfg.Gateway.JWTSecret)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getUserConfigDir returns the XDG config directory for orcbot.
func getUserConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "orcbot")
	}

	// Fall back to ~/.config/orcbot
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "orcbot")
	}
	return filepath.Join(home, ".config", "orcbot")
}

// findProjectConfig searches for .orcbot.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// expandHome replaces a leading ~/ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// referenceOnly keeps ${VAR} references and drops literal secrets.
func referenceOnly(s string) string {
	if strings.HasPrefix(s, "${") {
		return s
	}
	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			WorkerBinary: "orcbot-worker",
			WorkerArgs:   []string{},
		},
		Distribution: DistributionConfig{
			Policy: string(policy.ModeCapability),
		},
		Worker: WorkerConfig{
			Provider:  ProviderAnthropic,
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 4096,
			AWSRegion: "us-east-1",
			Poll:      2 * time.Second,
		},
		Gateway: GatewayConfig{
			Addr:        "127.0.0.1:7420",
			TokenExpiry: 24 * time.Hour,
		},
		TUI: TUIConfig{
			RefreshRate: time.Second,
		},
	}
}

// PolicyConfig builds the orchestrator policy from configuration.
func (c *Config) PolicyConfig() *policy.Config {
	p := policy.Default()
	if mode, err := policy.ParseMode(c.Distribution.Policy); err == nil {
		p.Distribution.Mode = mode
	}
	if c.Worker.Poll > 0 {
		p.Inbox.PollInterval = c.Worker.Poll
	}
	return p
}
