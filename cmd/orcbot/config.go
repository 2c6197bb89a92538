package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/orcbot/internal/config"
	"github.com/ShayCichocki/orcbot/internal/orchestrator/policy"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify orcbot configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/orcbot/config.yaml
Project-specific overrides can be placed in .orcbot.yaml

Secrets are only saved as ${VAR} references; set them through
ANTHROPIC_API_KEY and ORCBOT_JWT_SECRET instead.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			displayAllConfig(out, cfg)
			return nil
		case 1:
			value, err := getConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, value)
			return nil
		default:
			// Reload so the --data-dir override is not persisted.
			saved, err := config.Load()
			if err != nil {
				return err
			}
			if err := setConfigValue(saved, args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(saved); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			printStatus(out, "✓", fmt.Sprintf("Set %s in %s", strings.ToLower(args[0]), config.GetUserConfigPath()), color.FgGreen)
			return nil
		}
	},
}

// configKeys lists every key accepted by get and set, in display order.
var configKeys = []string{
	"orchestrator.data_dir",
	"orchestrator.worker_binary",
	"orchestrator.worker_args",
	"orchestrator.debug_log",
	"distribution.policy",
	"distribution.rules_file",
	"worker.provider",
	"worker.model",
	"worker.max_tokens",
	"worker.aws_region",
	"worker.aws_profile",
	"worker.poll",
	"anthropic.api_key",
	"gateway.addr",
	"gateway.jwt_secret",
	"gateway.token_expiry",
	"tui.refresh_rate",
}

// displayAllConfig prints all configuration values.
func displayAllConfig(w io.Writer, cfg *config.Config) {
	for _, key := range configKeys {
		value, _ := getConfigValue(cfg, key)
		fmt.Fprintf(w, "%s: %s\n", key, value)
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "orchestrator.data_dir":
		return cfg.DataDir(), nil
	case "orchestrator.worker_binary":
		return cfg.Orchestrator.WorkerBinary, nil
	case "orchestrator.worker_args":
		return strings.Join(cfg.Orchestrator.WorkerArgs, ","), nil
	case "orchestrator.debug_log":
		return strconv.FormatBool(cfg.Orchestrator.DebugLog), nil
	case "distribution.policy":
		return cfg.Distribution.Policy, nil
	case "distribution.rules_file":
		return cfg.Distribution.RulesFile, nil
	case "worker.provider":
		return cfg.Worker.Provider, nil
	case "worker.model":
		return cfg.Worker.Model, nil
	case "worker.max_tokens":
		return strconv.FormatInt(cfg.Worker.MaxTokens, 10), nil
	case "worker.aws_region":
		return cfg.Worker.AWSRegion, nil
	case "worker.aws_profile":
		return cfg.Worker.AWSProfile, nil
	case "worker.poll":
		return cfg.Worker.Poll.String(), nil
	case "anthropic.api_key":
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return "(not set)", nil
		}
		return fmt.Sprintf("%s (%s)", config.MaskSecret(key), config.GetAPIKeySource(cfg)), nil
	case "gateway.addr":
		return cfg.Gateway.Addr, nil
	case "gateway.jwt_secret":
		secret, err := config.GetJWTSecret(cfg)
		if err != nil {
			return "(not set)", nil
		}
		return config.MaskSecret(string(secret)), nil
	case "gateway.token_expiry":
		return cfg.Gateway.TokenExpiry.String(), nil
	case "tui.refresh_rate":
		return cfg.TUI.RefreshRate.String(), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "orchestrator.data_dir":
		cfg.Orchestrator.DataDir = value
	case "orchestrator.worker_binary":
		if value == "" {
			return fmt.Errorf("worker_binary cannot be empty")
		}
		cfg.Orchestrator.WorkerBinary = value
	case "orchestrator.worker_args":
		cfg.Orchestrator.WorkerArgs = splitList(value)
	case "orchestrator.debug_log":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for debug_log: %w", err)
		}
		cfg.Orchestrator.DebugLog = b
	case "distribution.policy":
		if _, err := policy.ParseMode(value); err != nil {
			return err
		}
		cfg.Distribution.Policy = value
	case "distribution.rules_file":
		cfg.Distribution.RulesFile = value
	case "worker.provider":
		switch value {
		case config.ProviderAnthropic, config.ProviderBedrock, config.ProviderDry:
		default:
			return fmt.Errorf("unknown provider %q", value)
		}
		cfg.Worker.Provider = value
	case "worker.model":
		cfg.Worker.Model = value
	case "worker.max_tokens":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid value for max_tokens: %q", value)
		}
		cfg.Worker.MaxTokens = n
	case "worker.aws_region":
		cfg.Worker.AWSRegion = value
	case "worker.aws_profile":
		cfg.Worker.AWSProfile = value
	case "worker.poll":
		return setDuration(&cfg.Worker.Poll, "worker.poll", value)
	case "anthropic.api_key":
		if err := requireReference("anthropic.api_key", value); err != nil {
			return err
		}
		cfg.Anthropic.APIKey = value
	case "gateway.addr":
		cfg.Gateway.Addr = value
	case "gateway.jwt_secret":
		if err := requireReference("gateway.jwt_secret", value); err != nil {
			return err
		}
		cfg.Gateway.JWTSecret = value
	case "gateway.token_expiry":
		return setDuration(&cfg.Gateway.TokenExpiry, "gateway.token_expiry", value)
	case "tui.refresh_rate":
		return setDuration(&cfg.TUI.RefreshRate, "tui.refresh_rate", value)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func setDuration(dst *time.Duration, key, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", key)
	}
	*dst = d
	return nil
}

// requireReference rejects literal secrets, which Save would drop.
func requireReference(key, value string) error {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		return nil
	}
	return fmt.Errorf("%s must be a ${VAR} reference; literal secrets are not written to disk", key)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
