package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/orcbot/internal/config"
	"github.com/ShayCichocki/orcbot/internal/llm"
	"github.com/ShayCichocki/orcbot/internal/version"
	"github.com/ShayCichocki/orcbot/internal/worker"
)

var (
	flagAgentID      string
	flagDir          string
	flagName         string
	flagCapabilities string
	flagProvider     string
	flagModel        string
)

var rootCmd = &cobra.Command{
	Use:   "orcbot-worker",
	Short: "Reference worker for orcbot agents",
	Long: `orcbot-worker serves one agent. It reads tasks and broadcasts from the
agent's inbox.jsonl, runs each task through the configured LLM provider, and
reports through progress.json, progress.jsonl, usage.jsonl and memory.md in the agent directory.

It exits cleanly on SIGTERM or SIGINT.`,
	Version:       version.Get(),
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runWorker,
}

func init() {
	rootCmd.Flags().StringVar(&flagAgentID, "agent-id", os.Getenv("ORCBOT_AGENT_ID"), "Agent ID")
	rootCmd.Flags().StringVar(&flagDir, "dir", os.Getenv("ORCBOT_AGENT_DIR"), "Agent directory")
	rootCmd.Flags().StringVar(&flagName, "name", "", "Agent display name")
	rootCmd.Flags().StringVar(&flagCapabilities, "capabilities", "", "Comma-separated capability tags")
	rootCmd.Flags().StringVar(&flagProvider, "provider", "", "LLM provider override (anthropic, bedrock, dry)")
	rootCmd.Flags().StringVar(&flagModel, "model", "", "Model override")
}

func runWorker(cmd *cobra.Command, args []string) error {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagProvider != "" {
		cfg.Worker.Provider = flagProvider
	}
	if flagModel != "" {
		cfg.Worker.Model = flagModel
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	w, err := worker.New(worker.Config{
		AgentID:      flagAgentID,
		Name:         flagName,
		Dir:          flagDir,
		Capabilities: splitCapabilities(flagCapabilities),
		Provider:     provider,
		Poll:         cfg.Worker.Poll,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()
	return w.Run(ctx)
}

// newProvider builds the configured provider. A missing API key degrades to
// the dry provider so a fleet can be exercised offline.
func newProvider(cfg *config.Config) (llm.Provider, error) {
	lc := llm.Config{
		Provider:   cfg.Worker.Provider,
		Model:      cfg.Worker.Model,
		MaxTokens:  cfg.Worker.MaxTokens,
		AWSRegion:  cfg.Worker.AWSRegion,
		AWSProfile: cfg.Worker.AWSProfile,
	}
	if lc.Provider == llm.ProviderAnthropic {
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			log.Printf("[worker] warning: %v; falling back to dry provider", err)
			lc.Provider = llm.ProviderDry
		}
		lc.APIKey = key
	}
	p, err := llm.New(lc)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	return p, nil
}

func splitCapabilities(s string) []string {
	var caps []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			caps = append(caps, c)
		}
	}
	return caps
}
