package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/orcbot/internal/config"
	"github.com/ShayCichocki/orcbot/internal/version"
)

var (
	flagDataDir string
	flagJSON    bool

	// cfg is loaded before every command runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "orcbot",
	Short: "Multi-agent orchestrator",
	Long: `orcbot coordinates a fleet of worker agents on one machine.

Each agent is a logical identity with capabilities and its own directory.
orcbot starts and stops one worker process per agent, hands out tasks by
capability or round robin, broadcasts messages to every inbox, and rolls up
the token usage each worker records.

State lives in a SQLite database under the data directory, so separate
invocations of orcbot share one fleet.`,
	Version:       version.Get(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if flagDataDir != "" {
			loaded.Orchestrator.DataDir = flagDataDir
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorMark(), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory (default $XDG_DATA_HOME/orcbot)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print machine-readable JSON")

	rootCmd.AddCommand(spawnCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(terminateCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(delegateCmd)
	rootCmd.AddCommand(distributeCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(broadcastCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
