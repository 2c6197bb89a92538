package main

import (
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/orcbot/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live fleet dashboard",
	Long: `Open a terminal dashboard showing agents, workers, token usage and
orchestrator events as they happen.

Keys: r refresh, b broadcast, q quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openFleet(cfg)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := f.WatchProgress(); err != nil {
			return err
		}
		events, unsubscribe := f.Subscribe()
		defer unsubscribe()

		_, err = tui.NewProgram(f, events, cfg.TUI.RefreshRate).Run()
		return err
	},
}
