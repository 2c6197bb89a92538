package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var broadcastFrom string

var broadcastCmd = &cobra.Command{
	Use:   "broadcast <message...>",
	Short: "Post a message to every agent's inbox",
	Long: `Append a broadcast message to the inbox of every registered agent.

The sender, when given with --from, is resolved like any agent reference
and recorded on the message. Delivery does not depend on the worker running.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openFleet(cfg)
		if err != nil {
			return err
		}
		defer f.Close()

		sender := ""
		if broadcastFrom != "" {
			if sender, err = resolveAgent(f, broadcastFrom); err != nil {
				return err
			}
		}
		n := f.Broadcast(sender, strings.Join(args, " "))

		out := cmd.OutOrStdout()
		if flagJSON {
			return printJSON(out, map[string]int{"delivered": n})
		}
		if n == 0 {
			printStatus(out, "⚠", "No recipients", color.FgYellow)
			return nil
		}
		printStatus(out, "✓", fmt.Sprintf("Delivered to %d agents", n), color.FgGreen)
		return nil
	},
}

func init() {
	broadcastCmd.Flags().StringVar(&broadcastFrom, "from", "", "Sending agent recorded on the message")
}
