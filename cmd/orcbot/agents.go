package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/orcbot/pkg/models"
)

var (
	spawnRole         string
	spawnCapabilities []string
	spawnStart        bool
)

var spawnCmd = &cobra.Command{
	Use:   "spawn <name>",
	Short: "Register a new agent",
	Long: `Register a new agent with a display name and optional capabilities.

The agent starts in the stopped state. Use --start to launch its worker
right away, or run 'orcbot start <agent>' later.

Examples:
  orcbot spawn alice --capabilities code,research
  orcbot spawn scraper -c browser --start`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openFleet(cfg)
		if err != nil {
			return err
		}
		defer f.Close()

		a, err := f.SpawnAgent(models.AgentSpec{
			Name:         strings.Join(args, " "),
			Role:         spawnRole,
			Capabilities: spawnCapabilities,
		})
		if err != nil {
			return err
		}
		if spawnStart {
			if _, err := f.StartWorkerProcess(a.ID); err != nil {
				return fmt.Errorf("agent %s registered but worker failed to start: %w", a.ID, err)
			}
			if a, err = f.GetAgent(a.ID); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if flagJSON {
			return printJSON(out, a)
		}
		printStatus(out, "✓", fmt.Sprintf("Spawned %s (%s)", color.New(color.Bold).Sprint(a.Name), a.ID), color.FgGreen)
		if len(a.Capabilities) > 0 {
			fmt.Fprintf(out, "  capabilities: %s\n", strings.Join(a.Capabilities, ", "))
		}
		fmt.Fprintf(out, "  directory:    %s\n", a.WorkDir)
		if a.PID > 0 {
			fmt.Fprintf(out, "  worker pid:   %d\n", a.PID)
		}
		return nil
	},
}

var agentsCmd = &cobra.Command{
	Use:     "agents",
	Aliases: []string{"ls"},
	Short:   "List registered agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openFleet(cfg)
		if err != nil {
			return err
		}
		defer f.Close()

		agents := f.ListAgents()
		out := cmd.OutOrStdout()
		if flagJSON {
			if agents == nil {
				agents = []*models.Agent{}
			}
			return printJSON(out, agents)
		}
		if len(agents) == 0 {
			fmt.Fprintln(out, "No agents. Run 'orcbot spawn <name>' to register one.")
			return nil
		}

		fmt.Fprintf(out, "%-10s %-16s %-8s %7s %6s  %s\n", "ID", "NAME", "STATUS", "PID", "TASKS", "CAPABILITIES")
		for _, a := range agents {
			pid := "-"
			if a.PID > 0 {
				pid = fmt.Sprintf("%d", a.PID)
			}
			fmt.Fprintf(out, "%-10s %-16s %s %7s %6d  %s\n",
				shortID(a.ID), truncate(a.Name, 16), statusColor(a.Status), pid, a.ActiveTasks,
				orDash(strings.Join(a.Capabilities, ",")))
		}
		return nil
	},
}

var terminateCmd = &cobra.Command{
	Use:   "terminate <agent>",
	Short: "Stop an agent's worker, fail its open tasks and remove it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openFleet(cfg)
		if err != nil {
			return err
		}
		defer f.Close()

		id, err := resolveAgent(f, args[0])
		if err != nil {
			return err
		}
		open := 0
		if a, err := f.GetAgent(id); err == nil {
			open = a.ActiveTasks
		}

		ok, err := f.TerminateAgent(id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if flagJSON {
			return printJSON(out, map[string]any{"agent_id": id, "terminated": ok})
		}
		if !ok {
			printStatus(out, "⚠", fmt.Sprintf("Agent %s was already removed", id), color.FgYellow)
			return nil
		}
		printStatus(out, "✓", fmt.Sprintf("Terminated %s (%d open tasks failed)", id, open), color.FgGreen)
		return nil
	},
}

func init() {
	spawnCmd.Flags().StringVar(&spawnRole, "role", "", "Free-form role tag (default \"worker\")")
	spawnCmd.Flags().StringSliceVarP(&spawnCapabilities, "capabilities", "c", nil, "Capability tags, comma-separated")
	spawnCmd.Flags().BoolVar(&spawnStart, "start", false, "Start the worker after registering")
}
