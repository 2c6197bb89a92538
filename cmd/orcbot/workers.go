package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/orcbot/pkg/models"
)

var startAll bool

var startCmd = &cobra.Command{
	Use:   "start [agent...]",
	Short: "Start worker processes",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openFleet(cfg)
		if err != nil {
			return err
		}
		defer f.Close()

		ids, err := agentArgs(f, args, startAll)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		results := make(map[string]bool, len(ids))
		var firstErr error
		for _, id := range ids {
			started, err := f.StartWorkerProcess(id)
			results[id] = started
			switch {
			case err != nil:
				printStatus(cmd.ErrOrStderr(), "✗", fmt.Sprintf("%s: %v", id, err), color.FgRed)
				if firstErr == nil {
					firstErr = err
				}
			case started:
				if !flagJSON {
					printStatus(out, "✓", fmt.Sprintf("Started worker for %s (pid %d)", id, f.workerPID(id)), color.FgGreen)
				}
			default:
				if !flagJSON {
					printStatus(out, "⚠", fmt.Sprintf("Worker for %s is already running", id), color.FgYellow)
				}
			}
		}
		if flagJSON {
			if err := printJSON(out, results); err != nil {
				return err
			}
		}
		return firstErr
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop [agent...]",
	Short: "Ask worker processes to exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openFleet(cfg)
		if err != nil {
			return err
		}
		defer f.Close()

		ids, err := agentArgs(f, args, startAll)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		results := make(map[string]bool, len(ids))
		for _, id := range ids {
			stopped, err := f.StopWorkerProcess(id)
			results[id] = stopped
			if flagJSON {
				continue
			}
			switch {
			case err != nil:
				printStatus(cmd.ErrOrStderr(), "✗", fmt.Sprintf("%s: %v", id, err), color.FgRed)
			case stopped:
				printStatus(out, "✓", fmt.Sprintf("Sent stop to worker for %s", id), color.FgGreen)
			default:
				printStatus(out, "⚠", fmt.Sprintf("No running worker for %s", id), color.FgYellow)
			}
		}
		if flagJSON {
			return printJSON(out, results)
		}
		return nil
	},
}

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "Show worker processes",
	Long: `Show one line per agent with its worker status, pid and current task.
Use --running to list only confirmed-live workers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openFleet(cfg)
		if err != nil {
			return err
		}
		defer f.Close()

		out := cmd.OutOrStdout()
		if workersRunningOnly {
			running := f.GetRunningWorkers()
			if flagJSON {
				if running == nil {
					running = []models.RunningWorker{}
				}
				return printJSON(out, running)
			}
			if len(running) == 0 {
				fmt.Fprintln(out, "No running workers.")
				return nil
			}
			for _, w := range running {
				fmt.Fprintf(out, "%-10s %-16s pid %d\n", shortID(w.AgentID), truncate(w.Name, 16), w.PID)
			}
			return nil
		}

		details := f.GetDetailedWorkerStatus()
		if flagJSON {
			return printJSON(out, details)
		}
		if len(details) == 0 {
			fmt.Fprintln(out, "No agents.")
			return nil
		}
		fmt.Fprintf(out, "%-10s %-16s %-8s %7s %6s %-10s  %s\n", "ID", "NAME", "STATUS", "PID", "TASKS", "ACTIVE", "CURRENT TASK")
		for _, d := range details {
			pid := "-"
			if d.PID > 0 {
				pid = fmt.Sprintf("%d", d.PID)
			}
			active := "-"
			if !d.LastActiveAt.IsZero() {
				active = time.Since(d.LastActiveAt).Round(time.Second).String()
			}
			current := "-"
			if d.CurrentTaskID != "" {
				current = fmt.Sprintf("%s %s", shortID(d.CurrentTaskID), truncate(d.CurrentTaskDescription, 40))
			}
			fmt.Fprintf(out, "%-10s %-16s %s %7s %6d %-10s  %s\n",
				shortID(d.AgentID), truncate(d.Name, 16), statusColor(d.Status), pid, d.ActiveTasks, active, current)
		}
		return nil
	},
}

var workersRunningOnly bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the fleet summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openFleet(cfg)
		if err != nil {
			return err
		}
		defer f.Close()

		st := f.GetStatus()
		registered := len(f.ListAgents())
		out := cmd.OutOrStdout()
		if flagJSON {
			return printJSON(out, st)
		}
		bold := color.New(color.Bold)
		fmt.Fprintf(out, "%s %s\n", bold.Sprint("Data dir:"), f.DataDir())
		fmt.Fprintf(out, "%s %d registered, %d active (%s idle, %s working)\n", bold.Sprint("Agents:  "),
			registered, st.ActiveAgents, color.CyanString("%d", st.IdleAgents), color.GreenString("%d", st.WorkingAgents))
		fmt.Fprintf(out, "%s %d pending, %s completed, %s failed\n", bold.Sprint("Tasks:   "),
			st.PendingTasks, color.GreenString("%d", st.CompletedTasks), color.RedString("%d", st.FailedTasks))
		return nil
	},
}

// workerPID returns the pid of the agent's live worker, or 0.
func (f *fleet) workerPID(agentID string) int {
	a, err := f.GetAgent(agentID)
	if err != nil {
		return 0
	}
	return a.PID
}

// agentArgs resolves agent references, or every agent when all is set.
func agentArgs(f *fleet, args []string, all bool) ([]string, error) {
	if all {
		var ids []string
		for _, a := range f.ListAgents() {
			ids = append(ids, a.ID)
		}
		return ids, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("name at least one agent or pass --all")
	}
	ids := make([]string, 0, len(args))
	for _, ref := range args {
		id, err := resolveAgent(f, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func init() {
	startCmd.Flags().BoolVar(&startAll, "all", false, "Apply to every agent")
	stopCmd.Flags().BoolVar(&startAll, "all", false, "Apply to every agent")
	workersCmd.Flags().BoolVar(&workersRunningOnly, "running", false, "List only confirmed-live workers")
}
