package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/orcbot/pkg/models"
)

var delegatePriority int

var delegateCmd = &cobra.Command{
	Use:   "delegate <agent> <description...>",
	Short: "Hand a task to a specific agent",
	Long: `Create a task assigned to one agent and post it to the agent's inbox.

The agent may be named by ID, unique ID prefix, or name. Delegation does
not require the worker to be running; the task waits in the inbox.`,
	Args: cobra.MinimumNArgs(2),
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
		t, err := f.DelegateTask(id, strings.Join(args[1:], " "), delegatePriority)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagJSON {
			return printJSON(out, t)
		}
		printStatus(out, "✓", fmt.Sprintf("Task %s queued for %s (priority %d)", t.ID, id, t.Priority), color.FgGreen)
		return nil
	},
}

var distributeFile string

var distributeCmd = &cobra.Command{
	Use:   "distribute [description...]",
	Short: "Spread a list of tasks across the fleet",
	Long: `Assign each description to an agent using the configured policy.

Descriptions come from the arguments, or one per line from --file, or from
stdin when neither is given. Blank lines and lines starting with # are
skipped. Tasks no agent can take stay queued without an assignee.

Examples:
  orcbot distribute "write the parser" "review the docs"
  orcbot distribute --file backlog.txt
  grep TODO notes.md | orcbot distribute`,
	RunE: func(cmd *cobra.Command, args []string) error {
		descriptions := args
		if len(descriptions) == 0 {
			var r io.Reader = cmd.InOrStdin()
			if distributeFile != "" {
				file, err := os.Open(distributeFile)
				if err != nil {
					return err
				}
				defer file.Close()
				r = file
			}
			lines, err := readDescriptions(r)
			if err != nil {
				return err
			}
			descriptions = lines
		}
		if len(descriptions) == 0 {
			return fmt.Errorf("no task descriptions given")
		}

		f, err := openFleet(cfg)
		if err != nil {
			return err
		}
		defer f.Close()

		tasks, err := f.DistributeTaskList(descriptions)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagJSON {
			return printJSON(out, tasks)
		}
		assigned := 0
		for _, t := range tasks {
			if t.Assigned() {
				assigned++
				printStatus(out, "→", fmt.Sprintf("%s  %s  %s", shortID(t.ID), shortID(t.AssignedAgentID), truncate(t.Description, 60)), color.FgGreen)
				continue
			}
			printStatus(out, "⚠", fmt.Sprintf("%s  unassigned  %s  (needs %s)", shortID(t.ID), truncate(t.Description, 60), strings.Join(t.Requirements, ", ")), color.FgYellow)
		}
		fmt.Fprintf(out, "\n%d of %d tasks assigned (policy %s)\n", assigned, len(tasks), f.Policy().Distribution.Mode)
		return nil
	},
}

var tasksStatus string

var tasksCmd = &cobra.Command{
	Use:   "tasks [task-id]",
	Short: "List tasks or show one task",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openFleet(cfg)
		if err != nil {
			return err
		}
		defer f.Close()

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			t, err := f.GetTask(args[0])
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(out, t)
			}
			printTask(out, t)
			return nil
		}

		var filter *models.TaskStatus
		if tasksStatus != "" {
			s := models.TaskStatus(tasksStatus)
			if !s.Valid() {
				return fmt.Errorf("invalid status %q (queued, in-progress, completed, failed)", tasksStatus)
			}
			filter = &s
		}
		tasks := f.ListTasks(filter)
		if flagJSON {
			if tasks == nil {
				tasks = []*models.Task{}
			}
			return printJSON(out, tasks)
		}
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks.")
			return nil
		}
		fmt.Fprintf(out, "%-10s %-11s %3s %-10s  %s\n", "ID", "STATUS", "PRI", "AGENT", "DESCRIPTION")
		for _, t := range tasks {
			fmt.Fprintf(out, "%-10s %s %3d %-10s  %s\n",
				shortID(t.ID), taskStatusColor(t.Status), t.Priority, orDash(shortID(t.AssignedAgentID)), truncate(t.Description, 60))
		}
		return nil
	},
}

var purgeOlderThan time.Duration

var tasksPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete completed and failed tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openFleet(cfg)
		if err != nil {
			return err
		}
		defer f.Close()

		n, err := f.db.PurgeFinishedTasks(purgeOlderThan)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if flagJSON {
			return printJSON(out, map[string]int64{"purged": n})
		}
		printStatus(out, "✓", fmt.Sprintf("Purged %d finished tasks", n), color.FgGreen)
		return nil
	},
}

func printTask(w io.Writer, t *models.Task) {
	bold := color.New(color.Bold)
	fmt.Fprintf(w, "%s %s\n", bold.Sprint("Task:       "), t.ID)
	fmt.Fprintf(w, "%s %s\n", bold.Sprint("Status:     "), taskStatusColor(t.Status))
	fmt.Fprintf(w, "%s %d\n", bold.Sprint("Priority:   "), t.Priority)
	fmt.Fprintf(w, "%s %s\n", bold.Sprint("Agent:      "), orDash(t.AssignedAgentID))
	if len(t.Requirements) > 0 {
		fmt.Fprintf(w, "%s %s\n", bold.Sprint("Requires:   "), strings.Join(t.Requirements, ", "))
	}
	fmt.Fprintf(w, "%s %s\n", bold.Sprint("Created:    "), t.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "%s %s\n", bold.Sprint("Updated:    "), t.UpdatedAt.Local().Format(time.DateTime))
	if t.Error != "" {
		fmt.Fprintf(w, "%s %s\n", bold.Sprint("Error:      "), color.RedString(t.Error))
	}
	fmt.Fprintf(w, "\n%s\n", t.Description)
}

// readDescriptions returns the trimmed non-blank lines of r, skipping
// lines that start with #.
func readDescriptions(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

func init() {
	delegateCmd.Flags().IntVarP(&delegatePriority, "priority", "p", models.DefaultPriority, "Priority from 1 (low) to 10 (high)")
	distributeCmd.Flags().StringVarP(&distributeFile, "file", "f", "", "Read descriptions from a file, one per line")
	tasksCmd.Flags().StringVar(&tasksStatus, "status", "", "Only list tasks with this status")
	tasksPurgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 7*24*time.Hour, "Only purge tasks finished before this age")
	tasksCmd.AddCommand(tasksPurgeCmd)
}
