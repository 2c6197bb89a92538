package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/ShayCichocki/orcbot/pkg/models"
)

// printStatus prints a status line with color
func printStatus(w io.Writer, symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}

func errorMark() string {
	return color.RedString("✗")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// statusColor colors an agent status for tables.
func statusColor(s models.AgentStatus) string {
	switch s {
	case models.AgentStatusWorking:
		return color.GreenString("%-8s", s)
	case models.AgentStatusIdle:
		return color.CyanString("%-8s", s)
	default:
		return color.HiBlackString("%-8s", s)
	}
}

// taskStatusColor colors a task status for tables.
func taskStatusColor(s models.TaskStatus) string {
	switch s {
	case models.TaskStatusCompleted:
		return color.GreenString("%-11s", s)
	case models.TaskStatusFailed:
		return color.RedString("%-11s", s)
	case models.TaskStatusInProgress:
		return color.YellowString("%-11s", s)
	default:
		return fmt.Sprintf("%-11s", s)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
