package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/orcbot/pkg/models"
)

// WorkersPanel lists every agent with its worker state and token usage.
type WorkersPanel struct {
	workers []models.WorkerDetail
	usage   map[string]models.TokenUsageRecord
	width   int

	titleStyle   lipgloss.Style
	headStyle    lipgloss.Style
	emptyStyle   lipgloss.Style
	statusStyles map[models.AgentStatus]lipgloss.Style
}

// NewWorkersPanel creates a new WorkersPanel.
func NewWorkersPanel() *WorkersPanel {
	return &WorkersPanel{
		usage: make(map[string]models.TokenUsageRecord),
		width: 80,
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1),
		headStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		emptyStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),
		statusStyles: map[models.AgentStatus]lipgloss.Style{
			models.AgentStatusWorking: lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
			models.AgentStatusIdle:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
			models.AgentStatusStopped: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		},
	}
}

// SetData replaces the panel contents.
func (p *WorkersPanel) SetData(workers []models.WorkerDetail, usage []models.TokenUsageRecord) {
	p.workers = workers
	p.usage = make(map[string]models.TokenUsageRecord, len(usage))
	for _, u := range usage {
		p.usage[u.AgentID] = u
	}
}

// SetWidth sets the panel width.
func (p *WorkersPanel) SetWidth(width int) {
	p.width = width
}

// View renders the panel.
func (p *WorkersPanel) View() string {
	var b strings.Builder
	b.WriteString(p.titleStyle.Render("Workers"))
	b.WriteString("\n")

	if len(p.workers) == 0 {
		b.WriteString(p.emptyStyle.Render("  No agents. Spawn one with `orcbot spawn <name>`."))
		return b.String()
	}

	b.WriteString(p.headStyle.Render(fmt.Sprintf("  %-16s %-8s %7s %6s %9s %8s  %s",
		"NAME", "STATUS", "PID", "TASKS", "TOKENS", "COST", "CURRENT")))
	b.WriteString("\n")

	for _, w := range p.workers {
		pid := "-"
		if w.PID > 0 {
			pid = fmt.Sprintf("%d", w.PID)
		}
		u := p.usage[w.AgentID]
		current := w.CurrentTaskDescription
		if current == "" && !w.LastActiveAt.IsZero() {
			current = "active " + humanizeAge(time.Since(w.LastActiveAt)) + " ago"
		}
		room := p.width - 70
		if room < 10 {
			room = 10
		}
		current = truncate(current, room)

		status := p.statusStyles[w.Status].Render(fmt.Sprintf("%-8s", w.Status))
		fmt.Fprintf(&b, "  %-16s %s %7s %6d %9d %8s  %s\n",
			truncate(w.Name, 16), status, pid, w.ActiveTasks, u.TotalTokens,
			fmt.Sprintf("$%.2f", u.Cost), current)
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func humanizeAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}
