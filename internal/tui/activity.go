package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/orcbot/internal/orchestrator"
)

const maxActivity = 200

// ActivityLog shows the most recent orchestrator events.
type ActivityLog struct {
	lines  []string
	height int

	titleStyle lipgloss.Style
	timeStyle  lipgloss.Style
	emptyStyle lipgloss.Style
}

// NewActivityLog creates a new ActivityLog.
func NewActivityLog() *ActivityLog {
	return &ActivityLog{
		height: 8,
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1),
		timeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		emptyStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),
	}
}

// SetHeight sets how many lines are shown.
func (l *ActivityLog) SetHeight(h int) {
	if h < 1 {
		h = 1
	}
	l.height = h
}

// Add records an event.
func (l *ActivityLog) Add(ev orchestrator.OrchestratorEvent) {
	line := l.timeStyle.Render(ev.Timestamp.Format("15:04:05")) + " " + describeEvent(ev)
	l.lines = append(l.lines, line)
	if len(l.lines) > maxActivity {
		l.lines = l.lines[len(l.lines)-maxActivity:]
	}
}

// Len returns the number of recorded lines.
func (l *ActivityLog) Len() int {
	return len(l.lines)
}

// View renders the newest lines.
func (l *ActivityLog) View() string {
	var b strings.Builder
	b.WriteString(l.titleStyle.Render("Activity"))
	b.WriteString("\n")
	if len(l.lines) == 0 {
		b.WriteString(l.emptyStyle.Render("  Waiting for events..."))
		return b.String()
	}
	start := len(l.lines) - l.height
	if start < 0 {
		start = 0
	}
	b.WriteString(strings.Join(l.lines[start:], "\n"))
	return b.String()
}

func describeEvent(ev orchestrator.OrchestratorEvent) string {
	who := ev.AgentName
	if who == "" {
		who = shortID(ev.AgentID)
	}
	switch ev.Type {
	case orchestrator.EventAgentSpawned:
		return fmt.Sprintf("spawned %s", who)
	case orchestrator.EventAgentTerminated:
		return fmt.Sprintf("terminated %s", who)
	case orchestrator.EventWorkerStarted:
		return fmt.Sprintf("worker for %s started (pid %d)", who, ev.PID)
	case orchestrator.EventWorkerStopped:
		return fmt.Sprintf("worker for %s stopped", who)
	case orchestrator.EventWorkerCrashed:
		return fmt.Sprintf("worker for %s exited unexpectedly (pid %d)", who, ev.PID)
	case orchestrator.EventTaskCreated:
		return fmt.Sprintf("task %s queued for %s", shortID(ev.TaskID), nonEmpty(who, "nobody"))
	case orchestrator.EventTaskUpdated:
		return fmt.Sprintf("task %s is %s", shortID(ev.TaskID), ev.TaskStatus)
	case orchestrator.EventBroadcast:
		return fmt.Sprintf("broadcast: %s", ev.Message)
	default:
		return string(ev.Type)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
