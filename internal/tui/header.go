package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/orcbot/pkg/models"
)

// Header renders the title bar with fleet counts.
type Header struct {
	width  int
	status models.FleetStatus

	titleStyle lipgloss.Style
	countStyle lipgloss.Style
	barStyle   lipgloss.Style
}

// NewHeader creates a new Header.
func NewHeader() *Header {
	return &Header{
		width: 80,
		titleStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")).
			Bold(true),
		countStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		barStyle: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")),
	}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// SetStatus updates the fleet counts.
func (h *Header) SetStatus(st models.FleetStatus) {
	h.status = st
}

// View renders the header.
func (h *Header) View() string {
	counts := fmt.Sprintf("active %d  idle %d  working %d  |  tasks pending %d  done %d  failed %d",
		h.status.ActiveAgents, h.status.IdleAgents, h.status.WorkingAgents,
		h.status.PendingTasks, h.status.CompletedTasks, h.status.FailedTasks)

	title := h.titleStyle.Render("orcbot")
	gap := h.width - lipgloss.Width(title) - lipgloss.Width(counts) - 2
	if gap < 1 {
		gap = 1
	}
	line := title + lipgloss.NewStyle().Width(gap).Render("") + h.countStyle.Render(counts)
	return h.barStyle.Width(h.width).Render(line)
}

// Height returns the header height in lines.
func (h *Header) Height() int {
	return 2
}
