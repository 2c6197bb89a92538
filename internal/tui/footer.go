package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Footer renders the status message and keyboard hints.
type Footer struct {
	message string
	success bool
	width   int
	editing bool

	successStyle lipgloss.Style
	errorStyle   lipgloss.Style
	hintStyle    lipgloss.Style
}

// NewFooter creates a new Footer instance.
func NewFooter() *Footer {
	return &Footer{
		successStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")).
			Bold(true),
		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		hintStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// SetMessage sets the status message.
func (f *Footer) SetMessage(message string, success bool) {
	f.message = message
	f.success = success
}

// SetEditing switches the hints between browse and prompt modes.
func (f *Footer) SetEditing(editing bool) {
	f.editing = editing
}

// SetWidth sets the footer width.
func (f *Footer) SetWidth(width int) {
	f.width = width
}

// View renders the footer.
func (f *Footer) View() string {
	hints := "b broadcast  r refresh  q quit"
	if f.editing {
		hints = "enter send  esc cancel"
	}

	left := ""
	if f.message != "" {
		style := f.successStyle
		if !f.success {
			style = f.errorStyle
		}
		left = style.Render(f.message) + "  "
	}
	return lipgloss.NewStyle().Width(f.width).Render(left + f.hintStyle.Render(hints))
}
