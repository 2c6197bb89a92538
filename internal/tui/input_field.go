package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// BroadcastSubmittedMsg is sent when the user submits a broadcast.
type BroadcastSubmittedMsg struct {
	Message string
}

// InputField is the broadcast prompt.
type InputField struct {
	input textinput.Model
	width int
}

// NewInputField creates a new, unfocused InputField.
func NewInputField() *InputField {
	ti := textinput.New()
	ti.Placeholder = "Message every agent and press Enter..."
	ti.CharLimit = 500
	ti.Width = 60

	return &InputField{
		input: ti,
		width: 80,
	}
}

// SetWidth sets the width of the input field.
func (f *InputField) SetWidth(width int) {
	f.width = width
	f.input.Width = width - 6 // prompt, border and padding
}

// Update handles messages for the input field.
func (f *InputField) Update(msg tea.Msg) (*InputField, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		text := strings.TrimSpace(f.input.Value())
		if text == "" {
			return f, nil
		}
		f.input.Reset()
		return f, func() tea.Msg {
			return BroadcastSubmittedMsg{Message: text}
		}
	}

	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

// View renders the input field.
func (f *InputField) View() string {
	promptStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Width(f.width - 2)

	return boxStyle.Render(promptStyle.Render("broadcast> ") + f.input.View())
}

// Focus sets focus on the input field.
func (f *InputField) Focus() tea.Cmd {
	return f.input.Focus()
}

// Blur removes focus and clears the input.
func (f *InputField) Blur() {
	f.input.Reset()
	f.input.Blur()
}

// Focused reports whether the field has focus.
func (f *InputField) Focused() bool {
	return f.input.Focused()
}

// Value returns the current text.
func (f *InputField) Value() string {
	return f.input.Value()
}
