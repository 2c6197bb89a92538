package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/orcbot/internal/orchestrator"
	"github.com/ShayCichocki/orcbot/pkg/models"
)

// dashboardSender is the From field for broadcasts typed into the prompt.
const dashboardSender = "dashboard"

// Source is the orchestrator surface the dashboard reads.
type Source interface {
	GetStatus() models.FleetStatus
	GetDetailedWorkerStatus() []models.WorkerDetail
	GetAggregateWorkerTokenUsage() []models.TokenUsageRecord
	Broadcast(senderID, message string) int
}

// Snapshot is one refresh of the fleet.
type Snapshot struct {
	Status  models.FleetStatus
	Workers []models.WorkerDetail
	Usage   []models.TokenUsageRecord
	TakenAt time.Time
}

// SnapshotMsg delivers a refreshed Snapshot.
type SnapshotMsg Snapshot

// EventMsg delivers one orchestrator event.
type EventMsg orchestrator.OrchestratorEvent

// BroadcastSentMsg reports how many inboxes accepted a broadcast.
type BroadcastSentMsg struct {
	Message   string
	Delivered int
}

type tickMsg time.Time

type eventsClosedMsg struct{}

// Dashboard is the root bubbletea model.
type Dashboard struct {
	source  Source
	events  <-chan orchestrator.OrchestratorEvent
	refresh time.Duration

	header   *Header
	workers  *WorkersPanel
	activity *ActivityLog
	input    *InputField
	footer   *Footer

	snapshot Snapshot
	width    int
	height   int
}

// NewDashboard creates a dashboard. events may be nil.
func NewDashboard(source Source, events <-chan orchestrator.OrchestratorEvent, refresh time.Duration) *Dashboard {
	if refresh <= 0 {
		refresh = time.Second
	}
	return &Dashboard{
		source:   source,
		events:   events,
		refresh:  refresh,
		header:   NewHeader(),
		workers:  NewWorkersPanel(),
		activity: NewActivityLog(),
		input:    NewInputField(),
		footer:   NewFooter(),
		width:    80,
		height:   24,
	}
}

// NewProgram wraps a Dashboard in a full-screen program.
func NewProgram(source Source, events <-chan orchestrator.OrchestratorEvent, refresh time.Duration) *tea.Program {
	return tea.NewProgram(NewDashboard(source, events, refresh), tea.WithAltScreen())
}

// Init starts the first fetch, the refresh ticker and the event listener.
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.fetch(), d.tick(), d.waitForEvent())
}

// Update handles messages.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.resize(msg.Width, msg.Height)
		return d, nil

	case tickMsg:
		return d, tea.Batch(d.fetch(), d.tick())

	case SnapshotMsg:
		d.snapshot = Snapshot(msg)
		d.header.SetStatus(msg.Status)
		d.workers.SetData(msg.Workers, msg.Usage)
		return d, nil

	case EventMsg:
		d.activity.Add(orchestrator.OrchestratorEvent(msg))
		return d, tea.Batch(d.fetch(), d.waitForEvent())

	case eventsClosedMsg:
		d.events = nil
		return d, nil

	case BroadcastSubmittedMsg:
		d.input.Blur()
		d.footer.SetEditing(false)
		return d, d.broadcast(msg.Message)

	case BroadcastSentMsg:
		d.footer.SetMessage(fmt.Sprintf("broadcast delivered to %d agents", msg.Delivered), msg.Delivered > 0)
		return d, nil

	case tea.KeyMsg:
		return d.handleKey(msg)
	}

	if d.input.Focused() {
		var cmd tea.Cmd
		d.input, cmd = d.input.Update(msg)
		return d, cmd
	}
	return d, nil
}

func (d *Dashboard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return d, tea.Quit
	}

	if d.input.Focused() {
		if msg.Type == tea.KeyEsc {
			d.input.Blur()
			d.footer.SetEditing(false)
			return d, nil
		}
		var cmd tea.Cmd
		d.input, cmd = d.input.Update(msg)
		return d, cmd
	}

	switch msg.String() {
	case "q":
		return d, tea.Quit
	case "r":
		return d, d.fetch()
	case "b":
		d.footer.SetEditing(true)
		d.footer.SetMessage("", true)
		return d, d.input.Focus()
	}
	return d, nil
}

// View renders the dashboard.
func (d *Dashboard) View() string {
	sections := []string{
		d.header.View(),
		d.workers.View(),
		"",
		d.activity.View(),
	}
	if d.input.Focused() {
		sections = append(sections, d.input.View())
	}
	sections = append(sections, d.footer.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Snapshot returns the most recent fleet snapshot.
func (d *Dashboard) Snapshot() Snapshot {
	return d.snapshot
}

func (d *Dashboard) resize(width, height int) {
	d.width, d.height = width, height
	d.header.SetWidth(width)
	d.workers.SetWidth(width)
	d.input.SetWidth(width)
	d.footer.SetWidth(width)

	// Header, worker rows and their title/heading, blank line, activity
	// title, prompt and footer.
	used := d.header.Height() + len(d.snapshot.Workers) + 2 + 1 + 1 + 3 + 1
	d.activity.SetHeight(height - used)
}

func (d *Dashboard) fetch() tea.Cmd {
	src := d.source
	return func() tea.Msg {
		return SnapshotMsg{
			Status:  src.GetStatus(),
			Workers: src.GetDetailedWorkerStatus(),
			Usage:   src.GetAggregateWorkerTokenUsage(),
			TakenAt: time.Now(),
		}
	}
}

func (d *Dashboard) tick() tea.Cmd {
	return tea.Tick(d.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (d *Dashboard) waitForEvent() tea.Cmd {
	events := d.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return EventMsg(ev)
	}
}

func (d *Dashboard) broadcast(message string) tea.Cmd {
	src := d.source
	message = strings.TrimSpace(message)
	return func() tea.Msg {
		return BroadcastSentMsg{Message: message, Delivered: src.Broadcast(dashboardSender, message)}
	}
}
