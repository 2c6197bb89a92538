package tui

import (
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/orcbot/internal/orchestrator"
	"github.com/ShayCichocki/orcbot/pkg/models"
)

type fakeSource struct {
	mu         sync.Mutex
	status     models.FleetStatus
	workers    []models.WorkerDetail
	usage      []models.TokenUsageRecord
	broadcasts []string
}

func (f *fakeSource) GetStatus() models.FleetStatus { return f.status }
func (f *fakeSource) GetDetailedWorkerStatus() []models.WorkerDetail {
	return f.workers
}
func (f *fakeSource) GetAggregateWorkerTokenUsage() []models.TokenUsageRecord {
	return f.usage
}
func (f *fakeSource) Broadcast(senderID, message string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, senderID+":"+message)
	return len(f.workers)
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		status: models.FleetStatus{ActiveAgents: 2, IdleAgents: 1, WorkingAgents: 1, PendingTasks: 3},
		workers: []models.WorkerDetail{
			{AgentID: "a1", Name: "alice", Status: models.AgentStatusWorking, PID: 4242, ActiveTasks: 2, CurrentTaskDescription: "write tests"},
			{AgentID: "b2", Name: "bob", Status: models.AgentStatusStopped},
		},
		usage: []models.TokenUsageRecord{{AgentID: "a1", Name: "alice", TotalTokens: 1234, Cost: 0.5}},
	}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd and feeds the resulting message back into d.
func run(t *testing.T, d *Dashboard, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	d.Update(msg)
	return msg
}

func TestDashboard_SnapshotRendering(t *testing.T) {
	src := newFakeSource()
	d := NewDashboard(src, nil, time.Second)
	d.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	run(t, d, d.fetch())

	if d.Snapshot().Status.ActiveAgents != 2 {
		t.Errorf("snapshot status = %+v", d.Snapshot().Status)
	}

	view := d.View()
	for _, want := range []string{"orcbot", "active 2", "alice", "bob", "4242", "write tests", "1234", "$0.50"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestDashboard_EmptyFleet(t *testing.T) {
	d := NewDashboard(&fakeSource{}, nil, time.Second)
	run(t, d, d.fetch())

	if view := d.View(); !strings.Contains(view, "No agents") {
		t.Errorf("empty view should hint at spawning:\n%s", view)
	}
}

func TestDashboard_BroadcastPrompt(t *testing.T) {
	src := newFakeSource()
	d := NewDashboard(src, nil, time.Second)
	run(t, d, d.fetch())

	d.Update(keyRunes("b"))
	if !d.input.Focused() {
		t.Fatal("b should focus the broadcast prompt")
	}

	// Keys typed into the prompt do not trigger shortcuts.
	d.Update(keyRunes("q"))
	d.Update(keyRunes("uit now"))
	if got := d.input.Value(); got != "quit now" {
		t.Fatalf("input value = %q", got)
	}

	_, cmd := d.Update(tea.KeyMsg{Type: tea.KeyEnter})
	submitted, ok := cmd().(BroadcastSubmittedMsg)
	if !ok || submitted.Message != "quit now" {
		t.Fatalf("enter produced %#v", submitted)
	}

	_, cmd = d.Update(submitted)
	if d.input.Focused() {
		t.Error("prompt should close after submit")
	}
	sent := run(t, d, cmd).(BroadcastSentMsg)
	if sent.Delivered != 2 {
		t.Errorf("Delivered = %d, want 2", sent.Delivered)
	}
	if len(src.broadcasts) != 1 || src.broadcasts[0] != "dashboard:quit now" {
		t.Errorf("broadcasts = %v", src.broadcasts)
	}
	if !strings.Contains(d.View(), "delivered to 2 agents") {
		t.Error("footer should report delivery")
	}
}

func TestDashboard_EscCancelsPrompt(t *testing.T) {
	src := newFakeSource()
	d := NewDashboard(src, nil, time.Second)

	d.Update(keyRunes("b"))
	d.Update(keyRunes("hello"))
	d.Update(tea.KeyMsg{Type: tea.KeyEsc})

	if d.input.Focused() || d.input.Value() != "" {
		t.Error("esc should close and clear the prompt")
	}
	if len(src.broadcasts) != 0 {
		t.Error("esc must not broadcast")
	}
}

func TestDashboard_EmptyBroadcastIgnored(t *testing.T) {
	d := NewDashboard(newFakeSource(), nil, time.Second)
	d.Update(keyRunes("b"))
	d.Update(keyRunes("   "))

	if _, cmd := d.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("blank broadcast should not produce a command")
	}
}

func TestDashboard_Quit(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
	}{
		{"q", keyRunes("q")},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDashboard(newFakeSource(), nil, time.Second)
			_, cmd := d.Update(tt.key)
			if cmd == nil {
				t.Fatal("expected quit command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("expected tea.QuitMsg")
			}
		})
	}
}

func TestDashboard_Events(t *testing.T) {
	events := make(chan orchestrator.OrchestratorEvent, 2)
	d := NewDashboard(newFakeSource(), events, time.Second)

	events <- orchestrator.OrchestratorEvent{
		Type: orchestrator.EventWorkerCrashed, AgentID: "a1", AgentName: "alice", PID: 4242, Timestamp: time.Now(),
	}
	msg := d.waitForEvent()()
	if _, ok := msg.(EventMsg); !ok {
		t.Fatalf("waitForEvent returned %#v", msg)
	}
	_, cmd := d.Update(msg)
	if cmd == nil {
		t.Error("an event should trigger a refresh and keep listening")
	}
	if d.activity.Len() != 1 {
		t.Errorf("activity lines = %d, want 1", d.activity.Len())
	}
	if !strings.Contains(d.View(), "alice exited unexpectedly") {
		t.Errorf("activity missing crash line:\n%s", d.View())
	}

	close(events)
	if _, ok := d.waitForEvent()().(eventsClosedMsg); !ok {
		t.Error("closed channel should yield eventsClosedMsg")
	}
	d.Update(eventsClosedMsg{})
	if d.waitForEvent() != nil {
		t.Error("no listener after the channel closes")
	}
}

func TestDescribeEvent(t *testing.T) {
	tests := []struct {
		ev   orchestrator.OrchestratorEvent
		want string
	}{
		{orchestrator.OrchestratorEvent{Type: orchestrator.EventAgentSpawned, AgentName: "alice"}, "spawned alice"},
		{orchestrator.OrchestratorEvent{Type: orchestrator.EventTaskCreated, TaskID: "1234567890"}, "task 12345678 queued for nobody"},
		{orchestrator.OrchestratorEvent{Type: orchestrator.EventTaskUpdated, TaskID: "t1", TaskStatus: "failed"}, "task t1 is failed"},
		{orchestrator.OrchestratorEvent{Type: orchestrator.EventBroadcast, Message: "hi"}, "broadcast: hi"},
	}
	for _, tt := range tests {
		if got := describeEvent(tt.ev); got != tt.want {
			t.Errorf("describeEvent(%s) = %q, want %q", tt.ev.Type, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 6); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
}
