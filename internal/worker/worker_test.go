package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/orcbot/internal/inbox"
	"github.com/ShayCichocki/orcbot/internal/llm"
	"github.com/ShayCichocki/orcbot/internal/orchestrator"
	"github.com/ShayCichocki/orcbot/internal/progress"
	"github.com/ShayCichocki/orcbot/internal/state"
	"github.com/ShayCichocki/orcbot/internal/usage"
	"github.com/ShayCichocki/orcbot/pkg/models"
)

type failingProvider struct{}

func (failingProvider) Name() string  { return "failing" }
func (failingProvider) Model() string { return "none" }
func (failingProvider) Complete(ctx context.Context, system, prompt string) (*llm.Completion, error) {
	return nil, errors.New("provider unavailable")
}

func newTestWorker(t *testing.T, dir string, p llm.Provider) *Worker {
	t.Helper()
	w, err := New(Config{
		AgentID:      "agent-1",
		Name:         "alice",
		Dir:          dir,
		Capabilities: []string{"code"},
		Provider:     p,
		Poll:         20 * time.Millisecond,
		Logf:         t.Logf,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func readMemory(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "memory.md"))
	if err != nil {
		t.Fatalf("read memory: %v", err)
	}
	return string(data)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing agent id", Config{Dir: t.TempDir(), Provider: llm.NewDry("")}},
		{"missing dir", Config{AgentID: "a", Provider: llm.NewDry("")}},
		{"missing provider", Config{AgentID: "a", Dir: t.TempDir()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDrain_CompletesTask(t *testing.T) {
	dir := t.TempDir()
	w := newTestWorker(t, dir, llm.NewDry("dry-model"))

	if err := inbox.Append(dir, inbox.Message{Kind: inbox.KindTask, TaskID: "t1", Body: "write the parser"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	r, err := progress.Read(dir)
	if err != nil || r == nil {
		t.Fatalf("progress.Read = %v, %v", r, err)
	}
	if r.TaskID != "t1" || r.Status != models.TaskStatusCompleted {
		t.Errorf("progress = %+v, want t1 completed", r)
	}

	totals, err := usage.ReadFile(filepath.Join(dir, usage.FileName), nil)
	if err != nil {
		t.Fatalf("usage.ReadFile: %v", err)
	}
	if totals.Entries != 1 {
		t.Errorf("usage entries = %d, want 1", totals.Entries)
	}
	if totals.EstimatedTokens == 0 || totals.RealTokens != 0 {
		t.Errorf("dry usage should be estimated only: %+v", totals)
	}

	if mem := readMemory(t, dir); !strings.Contains(mem, "task t1 done") {
		t.Errorf("memory missing task line:\n%s", mem)
	}
}

func TestDrain_FailedTask(t *testing.T) {
	dir := t.TempDir()
	w := newTestWorker(t, dir, failingProvider{})

	if err := inbox.Append(dir, inbox.Message{Kind: inbox.KindTask, TaskID: "t2", Body: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	r, _ := progress.Read(dir)
	if r == nil || r.Status != models.TaskStatusFailed {
		t.Fatalf("progress = %+v, want failed", r)
	}
	if !strings.Contains(r.Error, "provider unavailable") {
		t.Errorf("Error = %q", r.Error)
	}
	if _, err := os.Stat(filepath.Join(dir, usage.FileName)); !errors.Is(err, os.ErrNotExist) {
		t.Error("failed calls should not write usage")
	}
}

func TestDrain_EveryReportReachesCoordinator(t *testing.T) {
	tests := []struct {
		name          string
		provider      llm.Provider
		persistent    bool
		tasks         []string
		wantCompleted int
		wantFailed    int
	}{
		{"two completions in one drain", llm.NewDry(""), false, []string{"first", "second"}, 2, 0},
		{"three failures in one drain", failingProvider{}, false, []string{"a", "b", "c"}, 0, 3},
		{"completions with a store", llm.NewDry(""), true, []string{"first", "second"}, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataDir := t.TempDir()
			var opts []orchestrator.Option
			if tt.persistent {
				db, err := state.OpenDataDir(dataDir)
				if err != nil {
					t.Fatalf("OpenDataDir: %v", err)
				}
				t.Cleanup(func() { db.Close() })
				opts = append(opts, orchestrator.WithStore(db))
			}
			orc, err := orchestrator.New(orchestrator.RequiredConfig{DataDir: dataDir, WorkerBinary: "orcbot-worker"}, opts...)
			if err != nil {
				t.Fatalf("orchestrator.New: %v", err)
			}
			t.Cleanup(func() { orc.Close() })

			a, err := orc.SpawnAgent(models.AgentSpec{Name: "alice"})
			if err != nil {
				t.Fatalf("SpawnAgent: %v", err)
			}
			for _, d := range tt.tasks {
				if _, err := orc.DelegateTask(a.ID, d, 5); err != nil {
					t.Fatalf("DelegateTask: %v", err)
				}
			}

			// The coordinator does not look while the worker runs every task.
			w := newTestWorker(t, a.WorkDir, tt.provider)
			if err := w.Drain(context.Background()); err != nil {
				t.Fatalf("Drain: %v", err)
			}

			st := orc.GetStatus()
			if st.CompletedTasks != tt.wantCompleted || st.FailedTasks != tt.wantFailed || st.PendingTasks != 0 {
				t.Errorf("GetStatus() = %+v, want %d completed and %d failed", st, tt.wantCompleted, tt.wantFailed)
			}
		})
	}
}

func TestDrain_BroadcastJournaled(t *testing.T) {
	dir := t.TempDir()
	w := newTestWorker(t, dir, llm.NewDry(""))

	if err := inbox.Append(dir, inbox.Message{Kind: inbox.KindBroadcast, From: "bob", Body: "standup in 5"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	if mem := readMemory(t, dir); !strings.Contains(mem, "broadcast from bob: standup in 5") {
		t.Errorf("memory missing broadcast:\n%s", mem)
	}
	if r, _ := progress.Read(dir); r != nil {
		t.Errorf("broadcast should not write progress, got %+v", r)
	}
}

func TestDrain_OffsetSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	w := newTestWorker(t, dir, llm.NewDry(""))

	if err := inbox.Append(dir, inbox.Message{Kind: inbox.KindTask, TaskID: "t1", Body: "one"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}
	if w.Offset() == 0 {
		t.Fatal("offset should advance")
	}

	restarted := newTestWorker(t, dir, llm.NewDry(""))
	if err := restarted.loadOffset(); err != nil {
		t.Fatal(err)
	}
	if restarted.Offset() != w.Offset() {
		t.Errorf("restarted offset = %d, want %d", restarted.Offset(), w.Offset())
	}
	if err := restarted.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}

	totals, _ := usage.ReadFile(filepath.Join(dir, usage.FileName), nil)
	if totals.Entries != 1 {
		t.Errorf("task re-run after restart: %d usage entries", totals.Entries)
	}
}

func TestLoadOffset_Corrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, OffsetFileName), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	w := newTestWorker(t, dir, llm.NewDry(""))
	if err := w.loadOffset(); err != nil {
		t.Fatalf("loadOffset: %v", err)
	}
	if w.Offset() != 0 {
		t.Errorf("Offset() = %d, want 0", w.Offset())
	}
}

func TestRun_ProcessesUntilCanceled(t *testing.T) {
	dir := t.TempDir()
	w := newTestWorker(t, dir, llm.NewDry(""))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The idle report is written on startup.
	waitFor(t, func() bool {
		r, _ := progress.Read(dir)
		return r != nil && r.TaskID == ""
	})
	if _, err := os.Stat(filepath.Join(dir, usage.FileName)); err != nil {
		t.Errorf("usage log should exist after startup: %v", err)
	}

	if err := inbox.Append(dir, inbox.Message{Kind: inbox.KindTask, TaskID: "t9", Body: "ship it"}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		r, _ := progress.Read(dir)
		return r != nil && r.TaskID == "t9" && r.Status == models.TaskStatusCompleted
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if mem := readMemory(t, dir); !strings.Contains(mem, "stopped") {
		t.Errorf("memory missing stop line:\n%s", mem)
	}
}

func TestSummarize(t *testing.T) {
	long := strings.Repeat("a", 200)
	if got := summarize(long); len(got) != 123 || !strings.HasSuffix(got, "...") {
		t.Errorf("summarize(long) = %q", got)
	}
	if got := summarize("  multi\n line  "); got != "multi line" {
		t.Errorf("summarize = %q", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
