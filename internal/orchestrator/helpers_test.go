package orchestrator

import (
	"errors"
	"sync"
	"testing"

	iexec "github.com/ShayCichocki/orcbot/internal/exec"
	"github.com/ShayCichocki/orcbot/internal/orchestrator/policy"
	"github.com/ShayCichocki/orcbot/internal/state"
	"github.com/ShayCichocki/orcbot/pkg/models"
)

// fakeRunner simulates worker processes in memory.
type fakeRunner struct {
	mu         sync.Mutex
	nextPID    int
	alive      map[int]bool
	foreign    map[int]bool
	starts     []iexec.StartSpec
	terminated []int
	startErr   error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		nextPID: 1000,
		alive:   make(map[int]bool),
		foreign: make(map[int]bool),
	}
}

func (f *fakeRunner) Start(spec iexec.StartSpec) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return 0, f.startErr
	}
	f.nextPID++
	f.alive[f.nextPID] = true
	f.starts = append(f.starts, spec)
	return f.nextPID, nil
}

func (f *fakeRunner) Probe(pid int) iexec.ProbeResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.foreign[pid]:
		return iexec.ProbeUnknown
	case f.alive[pid]:
		return iexec.ProbeAlive
	default:
		return iexec.ProbeAbsent
	}
}

func (f *fakeRunner) Terminate(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.alive[pid] {
		return errors.New("no such process")
	}
	f.terminated = append(f.terminated, pid)
	delete(f.alive, pid)
	return nil
}

// kill simulates an out-of-band crash.
func (f *fakeRunner) kill(pid int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.alive, pid)
}

func (f *fakeRunner) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

func (f *fakeRunner) liveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alive)
}

// newTestOrchestrator builds an in-memory orchestrator on a fake runner.
func newTestOrchestrator(t *testing.T, opts ...Option) (*Orchestrator, *fakeRunner) {
	t.Helper()
	runner := newFakeRunner()
	opts = append([]Option{WithProcessRunner(runner)}, opts...)
	orc, err := New(RequiredConfig{DataDir: t.TempDir(), WorkerBinary: "orcbot-worker"}, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { orc.Close() })
	return orc, runner
}

// openTestStore opens a migrated SQLite store in a temp dir.
func openTestStore(t *testing.T, dir string) *state.DB {
	t.Helper()
	db, err := state.OpenDataDir(dir)
	if err != nil {
		t.Fatalf("OpenDataDir failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustSpawn(t *testing.T, orc *Orchestrator, name string, caps ...string) *models.Agent {
	t.Helper()
	a, err := orc.SpawnAgent(models.AgentSpec{Name: name, Capabilities: caps})
	if err != nil {
		t.Fatalf("SpawnAgent(%q) failed: %v", name, err)
	}
	return a
}

func roundRobinPolicy() *policy.Config {
	p := policy.Default()
	p.Distribution.Mode = policy.ModeRoundRobin
	return p
}
