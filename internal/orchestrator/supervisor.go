package orchestrator

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	iexec "github.com/ShayCichocki/orcbot/internal/exec"
	"github.com/ShayCichocki/orcbot/internal/state"
	"github.com/ShayCichocki/orcbot/pkg/models"
)

// WorkerLogFileName is where a worker's stdout and stderr go.
const WorkerLogFileName = "worker.log"

// WorkerProcess is the supervisor's handle on one running worker.
type WorkerProcess struct {
	AgentID       string
	PID           int
	StartedAt     time.Time
	LastCheckedAt time.Time
	// StopRequested is set once SIGTERM has been sent.
	StopRequested bool
}

// SupervisorConfig configures how workers are launched.
type SupervisorConfig struct {
	// Binary is the worker executable, resolved through PATH.
	Binary string
	// Args are appended after the identity flags.
	Args []string
	// Env is appended to the coordinator's environment.
	Env []string
}

// Supervisor owns the mapping from agent ID to live worker process.
type Supervisor struct {
	cfg    SupervisorConfig
	runner iexec.ProcessRunner
	// store persists pids so other coordinator processes see them. May be nil.
	store state.WorkerStore

	// onExit is called when a probe finds a recorded worker gone.
	// requested is true when the exit follows a Stop.
	onExit func(agentID string, pid int, requested bool)

	handles map[string]*WorkerProcess
	mu      sync.Mutex
}

// NewSupervisor creates a Supervisor.
func NewSupervisor(cfg SupervisorConfig, runner iexec.ProcessRunner, store state.WorkerStore) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		runner:  runner,
		store:   store,
		handles: make(map[string]*WorkerProcess),
	}
}

// SetExitHandler sets the callback for workers found dead by a probe.
func (s *Supervisor) SetExitHandler(fn func(agentID string, pid int, requested bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExit = fn
}

// Restore replaces the handles with the persisted worker records, so
// starts and stops made by other coordinator processes are seen. A handle
// whose pid is unchanged keeps its probe state. Adopted records are
// validated by the next probe.
func (s *Supervisor) Restore() error {
	if s.store == nil {
		return nil
	}
	records, err := s.store.ListWorkers()
	if err != nil {
		return fmt.Errorf("restore workers: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	handles := make(map[string]*WorkerProcess, len(records))
	for _, rec := range records {
		if h, ok := s.handles[rec.AgentID]; ok && h.PID == rec.PID {
			handles[rec.AgentID] = h
			continue
		}
		handles[rec.AgentID] = &WorkerProcess{
			AgentID:   rec.AgentID,
			PID:       rec.PID,
			StartedAt: rec.StartedAt,
		}
	}
	s.handles = handles
	return nil
}

// Start launches a worker for agent. Returns false without error when a
// live worker is already confirmed, and false with the cause when the
// spawn fails.
func (s *Supervisor) Start(agent *models.Agent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.probeLocked(agent.ID) {
		return false, nil
	}

	args := []string{"--agent-id", agent.ID, "--dir", agent.WorkDir, "--name", agent.Name}
	if len(agent.Capabilities) > 0 {
		args = append(args, "--capabilities", strings.Join(agent.Capabilities, ","))
	}
	args = append(args, s.cfg.Args...)

	env := append([]string{
		"ORCBOT_AGENT_ID=" + agent.ID,
		"ORCBOT_AGENT_DIR=" + agent.WorkDir,
	}, s.cfg.Env...)

	pid, err := s.runner.Start(iexec.StartSpec{
		Path:    s.cfg.Binary,
		Args:    args,
		Dir:     agent.WorkDir,
		Env:     env,
		LogPath: filepath.Join(agent.WorkDir, WorkerLogFileName),
	})
	if err != nil {
		log.Printf("[supervisor] failed to start worker for agent %s: %v", agent.ID, err)
		return false, err
	}

	now := time.Now().UTC()
	s.handles[agent.ID] = &WorkerProcess{
		AgentID:       agent.ID,
		PID:           pid,
		StartedAt:     now,
		LastCheckedAt: now,
	}
	if s.store != nil {
		if err := s.store.SetWorker(agent.ID, pid, now); err != nil {
			log.Printf("[supervisor] failed to persist pid %d for agent %s: %v", pid, agent.ID, err)
		}
	}
	log.Printf("[supervisor] started worker for agent %s (pid %d)", agent.ID, pid)
	return true, nil
}

// Stop sends a graceful termination signal to the agent's worker. Returns
// false when no live worker is known. It does not wait for the exit; the
// next probe reconciles.
func (s *Supervisor) Stop(agentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.probeLocked(agentID) {
		return false, nil
	}
	h := s.handles[agentID]
	if err := s.runner.Terminate(h.PID); err != nil {
		// Exited between the probe and the signal.
		if s.runner.Probe(h.PID) == iexec.ProbeAbsent {
			s.clearLocked(agentID, h, false)
			return false, nil
		}
		return false, err
	}
	h.StopRequested = true
	log.Printf("[supervisor] sent SIGTERM to worker for agent %s (pid %d)", agentID, h.PID)
	return true, nil
}

// IsRunning probes the agent's recorded pid. A pid that no longer exists
// clears the handle. A pid that exists but cannot be signalled is reported
// as running.
func (s *Supervisor) IsRunning(agentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probeLocked(agentID)
}

// PID returns the recorded pid for agentID, or 0.
func (s *Supervisor) PID(agentID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.handles[agentID]; ok {
		return h.PID
	}
	return 0
}

// Running probes every handle and returns the ones confirmed live.
func (s *Supervisor) Running() []WorkerProcess {
	s.mu.Lock()
	defer s.mu.Unlock()

	var live []WorkerProcess
	for id := range s.handles {
		if s.probeLocked(id) {
			live = append(live, *s.handles[id])
		}
	}
	return live
}

// Forget drops the handle for agentID without signalling the process.
func (s *Supervisor) Forget(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.handles[agentID]; ok {
		s.clearLocked(agentID, h, false)
	}
}

// probeLocked must be called with mu held.
func (s *Supervisor) probeLocked(agentID string) bool {
	h, ok := s.handles[agentID]
	if !ok {
		return false
	}

	switch s.runner.Probe(h.PID) {
	case iexec.ProbeAbsent:
		log.Printf("[supervisor] worker for agent %s (pid %d) is gone", agentID, h.PID)
		s.clearLocked(agentID, h, true)
		return false
	case iexec.ProbeAlive:
		h.LastCheckedAt = time.Now().UTC()
		return true
	default:
		// Exists but not ours to signal. Never orphan it silently.
		return true
	}
}

// clearLocked must be called with mu held.
func (s *Supervisor) clearLocked(agentID string, h *WorkerProcess, exited bool) {
	delete(s.handles, agentID)
	if s.store != nil {
		if err := s.store.ClearWorker(agentID); err != nil {
			log.Printf("[supervisor] failed to clear pid for agent %s: %v", agentID, err)
		}
	}
	if exited && s.onExit != nil {
		s.onExit(agentID, h.PID, h.StopRequested)
	}
}
