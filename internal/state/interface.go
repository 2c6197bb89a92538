// Package state provides SQLite-based persistence for the orchestrator.
package state

import (
	"io"
	"time"

	"github.com/ShayCichocki/orcbot/pkg/models"
)

// AgentStore handles agent-related persistence operations.
type AgentStore interface {
	CreateAgent(a *models.Agent) error
	GetAgent(id string) (*models.Agent, error)
	TouchAgent(id string, at time.Time) error
	DeleteAgent(id string) (bool, error)
	ListAgents() ([]*models.Agent, error)
}

// WorkerStore records which process currently backs an agent.
type WorkerStore interface {
	SetWorker(agentID string, pid int, startedAt time.Time) error
	ClearWorker(agentID string) error
	ListWorkers() ([]WorkerRecord, error)
}

// ProgressStore remembers how much of each worker's progress log the
// coordinator has applied.
type ProgressStore interface {
	SetProgressOffset(agentID string, offset int64) error
	ProgressOffsets() (map[string]int64, error)
}

// TaskStore handles task-related persistence operations.
type TaskStore interface {
	CreateTask(t *models.Task) error
	GetTask(id string) (*models.Task, error)
	UpdateTask(t *models.Task) error
	ListTasks(status *models.TaskStatus) ([]*models.Task, error)
	ListTasksByAgent(agentID string) ([]*models.Task, error)
}

// Migrator handles database schema migrations.
// Separating this allows clients to depend only on migration functionality.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// StateStore defines the interface for state persistence.
// The orchestrator depends on this rather than the concrete SQLite type so
// tests can run fully in memory.
type StateStore interface {
	io.Closer
	Migrator
	AgentStore
	WorkerStore
	ProgressStore
	TaskStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ StateStore    = (*DB)(nil)
	_ Migrator      = (*DB)(nil)
	_ AgentStore    = (*DB)(nil)
	_ WorkerStore   = (*DB)(nil)
	_ ProgressStore = (*DB)(nil)
	_ TaskStore     = (*DB)(nil)
)
