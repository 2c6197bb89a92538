package models

import "time"

const (
	// MinPriority is the lowest task priority.
	MinPriority = 1
	// MaxPriority is the highest task priority.
	MaxPriority = 10
	// DefaultPriority is used when the caller does not specify one.
	DefaultPriority = 5
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusQueued indicates the task has not been picked up yet.
	TaskStatusQueued TaskStatus = "queued"
	// TaskStatusInProgress indicates the worker reported it is working on the task.
	TaskStatusInProgress TaskStatus = "in-progress"
	// TaskStatusCompleted indicates the worker reported success.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the worker reported failure or the agent was terminated.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusQueued, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true for statuses a task never leaves.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Pending returns true for queued and in-progress tasks.
func (s TaskStatus) Pending() bool {
	return s == TaskStatusQueued || s == TaskStatusInProgress
}

// ClampPriority forces p into [MinPriority, MaxPriority].
func ClampPriority(p int) int {
	if p < MinPriority {
		return MinPriority
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return p
}

// Task represents a unit of delegated work.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Description is the free-text work item. Never empty.
	Description string `json:"description"`
	// Priority is a hint in [1,10], higher is more urgent.
	Priority int `json:"priority"`
	// AssignedAgentID is set once at creation. Empty means unassigned.
	AssignedAgentID string `json:"assigned_agent_id,omitempty"`
	// Requirements are the capabilities inferred for this task.
	Requirements []string `json:"requirements,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the status last changed.
	UpdatedAt time.Time `json:"updated_at"`
	// Error contains the failure cause if the task failed.
	Error string `json:"error,omitempty"`
}

// Assigned returns true if the task has an owning agent.
func (t *Task) Assigned() bool {
	return t.AssignedAgentID != ""
}

// Clone returns a deep copy safe to hand to callers.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Requirements = append([]string(nil), t.Requirements...)
	return &c
}
