package models

import "time"

// AgentStatus represents the current state of an agent.
type AgentStatus string

const (
	// AgentStatusIdle indicates a live worker with no current task.
	AgentStatusIdle AgentStatus = "idle"
	// AgentStatusWorking indicates a live worker reporting a current task.
	AgentStatusWorking AgentStatus = "working"
	// AgentStatusStopped indicates no live worker process is known.
	AgentStatusStopped AgentStatus = "stopped"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusIdle, AgentStatusWorking, AgentStatusStopped:
		return true
	default:
		return false
	}
}

// DeriveAgentStatus computes an agent's status from worker liveness and the
// task it currently reports. A stopped agent is never working.
func DeriveAgentStatus(running bool, currentTaskID string) AgentStatus {
	if !running {
		return AgentStatusStopped
	}
	if currentTaskID != "" {
		return AgentStatusWorking
	}
	return AgentStatusIdle
}

// Agent represents a logical worker identity managed by the coordinator.
type Agent struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id"`
	// Name is the operator-supplied display name. Not unique.
	Name string `json:"name"`
	// Role is a free-form tag such as "worker".
	Role string `json:"role"`
	// Capabilities is used for task matching. May be empty.
	Capabilities []string `json:"capabilities"`
	// Status is derived from worker liveness and progress.
	Status AgentStatus `json:"status"`
	// CreatedAt is when the agent was spawned.
	CreatedAt time.Time `json:"created_at"`
	// LastActiveAt is updated on progress reports and confirmed liveness.
	LastActiveAt time.Time `json:"last_active_at"`
	// PID is the process ID of the current worker, or 0 if not running.
	PID int `json:"pid,omitempty"`
	// WorkDir is the directory the worker runs in.
	WorkDir string `json:"work_dir"`
	// MemoryPath is written by the worker only.
	MemoryPath string `json:"memory_path"`
	// ActiveTasks counts assigned tasks that are not yet terminal.
	ActiveTasks int `json:"active_tasks"`
}

// HasCapability reports whether the agent advertises the given capability.
func (a *Agent) HasCapability(capability string) bool {
	for _, c := range a.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand to callers.
func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	c := *a
	c.Capabilities = append([]string(nil), a.Capabilities...)
	return &c
}

// AgentSpec holds the operator-supplied fields for a new agent.
type AgentSpec struct {
	Name         string   `json:"name"`
	Role         string   `json:"role,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// WorkerDetail is the per-agent record of a detailed status query.
type WorkerDetail struct {
	AgentID                string      `json:"agent_id"`
	Name                   string      `json:"name"`
	Role                   string      `json:"role"`
	Status                 AgentStatus `json:"status"`
	PID                    int         `json:"pid,omitempty"`
	LastActiveAt           time.Time   `json:"last_active_at"`
	ActiveTasks            int         `json:"active_tasks"`
	CurrentTaskID          string      `json:"current_task_id,omitempty"`
	CurrentTaskDescription string      `json:"current_task_description,omitempty"`
}
