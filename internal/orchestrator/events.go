package orchestrator

import (
	"time"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventAgentSpawned indicates a new agent was registered.
	EventAgentSpawned EventType = "agent_spawned"
	// EventAgentTerminated indicates an agent was removed.
	EventAgentTerminated EventType = "agent_terminated"
	// EventWorkerStarted indicates a worker process was launched.
	EventWorkerStarted EventType = "worker_started"
	// EventWorkerStopped indicates a worker exited after a stop request.
	EventWorkerStopped EventType = "worker_stopped"
	// EventWorkerCrashed indicates a probe found a worker gone unasked.
	EventWorkerCrashed EventType = "worker_crashed"
	// EventTaskCreated indicates a task was delegated or distributed.
	EventTaskCreated EventType = "task_created"
	// EventTaskUpdated indicates a task changed status.
	EventTaskUpdated EventType = "task_updated"
	// EventBroadcast indicates a message was sent to every inbox.
	EventBroadcast EventType = "broadcast"
)

// OrchestratorEvent represents an event emitted by the orchestrator.
// These events are used to update the TUI and the gateway event stream.
type OrchestratorEvent struct {
	// Type is the kind of event.
	Type EventType `json:"type"`
	// AgentID is the ID of the related agent, if applicable.
	AgentID string `json:"agent_id,omitempty"`
	// AgentName is the display name of the related agent, if applicable.
	AgentName string `json:"agent_name,omitempty"`
	// TaskID is the ID of the related task, if applicable.
	TaskID string `json:"task_id,omitempty"`
	// TaskStatus is the new status for task events.
	TaskStatus string `json:"task_status,omitempty"`
	// PID is the worker process ID for worker events.
	PID int `json:"pid,omitempty"`
	// Message provides additional context about the event.
	Message string `json:"message,omitempty"`
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}
