package orchestrator

import "errors"

var (
	// ErrUnknownAgent is returned when an agent ID is not registered.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrInvalidName is returned when an agent name is empty.
	ErrInvalidName = errors.New("agent name must not be empty")
	// ErrEmptyDescription is returned when a task description is empty.
	ErrEmptyDescription = errors.New("task description must not be empty")
	// ErrUnknownTask is returned when a task ID is not known.
	ErrUnknownTask = errors.New("unknown task")
)
