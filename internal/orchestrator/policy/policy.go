// Package policy defines configurable policy parameters for orchestrator behavior.
// This centralizes threshold values and modes so they can be configured and
// overridden in tests.
package policy

import (
	"fmt"
	"time"
)

// DistributionMode selects how distributeTaskList picks agents.
type DistributionMode string

const (
	// ModeCapability rotates over agents whose capabilities intersect the
	// task's inferred requirements.
	ModeCapability DistributionMode = "capability"
	// ModeRoundRobin rotates over every agent and ignores capabilities.
	ModeRoundRobin DistributionMode = "round_robin"
)

// ParseMode converts a config string into a DistributionMode.
func ParseMode(s string) (DistributionMode, error) {
	switch DistributionMode(s) {
	case ModeCapability, ModeRoundRobin:
		return DistributionMode(s), nil
	case "":
		return ModeCapability, nil
	default:
		return "", fmt.Errorf("unknown distribution policy %q (want %q or %q)", s, ModeCapability, ModeRoundRobin)
	}
}

// Config contains all configurable policy parameters for the orchestrator.
type Config struct {
	// Distribution policies
	Distribution DistributionPolicy

	// Task policies
	Tasks TaskPolicy

	// Event policies
	Events EventPolicy

	// Inbox policies
	Inbox InboxPolicy
}

// DistributionPolicy controls task distribution.
type DistributionPolicy struct {
	// Mode selects capability filtering or plain round robin.
	Mode DistributionMode
}

// TaskPolicy controls task creation.
type TaskPolicy struct {
	// DefaultPriority is used when a caller passes 0.
	DefaultPriority int
	// TerminatedCause is recorded on tasks failed by agent termination.
	TerminatedCause string
}

// EventPolicy controls event fan-out.
type EventPolicy struct {
	// SubscriberBuffer is the channel size handed to each subscriber.
	SubscriberBuffer int
}

// InboxPolicy controls how workers poll their inbox.
type InboxPolicy struct {
	// PollInterval is the fallback poll period when file events are missed.
	PollInterval time.Duration
}

// Default returns the default policy configuration.
func Default() *Config {
	return &Config{
		Distribution: DistributionPolicy{
			Mode: ModeCapability,
		},
		Tasks: TaskPolicy{
			DefaultPriority: 5,
			TerminatedCause: "agent terminated",
		},
		Events: EventPolicy{
			SubscriberBuffer: 100,
		},
		Inbox: InboxPolicy{
			PollInterval: 2 * time.Second,
		},
	}
}

// Validate checks that policy values are within acceptable ranges,
// resetting out-of-range values to their defaults.
func (c *Config) Validate() error {
	if _, err := ParseMode(string(c.Distribution.Mode)); err != nil {
		return err
	}
	if c.Distribution.Mode == "" {
		c.Distribution.Mode = ModeCapability
	}
	if c.Tasks.DefaultPriority < 1 || c.Tasks.DefaultPriority > 10 {
		c.Tasks.DefaultPriority = 5
	}
	if c.Tasks.TerminatedCause == "" {
		c.Tasks.TerminatedCause = "agent terminated"
	}
	if c.Events.SubscriberBuffer < 1 {
		c.Events.SubscriberBuffer = 100
	}
	if c.Inbox.PollInterval < 10*time.Millisecond {
		c.Inbox.PollInterval = 2 * time.Second
	}
	return nil
}
