// Package exec provides an interface for starting and signalling worker processes.
package exec

// ProbeResult is the outcome of a liveness probe against a pid.
type ProbeResult int

const (
	// ProbeAlive means the process exists and accepted the null signal.
	ProbeAlive ProbeResult = iota
	// ProbeAbsent means no such process exists.
	ProbeAbsent
	// ProbeUnknown means the process exists but cannot be signalled by us,
	// or the probe failed for another reason.
	ProbeUnknown
)

// String returns a short name for logs.
func (r ProbeResult) String() string {
	switch r {
	case ProbeAlive:
		return "alive"
	case ProbeAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// StartSpec describes a worker process to launch.
type StartSpec struct {
	// Path is the executable to run.
	Path string
	// Args are passed after the executable name.
	Args []string
	// Dir is the working directory. Created by the caller.
	Dir string
	// Env is appended to the coordinator's environment.
	Env []string
	// LogPath, if set, receives the process stdout and stderr.
	LogPath string
}

// ProcessRunner defines the interface for managing worker OS processes.
// This abstraction allows mocking process control in tests.
type ProcessRunner interface {
	// Start launches the process and returns its pid without waiting for it.
	Start(spec StartSpec) (pid int, err error)

	// Probe checks whether pid exists using a non-destructive signal.
	Probe(pid int) ProbeResult

	// Terminate sends a graceful termination signal to pid.
	Terminate(pid int) error
}
