//go:build unix

package exec

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// OSRunner implements ProcessRunner using os/exec and unix signals.
type OSRunner struct{}

// NewRunner creates a new OSRunner.
func NewRunner() *OSRunner {
	return &OSRunner{}
}

// Start launches the worker in its own process group so that terminal
// signals aimed at the coordinator do not reach it.
func (r *OSRunner) Start(spec StartSpec) (int, error) {
	path, err := exec.LookPath(spec.Path)
	if err != nil {
		return 0, fmt.Errorf("locate worker binary: %w", err)
	}

	cmd := exec.Command(path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var logFile *os.File
	if spec.LogPath != "" {
		logFile, err = os.OpenFile(spec.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return 0, fmt.Errorf("open worker log: %w", err)
		}
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return 0, fmt.Errorf("start worker: %w", err)
	}

	// Reap in the background so an exited child does not linger as a
	// zombie that still answers the null signal.
	go func() {
		_ = cmd.Wait()
		if logFile != nil {
			logFile.Close()
		}
	}()

	return cmd.Process.Pid, nil
}

// Probe sends signal 0 to pid.
func (r *OSRunner) Probe(pid int) ProbeResult {
	if pid <= 0 {
		return ProbeAbsent
	}
	err := syscall.Kill(pid, 0)
	switch {
	case err == nil:
		return ProbeAlive
	case errors.Is(err, syscall.ESRCH):
		return ProbeAbsent
	default:
		// EPERM: the pid exists but belongs to someone else.
		return ProbeUnknown
	}
}

// Terminate sends SIGTERM to pid.
func (r *OSRunner) Terminate(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	return nil
}

// Verify OSRunner implements ProcessRunner at compile time.
var _ ProcessRunner = (*OSRunner)(nil)
