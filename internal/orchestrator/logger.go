package orchestrator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DebugLogName is the debug log file inside <data dir>/logs.
const DebugLogName = "orchestrator-debug.log"

// DebugLogger appends timestamped lines to a shared file. Several orcbot
// processes may hold the same file open, so each line carries the pid.
// A nil or zero DebugLogger discards everything.
type DebugLogger struct {
	mu  sync.Mutex
	w   io.WriteCloser
	pid int
	now func() time.Time
}

// NewDebugLogger opens logPath for appending, creating parent directories.
// An empty path gives a no-op logger.
func NewDebugLogger(logPath string) (*DebugLogger, error) {
	if logPath == "" {
		return &DebugLogger{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}

	l := newDebugLogger(f)
	l.Log("opened by %s", filepath.Base(os.Args[0]))
	return l, nil
}

func newDebugLogger(w io.WriteCloser) *DebugLogger {
	return &DebugLogger{w: w, pid: os.Getpid(), now: time.Now}
}

// DebugLogPath returns the debug log location inside a data directory.
func DebugLogPath(dataDir string) string {
	return filepath.Join(dataDir, "logs", DebugLogName)
}

// NewDebugLoggerForDataDir opens the data directory's debug log, falling
// back to a no-op logger when it cannot be opened.
func NewDebugLoggerForDataDir(dataDir string) *DebugLogger {
	l, err := NewDebugLogger(DebugLogPath(dataDir))
	if err != nil {
		return &DebugLogger{}
	}
	return l
}

// NopLogger returns a logger that discards everything.
func NopLogger() *DebugLogger {
	return &DebugLogger{}
}

// Log writes one line: RFC 3339 time with milliseconds, pid, message.
func (l *DebugLogger) Log(format string, args ...interface{}) {
	if l == nil || l.w == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now().Format("2006-01-02T15:04:05.000Z07:00")
	fmt.Fprintf(l.w, "%s [%d] %s\n", ts, l.pid, fmt.Sprintf(format, args...))
}

// Close closes the underlying file. Later calls to Log are dropped.
func (l *DebugLogger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.w == nil {
		return nil
	}
	err := l.w.Close()
	l.w = nil
	return err
}
