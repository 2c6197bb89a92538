// Package worker implements the reference worker process: it consumes an
// agent's inbox, runs each task through an LLM provider, and reports
// progress and token usage through files in the agent directory.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ShayCichocki/orcbot/internal/inbox"
	"github.com/ShayCichocki/orcbot/internal/llm"
	"github.com/ShayCichocki/orcbot/internal/orchestrator"
	"github.com/ShayCichocki/orcbot/internal/progress"
	"github.com/ShayCichocki/orcbot/internal/usage"
	"github.com/ShayCichocki/orcbot/pkg/models"
)

// OffsetFileName records how far into the inbox the worker has read, so a
// restarted worker does not repeat tasks.
const OffsetFileName = "inbox.offset"

// Config configures a Worker.
type Config struct {
	AgentID      string
	Name         string
	Dir          string
	Capabilities []string
	Provider     llm.Provider
	// Poll is the inbox fallback poll interval.
	Poll time.Duration
	// Logf defaults to log.Printf.
	Logf func(format string, args ...any)
}

// Worker processes one agent's inbox.
type Worker struct {
	cfg    Config
	usage  *usage.Writer
	offset int64
	logf   func(format string, args ...any)
}

// New validates cfg and returns a Worker.
func New(cfg Config) (*Worker, error) {
	if cfg.AgentID == "" {
		return nil, errors.New("agent id is required")
	}
	if cfg.Dir == "" {
		return nil, errors.New("agent directory is required")
	}
	if cfg.Provider == nil {
		return nil, errors.New("provider is required")
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 2 * time.Second
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create agent dir: %w", err)
	}
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}
	return &Worker{
		cfg:   cfg,
		usage: usage.NewWriter(cfg.Dir),
		logf:  logf,
	}, nil
}

// Run announces the worker as idle and processes inbox messages until ctx
// is canceled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.usage.Touch(); err != nil {
		return err
	}
	if err := w.loadOffset(); err != nil {
		return err
	}
	if err := progress.Write(w.cfg.Dir, progress.Report{}); err != nil {
		return fmt.Errorf("write idle progress: %w", err)
	}
	w.journal("started (%s, %s)", w.cfg.Provider.Name(), w.cfg.Provider.Model())
	w.logf("[worker] %s started in %s", w.cfg.AgentID, w.cfg.Dir)

	wake := inbox.Notify(ctx, w.cfg.Dir, w.cfg.Poll)
	for {
		select {
		case <-ctx.Done():
			w.journal("stopped")
			w.logf("[worker] %s stopping", w.cfg.AgentID)
			return nil
		case _, ok := <-wake:
			if !ok {
				continue
			}
			if err := w.Drain(ctx); err != nil {
				w.logf("[worker] warning: %v", err)
			}
		}
	}
}

// Drain handles every message appended since the last call.
func (w *Worker) Drain(ctx context.Context) error {
	msgs, next, err := inbox.ReadFrom(w.cfg.Dir, w.offset)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, msg := range msgs {
		if ctx.Err() != nil {
			return nil
		}
		w.Handle(ctx, msg)
	}
	if next != w.offset {
		w.offset = next
		if err := w.saveOffset(); err != nil {
			return err
		}
	}
	return nil
}

// Handle processes a single inbox message.
func (w *Worker) Handle(ctx context.Context, msg inbox.Message) {
	switch msg.Kind {
	case inbox.KindTask:
		w.runTask(ctx, msg)
	case inbox.KindBroadcast:
		w.journal("broadcast from %s: %s", senderName(msg.From), msg.Body)
		w.logf("[worker] broadcast received: %s", msg.Body)
	default:
		w.logf("[worker] warning: ignoring message %s of kind %q", msg.ID, msg.Kind)
	}
}

func (w *Worker) runTask(ctx context.Context, msg inbox.Message) {
	report := progress.Report{
		TaskID:      msg.TaskID,
		Description: msg.Body,
		Status:      models.TaskStatusInProgress,
	}
	if err := progress.Record(w.cfg.Dir, report); err != nil {
		w.logf("[worker] warning: write progress: %v", err)
	}

	c, err := w.cfg.Provider.Complete(ctx, w.systemPrompt(), msg.Body)
	report.UpdatedAt = time.Time{}
	if err != nil {
		report.Status = models.TaskStatusFailed
		report.Error = err.Error()
		w.journal("task %s failed: %v", msg.TaskID, err)
		w.logf("[worker] task %s failed: %v", msg.TaskID, err)
	} else {
		report.Status = models.TaskStatusCompleted
		w.recordUsage(c)
		w.journal("task %s done: %s", msg.TaskID, summarize(c.Text))
		w.logf("[worker] task %s completed (%d tokens)", msg.TaskID, c.PromptTokens+c.CompletionTokens)
	}
	if err := progress.Record(w.cfg.Dir, report); err != nil {
		w.logf("[worker] warning: write progress: %v", err)
	}
}

func (w *Worker) recordUsage(c *llm.Completion) {
	e := usage.Entry{
		Provider:         w.cfg.Provider.Name(),
		Model:            c.Model,
		PromptTokens:     c.PromptTokens,
		CompletionTokens: c.CompletionTokens,
		Estimated:        c.Estimated,
	}
	if err := w.usage.Append(e); err != nil {
		w.logf("[worker] warning: %v", err)
	}
}

func (w *Worker) systemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a worker agent", nonEmpty(w.cfg.Name, w.cfg.AgentID))
	if len(w.cfg.Capabilities) > 0 {
		fmt.Fprintf(&b, " with capabilities: %s", strings.Join(w.cfg.Capabilities, ", "))
	}
	b.WriteString(". Complete the task you are given and reply with a concise result.")
	return b.String()
}

// journal appends a timestamped line to the agent's memory file.
func (w *Worker) journal(format string, args ...any) {
	path := filepath.Join(w.cfg.Dir, orchestrator.MemoryFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		w.logf("[worker] warning: open memory: %v", err)
		return
	}
	defer f.Close()
	line := fmt.Sprintf("- %s %s\n", time.Now().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))
	if _, err := f.WriteString(line); err != nil {
		w.logf("[worker] warning: write memory: %v", err)
	}
}

func (w *Worker) loadOffset() error {
	data, err := os.ReadFile(filepath.Join(w.cfg.Dir, OffsetFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read inbox offset: %w", err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil || n < 0 {
		w.logf("[worker] warning: resetting corrupt inbox offset %q", strings.TrimSpace(string(data)))
		return nil
	}
	w.offset = n
	return nil
}

func (w *Worker) saveOffset() error {
	path := filepath.Join(w.cfg.Dir, OffsetFileName)
	if err := os.WriteFile(path, []byte(strconv.FormatInt(w.offset, 10)), 0644); err != nil {
		return fmt.Errorf("write inbox offset: %w", err)
	}
	return nil
}

// Offset returns the inbox byte offset consumed so far.
func (w *Worker) Offset() int64 {
	return w.offset
}

func summarize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	const max = 120
	if r := []rune(s); len(r) > max {
		return string(r[:max]) + "..."
	}
	return s
}

func senderName(from string) string {
	return nonEmpty(from, "orchestrator")
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
