// Package progress carries a worker's task reports to the coordinator
// through two files in the agent's directory: progress.json names the task
// the worker is on right now, and progress.jsonl keeps every report so
// transitions between coordinator reads are not lost.
package progress

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ShayCichocki/orcbot/pkg/models"
)

// FileName is the current-task file's name inside an agent's directory.
const FileName = "progress.json"

// LogFileName is the append-only report log's name.
const LogFileName = "progress.jsonl"

// Report is the last task state a worker announced.
type Report struct {
	// TaskID is empty when the worker is between tasks.
	TaskID      string            `json:"task_id"`
	Description string            `json:"description,omitempty"`
	Status      models.TaskStatus `json:"status,omitempty"`
	Error       string            `json:"error,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Current reports whether the worker is busy with a task right now.
func (r *Report) Current() bool {
	return r != nil && r.TaskID != "" && r.Status == models.TaskStatusInProgress
}

// Path returns the progress file path for an agent directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// LogPath returns the report log path for an agent directory.
func LogPath(dir string) string {
	return filepath.Join(dir, LogFileName)
}

// Record appends r to the report log and then makes it the current task.
func Record(dir string, r Report) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	if err := Append(dir, r); err != nil {
		return err
	}
	return Write(dir, r)
}

// Append writes r as one line of the report log.
func Append(dir string, r Report) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(LogPath(dir), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("open progress log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("append progress: %w", err)
	}
	return nil
}

// ReadFrom returns the complete reports after byte offset and the offset
// to resume from. A trailing line without a newline is left for the next
// call. Malformed complete lines are skipped. An offset past the end of
// the log, as after the file was replaced, restarts from the beginning.
func ReadFrom(dir string, offset int64) ([]Report, int64, error) {
	f, err := os.Open(LogPath(dir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, offset, fmt.Errorf("open progress log: %w", err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() < offset {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek progress log: %w", err)
	}

	var reports []Report
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return reports, offset, fmt.Errorf("read progress log: %w", err)
		}
		offset += int64(len(line))

		var r Report
		if jerr := json.Unmarshal(line, &r); jerr != nil {
			continue
		}
		if r.Status != "" && !r.Status.Valid() {
			continue
		}
		reports = append(reports, r)
	}
	return reports, offset, nil
}

// Write replaces the current-task file atomically so readers never see a
// partial document.
func Write(dir string, r Report) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".progress-*.json")
	if err != nil {
		return fmt.Errorf("create progress temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close progress: %w", err)
	}
	if err := os.Rename(tmpName, Path(dir)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename progress: %w", err)
	}
	return nil
}

// Read returns the report in dir. Returns nil, nil when the worker has not
// written one yet.
func Read(dir string) (*Report, error) {
	data, err := os.ReadFile(Path(dir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse progress: %w", err)
	}
	if r.Status != "" && !r.Status.Valid() {
		return nil, fmt.Errorf("parse progress: invalid status %q", r.Status)
	}
	return &r, nil
}
