// Package inbox implements the per-agent message file used for task
// hand-off and broadcasts.
package inbox

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileName is the inbox file's name inside an agent's directory.
const FileName = "inbox.jsonl"

// Kind distinguishes inbox message types.
type Kind string

const (
	// KindTask carries a delegated or distributed task.
	KindTask Kind = "task"
	// KindBroadcast carries a fleet-wide message.
	KindBroadcast Kind = "broadcast"
)

// Message is one inbox line.
type Message struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	From      string    `json:"from,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Priority  int       `json:"priority,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Path returns the inbox file path for an agent directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// appendMu serializes appends from this process. Workers only read.
var appendMu sync.Mutex

// Append writes msg as one line to the inbox in dir, assigning an ID and
// timestamp if missing.
func Append(dir string, msg Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal inbox message: %w", err)
	}
	data = append(data, '\n')

	appendMu.Lock()
	defer appendMu.Unlock()

	f, err := os.OpenFile(Path(dir), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("open inbox: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write inbox: %w", err)
	}
	return nil
}

// ReadFrom returns the complete messages after byte offset and the offset
// to resume from. A trailing line without a newline is left for the next
// call. Malformed complete lines are skipped.
func ReadFrom(dir string, offset int64) ([]Message, int64, error) {
	f, err := os.Open(Path(dir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, offset, nil
	}
	if err != nil {
		return nil, offset, fmt.Errorf("open inbox: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek inbox: %w", err)
	}

	var msgs []Message
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return msgs, offset, fmt.Errorf("read inbox: %w", err)
		}
		offset += int64(len(line))

		var msg Message
		if jerr := json.Unmarshal(line, &msg); jerr != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, offset, nil
}

// ReadAll returns every message in the inbox.
func ReadAll(dir string) ([]Message, error) {
	msgs, _, err := ReadFrom(dir, 0)
	return msgs, err
}
