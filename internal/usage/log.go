package usage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// maxLineSize bounds a single usage line. Longer lines are skipped.
const maxLineSize = 1 << 20

// Totals accumulates usage entries split by provenance.
type Totals struct {
	PromptTokens     int64
	CompletionTokens int64
	RealTokens       int64
	EstimatedTokens  int64
	Cost             float64
	Entries          int
	// Skipped counts malformed lines.
	Skipped int
}

// TotalTokens is real plus estimated.
func (t Totals) TotalTokens() int64 {
	return t.RealTokens + t.EstimatedTokens
}

// Add folds one entry into the totals.
func (t *Totals) Add(e Entry, pricing map[string]ModelPricing) {
	t.PromptTokens += e.PromptTokens
	t.CompletionTokens += e.CompletionTokens
	if e.Estimated {
		t.EstimatedTokens += e.Total()
	} else {
		t.RealTokens += e.Total()
	}
	t.Cost += Cost(e, pricing)
	t.Entries++
}

// ReadFile parses a usage log. Lines that are not valid JSON objects,
// including a partially written last line, are counted in Skipped and
// otherwise ignored. A missing file is returned as an error wrapping
// os.ErrNotExist.
func ReadFile(path string, pricing map[string]ModelPricing) (Totals, error) {
	var totals Totals

	f, err := os.Open(path)
	if err != nil {
		return totals, fmt.Errorf("open usage log: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	for {
		line, err := readLine(reader)
		if len(line) > 0 {
			var e Entry
			if jerr := json.Unmarshal(line, &e); jerr != nil || e.Total() < 0 {
				totals.Skipped++
			} else {
				totals.Add(e, pricing)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return totals, fmt.Errorf("read usage log: %w", err)
		}
	}
	return totals, nil
}

// readLine returns the next line without its newline. Oversized lines are
// discarded and returned as a single invalid byte so they count as skipped.
func readLine(r *bufio.Reader) ([]byte, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return buf, err
		}
		if len(buf)+len(chunk) <= maxLineSize {
			buf = append(buf, chunk...)
		} else {
			buf = []byte{'!'}
		}
		if !isPrefix {
			return buf, nil
		}
	}
}

// Writer appends entries to a usage log. Safe for concurrent use.
type Writer struct {
	mu   sync.Mutex
	path string
}

// NewWriter creates a Writer for the log in dir.
func NewWriter(dir string) *Writer {
	return &Writer{path: filepath.Join(dir, FileName)}
}

// Path returns the log file path.
func (w *Writer) Path() string {
	return w.path
}

// Append writes one entry as a single line. Each call opens the file in
// append mode so concurrent readers never observe a torn earlier line.
func (w *Writer) Append(e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.TotalTokens == 0 {
		e.TotalTokens = e.PromptTokens + e.CompletionTokens
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal usage entry: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open usage log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write usage entry: %w", err)
	}
	return nil
}

// Touch creates the log if it does not exist.
func (w *Writer) Touch() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("create usage log: %w", err)
	}
	return f.Close()
}
