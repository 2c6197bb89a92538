package usage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ShayCichocki/orcbot/pkg/models"
)

func writeLog(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int64
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(tt.text), got, tt.want)
		}
	}
}

func TestEntry_Total(t *testing.T) {
	if got := (Entry{TotalTokens: 7, PromptTokens: 1}).Total(); got != 7 {
		t.Errorf("Total() = %d, want 7", got)
	}
	if got := (Entry{PromptTokens: 3, CompletionTokens: 4}).Total(); got != 7 {
		t.Errorf("Total() fallback = %d, want 7", got)
	}
}

func TestCost(t *testing.T) {
	e := Entry{Model: "claude-sonnet-4-20250514", PromptTokens: 1_000_000, CompletionTokens: 1_000_000}
	if got := Cost(e, DefaultModelPricing); got != 18.0 {
		t.Errorf("Cost() = %v, want 18", got)
	}
	e.Model = "unknown"
	if got := Cost(e, DefaultModelPricing); got != 0 {
		t.Errorf("Cost(unknown) = %v, want 0", got)
	}
}

func TestReadFile_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, strings.Join([]string{
		`{"ts":"2025-01-01T00:00:00Z","provider":"anthropic","model":"m","prompt_tokens":10,"completion_tokens":5,"total_tokens":15,"estimated":false}`,
		`not json`,
		``,
		`{"provider":"dry","model":"m","prompt_tokens":3,"completion_tokens":2,"estimated":true}`,
		`{"provider":"anthropic","model":"m","prompt_tok`,
	}, "\n"))

	totals, err := ReadFile(path, nil)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if totals.RealTokens != 15 {
		t.Errorf("RealTokens = %d, want 15", totals.RealTokens)
	}
	if totals.EstimatedTokens != 5 {
		t.Errorf("EstimatedTokens = %d, want 5", totals.EstimatedTokens)
	}
	if totals.TotalTokens() != 20 {
		t.Errorf("TotalTokens = %d, want 20", totals.TotalTokens())
	}
	if totals.Entries != 2 {
		t.Errorf("Entries = %d, want 2", totals.Entries)
	}
	if totals.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", totals.Skipped)
	}
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), FileName), nil)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestReadFile_OversizedLine(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, strings.Repeat("x", maxLineSize+10)+"\n"+`{"prompt_tokens":1,"completion_tokens":1}`+"\n")

	totals, err := ReadFile(path, nil)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if totals.Skipped != 1 || totals.RealTokens != 2 {
		t.Errorf("got skipped=%d real=%d, want 1 and 2", totals.Skipped, totals.RealTokens)
	}
}

func TestWriter_AppendAndRead(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := w.Append(Entry{Provider: "dry", Model: "m", PromptTokens: 1, CompletionTokens: 1, Estimated: i%2 == 0}); err != nil {
				t.Errorf("Append failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	totals, err := ReadFile(w.Path(), nil)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if totals.Entries != 20 || totals.Skipped != 0 {
		t.Errorf("entries=%d skipped=%d, want 20 and 0", totals.Entries, totals.Skipped)
	}
	if totals.RealTokens != 20 || totals.EstimatedTokens != 20 {
		t.Errorf("real=%d estimated=%d, want 20 and 20", totals.RealTokens, totals.EstimatedTokens)
	}
}

func TestAggregator_Aggregate(t *testing.T) {
	withLog := t.TempDir()
	writeLog(t, withLog, `{"model":"claude-3-5-haiku-20241022","prompt_tokens":100,"completion_tokens":50,"estimated":false}`+"\n"+
		`{"model":"dry","prompt_tokens":10,"completion_tokens":10,"estimated":true}`+"\n")
	noLog := t.TempDir()

	unreadable := t.TempDir()
	if err := os.Mkdir(filepath.Join(unreadable, FileName), 0755); err != nil {
		t.Fatal(err)
	}

	agents := []*models.Agent{
		{ID: "a1", Name: "one", MemoryPath: filepath.Join(withLog, "memory.md")},
		{ID: "a2", Name: "two", MemoryPath: filepath.Join(noLog, "memory.md")},
		{ID: "a3", Name: "three", WorkDir: unreadable},
		{ID: "a4", Name: "four"},
	}

	var warnings []string
	agg := NewAggregator(nil)
	agg.SetLogf(func(format string, args ...interface{}) {
		warnings = append(warnings, format)
	})

	records := agg.Aggregate(agents)
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	first := records[0]
	if first.AgentID != "a1" || first.RealTokens != 150 || first.EstimatedTokens != 20 || first.TotalTokens != 170 {
		t.Errorf("unexpected first record: %+v", first)
	}
	if first.Cost <= 0 {
		t.Errorf("expected a cost for a priced model, got %v", first.Cost)
	}
	for _, r := range records[1:] {
		if r.TotalTokens != 0 {
			t.Errorf("agent %s: TotalTokens = %d, want 0", r.AgentID, r.TotalTokens)
		}
	}
	if len(warnings) != 1 {
		t.Errorf("got %d warnings, want 1 for the unreadable log", len(warnings))
	}

	again := agg.Aggregate(agents)
	for i := range records {
		if records[i] != again[i] {
			t.Errorf("Aggregate not idempotent at %d: %+v vs %+v", i, records[i], again[i])
		}
	}
}

func TestSum(t *testing.T) {
	total := Sum([]models.TokenUsageRecord{
		{TotalTokens: 10, RealTokens: 6, EstimatedTokens: 4, Cost: 1},
		{TotalTokens: 5, RealTokens: 5, Cost: 0.5},
	})
	if total.TotalTokens != 15 || total.RealTokens != 11 || total.EstimatedTokens != 4 || total.Cost != 1.5 {
		t.Errorf("unexpected sum: %+v", total)
	}
}
