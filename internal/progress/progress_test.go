package progress

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/orcbot/pkg/models"
)

func TestRead_Missing(t *testing.T) {
	r, err := Read(t.TempDir())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if r != nil {
		t.Errorf("expected nil report, got %+v", r)
	}
}

func TestWriteRead(t *testing.T) {
	dir := t.TempDir()
	want := Report{TaskID: "t1", Description: "write docs", Status: models.TaskStatusInProgress}
	if err := Write(dir, want); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.TaskID != want.TaskID || got.Description != want.Description || got.Status != want.Status {
		t.Errorf("Read = %+v, want %+v", got, want)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
	if !got.Current() {
		t.Error("in-progress report should be current")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the progress file, found %d entries", len(entries))
	}
}

func TestRecord_AppendsAndPoints(t *testing.T) {
	dir := t.TempDir()
	steps := []Report{
		{TaskID: "t1", Status: models.TaskStatusInProgress},
		{TaskID: "t1", Status: models.TaskStatusCompleted},
		{TaskID: "t2", Status: models.TaskStatusInProgress},
		{TaskID: "t2", Status: models.TaskStatusFailed, Error: "boom"},
	}
	for _, r := range steps {
		if err := Record(dir, r); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	reports, offset, err := ReadFrom(dir, 0)
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if len(reports) != len(steps) {
		t.Fatalf("got %d reports, want %d", len(reports), len(steps))
	}
	for i, r := range reports {
		if r.TaskID != steps[i].TaskID || r.Status != steps[i].Status || r.UpdatedAt.IsZero() {
			t.Errorf("report %d = %+v, want %+v", i, r, steps[i])
		}
	}

	current, _ := Read(dir)
	if current.TaskID != "t2" || current.Status != models.TaskStatusFailed {
		t.Errorf("current = %+v, want the last report", current)
	}

	again, next, _ := ReadFrom(dir, offset)
	if len(again) != 0 || next != offset {
		t.Errorf("re-read from end = %d reports at %d, want none at %d", len(again), next, offset)
	}
}

func TestReadFrom(t *testing.T) {
	tests := []struct {
		name    string
		content string
		offset  int64
		want    []string
	}{
		{"missing log", "", 0, nil},
		{"partial trailing line", `{"task_id":"a","status":"completed"}` + "\n" + `{"task_id":"b"`, 0, []string{"a"}},
		{"malformed line skipped", "{oops\n" + `{"task_id":"a","status":"completed"}` + "\n", 0, []string{"a"}},
		{"invalid status skipped", `{"task_id":"a","status":"exploded"}` + "\n", 0, nil},
		{"offset past end restarts", `{"task_id":"a","status":"completed"}` + "\n", 4096, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.content != "" {
				if err := os.WriteFile(LogPath(dir), []byte(tt.content), 0644); err != nil {
					t.Fatal(err)
				}
			}
			reports, _, err := ReadFrom(dir, tt.offset)
			if err != nil {
				t.Fatalf("ReadFrom failed: %v", err)
			}
			var got []string
			for _, r := range reports {
				got = append(got, r.TaskID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestRead_Invalid(t *testing.T) {
	tests := map[string]string{
		"garbage":    "{not json",
		"bad status": `{"task_id":"t","status":"exploded"}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Read(dir); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReport_Current(t *testing.T) {
	tests := []struct {
		name string
		r    *Report
		want bool
	}{
		{"nil", nil, false},
		{"idle", &Report{}, false},
		{"completed", &Report{TaskID: "t", Status: models.TaskStatusCompleted}, false},
		{"in progress", &Report{TaskID: "t", Status: models.TaskStatusInProgress}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Current(); got != tt.want {
				t.Errorf("Current() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWatcher_DeliversChanges(t *testing.T) {
	dir := t.TempDir()
	got := make(chan string, 10)

	w, err := NewWatcher(func(agentID string) {
		got <- agentID
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	if err := w.Add("agent-1", dir); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := Record(dir, Report{TaskID: "t9", Status: models.TaskStatusCompleted}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	select {
	case id := <-got:
		if id != "agent-1" {
			t.Errorf("change reported for %q", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for progress event")
	}
}
