package models

import "testing"

func TestTaskStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status TaskStatus
		want   bool
	}{
		{"queued is valid", TaskStatusQueued, true},
		{"in-progress is valid", TaskStatusInProgress, true},
		{"completed is valid", TaskStatusCompleted, true},
		{"failed is valid", TaskStatusFailed, true},
		{"empty string is invalid", TaskStatus(""), false},
		{"unknown status is invalid", TaskStatus("unknown"), false},
		{"underscored form is invalid", TaskStatus("in_progress"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("TaskStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestTaskStatus_TerminalAndPending(t *testing.T) {
	tests := []struct {
		status       TaskStatus
		wantTerminal bool
		wantPending  bool
	}{
		{TaskStatusQueued, false, true},
		{TaskStatusInProgress, false, true},
		{TaskStatusCompleted, true, false},
		{TaskStatusFailed, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.wantTerminal {
				t.Errorf("Terminal() = %v, want %v", got, tt.wantTerminal)
			}
			if got := tt.status.Pending(); got != tt.wantPending {
				t.Errorf("Pending() = %v, want %v", got, tt.wantPending)
			}
		})
	}
}

func TestClampPriority(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{5, 5},
		{10, 10},
		{11, 10},
		{1000, 10},
	}

	for _, tt := range tests {
		if got := ClampPriority(tt.in); got != tt.want {
			t.Errorf("ClampPriority(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTask_AssignedAndClone(t *testing.T) {
	task := &Task{ID: "task-1", Requirements: []string{"code"}}
	if task.Assigned() {
		t.Error("task without agent should not be assigned")
	}

	task.AssignedAgentID = "agent-1"
	if !task.Assigned() {
		t.Error("task with agent should be assigned")
	}

	c := task.Clone()
	c.Requirements[0] = "browser"
	if task.Requirements[0] != "code" {
		t.Errorf("clone shares requirements slice: %v", task.Requirements)
	}
}

func TestTokenUsageRecord_Confidence(t *testing.T) {
	tests := []struct {
		name   string
		record TokenUsageRecord
		want   float64
	}{
		{"empty record is fully confident", TokenUsageRecord{}, 1.0},
		{"all real", TokenUsageRecord{TotalTokens: 100, RealTokens: 100}, 1.0},
		{"all estimated", TokenUsageRecord{TotalTokens: 100, EstimatedTokens: 100}, 0.0},
		{"mixed", TokenUsageRecord{TotalTokens: 200, RealTokens: 150, EstimatedTokens: 50}, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.Confidence(); got != tt.want {
				t.Errorf("Confidence() = %f, want %f", got, tt.want)
			}
		})
	}
}
