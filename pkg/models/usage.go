package models

// TokenUsageRecord is the per-agent rollup of a worker's usage log.
type TokenUsageRecord struct {
	AgentID         string  `json:"agent_id"`
	Name            string  `json:"name"`
	TotalTokens     int64   `json:"total_tokens"`
	RealTokens      int64   `json:"real_tokens"`
	EstimatedTokens int64   `json:"estimated_tokens"`
	Cost            float64 `json:"cost"`
}

// Confidence is the share of tokens that were reported by the provider.
// 1.0 when nothing has been recorded.
func (r TokenUsageRecord) Confidence() float64 {
	if r.TotalTokens == 0 {
		return 1.0
	}
	return float64(r.RealTokens) / float64(r.TotalTokens)
}

// FleetStatus is the fleet-wide summary returned by status queries.
type FleetStatus struct {
	ActiveAgents   int `json:"active_agents"`
	IdleAgents     int `json:"idle_agents"`
	WorkingAgents  int `json:"working_agents"`
	PendingTasks   int `json:"pending_tasks"`
	CompletedTasks int `json:"completed_tasks"`
	FailedTasks    int `json:"failed_tasks"`
}

// RunningWorker is a snapshot of one confirmed-live worker process.
type RunningWorker struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
	PID     int    `json:"pid"`
}
