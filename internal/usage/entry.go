// Package usage reads and writes worker token-usage logs and rolls them up
// into per-agent totals.
package usage

import "time"

// FileName is the usage log's name inside an agent's directory.
const FileName = "usage.jsonl"

// Entry is one line of a usage log, written once per LLM call.
type Entry struct {
	Timestamp        time.Time `json:"ts"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	// Estimated is true when the provider omitted usage and the counts
	// were inferred locally.
	Estimated bool `json:"estimated"`
}

// Total returns TotalTokens, falling back to prompt+completion when a
// writer left it empty.
func (e Entry) Total() int64 {
	if e.TotalTokens > 0 {
		return e.TotalTokens
	}
	return e.PromptTokens + e.CompletionTokens
}

// EstimateTokens approximates a token count from text length at four
// characters per token, rounding up.
func EstimateTokens(text string) int64 {
	n := int64(len([]rune(text)))
	return (n + 3) / 4
}
