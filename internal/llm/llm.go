// Package llm provides the completion providers used by the reference worker.
package llm

import (
	"context"
	"fmt"
	"sync"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
	ProviderDry       = "dry"
)

// Completion is the result of a single request.
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
	// Estimated is true when token counts were not reported by a provider.
	Estimated bool
}

// Provider completes a prompt for a task.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, system, prompt string) (*Completion, error)
}

// Config selects and configures a Provider.
type Config struct {
	Provider   string
	Model      string
	MaxTokens  int64
	APIKey     string
	AWSRegion  string
	AWSProfile string
}

// New returns the provider named by cfg.Provider.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderDry:
		return NewDry(cfg.Model), nil
	case ProviderAnthropic, "":
		return NewClient(ClientConfig{
			Model:     cfg.Model,
			APIKey:    cfg.APIKey,
			MaxTokens: cfg.MaxTokens,
		})
	case ProviderBedrock:
		return NewClient(ClientConfig{
			Model:         cfg.Model,
			MaxTokens:     cfg.MaxTokens,
			UseAWSBedrock: true,
			AWSRegion:     cfg.AWSRegion,
			AWSProfile:    cfg.AWSProfile,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// TokenTracker tracks token usage across calls.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records token usage from a call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the total input and output tokens tracked.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of calls made.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
