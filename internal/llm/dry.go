package llm

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/orcbot/internal/usage"
)

// Dry is an offline provider. It echoes an acknowledgement and estimates
// token counts from text length.
type Dry struct {
	model   string
	tracker *TokenTracker
}

// NewDry returns a Dry provider reporting the given model name.
func NewDry(model string) *Dry {
	if model == "" {
		model = "dry-run"
	}
	return &Dry{model: model, tracker: NewTokenTracker()}
}

// Name reports the provider name.
func (d *Dry) Name() string { return ProviderDry }

// Model returns the reported model name.
func (d *Dry) Model() string { return d.model }

// Tracker returns the token tracker for this provider.
func (d *Dry) Tracker() *TokenTracker { return d.tracker }

// Complete returns a canned reply without network access.
func (d *Dry) Complete(ctx context.Context, system, prompt string) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reply := fmt.Sprintf("acknowledged: %s", prompt)
	c := &Completion{
		Text:             reply,
		Model:            d.model,
		PromptTokens:     usage.EstimateTokens(system + prompt),
		CompletionTokens: usage.EstimateTokens(reply),
		Estimated:        true,
	}
	d.tracker.Add(c.PromptTokens, c.CompletionTokens)
	return c, nil
}
