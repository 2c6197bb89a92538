package usage

// ModelPricing contains pricing per 1M tokens for a model.
type ModelPricing struct {
	InputPerMillion  float64 // Cost per 1M input tokens
	OutputPerMillion float64 // Cost per 1M output tokens
}

// DefaultModelPricing contains pricing for known Claude models.
var DefaultModelPricing = map[string]ModelPricing{
	"claude-opus-4-5-20251101":   {InputPerMillion: 15.00, OutputPerMillion: 75.00},
	"claude-sonnet-4-20250514":   {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-3-5-sonnet-20241022": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-3-5-haiku-20241022":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
}

// Cost returns the dollar cost of an entry, or 0 for unknown models.
func Cost(e Entry, pricing map[string]ModelPricing) float64 {
	p, ok := pricing[e.Model]
	if !ok {
		return 0
	}
	return float64(e.PromptTokens)/1_000_000*p.InputPerMillion +
		float64(e.CompletionTokens)/1_000_000*p.OutputPerMillion
}
