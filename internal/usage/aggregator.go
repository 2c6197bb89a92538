package usage

import (
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/ShayCichocki/orcbot/pkg/models"
)

// Aggregator rolls each agent's usage log into a TokenUsageRecord.
// It never writes and holds no state between calls.
type Aggregator struct {
	pricing map[string]ModelPricing
	logf    func(format string, args ...interface{})
}

// NewAggregator creates an Aggregator. A nil pricing table uses
// DefaultModelPricing.
func NewAggregator(pricing map[string]ModelPricing) *Aggregator {
	if pricing == nil {
		pricing = DefaultModelPricing
	}
	return &Aggregator{pricing: pricing, logf: log.Printf}
}

// SetLogf replaces the warning sink. Used by tests.
func (a *Aggregator) SetLogf(logf func(format string, args ...interface{})) {
	if logf != nil {
		a.logf = logf
	}
}

// LogPath returns where an agent's worker writes its usage log: next to
// its memory file.
func LogPath(agent *models.Agent) string {
	if agent.MemoryPath != "" {
		return filepath.Join(filepath.Dir(agent.MemoryPath), FileName)
	}
	if agent.WorkDir != "" {
		return filepath.Join(agent.WorkDir, FileName)
	}
	return ""
}

// Aggregate returns one record per agent in input order. An agent whose
// log is missing or unreadable contributes zero and a warning.
func (a *Aggregator) Aggregate(agents []*models.Agent) []models.TokenUsageRecord {
	records := make([]models.TokenUsageRecord, 0, len(agents))
	for _, agent := range agents {
		rec := models.TokenUsageRecord{AgentID: agent.ID, Name: agent.Name}

		path := LogPath(agent)
		if path == "" {
			records = append(records, rec)
			continue
		}

		totals, err := ReadFile(path, a.pricing)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Worker has not started yet.
		case err != nil:
			a.logf("[usage] warning: agent %s: %v", agent.ID, err)
		default:
			if totals.Skipped > 0 {
				a.logf("[usage] agent %s: skipped %d malformed line(s)", agent.ID, totals.Skipped)
			}
			rec.RealTokens = totals.RealTokens
			rec.EstimatedTokens = totals.EstimatedTokens
			rec.TotalTokens = totals.TotalTokens()
			rec.Cost = totals.Cost
		}
		records = append(records, rec)
	}
	return records
}

// Sum returns the fleet-wide totals row.
func Sum(records []models.TokenUsageRecord) models.TokenUsageRecord {
	total := models.TokenUsageRecord{Name: "TOTAL"}
	for _, r := range records {
		total.TotalTokens += r.TotalTokens
		total.RealTokens += r.RealTokens
		total.EstimatedTokens += r.EstimatedTokens
		total.Cost += r.Cost
	}
	return total
}
