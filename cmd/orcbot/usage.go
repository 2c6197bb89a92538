package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/orcbot/internal/usage"
	"github.com/ShayCichocki/orcbot/pkg/models"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show token usage per agent",
	Long: `Roll up the usage log every worker keeps in its agent directory.

CONF is the share of tokens that came from provider-reported counts rather
than estimates. Agents whose log cannot be read show zeros.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openFleet(cfg)
		if err != nil {
			return err
		}
		defer f.Close()

		records := f.GetAggregateWorkerTokenUsage()
		total := usage.Sum(records)
		out := cmd.OutOrStdout()
		if flagJSON {
			if records == nil {
				records = []models.TokenUsageRecord{}
			}
			return printJSON(out, map[string]any{"agents": records, "total": total})
		}
		printUsage(out, records, total)
		return nil
	},
}

func printUsage(w io.Writer, records []models.TokenUsageRecord, total models.TokenUsageRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No agents.")
		return
	}
	bold := color.New(color.Bold)
	fmt.Fprintf(w, "%-10s %-16s %12s %12s %12s %10s %5s\n", "ID", "NAME", "TOTAL", "REAL", "ESTIMATED", "COST", "CONF")
	row := func(id string, r models.TokenUsageRecord) string {
		return fmt.Sprintf("%-10s %-16s %12d %12d %12d %10s %4.0f%%",
			id, truncate(r.Name, 16), r.TotalTokens, r.RealTokens, r.EstimatedTokens,
			fmt.Sprintf("$%.4f", r.Cost), r.Confidence()*100)
	}
	for _, r := range records {
		fmt.Fprintln(w, row(shortID(r.AgentID), r))
	}
	fmt.Fprintln(w, bold.Sprint(row("", total)))
}
