package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-hax-metrics/internal/report"
)

const topPlayers = 10

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display aggregate statistics about all matches stored in the database:
total match count, date range, stadium breakdown and top scorers.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	ov, err := db.GetDBOverview()
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.TotalMatches == 0 {
		fmt.Fprintln(os.Stdout, "No matches stored yet. Run 'haxmetrics ingest <events.jsonl>' to add some.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "\n=== Database Summary ===\n\n")
	fmt.Fprintf(os.Stdout, "  Matches stored : %d\n", ov.TotalMatches)
	fmt.Fprintf(os.Stdout, "  Date range     : %s → %s\n", ov.EarliestMatch, ov.LatestMatch)
	fmt.Fprintf(os.Stdout, "  Stadiums       : %d\n", ov.UniqueStadiums)
	fmt.Fprintf(os.Stdout, "  Players seen   : %d\n", ov.UniquePlayers)
	fmt.Fprintf(os.Stdout, "  Goals          : %d\n", ov.TotalGoals)
	fmt.Fprintf(os.Stdout, "  Kicks logged   : %d\n", ov.TotalKicks)

	stadiums, err := db.GetStadiumStats()
	if err != nil {
		return fmt.Errorf("get stadium stats: %w", err)
	}
	fmt.Fprintf(os.Stdout, "\n--- Stadiums ---\n\n")
	report.PrintStadiumTable(os.Stdout, stadiums)

	aggs, err := db.GetPlayerAggregates()
	if err != nil {
		return fmt.Errorf("get top players: %w", err)
	}
	if len(aggs) > topPlayers {
		aggs = aggs[:topPlayers]
	}
	fmt.Fprintf(os.Stdout, "\n--- Top Scorers ---\n\n")
	report.PrintPlayerAggregateOverview(os.Stdout, aggs)
	return nil
}
