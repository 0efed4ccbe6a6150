package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-hax-metrics/internal/storage"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored matches",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()
	return listMatches(os.Stdout, db)
}

func listMatches(w io.Writer, db *storage.DB) error {
	matches, err := db.ListMatches()
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches stored yet. Run 'haxmetrics ingest <events.jsonl>' to add some.")
		return nil
	}

	fmt.Fprintf(w, "%-14s  %-20s  %-16s  %6s  %7s  %s\n",
		"ID", "DATE", "STADIUM", "SCORE", "LENGTH", "END")
	fmt.Fprintf(w, "%-14s  %-20s  %-16s  %6s  %7s  %s\n",
		"──────────────", "────────────────────", "────────────────", "──────", "───────", "───────")
	for _, m := range matches {
		score := fmt.Sprintf("%d-%d", m.ScoreRed, m.ScoreBlue)
		fmt.Fprintf(w, "%-14s  %-20s  %-16s  %6s  %7.0fs  %s\n",
			shortID(m.MatchID), m.PlayedAt, m.Stadium, score, m.Duration, m.EndReason)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
