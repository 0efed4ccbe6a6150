package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-hax-metrics/internal/aggregator"
	"github.com/pable/go-hax-metrics/internal/report"
	"github.com/pable/go-hax-metrics/internal/storage"
)

var possessionMin float64

// possessionCmd is the cobra command for the drive-by-drive drill-down of one match.
var possessionCmd = &cobra.Command{
	Use:   "possession <id-prefix>",
	Short: "Possession shares and drive log for one match",
	Args:  cobra.ExactArgs(1),
	RunE:  runPossession,
}

func init() {
	possessionCmd.Flags().Float64Var(&possessionMin, "min", 0, "hide drives shorter than this many seconds")
}

func runPossession(cmd *cobra.Command, args []string) error {
	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()
	return showPossession(os.Stdout, db, args[0], possessionMin)
}

func showPossession(w io.Writer, db *storage.DB, prefix string, minSecs float64) error {
	m, err := findMatch(db, prefix)
	if err != nil || m == nil {
		return err
	}
	drives, err := db.GetPossessions(m.MatchID)
	if err != nil {
		return fmt.Errorf("get possessions: %w", err)
	}
	players, err := db.GetMatchPlayers(m.MatchID)
	if err != nil {
		return fmt.Errorf("get players: %w", err)
	}

	names := make(map[int]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}
	// Shares always cover every drive; --min only trims the listing.
	shares := aggregator.TimeOfPossession(drives)
	shown := drives[:0:0]
	for _, d := range drives {
		if d.Duration() >= minSecs {
			shown = append(shown, d)
		}
	}

	report.PrintMatchSummary(w, *m)
	report.PrintPossessionTable(w, shown, shares, names)
	return nil
}
