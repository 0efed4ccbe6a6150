package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-hax-metrics/internal/report"
	"github.com/pable/go-hax-metrics/internal/storage"
)

// playersCmd is the cobra command for cross-match aggregates of one or more players.
var playersCmd = &cobra.Command{
	Use:   "players [name...]",
	Short: "Cross-match stats for all players, or only the named ones",
	Args:  cobra.ArbitraryArgs,
	RunE:  runPlayers,
}

func runPlayers(cmd *cobra.Command, args []string) error {
	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()
	return showPlayers(os.Stdout, db, args)
}

func showPlayers(w io.Writer, db *storage.DB, names []string) error {
	aggs, err := db.GetPlayerAggregates(names...)
	if err != nil {
		return fmt.Errorf("query player aggregates: %w", err)
	}

	found := make(map[string]bool, len(aggs))
	for _, a := range aggs {
		found[a.Name] = true
	}
	for _, n := range names {
		if !found[n] {
			fmt.Fprintf(os.Stderr, "No data found for player %q\n", n)
		}
	}
	if len(aggs) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	report.PrintPlayerAggregateOverview(w, aggs)
	return nil
}
