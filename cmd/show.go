package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-hax-metrics/internal/model"
	"github.com/pable/go-hax-metrics/internal/report"
	"github.com/pable/go-hax-metrics/internal/storage"
)

var showPlayer string

var showCmd = &cobra.Command{
	Use:   "show <id-prefix>",
	Short: "Show stored match stats by id prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showPlayer, "player", "", "highlight player by name")
}

func runShow(cmd *cobra.Command, args []string) error {
	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()
	return showMatch(os.Stdout, db, args[0], showPlayer)
}

// findMatch resolves an id prefix, reporting a miss on stderr.
func findMatch(db *storage.DB, prefix string) (*model.MatchSummary, error) {
	m, err := db.GetMatchByPrefix(prefix)
	if err != nil {
		return nil, fmt.Errorf("query match: %w", err)
	}
	if m == nil {
		fmt.Fprintf(os.Stderr, "No match found with id prefix %q\n", prefix)
	}
	return m, nil
}

func showMatch(w io.Writer, db *storage.DB, prefix, focus string) error {
	m, err := findMatch(db, prefix)
	if err != nil || m == nil {
		return err
	}

	goals, err := db.GetGoals(m.MatchID)
	if err != nil {
		return fmt.Errorf("get goals: %w", err)
	}
	stats, err := db.GetPlayerMatchStats(m.MatchID)
	if err != nil {
		return fmt.Errorf("get player stats: %w", err)
	}

	report.PrintMatchSummary(w, *m)
	if len(goals) > 0 {
		report.PrintGoalTable(w, goals)
		fmt.Fprintln(w)
	}
	report.PrintPlayerTable(w, stats, focus)
	return nil
}
