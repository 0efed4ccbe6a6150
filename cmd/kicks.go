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

var (
	kicksPlayer string
	kicksType   string
)

// kicksCmd prints the classified kick log of one match.
var kicksCmd = &cobra.Command{
	Use:   "kicks <id-prefix>",
	Short: "Kick-by-kick log for one match",
	Long: `Print every classified kick of a match: passes, steals, saves, goals, own goals
and errors. Saves later corrected to errors are marked with "*".`,
	Args: cobra.ExactArgs(1),
	RunE: runKicks,
}

func init() {
	kicksCmd.Flags().StringVar(&kicksPlayer, "player", "", "only kicks from or to this player")
	kicksCmd.Flags().StringVar(&kicksType, "type", "", "only kicks of this type: pass, steal, save, goal, own_goal, error")
}

func runKicks(cmd *cobra.Command, args []string) error {
	var kt model.KickType
	if kicksType != "" {
		var ok bool
		if kt, ok = model.ParseKickType(kicksType); !ok {
			return fmt.Errorf("unknown kick type %q", kicksType)
		}
	}

	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()
	return showKicks(os.Stdout, db, args[0], kicksPlayer, kt)
}

func showKicks(w io.Writer, db *storage.DB, prefix, player string, kt model.KickType) error {
	m, err := findMatch(db, prefix)
	if err != nil || m == nil {
		return err
	}
	kicks, err := db.GetKicks(m.MatchID)
	if err != nil {
		return fmt.Errorf("get kicks: %w", err)
	}
	if kt != "" {
		filtered := kicks[:0]
		for _, k := range kicks {
			if k.Type == kt {
				filtered = append(filtered, k)
			}
		}
		kicks = filtered
	}

	report.PrintMatchSummary(w, *m)
	if len(kicks) == 0 {
		fmt.Fprintln(w, "(no kicks)")
		return nil
	}
	report.PrintKickTable(w, kicks, player)
	return nil
}
