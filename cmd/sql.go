package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-hax-metrics/internal/report"
	"github.com/pable/go-hax-metrics/internal/storage"
)

var sqlMaxCell int

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the metrics database",
	Long: `Run an arbitrary SQL query against the metrics database and print results as a table.

Schema overview:
  matches(id, stadium, played_at, score_red, score_blue, duration, time_limit, score_limit,
    players_red, players_blue, end_reason, source, ball_radius, touch_threshold, goal_areas)
  match_players(match_id, player_id, name, team)
  goals(match_id, seq, time, team, is_own, score_red, score_blue, ball_x, ball_y,
    scorer_id, scorer_name, scorer_team, assist_id, assist_name, assist_team)
  kicks(match_id, seq, time, type, from_id, from_name, from_team, from_x, from_y,
    to_id, to_name, to_team, to_x, to_y, assist_id, assist_name, score_red, score_blue, correction)
  possessions(match_id, seq, start, end_time, player_id, team)
  positions(match_id, seq, time, kind, x, y, player_id, has_ball, holder_id, holder_team)
  player_match_stats(match_id, player_id, name, team, goals, own_goals, assists,
    shots_taken, shots_faced, saves, corrections, passes_attempted, passes_completed,
    passes_received, steals_made, steals_given, time_possessed)

Note: team columns hold 'Red', 'Blue' or '-'. Kick types: pass, steal, save, goal,
own_goal, error. Loose-ball drives have a NULL player_id.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func init() {
	sqlCmd.Flags().IntVar(&sqlMaxCell, "max-cell", 40, "truncate cells longer than this many characters (0 = never)")
}

func runSQL(cmd *cobra.Command, args []string) error {
	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()
	return runQuery(os.Stdout, db, strings.Join(args, " "))
}

func runQuery(w io.Writer, db *storage.DB, query string) error {
	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return nil
	}
	report.PrintRows(w, cols, rows, sqlMaxCell)
	fmt.Fprintf(w, "\n(%d rows)\n", len(rows))
	return nil
}
