package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/pable/go-hax-metrics/internal/model"
)

// GetPlayerAggregates sums player_match_stats per player name across all stored matches.
// When names is non-empty only those players are returned.
func (db *DB) GetPlayerAggregates(names ...string) ([]model.PlayerAggregate, error) {
	query := `
		SELECT name, COUNT(DISTINCT match_id),
		       SUM(goals), SUM(own_goals), SUM(assists),
		       SUM(shots_taken), SUM(shots_faced), SUM(saves),
		       SUM(passes_attempted), SUM(passes_completed),
		       SUM(steals_made), SUM(steals_given),
		       SUM(time_possessed)
		FROM player_match_stats`
	args := make([]any, 0, len(names))
	if len(names) > 0 {
		query += fmt.Sprintf(" WHERE name IN (%s)", placeholders(len(names)))
		for _, n := range names {
			args = append(args, n)
		}
	}
	query += " GROUP BY name ORDER BY SUM(goals) DESC, name"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PlayerAggregate
	for rows.Next() {
		var a model.PlayerAggregate
		if err := rows.Scan(&a.Name, &a.Matches,
			&a.Goals, &a.OwnGoals, &a.Assists,
			&a.ShotsTaken, &a.ShotsFaced, &a.Saves,
			&a.PassesAttempted, &a.PassesCompleted,
			&a.StealsMade, &a.StealsGiven,
			&a.TimePossessed); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetDBOverview returns high-level counts for the summary command.
func (db *DB) GetDBOverview() (model.DBOverview, error) {
	var ov model.DBOverview
	var earliest, latest sql.NullString
	err := db.conn.QueryRow(`
		SELECT COUNT(1), MIN(played_at), MAX(played_at), COUNT(DISTINCT stadium)
		FROM matches`).Scan(&ov.TotalMatches, &earliest, &latest, &ov.UniqueStadiums)
	if err != nil {
		return ov, fmt.Errorf("matches overview: %w", err)
	}
	ov.EarliestMatch, ov.LatestMatch = earliest.String, latest.String

	if err := db.conn.QueryRow(`SELECT COUNT(DISTINCT name) FROM match_players`).Scan(&ov.UniquePlayers); err != nil {
		return ov, fmt.Errorf("players overview: %w", err)
	}
	if err := db.conn.QueryRow(`SELECT COUNT(1) FROM goals`).Scan(&ov.TotalGoals); err != nil {
		return ov, fmt.Errorf("goals overview: %w", err)
	}
	if err := db.conn.QueryRow(`SELECT COUNT(1) FROM kicks`).Scan(&ov.TotalKicks); err != nil {
		return ov, fmt.Errorf("kicks overview: %w", err)
	}
	return ov, nil
}

// GetStadiumStats returns match counts and results per stadium, most played first.
func (db *DB) GetStadiumStats() ([]model.StadiumStats, error) {
	rows, err := db.conn.Query(`
		SELECT stadium, COUNT(1),
		       SUM(CASE WHEN score_red > score_blue THEN 1 ELSE 0 END),
		       SUM(CASE WHEN score_blue > score_red THEN 1 ELSE 0 END),
		       SUM(CASE WHEN score_red = score_blue THEN 1 ELSE 0 END)
		FROM matches GROUP BY stadium ORDER BY COUNT(1) DESC, stadium`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StadiumStats
	for rows.Next() {
		var s model.StadiumStats
		if err := rows.Scan(&s.Stadium, &s.Matches, &s.RedWins, &s.BlueWins, &s.Draws); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// QueryRaw runs an arbitrary query and returns column names and stringified rows.
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			switch x := v.(type) {
			case nil:
				row[i] = "NULL"
			case []byte:
				row[i] = string(x)
			default:
				row[i] = fmt.Sprint(x)
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

// placeholders returns a comma-separated string of n "?" for SQL IN clauses,
// e.g. placeholders(3) → "?,?,?".
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
