package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pable/go-hax-metrics/internal/model"
)

// MatchExists returns true if a match with the given id is already stored.
func (db *DB) MatchExists(id string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM matches WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertMatch writes a finalized match and its derived stats in one transaction.
// Re-inserting the same id replaces the previous rows.
func (db *DB) InsertMatch(rec *model.MatchRecord, stats []model.PlayerMatchStats) error {
	if rec == nil {
		return fmt.Errorf("nil MatchRecord")
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	s := rec.Summary
	g := rec.Geometry
	_, err = tx.Exec(`
		INSERT OR REPLACE INTO matches(id, stadium, played_at, score_red, score_blue, duration,
			time_limit, score_limit, players_red, players_blue, end_reason, source,
			ball_radius, touch_threshold, goal_areas)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, s.Stadium, s.PlayedAt, s.ScoreRed, s.ScoreBlue, model.RoundTime(s.Duration),
		s.TimeLimit, s.ScoreLimit, strings.Join(s.PlayersRed, ", "), strings.Join(s.PlayersBlue, ", "),
		string(s.EndReason), s.Source,
		g.BallRadius, g.TouchThreshold, boolInt(g.Red != nil && g.Blue != nil),
	)
	if err != nil {
		return fmt.Errorf("insert match %s: %w", rec.ID, err)
	}

	// Children are keyed by sequence; clear them so a shorter re-insert leaves no strays.
	for _, table := range []string{"match_players", "goals", "kicks", "possessions", "positions", "player_match_stats"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE match_id = ?", rec.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := insertPlayers(tx, rec); err != nil {
		return err
	}
	if err := insertGoals(tx, rec); err != nil {
		return err
	}
	if err := insertKicks(tx, rec); err != nil {
		return err
	}
	if err := insertPossessions(tx, rec); err != nil {
		return err
	}
	if err := insertPositions(tx, rec); err != nil {
		return err
	}
	if err := insertPlayerMatchStats(tx, rec.ID, stats); err != nil {
		return err
	}
	return tx.Commit()
}

func insertPlayers(tx *sql.Tx, rec *model.MatchRecord) error {
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO match_players(match_id, player_id, name, team) VALUES (?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range rec.Players {
		if _, err := stmt.Exec(rec.ID, p.ID, p.Name, p.Team.String()); err != nil {
			return fmt.Errorf("insert match_players for %d: %w", p.ID, err)
		}
	}
	return nil
}

func insertGoals(tx *sql.Tx, rec *model.MatchRecord) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO goals(
			match_id, seq, time, team, is_own, score_red, score_blue, ball_x, ball_y,
			scorer_id, scorer_name, scorer_team, scorer_x, scorer_y,
			assist_id, assist_name, assist_team
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, g := range rec.Goals {
		scorer := playerArgs(g.Scorer)
		assist := playerArgs(g.Assist)
		_, err = stmt.Exec(
			rec.ID, i, model.RoundTime(g.Time), g.Team.String(), boolInt(g.IsOwn),
			g.ScoreRed, g.ScoreBlue, model.RoundCoord(g.Ball.X), model.RoundCoord(g.Ball.Y),
			scorer.id, scorer.name, scorer.team, scorer.x, scorer.y,
			assist.id, assist.name, assist.team,
		)
		if err != nil {
			return fmt.Errorf("insert goals #%d: %w", i, err)
		}
	}
	return nil
}

func insertKicks(tx *sql.Tx, rec *model.MatchRecord) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO kicks(
			match_id, seq, time, type,
			from_id, from_name, from_team, from_x, from_y,
			to_id, to_name, to_team, to_x, to_y,
			assist_id, assist_name, assist_team,
			score_red, score_blue, correction
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, k := range rec.Kicks {
		to := playerArgs(k.To)
		assist := playerArgs(k.Assist)
		_, err = stmt.Exec(
			rec.ID, i, model.RoundTime(k.Time), string(k.Type),
			k.From.ID, k.From.Name, k.From.Team.String(), k.From.X, k.From.Y,
			to.id, to.name, to.team, to.x, to.y,
			assist.id, assist.name, assist.team,
			k.Score.Red, k.Score.Blue, boolInt(k.Correction),
		)
		if err != nil {
			return fmt.Errorf("insert kicks #%d: %w", i, err)
		}
	}
	return nil
}

func insertPossessions(tx *sql.Tx, rec *model.MatchRecord) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO possessions(match_id, seq, start, end_time, player_id, team)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, d := range rec.Possessions {
		var player any
		if d.Attributed() {
			player = d.PlayerID
		}
		_, err = stmt.Exec(rec.ID, i, model.RoundTime(d.Start), model.RoundTime(d.End), player, d.Team.String())
		if err != nil {
			return fmt.Errorf("insert possessions #%d: %w", i, err)
		}
	}
	return nil
}

func insertPositions(tx *sql.Tx, rec *model.MatchRecord) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO positions(match_id, seq, time, kind, x, y, player_id, has_ball, holder_id, holder_team)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range rec.Positions {
		var player, holder, holderTeam any
		if p.Kind == model.SamplePlayer {
			player = p.PlayerID
		} else if p.HolderID != model.NoPlayer {
			holder, holderTeam = p.HolderID, p.HolderTeam.String()
		}
		_, err = stmt.Exec(
			rec.ID, i, model.RoundTime(p.Time), string(p.Kind),
			model.RoundCoord(p.X), model.RoundCoord(p.Y),
			player, boolInt(p.HasBall), holder, holderTeam,
		)
		if err != nil {
			return fmt.Errorf("insert positions #%d: %w", i, err)
		}
	}
	return nil
}

func insertPlayerMatchStats(tx *sql.Tx, matchID string, stats []model.PlayerMatchStats) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO player_match_stats(
			match_id, player_id, name, team,
			goals, own_goals, assists,
			shots_taken, shots_faced, saves, corrections,
			passes_attempted, passes_completed, passes_received,
			steals_made, steals_given, time_possessed
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range stats {
		_, err = stmt.Exec(
			matchID, s.PlayerID, s.Name, s.Team.String(),
			s.Goals, s.OwnGoals, s.Assists,
			s.ShotsTaken, s.ShotsFaced, s.Saves, s.Corrections,
			s.PassesAttempted, s.PassesCompleted, s.PassesReceived,
			s.StealsMade, s.StealsGiven, model.RoundTime(s.TimePossessed),
		)
		if err != nil {
			return fmt.Errorf("insert player_match_stats for %d: %w", s.PlayerID, err)
		}
	}
	return nil
}

const summaryColumns = `id, stadium, played_at, score_red, score_blue, duration, time_limit, score_limit,
	players_red, players_blue, end_reason, source`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(r rowScanner) (model.MatchSummary, error) {
	var s model.MatchSummary
	var red, blue, reason string
	err := r.Scan(&s.MatchID, &s.Stadium, &s.PlayedAt, &s.ScoreRed, &s.ScoreBlue, &s.Duration,
		&s.TimeLimit, &s.ScoreLimit, &red, &blue, &reason, &s.Source)
	if err != nil {
		return s, err
	}
	s.PlayersRed = splitNames(red)
	s.PlayersBlue = splitNames(blue)
	s.EndReason = model.EndReason(reason)
	return s, nil
}

// ListMatches returns all stored match summaries, newest first.
func (db *DB) ListMatches() ([]model.MatchSummary, error) {
	rows, err := db.conn.Query(`SELECT ` + summaryColumns + ` FROM matches ORDER BY played_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MatchSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetMatchByPrefix finds the first match whose id starts with the given prefix.
// It returns nil, nil when nothing matches.
func (db *DB) GetMatchByPrefix(prefix string) (*model.MatchSummary, error) {
	row := db.conn.QueryRow(`SELECT `+summaryColumns+` FROM matches WHERE id LIKE ? ORDER BY played_at DESC LIMIT 1`, prefix+"%")
	s, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetMatchPlayers returns the roster of a match ordered by team, then player id.
func (db *DB) GetMatchPlayers(matchID string) ([]model.PlayerSnapshot, error) {
	rows, err := db.conn.Query(`
		SELECT player_id, name, team FROM match_players
		WHERE match_id = ? ORDER BY team DESC, player_id`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PlayerSnapshot
	for rows.Next() {
		var p model.PlayerSnapshot
		var team string
		if err := rows.Scan(&p.ID, &p.Name, &team); err != nil {
			return nil, err
		}
		p.Team = model.ParseTeam(team)
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetGoals returns the goal log of a match in order.
func (db *DB) GetGoals(matchID string) ([]model.GoalRecord, error) {
	rows, err := db.conn.Query(`
		SELECT time, team, is_own, score_red, score_blue, ball_x, ball_y,
		       scorer_id, scorer_name, scorer_team, scorer_x, scorer_y,
		       assist_id, assist_name, assist_team
		FROM goals WHERE match_id = ? ORDER BY seq`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GoalRecord
	for rows.Next() {
		var g model.GoalRecord
		var team string
		var isOwn int
		var scorer, assist nullPlayer
		if err := rows.Scan(&g.Time, &team, &isOwn, &g.ScoreRed, &g.ScoreBlue, &g.Ball.X, &g.Ball.Y,
			&scorer.id, &scorer.name, &scorer.team, &scorer.x, &scorer.y,
			&assist.id, &assist.name, &assist.team); err != nil {
			return nil, err
		}
		g.Team = model.ParseTeam(team)
		g.IsOwn = isOwn != 0
		g.Scorer = scorer.snapshot()
		g.Assist = assist.snapshot()
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetKicks returns the kick log of a match in order.
func (db *DB) GetKicks(matchID string) ([]model.KickRecord, error) {
	rows, err := db.conn.Query(`
		SELECT time, type, from_id, from_name, from_team, from_x, from_y,
		       to_id, to_name, to_team, to_x, to_y,
		       assist_id, assist_name, assist_team,
		       score_red, score_blue, correction
		FROM kicks WHERE match_id = ? ORDER BY seq`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.KickRecord
	for rows.Next() {
		var k model.KickRecord
		var typ, fromTeam string
		var correction int
		var to, assist nullPlayer
		if err := rows.Scan(&k.Time, &typ, &k.From.ID, &k.From.Name, &fromTeam, &k.From.X, &k.From.Y,
			&to.id, &to.name, &to.team, &to.x, &to.y,
			&assist.id, &assist.name, &assist.team,
			&k.Score.Red, &k.Score.Blue, &correction); err != nil {
			return nil, err
		}
		kt, ok := model.ParseKickType(typ)
		if !ok {
			return nil, fmt.Errorf("kick type %q in match %s", typ, matchID)
		}
		k.Type = kt
		k.From.Team = model.ParseTeam(fromTeam)
		k.From.OnField = true
		k.To = to.snapshot()
		k.Assist = assist.snapshot()
		k.Correction = correction != 0
		out = append(out, k)
	}
	return out, rows.Err()
}

// GetPossessions returns the drive log of a match in order.
func (db *DB) GetPossessions(matchID string) ([]model.Drive, error) {
	rows, err := db.conn.Query(`
		SELECT start, end_time, player_id, team
		FROM possessions WHERE match_id = ? ORDER BY seq`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Drive
	for rows.Next() {
		var d model.Drive
		var player sql.NullInt64
		var team string
		if err := rows.Scan(&d.Start, &d.End, &player, &team); err != nil {
			return nil, err
		}
		d.PlayerID = model.NoPlayer
		if player.Valid {
			d.PlayerID = int(player.Int64)
		}
		d.Team = model.ParseTeam(team)
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetPlayerMatchStats returns all player stats for a match, best scorers first.
func (db *DB) GetPlayerMatchStats(matchID string) ([]model.PlayerMatchStats, error) {
	rows, err := db.conn.Query(`
		SELECT p.player_id, p.name, p.team, m.stadium,
		       p.goals, p.own_goals, p.assists,
		       p.shots_taken, p.shots_faced, p.saves, p.corrections,
		       p.passes_attempted, p.passes_completed, p.passes_received,
		       p.steals_made, p.steals_given, p.time_possessed
		FROM player_match_stats p
		JOIN matches m ON m.id = p.match_id
		WHERE p.match_id = ?
		ORDER BY p.goals DESC, p.assists DESC, p.player_id`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PlayerMatchStats
	for rows.Next() {
		var s model.PlayerMatchStats
		var team string
		if err := rows.Scan(
			&s.PlayerID, &s.Name, &team, &s.Stadium,
			&s.Goals, &s.OwnGoals, &s.Assists,
			&s.ShotsTaken, &s.ShotsFaced, &s.Saves, &s.Corrections,
			&s.PassesAttempted, &s.PassesCompleted, &s.PassesReceived,
			&s.StealsMade, &s.StealsGiven, &s.TimePossessed,
		); err != nil {
			return nil, err
		}
		s.MatchID = matchID
		s.Team = model.ParseTeam(team)
		out = append(out, s)
	}
	return out, rows.Err()
}

// playerCols are the insert arguments for a nullable player snapshot.
type playerCols struct {
	id, name, team, x, y any
}

func playerArgs(p *model.PlayerSnapshot) playerCols {
	if p == nil {
		return playerCols{}
	}
	c := playerCols{id: p.ID, name: p.Name, team: p.Team.String()}
	if p.OnField {
		c.x, c.y = p.X, p.Y
	}
	return c
}

// nullPlayer scans a nullable player snapshot. x and y are optional columns.
type nullPlayer struct {
	id         sql.NullInt64
	name, team sql.NullString
	x, y       sql.NullFloat64
}

func (n nullPlayer) snapshot() *model.PlayerSnapshot {
	if !n.id.Valid {
		return nil
	}
	return &model.PlayerSnapshot{
		ID:      int(n.id.Int64),
		Name:    n.name.String,
		Team:    model.ParseTeam(n.team.String),
		X:       n.x.Float64,
		Y:       n.y.Float64,
		OnField: n.x.Valid,
	}
}

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ", ")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
