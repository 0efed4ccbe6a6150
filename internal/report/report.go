package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-hax-metrics/internal/model"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
}

// Clock formats a match time in seconds as m:ss.s.
func Clock(t float64) string {
	if t < 0 {
		t = 0
	}
	m := int(t) / 60
	return fmt.Sprintf("%d:%04.1f", m, t-float64(m*60))
}

func marker(name, focus string) string {
	if focus != "" && strings.EqualFold(name, focus) {
		return ">"
	}
	return " "
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// PrintMatchSummary prints a one-line summary header for the match.
func PrintMatchSummary(w io.Writer, s model.MatchSummary) {
	fmt.Fprintf(w, "\nStadium: %s  |  Date: %s  |  Score: Red %d – Blue %d  |  Length: %s  |  End: %s  |  ID: %s\n",
		s.Stadium, s.PlayedAt, s.ScoreRed, s.ScoreBlue, Clock(s.Duration), s.EndReason, shortID(s.MatchID))
	fmt.Fprintf(w, "Red: %s\nBlue: %s\n\n", strings.Join(s.PlayersRed, ", "), strings.Join(s.PlayersBlue, ", "))
}

// PrintPlayerTable prints per-player match stats. If focus is non-empty, that player's
// row is marked with ">".
func PrintPlayerTable(w io.Writer, stats []model.PlayerMatchStats, focus string) {
	table := newTable(w)
	table.Header(
		" ", "NAME", "TEAM", "G", "OG", "A", "SHOTS", "FACED", "SAVES", "SV%", "CORR",
		"PASS", "PASS%", "RECV", "STEALS", "LOST", "POSS",
	)

	for _, s := range stats {
		svPct := "—"
		if s.ShotsFaced > 0 {
			svPct = fmt.Sprintf("%.0f%%", s.SavePct())
		}
		passPct := "—"
		if s.PassesAttempted > 0 {
			passPct = fmt.Sprintf("%.0f%%", s.PassPct())
		}
		table.Append(
			marker(s.Name, focus),
			s.Name,
			s.Team.String(),
			strconv.Itoa(s.Goals),
			strconv.Itoa(s.OwnGoals),
			strconv.Itoa(s.Assists),
			strconv.Itoa(s.ShotsTaken),
			strconv.Itoa(s.ShotsFaced),
			strconv.Itoa(s.Saves),
			svPct,
			strconv.Itoa(s.Corrections),
			strconv.Itoa(s.PassesAttempted),
			passPct,
			strconv.Itoa(s.PassesReceived),
			strconv.Itoa(s.StealsMade),
			strconv.Itoa(s.StealsGiven),
			fmt.Sprintf("%.1fs", s.TimePossessed),
		)
	}
	table.Render()
}

// PrintGoalTable prints the goal log.
func PrintGoalTable(w io.Writer, goals []model.GoalRecord) {
	table := newTable(w)
	table.Header("TIME", "TEAM", "SCORER", "ASSIST", "OWN", "SCORE")
	for _, g := range goals {
		own := ""
		if g.IsOwn {
			own = "yes"
		}
		table.Append(
			Clock(g.Time),
			g.Team.String(),
			playerName(g.Scorer),
			playerName(g.Assist),
			own,
			fmt.Sprintf("%d-%d", g.ScoreRed, g.ScoreBlue),
		)
	}
	table.Render()
}

// PrintKickTable prints the kick log. If focus is non-empty only kicks from or to that
// player are shown.
func PrintKickTable(w io.Writer, kicks []model.KickRecord, focus string) {
	table := newTable(w)
	table.Header("TIME", "TYPE", "FROM", "TEAM", "TO", "ASSIST", "SCORE", " ")
	for _, k := range kicks {
		if focus != "" && !strings.EqualFold(k.From.Name, focus) &&
			(k.To == nil || !strings.EqualFold(k.To.Name, focus)) {
			continue
		}
		// corrected saves
		note := ""
		if k.Correction {
			note = "*"
		}
		table.Append(
			Clock(k.Time),
			string(k.Type),
			k.From.Name,
			k.From.Team.String(),
			playerName(k.To),
			playerName(k.Assist),
			fmt.Sprintf("%d-%d", k.Score.Red, k.Score.Blue),
			note,
		)
	}
	table.Render()
}

func playerName(p *model.PlayerSnapshot) string {
	if p == nil {
		return "—"
	}
	return p.Name
}

// PrintPossessionTable prints team shares followed by the drive log. Names resolves
// drive player IDs; unknown or loose-ball drives show a dash.
func PrintPossessionTable(w io.Writer, drives []model.Drive, shares []model.TeamPossession, names map[int]string) {
	st := newTable(w)
	st.Header("TEAM", "SECONDS", "SHARE")
	for _, s := range shares {
		st.Append(s.Team.String(), fmt.Sprintf("%.1f", s.Seconds), fmt.Sprintf("%.0f%%", s.Pct))
	}
	st.Render()
	fmt.Fprintln(w)

	dt := newTable(w)
	dt.Header("START", "END", "SECS", "PLAYER", "TEAM")
	for _, d := range drives {
		name := "—"
		if d.Attributed() {
			if n, ok := names[d.PlayerID]; ok {
				name = n
			} else {
				name = "#" + strconv.Itoa(d.PlayerID)
			}
		}
		dt.Append(
			Clock(d.Start),
			Clock(d.End),
			fmt.Sprintf("%.1f", d.Duration()),
			name,
			d.Team.String(),
		)
	}
	dt.Render()
}

// PrintPlayerAggregateOverview prints performance stats aggregated across all matches.
func PrintPlayerAggregateOverview(w io.Writer, aggs []model.PlayerAggregate) {
	table := newTable(w)
	table.Header("PLAYER", "MATCHES", "G", "G/M", "OG", "A", "SHOTS", "SAVES", "SV%",
		"PASS", "PASS%", "STEALS", "LOST", "POSS")

	for _, a := range aggs {
		table.Append(
			a.Name,
			strconv.Itoa(a.Matches),
			strconv.Itoa(a.Goals),
			fmt.Sprintf("%.2f", a.GoalsPerMatch()),
			strconv.Itoa(a.OwnGoals),
			strconv.Itoa(a.Assists),
			strconv.Itoa(a.ShotsTaken),
			strconv.Itoa(a.Saves),
			fmt.Sprintf("%.0f%%", a.SavePct()),
			strconv.Itoa(a.PassesAttempted),
			fmt.Sprintf("%.0f%%", a.PassPct()),
			strconv.Itoa(a.StealsMade),
			strconv.Itoa(a.StealsGiven),
			fmt.Sprintf("%.0fs", a.TimePossessed),
		)
	}
	table.Render()
}

// PrintStadiumTable prints results per stadium.
func PrintStadiumTable(w io.Writer, stadiums []model.StadiumStats) {
	table := newTable(w)
	table.Header("STADIUM", "MATCHES", "RED WINS", "BLUE WINS", "DRAWS", "RED WIN%")
	for _, s := range stadiums {
		redPct := 0.0
		if decided := s.RedWins + s.BlueWins; decided > 0 {
			redPct = 100.0 * float64(s.RedWins) / float64(decided)
		}
		table.Append(
			s.Stadium,
			strconv.Itoa(s.Matches),
			strconv.Itoa(s.RedWins),
			strconv.Itoa(s.BlueWins),
			strconv.Itoa(s.Draws),
			fmt.Sprintf("%.0f%%", redPct),
		)
	}
	table.Render()
}

// PrintRows prints an ad-hoc query result. Long text cells are cut at maxCell runes
// when maxCell is positive.
func PrintRows(w io.Writer, cols []string, rows [][]string, maxCell int) {
	table := newTable(w)
	table.Header(toAny(cols)...)
	for _, row := range rows {
		cells := toAny(row)
		if maxCell > 0 {
			for i, c := range row {
				if r := []rune(c); len(r) > maxCell {
					cells[i] = string(r[:maxCell-1]) + "…"
				}
			}
		}
		table.Append(cells...)
	}
	table.Render()
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
