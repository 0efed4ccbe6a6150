package engine

import (
	"slices"

	"github.com/pable/go-hax-metrics/internal/aggregator"
	"github.com/pable/go-hax-metrics/internal/model"
)

// matchLog holds the append-only logs of one match. The only in-place edit is amendLast.
type matchLog struct {
	kicks  []model.KickRecord
	goals  []model.GoalRecord
	drives []model.Drive

	teamSeconds [3]float64 // attributed drive time, indexed by model.Team
}

func (l *matchLog) appendKick(k model.KickRecord) { l.kicks = append(l.kicks, k) }
func (l *matchLog) appendGoal(g model.GoalRecord) { l.goals = append(l.goals, g) }

func (l *matchLog) appendDrive(d model.Drive) {
	l.drives = append(l.drives, d)
	if d.Attributed() && d.Team >= model.TeamRed && d.Team <= model.TeamBlue {
		l.teamSeconds[d.Team] += d.Duration()
	}
}

func (l *matchLog) tailKick() (model.KickRecord, bool) {
	if len(l.kicks) == 0 {
		return model.KickRecord{}, false
	}
	return l.kicks[len(l.kicks)-1], true
}

// amendLast rewrites the tail record from save to error, keeping its players and time and
// taking score as the goal-time score.
//
// Precondition: the tail exists, is a save, and is not already a correction. When it does
// not hold the log is left unchanged and ok is false.
func (l *matchLog) amendLast(score model.Score) (rec model.KickRecord, ok bool) {
	tail, ok := l.tailKick()
	if !ok || tail.Type != model.KickSave || tail.Correction {
		return model.KickRecord{}, false
	}
	tail.Type = model.KickError
	tail.Score = score
	tail.Correction = true
	l.kicks[len(l.kicks)-1] = tail
	return tail, true
}

// roster tracks every player seen on the field, in first-seen order, with the last seen
// name and team.
type roster struct {
	index   map[int]int
	players []model.PlayerSnapshot
}

func newRoster() *roster { return &roster{index: make(map[int]int)} }

func (r *roster) observe(p model.Player) {
	if p.Position == nil {
		return
	}
	s := model.PlayerSnapshot{ID: p.ID, Name: p.Name, Team: p.Team}
	if i, ok := r.index[p.ID]; ok {
		r.players[i] = s
		return
	}
	r.index[p.ID] = len(r.players)
	r.players = append(r.players, s)
}

// finalize closes the open drive and freezes the logs into a MatchRecord. The returned
// record shares no memory with the match.
func (m *match) finalize(end model.MatchEnd, now, driveEpsilon float64) *model.MatchRecord {
	open := model.Drive{Start: m.touch.since, End: now, PlayerID: model.NoPlayer}
	if h := m.touch.holder; h != nil {
		open.PlayerID, open.Team = h.ID, h.Team
	}
	// A goal at the final instant already closed the drive.
	if open.Duration() > driveEpsilon {
		m.log.appendDrive(open)
	}

	summary := model.MatchSummary{
		MatchID:    m.id,
		Stadium:    m.stadium,
		PlayedAt:   m.playedAt,
		ScoreRed:   end.Score.Red,
		ScoreBlue:  end.Score.Blue,
		Duration:   now,
		TimeLimit:  m.timeLimit,
		ScoreLimit: m.scoreLimit,
		EndReason:  end.Reason,
		Source:     m.source,
	}
	for _, p := range m.roster.players {
		switch p.Team {
		case model.TeamRed:
			summary.PlayersRed = append(summary.PlayersRed, p.Name)
		case model.TeamBlue:
			summary.PlayersBlue = append(summary.PlayersBlue, p.Name)
		}
	}

	return &model.MatchRecord{
		ID:          m.id,
		Summary:     summary,
		Players:     slices.Clone(m.roster.players),
		Goals:       slices.Clone(m.log.goals),
		Kicks:       slices.Clone(m.log.kicks),
		Possessions: slices.Clone(m.log.drives),
		Positions:   slices.Clone(m.sampler.samples),
		Geometry:    m.geometry,
	}
}

// possession returns team shares including the open drive up to now.
func (m *match) possession(now float64) []model.TeamPossession {
	secs := m.log.teamSeconds
	if h := m.touch.holder; h != nil && now > m.touch.since &&
		h.Team >= model.TeamRed && h.Team <= model.TeamBlue {
		secs[h.Team] += now - m.touch.since
	}
	return aggregator.Shares(secs[model.TeamRed], secs[model.TeamBlue])
}
