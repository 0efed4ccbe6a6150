package engine

import "github.com/pable/go-hax-metrics/internal/model"

// goalOutcome is everything a goal appends, computed before any of it is committed.
type goalOutcome struct {
	record     model.GoalRecord
	correction bool
	kick       *model.KickRecord
	drive      *model.Drive
}

// resolveGoal determines scorer and assist for a goal by team and decides whether the
// tail save must be corrected.
func (m *match) resolveGoal(g model.Goal, now float64) goalOutcome {
	scorer := m.touch.holder

	var assist *model.Player
	if m.touch.source == sourceKick {
		assist = getAssister(m.history.last, m.history.prev, g.Team)
	} else {
		assist = getAssister(scorer, m.history.last, g.Team)
	}
	isOwn := scorer != nil && scorer.Team != g.Team

	out := goalOutcome{
		record: model.GoalRecord{
			Time:      now,
			Team:      g.Team,
			IsOwn:     isOwn,
			ScoreRed:  g.Score.Red,
			ScoreBlue: g.Score.Blue,
			Ball:      g.Ball,
			Scorer:    model.SnapshotOf(scorer),
			Assist:    model.SnapshotOf(assist),
		},
	}

	// A save that drifts in off the saver was never a save.
	if tail, ok := m.log.tailKick(); ok && scorer != nil && m.touch.source != sourceKick {
		out.correction = tail.Type == model.KickSave && !tail.Correction &&
			tail.To != nil && tail.To.ID == scorer.ID
	}

	if scorer != nil {
		kt := model.KickGoal
		if isOwn {
			kt = model.KickOwnGoal
		}
		out.kick = &model.KickRecord{
			Time:   now,
			Type:   kt,
			From:   scorer.Snapshot(),
			Assist: model.SnapshotOf(assist),
			Score:  g.Score,
		}
	}

	switch {
	case scorer != nil:
		out.drive = &model.Drive{Start: m.touch.since, End: now, PlayerID: scorer.ID, Team: scorer.Team}
	case now > m.touch.since:
		out.drive = &model.Drive{Start: m.touch.since, End: now, PlayerID: model.NoPlayer, Team: model.TeamNone}
	}
	return out
}

// getAssister returns prev when it is a teammate of last, last scored for team, and the
// two are different players.
func getAssister(last, prev *model.Player, team model.Team) *model.Player {
	if last == nil || prev == nil {
		return nil
	}
	if last.Team != team {
		return nil
	}
	if last.ID == prev.ID {
		return nil
	}
	if last.Team == prev.Team {
		return prev
	}
	return nil
}

// commitGoal appends the goal's records, then clears possession and kick history.
// It returns the corrected kick record when a correction was applied.
func (m *match) commitGoal(out goalOutcome, score model.Score, now float64) *model.KickRecord {
	m.log.appendGoal(out.record)

	var corrected *model.KickRecord
	if out.correction {
		if rec, ok := m.log.amendLast(score); ok {
			corrected = &rec
		}
	}
	if out.kick != nil {
		m.log.appendKick(*out.kick)
	}
	if out.drive != nil {
		m.log.appendDrive(*out.drive)
	}

	m.touch = touchState{since: now}
	m.history = kickHistory{}
	return corrected
}
