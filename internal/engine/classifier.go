package engine

import "github.com/pable/go-hax-metrics/internal/model"

type touchSource int

const (
	sourceNone touchSource = iota
	sourceTouch
	sourceKick
)

func (s touchSource) String() string {
	switch s {
	case sourceTouch:
		return "touch"
	case sourceKick:
		return "kick"
	default:
		return "none"
	}
}

// touchState is the current possessor and how the ball reached them.
type touchState struct {
	holder *model.Player
	source touchSource
	since  float64 // possession start
}

// kickHistory holds the two most recent explicit kickers, last first.
type kickHistory struct {
	last, prev *model.Player
}

func (h kickHistory) shift(kicker model.Player) kickHistory {
	k := clonePlayer(kicker)
	return kickHistory{last: &k, prev: h.last}
}

// transition is one classifier step. It is computed against the current state and
// committed as a whole, so a failed step leaves the match untouched.
type transition struct {
	touch   touchState
	history kickHistory
	drives  []model.Drive
	kick    *model.KickRecord
}

// classify applies the possession rules for a candidate toucher. fromKick marks an
// explicit kick notification, which also shifts the kick history.
func (m *match) classify(candidate *model.Player, fromKick bool, now float64, score model.Score) transition {
	tr := transition{touch: m.touch, history: m.history}
	if fromKick && candidate != nil {
		tr.history = m.history.shift(*candidate)
	}
	cur := m.touch

	switch {
	case cur.holder == nil:
		if candidate == nil {
			return tr
		}
		if now > cur.since {
			tr.drives = append(tr.drives, model.Drive{
				Start: cur.since, End: now, PlayerID: model.NoPlayer, Team: model.TeamNone,
			})
		}
		tr.touch = touchState{holder: candidate, source: sourceKick, since: now}

	case candidate == nil:
		return tr

	case candidate.ID == cur.holder.ID:
		if fromKick {
			tr.touch.holder = candidate
			tr.touch.source = sourceKick
		}

	default:
		tr.drives = append(tr.drives, model.Drive{
			Start: cur.since, End: now, PlayerID: cur.holder.ID, Team: cur.holder.Team,
		})
		if cur.source == sourceKick {
			tr.kick = m.kickRecord(*cur.holder, *candidate, now, score)
		}
		src := sourceTouch
		if fromKick {
			src = sourceKick
		}
		tr.touch = touchState{holder: candidate, source: src, since: now}
	}
	return tr
}

// kickRecord classifies a kicked ball arriving at a new player.
func (m *match) kickRecord(from, to model.Player, now float64, score model.Score) *model.KickRecord {
	kt := model.KickSteal
	switch {
	case from.Team == to.Team:
		kt = model.KickPass
	case to.Position != nil && m.geometry.Goal(to.Team).InGoalArea(*to.Position):
		kt = model.KickSave
	}
	toSnap := to.Snapshot()
	return &model.KickRecord{
		Time:  now,
		Type:  kt,
		From:  from.Snapshot(),
		To:    &toSnap,
		Score: score,
	}
}

// commit applies a computed transition and returns the kick record it appended, if any.
func (m *match) commit(tr transition) *model.KickRecord {
	m.touch = tr.touch
	m.history = tr.history
	for _, d := range tr.drives {
		m.log.appendDrive(d)
	}
	if tr.kick == nil {
		return nil
	}
	m.log.appendKick(*tr.kick)
	return tr.kick
}
