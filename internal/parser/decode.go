package parser

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/pable/go-hax-metrics/internal/model"
)

func requireNumber(ev gjson.Result, path string) (float64, error) {
	r := ev.Get(path)
	if r.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s must be a number", ErrMalformed, path)
	}
	return r.Float(), nil
}

func decodeVec(r gjson.Result) (model.Vec2, error) {
	x, y := r.Get("x"), r.Get("y")
	if x.Type != gjson.Number || y.Type != gjson.Number {
		return model.Vec2{}, fmt.Errorf("%w: position needs numeric x and y", ErrMalformed)
	}
	return model.Vec2{X: x.Float(), Y: y.Float()}, nil
}

// decodeScore reads a score object. The clock defaults to the event time.
func decodeScore(r gjson.Result, time float64) model.Score {
	s := model.Score{
		Red:        int(r.Get("red").Int()),
		Blue:       int(r.Get("blue").Int()),
		Time:       time,
		TimeLimit:  int(r.Get("timeLimit").Int()),
		ScoreLimit: int(r.Get("scoreLimit").Int()),
	}
	if t := r.Get("time"); t.Type == gjson.Number {
		s.Time = t.Float()
	}
	return s
}

func decodeStart(ev gjson.Result) (model.MatchStart, error) {
	ms := model.MatchStart{
		Stadium:    ev.Get("stadium").String(),
		Time:       ev.Get("time").Float(),
		TimeLimit:  int(ev.Get("timeLimit").Int()),
		ScoreLimit: int(ev.Get("scoreLimit").Int()),
		PlayedAt:   ev.Get("playedAt").String(),
	}
	var err error
	ev.Get("discs").ForEach(func(_, d gjson.Result) bool {
		var pos model.Vec2
		if pos, err = decodeVec(d); err != nil {
			return false
		}
		ms.Discs = append(ms.Discs, model.Disc{
			Position:       pos,
			Radius:         d.Get("radius").Float(),
			CollisionGroup: uint32(d.Get("cGroup").Uint()),
		})
		return true
	})
	if err != nil {
		return model.MatchStart{}, fmt.Errorf("start discs: %w", err)
	}
	return ms, nil
}

func decodeTick(ev gjson.Result) (model.Tick, error) {
	time, err := requireNumber(ev, "time")
	if err != nil {
		return model.Tick{}, err
	}
	ball, err := decodeVec(ev.Get("ball"))
	if err != nil {
		return model.Tick{}, fmt.Errorf("tick ball: %w", err)
	}
	t := model.Tick{
		Time:  time,
		Ball:  ball,
		Score: decodeScore(ev.Get("score"), time),
	}

	ev.Get("players").ForEach(func(_, p gjson.Result) bool {
		if p.Get("id").Type != gjson.Number {
			err = fmt.Errorf("%w: player without id", ErrMalformed)
			return false
		}
		pl := model.Player{
			ID:   int(p.Get("id").Int()),
			Name: p.Get("name").String(),
			Team: model.ParseTeam(p.Get("team").String()),
		}
		if pos := p.Get("position"); pos.IsObject() {
			v, verr := decodeVec(pos)
			if verr != nil {
				err = fmt.Errorf("player %d: %w", pl.ID, verr)
				return false
			}
			pl.Position = &v
		}
		t.Players = append(t.Players, pl)
		return true
	})
	if err != nil {
		return model.Tick{}, err
	}
	return t, nil
}

func decodeKick(ev gjson.Result) (model.Kick, error) {
	time, err := requireNumber(ev, "time")
	if err != nil {
		return model.Kick{}, err
	}
	id, err := requireNumber(ev, "player")
	if err != nil {
		return model.Kick{}, err
	}
	return model.Kick{Time: time, PlayerID: int(id)}, nil
}

func decodeGoal(ev gjson.Result) (model.Goal, error) {
	time, err := requireNumber(ev, "time")
	if err != nil {
		return model.Goal{}, err
	}
	team := model.ParseTeam(ev.Get("team").String())
	if team == model.TeamNone {
		return model.Goal{}, fmt.Errorf("%w: goal team %q", ErrMalformed, ev.Get("team").String())
	}
	g := model.Goal{
		Time:  time,
		Team:  team,
		Score: decodeScore(ev.Get("score"), time),
	}
	if b := ev.Get("ball"); b.Exists() {
		if g.Ball, err = decodeVec(b); err != nil {
			return model.Goal{}, fmt.Errorf("goal ball: %w", err)
		}
	}
	return g, nil
}

func decodeEnd(ev gjson.Result, typ string) model.MatchEnd {
	time := ev.Get("time").Float()
	end := model.MatchEnd{
		Time:   time,
		Score:  decodeScore(ev.Get("score"), time),
		Reason: model.EndVictory,
	}
	if typ == typeStop {
		end.Reason = model.EndStop
	}
	return end
}
