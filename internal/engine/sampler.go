package engine

import "github.com/pable/go-hax-metrics/internal/model"

// sampler rate-limits position samples. Touch detection never depends on it.
type sampler struct {
	cooldown float64
	lastSave float64
	samples  []model.PositionSample
}

func newSampler(cooldown float64) *sampler {
	// Start behind the clock so the first tick is always sampled.
	return &sampler{cooldown: cooldown, lastSave: -1.05*cooldown - 1e-9}
}

func (s *sampler) due(now float64) bool {
	return now-s.lastSave > s.cooldown
}

// record samples every on-field player and the ball. holder is the possessor after this
// tick's touch update.
func (s *sampler) record(now float64, players []model.Player, ball model.Vec2, threshold float64, holder *model.Player) {
	if !s.due(now) {
		return
	}
	for _, p := range players {
		if p.Position == nil {
			continue
		}
		_, hasBall := touching(p, ball, threshold)
		s.samples = append(s.samples, model.PositionSample{
			Time:     now,
			Kind:     model.SamplePlayer,
			X:        p.Position.X,
			Y:        p.Position.Y,
			PlayerID: p.ID,
			HasBall:  hasBall,
			HolderID: model.NoPlayer,
		})
	}
	ballSample := model.PositionSample{
		Time:     now,
		Kind:     model.SampleBall,
		X:        ball.X,
		Y:        ball.Y,
		PlayerID: model.NoPlayer,
		HolderID: model.NoPlayer,
	}
	if holder != nil {
		ballSample.HolderID = holder.ID
		ballSample.HolderTeam = holder.Team
	}
	s.samples = append(s.samples, ballSample)
	s.lastSave = now
}
