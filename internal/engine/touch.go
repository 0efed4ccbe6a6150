package engine

import "github.com/pable/go-hax-metrics/internal/model"

// DetectToucher returns the on-field player strictly within threshold of the ball, or nil.
// When several qualify the nearest wins; equal distances go to the lowest player ID.
func DetectToucher(players []model.Player, ball model.Vec2, threshold float64) *model.Player {
	var best *model.Player
	bestDist := threshold
	for i := range players {
		p := &players[i]
		d, ok := touching(*p, ball, threshold)
		if !ok {
			continue
		}
		if best == nil || d < bestDist || (d == bestDist && p.ID < best.ID) {
			best, bestDist = p, d
		}
	}
	if best == nil {
		return nil
	}
	out := clonePlayer(*best)
	return &out
}

func touching(p model.Player, ball model.Vec2, threshold float64) (float64, bool) {
	if p.Position == nil {
		return 0, false
	}
	d := p.Position.Dist(ball)
	return d, d < threshold
}

// clonePlayer detaches the position pointer from the host's tick buffer.
func clonePlayer(p model.Player) model.Player {
	if p.Position != nil {
		pos := *p.Position
		p.Position = &pos
	}
	return p
}
