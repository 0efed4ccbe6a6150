package aggregator

import (
	"fmt"
	"sort"

	"github.com/pable/go-hax-metrics/internal/model"
)

// Aggregate computes PlayerMatchStats and team time of possession from a finalized MatchRecord.
func Aggregate(rec *model.MatchRecord) ([]model.PlayerMatchStats, []model.TeamPossession, error) {
	if rec == nil {
		return nil, nil, fmt.Errorf("nil MatchRecord")
	}

	byID := make(map[int]*model.PlayerMatchStats, len(rec.Players))
	get := func(p model.PlayerSnapshot) *model.PlayerMatchStats {
		if s, ok := byID[p.ID]; ok {
			return s
		}
		s := &model.PlayerMatchStats{
			MatchID:  rec.ID,
			Stadium:  rec.Summary.Stadium,
			PlayerID: p.ID,
			Name:     p.Name,
			Team:     p.Team,
		}
		byID[p.ID] = s
		return s
	}
	for _, p := range rec.Players {
		get(p)
	}

	// ---- Kick log: shots, passes, steals. ----

	for _, k := range rec.Kicks {
		from := get(k.From)
		var to *model.PlayerMatchStats
		if k.To != nil {
			to = get(*k.To)
		}

		switch k.Type {
		case model.KickGoal:
			from.Goals++
			from.ShotsTaken++
		case model.KickOwnGoal:
			from.OwnGoals++
		case model.KickError:
			// The shot went in off the defender: the shooter is credited.
			from.Goals++
			from.ShotsTaken++
			if to != nil {
				to.ShotsFaced++
				if k.Correction {
					to.Corrections++
				}
			}
		case model.KickSave:
			from.ShotsTaken++
			if to != nil {
				to.ShotsFaced++
				to.Saves++
			}
		case model.KickPass:
			from.PassesAttempted++
			from.PassesCompleted++
			if to != nil {
				to.PassesReceived++
			}
		case model.KickSteal:
			from.PassesAttempted++
			from.StealsGiven++
			if to != nil {
				to.StealsMade++
			}
		}
	}

	for _, g := range rec.Goals {
		if g.Assist != nil {
			get(*g.Assist).Assists++
		}
	}

	// ---- Drives: time possessed. ----

	for _, d := range rec.Possessions {
		if !d.Attributed() {
			continue
		}
		if s, ok := byID[d.PlayerID]; ok {
			s.TimePossessed += d.Duration()
		}
	}

	out := make([]model.PlayerMatchStats, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Team != out[j].Team {
			return out[i].Team < out[j].Team
		}
		return out[i].PlayerID < out[j].PlayerID
	})

	return out, TimeOfPossession(rec.Possessions), nil
}

// TimeOfPossession sums attributed drive time per team. Loose-ball drives are ignored.
func TimeOfPossession(drives []model.Drive) []model.TeamPossession {
	var red, blue float64
	for _, d := range drives {
		if !d.Attributed() {
			continue
		}
		switch d.Team {
		case model.TeamRed:
			red += d.Duration()
		case model.TeamBlue:
			blue += d.Duration()
		}
	}
	return Shares(red, blue)
}

// Shares converts per-team seconds into Red and Blue percentages of their sum.
func Shares(red, blue float64) []model.TeamPossession {
	out := []model.TeamPossession{
		{Team: model.TeamRed, Seconds: red},
		{Team: model.TeamBlue, Seconds: blue},
	}
	if total := red + blue; total > 0 {
		out[0].Pct = red / total * 100
		out[1].Pct = blue / total * 100
	}
	return out
}
