package model

// ---- Aggregated metrics ----

type PlayerMatchStats struct {
	MatchID  string
	Stadium  string // populated when queried across matches (JOIN with matches table)
	PlayerID int
	Name     string
	Team     Team

	Goals    int // goal and error records from this player
	OwnGoals int
	Assists  int

	ShotsTaken  int // goal, error and save records from this player
	ShotsFaced  int // save and error records to this player
	Saves       int
	Corrections int // saves later rewritten to errors

	PassesAttempted int // pass and steal records from this player
	PassesCompleted int
	PassesReceived  int

	StealsMade  int
	StealsGiven int

	TimePossessed float64 // seconds
}

// PassPct returns completed passes as a percentage of attempts.
func (s *PlayerMatchStats) PassPct() float64 {
	if s.PassesAttempted == 0 {
		return 0
	}
	return float64(s.PassesCompleted) / float64(s.PassesAttempted) * 100
}

// SavePct returns saves as a percentage of shots faced.
func (s *PlayerMatchStats) SavePct() float64 {
	if s.ShotsFaced == 0 {
		return 0
	}
	return float64(s.Saves) / float64(s.ShotsFaced) * 100
}

// TeamPossession is one team's share of attributed possession time.
type TeamPossession struct {
	Team    Team    `json:"team"`
	Seconds float64 `json:"seconds"`
	Pct     float64 `json:"pct"`
}

// PlayerAggregate holds stats for a single player name aggregated across stored matches.
type PlayerAggregate struct {
	Name    string
	Matches int

	Goals, OwnGoals, Assists         int
	ShotsTaken, ShotsFaced, Saves    int
	PassesAttempted, PassesCompleted int
	StealsMade, StealsGiven          int
	TimePossessed                    float64
}

func (a *PlayerAggregate) PassPct() float64 {
	if a.PassesAttempted == 0 {
		return 0
	}
	return float64(a.PassesCompleted) / float64(a.PassesAttempted) * 100
}

func (a *PlayerAggregate) SavePct() float64 {
	if a.ShotsFaced == 0 {
		return 0
	}
	return float64(a.Saves) / float64(a.ShotsFaced) * 100
}

// GoalsPerMatch returns average goals per stored match.
func (a *PlayerAggregate) GoalsPerMatch() float64 {
	if a.Matches == 0 {
		return 0
	}
	return float64(a.Goals) / float64(a.Matches)
}

// DBOverview is the high-level database summary.
type DBOverview struct {
	TotalMatches   int
	EarliestMatch  string
	LatestMatch    string
	UniqueStadiums int
	UniquePlayers  int
	TotalGoals     int
	TotalKicks     int
}

// StadiumStats is one row of the stadium breakdown.
type StadiumStats struct {
	Stadium  string
	Matches  int
	RedWins  int
	BlueWins int
	Draws    int
}
