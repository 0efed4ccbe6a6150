package model

import "math"

// Team represents which side a player is on.
type Team int

const (
	TeamNone Team = 0
	TeamRed  Team = 1
	TeamBlue Team = 2
)

func (t Team) String() string {
	switch t {
	case TeamRed:
		return "Red"
	case TeamBlue:
		return "Blue"
	default:
		return "-"
	}
}

// Opponent returns the other playing side, or TeamNone for spectators.
func (t Team) Opponent() Team {
	switch t {
	case TeamRed:
		return TeamBlue
	case TeamBlue:
		return TeamRed
	default:
		return TeamNone
	}
}

// ParseTeam maps the host's numeric team id or a name ("red", "blue") to a Team.
func ParseTeam(s string) Team {
	switch s {
	case "1", "red", "Red", "RED":
		return TeamRed
	case "2", "blue", "Blue", "BLUE":
		return TeamBlue
	default:
		return TeamNone
	}
}

// Vec2 is a 2D stadium position in host units.
type Vec2 struct{ X, Y float64 }

// Dist returns the Euclidean distance between v and o.
func (v Vec2) Dist(o Vec2) float64 {
	return math.Hypot(v.X-o.X, v.Y-o.Y)
}

// NoPlayer marks a drive or sample without an attributed player.
const NoPlayer = -1

// Player is one entry of the host's per-tick player list.
type Player struct {
	ID       int
	Name     string
	Team     Team
	Position *Vec2 // nil when off-field or spectating
}

// OnField reports whether the player currently has a position.
func (p Player) OnField() bool { return p.Position != nil }

// PlayerSnapshot is the flattened form of a player stored in kick and goal records.
type PlayerSnapshot struct {
	ID      int
	Name    string
	Team    Team
	X, Y    float64
	OnField bool
}

// Snapshot flattens p, rounding coordinates to whole units.
func (p Player) Snapshot() PlayerSnapshot {
	s := PlayerSnapshot{ID: p.ID, Name: p.Name, Team: p.Team}
	if p.Position != nil {
		s.X = RoundCoord(p.Position.X)
		s.Y = RoundCoord(p.Position.Y)
		s.OnField = true
	}
	return s
}

// SnapshotOf returns nil for a nil player.
func SnapshotOf(p *Player) *PlayerSnapshot {
	if p == nil {
		return nil
	}
	s := p.Snapshot()
	return &s
}

// RoundCoord rounds a coordinate to whole units.
func RoundCoord(c float64) float64 { return math.Round(c) }

// RoundTime rounds a clock value to tenths of a second.
func RoundTime(t float64) float64 { return math.Round(t*10) / 10 }

// GoalGeometry describes one team's goal, derived once per match from the stadium discs.
type GoalGeometry struct {
	Posts      [2]Vec2
	Size       float64 // distance between posts
	Mid        Vec2
	AreaRadius float64
}

// InGoalArea reports whether pos lies strictly inside the goal area circle.
// A nil geometry never contains anything.
func (g *GoalGeometry) InGoalArea(pos Vec2) bool {
	if g == nil {
		return false
	}
	return pos.Dist(g.Mid) < g.AreaRadius
}

// Score is the host's score snapshot.
type Score struct {
	Red, Blue  int
	Time       float64
	TimeLimit  int
	ScoreLimit int
}

// ---- Emitted records ----

// KickType classifies a kick record.
type KickType string

const (
	KickPass    KickType = "pass"
	KickSteal   KickType = "steal"
	KickSave    KickType = "save"
	KickGoal    KickType = "goal"
	KickOwnGoal KickType = "own_goal"
	KickError   KickType = "error"
)

// ParseKickType returns the KickType for s and whether it is known.
func ParseKickType(s string) (KickType, bool) {
	switch k := KickType(s); k {
	case KickPass, KickSteal, KickSave, KickGoal, KickOwnGoal, KickError:
		return k, true
	}
	return "", false
}

type KickRecord struct {
	Time       float64
	Type       KickType
	From       PlayerSnapshot
	To         *PlayerSnapshot // nil for goal and own-goal records
	Assist     *PlayerSnapshot // goal records only
	Score      Score
	Correction bool // true when rewritten from a save after the fact
}

type GoalRecord struct {
	Time      float64
	Team      Team
	IsOwn     bool
	ScoreRed  int
	ScoreBlue int
	Ball      Vec2
	Scorer    *PlayerSnapshot // nil when nobody touched the ball
	Assist    *PlayerSnapshot
}

// Drive is a possession interval. PlayerID is NoPlayer while the ball was loose.
type Drive struct {
	Start, End float64
	PlayerID   int
	Team       Team
}

// Duration returns End - Start.
func (d Drive) Duration() float64 { return d.End - d.Start }

// Attributed reports whether the drive belongs to a player.
func (d Drive) Attributed() bool { return d.PlayerID != NoPlayer }

// SampleKind distinguishes player and ball position samples.
type SampleKind string

const (
	SamplePlayer SampleKind = "player"
	SampleBall   SampleKind = "ball"
)

// PositionSample is one rate-limited position entry.
type PositionSample struct {
	Time       float64
	Kind       SampleKind
	X, Y       float64
	PlayerID   int  // player samples; NoPlayer for the ball
	HasBall    bool // player samples
	HolderID   int  // ball samples; NoPlayer when loose
	HolderTeam Team
}

// EndReason records how a match finished.
type EndReason string

const (
	EndVictory EndReason = "victory"
	EndStop    EndReason = "stop"
)

// MatchSummary is the denormalized record for list/show commands.
type MatchSummary struct {
	MatchID     string
	Stadium     string
	PlayedAt    string
	ScoreRed    int
	ScoreBlue   int
	Duration    float64
	TimeLimit   int
	ScoreLimit  int
	PlayersRed  []string
	PlayersBlue []string
	EndReason   EndReason
	Source      string
}

// StadiumGeometry is the per-match geometry kept with the record.
type StadiumGeometry struct {
	BallRadius     float64
	TouchThreshold float64
	Red, Blue      *GoalGeometry
}

// Goal returns the geometry for team t, or nil.
func (g StadiumGeometry) Goal(t Team) *GoalGeometry {
	switch t {
	case TeamRed:
		return g.Red
	case TeamBlue:
		return g.Blue
	default:
		return nil
	}
}

// MatchRecord is the immutable record of one finished match.
type MatchRecord struct {
	ID          string
	Summary     MatchSummary
	Players     []PlayerSnapshot
	Goals       []GoalRecord
	Kicks       []KickRecord
	Possessions []Drive
	Positions   []PositionSample
	Geometry    StadiumGeometry
}

// PlayerByID returns the roster entry for id.
func (r *MatchRecord) PlayerByID(id int) (PlayerSnapshot, bool) {
	for _, p := range r.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerSnapshot{}, false
}
