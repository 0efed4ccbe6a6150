package model

// ---- Host notifications consumed by the engine ----

// Disc is one simulation object from the stadium snapshot taken at match start.
type Disc struct {
	Position       Vec2
	Radius         float64
	CollisionGroup uint32
}

// MatchStart is delivered once when the host starts a match.
type MatchStart struct {
	MatchID    string // optional; the engine generates one when empty
	Stadium    string
	Time       float64
	TimeLimit  int
	ScoreLimit int
	Discs      []Disc
	PlayedAt   string
	Source     string
}

// Tick is the host's per-simulation-step state.
type Tick struct {
	Time    float64
	Ball    Vec2
	Score   Score
	Players []Player
}

// Kick is delivered when a player's kick input connects with the ball.
type Kick struct {
	Time     float64
	PlayerID int
}

// Goal is delivered when a team scores. Score is the post-goal score.
type Goal struct {
	Time  float64
	Team  Team
	Ball  Vec2
	Score Score
}

// MatchEnd is delivered on victory or explicit stop.
type MatchEnd struct {
	Time   float64
	Score  Score
	Reason EndReason
}

// Frame groups the notifications of one simulation step. The engine applies the tick
// first, then kicks in order, then the goal.
type Frame struct {
	Tick  Tick
	Kicks []Kick
	Goal  *Goal
}

// ---- Live side channel ----

// StreamEventType names a live notification.
type StreamEventType string

const (
	StreamStart   StreamEventType = "start"
	StreamKick    StreamEventType = "kick"
	StreamGoal    StreamEventType = "goal"
	StreamStop    StreamEventType = "stop"
	StreamVictory StreamEventType = "victory"
)

// StreamEvent is one notification on the live side channel. Exactly one of Kick/Goal is
// set for kick and goal events.
type StreamEvent struct {
	Type       StreamEventType `json:"type"`
	MatchID    string          `json:"match"`
	Stadium    string          `json:"stadium,omitempty"`
	Time       float64         `json:"time"`
	Score      Score           `json:"score"`
	Kick       *KickRecord     `json:"kick,omitempty"`
	Goal       *GoalRecord     `json:"goal,omitempty"`
	Correction bool            `json:"correction,omitempty"`
}

// LiveSnapshot is a read-only view of the running match.
type LiveSnapshot struct {
	MatchID         string           `json:"match"`
	Stadium         string           `json:"stadium"`
	Running         bool             `json:"running"`
	Time            float64          `json:"time"`
	Score           Score            `json:"score"`
	Possessor       *PlayerSnapshot  `json:"possessor,omitempty"`
	PossessionSince float64          `json:"possessionSince"`
	Possession      []TeamPossession `json:"possession"`
}
