// Package engine classifies a live match stream into possession drives, kick records and
// goal records.
//
// An Engine is driven from a single goroutine. Handlers run to completion and never block;
// other goroutines read progress through Snapshot.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pable/go-hax-metrics/internal/aggregator"
	"github.com/pable/go-hax-metrics/internal/config"
	"github.com/pable/go-hax-metrics/internal/geometry"
	"github.com/pable/go-hax-metrics/internal/metrics"
	"github.com/pable/go-hax-metrics/internal/model"
	"github.com/pable/go-hax-metrics/pkg/logger"
)

var (
	ErrNoMatch       = errors.New("no match running")
	ErrMatchRunning  = errors.New("match already running")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrInvalidTick   = errors.New("invalid tick")
)

// Listener receives stream events after the records they describe have been logged.
// Listeners are called synchronously and must not block.
type Listener interface {
	OnEvent(ev model.StreamEvent)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ev model.StreamEvent)

func (f ListenerFunc) OnEvent(ev model.StreamEvent) { f(ev) }

// Engine owns at most one running match.
type Engine struct {
	cfg       config.Engine
	logger    logger.Logger
	listeners []Listener

	cur      *match
	snapshot atomic.Pointer[model.LiveSnapshot]
}

// match is the mutable state of one match, created by Start and dropped by End.
type match struct {
	id         string
	stadium    string
	playedAt   string
	source     string
	timeLimit  int
	scoreLimit int

	geometry model.StadiumGeometry

	clock   float64
	score   model.Score
	players map[int]model.Player // last tick's player list

	touch   touchState
	history kickHistory
	log     matchLog
	roster  *roster
	sampler *sampler
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the classification constants.
func WithConfig(cfg config.Engine) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithListener adds a stream listener. Listeners are called in registration order.
func WithListener(l Listener) Option {
	return func(e *Engine) {
		if l != nil {
			e.listeners = append(e.listeners, l)
		}
	}
}

// New constructs an idle Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		cfg:    config.DefaultEngine(),
		logger: logger.Get().Named("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.snapshot.Store(&model.LiveSnapshot{})
	return e
}

func (e *Engine) geometryOptions() geometry.Options {
	return geometry.Options{
		Flags: geometry.Flags{
			Ball:   e.cfg.BallFlag,
			RedKO:  e.cfg.RedKOFlag,
			BlueKO: e.cfg.BlueKOFlag,
		},
		PlayerRadius:      e.cfg.PlayerRadius,
		TouchMargin:       e.cfg.TouchMargin,
		DefaultBallRadius: e.cfg.DefaultBallRadius,
		GoalAreaFactor:    e.cfg.GoalAreaFactor,
		GoalpostEpsilon:   e.cfg.GoalpostEpsilon,
	}
}

// Running reports whether a match is in progress. Safe for concurrent use.
func (e *Engine) Running() bool {
	return e.Snapshot().Running
}

// Snapshot returns the latest published view of the match. Safe for concurrent use.
func (e *Engine) Snapshot() model.LiveSnapshot {
	return *e.snapshot.Load()
}

// Start begins a new match. Geometry problems are logged and never fail the start.
func (e *Engine) Start(ms model.MatchStart) (err error) {
	defer e.guard("start", &err)
	if e.cur != nil {
		return fmt.Errorf("start %s: %w", e.cur.id, ErrMatchRunning)
	}

	ctx := context.Background()
	geom, gerr := geometry.Resolve(ms.Discs, e.geometryOptions())
	if gerr != nil {
		metrics.RecordGeometryFallback()
		e.logger.Warn(ctx, "stadium geometry incomplete, using defaults",
			logger.String("stadium", ms.Stadium),
			logger.Float64("ball_radius", geom.BallRadius),
			logger.Bool("goal_areas", geom.Red != nil),
			logger.Error(gerr))
	}

	id := ms.MatchID
	if id == "" {
		id = uuid.NewString()
	}
	playedAt := ms.PlayedAt
	if playedAt == "" {
		playedAt = time.Now().UTC().Format(time.RFC3339)
	}

	e.cur = &match{
		id:         id,
		stadium:    ms.Stadium,
		playedAt:   playedAt,
		source:     ms.Source,
		timeLimit:  ms.TimeLimit,
		scoreLimit: ms.ScoreLimit,
		geometry:   geom,
		clock:      ms.Time,
		score:      model.Score{TimeLimit: ms.TimeLimit, ScoreLimit: ms.ScoreLimit},
		players:    make(map[int]model.Player),
		touch:      touchState{since: ms.Time},
		roster:     newRoster(),
		sampler:    newSampler(e.cfg.PositionCooldown),
	}

	e.logger.Info(ctx, "match started",
		logger.String("match", id),
		logger.String("stadium", ms.Stadium),
		logger.Float64("touch_threshold", geom.TouchThreshold))
	e.publish()
	e.emit(model.StreamEvent{
		Type:    model.StreamStart,
		MatchID: id,
		Stadium: ms.Stadium,
		Time:    ms.Time,
		Score:   e.cur.score,
	})
	return nil
}

// Tick applies one simulation step: roster and touch update, then position sampling.
func (e *Engine) Tick(t model.Tick) (err error) {
	defer e.guard("tick", &err)
	m := e.cur
	if m == nil {
		return ErrNoMatch
	}
	if err := validateTick(t, m.clock); err != nil {
		return err
	}

	players := make(map[int]model.Player, len(t.Players))
	for _, p := range t.Players {
		players[p.ID] = clonePlayer(p)
	}
	threshold := m.geometry.TouchThreshold
	toucher := DetectToucher(t.Players, t.Ball, threshold)
	tr := m.classify(toucher, false, t.Time, t.Score)

	m.clock = t.Time
	m.score = t.Score
	m.players = players
	for _, p := range t.Players {
		m.roster.observe(p)
	}
	kick := m.commit(tr)
	m.sampler.record(t.Time, t.Players, t.Ball, threshold, m.touch.holder)

	metrics.RecordTick()
	if kick != nil {
		e.kickLogged(*kick, false)
	}
	e.publish()
	return nil
}

// Kick applies an explicit kick by a player from the latest tick.
func (e *Engine) Kick(k model.Kick) (err error) {
	defer e.guard("kick", &err)
	m := e.cur
	if m == nil {
		return ErrNoMatch
	}
	p, ok := m.players[k.PlayerID]
	if !ok {
		return fmt.Errorf("kick by %d: %w", k.PlayerID, ErrUnknownPlayer)
	}
	now := m.at(k.Time)

	tr := m.classify(&p, true, now, m.score)
	m.clock = now
	kick := m.commit(tr)

	if kick != nil {
		e.kickLogged(*kick, false)
	}
	e.publish()
	return nil
}

// Goal resolves scorer and assist, applies the save correction, closes the drive and
// resets possession. The returned record is also appended to the goal log.
func (e *Engine) Goal(g model.Goal) (rec model.GoalRecord, err error) {
	defer e.guard("goal", &err)
	m := e.cur
	if m == nil {
		return model.GoalRecord{}, ErrNoMatch
	}
	now := m.at(g.Time)

	out := m.resolveGoal(g, now)
	corrected := m.commitGoal(out, g.Score, now)
	m.clock = now
	m.score = g.Score

	metrics.RecordGoal(out.record.IsOwn)
	if corrected != nil {
		metrics.RecordCorrection()
		e.logger.Debug(context.Background(), "save changed to error",
			logger.String("match", m.id),
			logger.String("saver", corrected.To.Name))
		e.kickLogged(*corrected, true)
	}
	if out.kick != nil {
		e.kickLogged(*out.kick, false)
	}
	goal := out.record
	e.emit(model.StreamEvent{
		Type:    model.StreamGoal,
		MatchID: m.id,
		Time:    now,
		Score:   g.Score,
		Goal:    &goal,
	})
	e.publish()
	return out.record, nil
}

// Frame applies one simulation step in order: tick, then kicks, then the goal. A failing
// event is reported and the rest of the frame still runs.
func (e *Engine) Frame(f model.Frame) error {
	var errs []error
	if err := e.Tick(f.Tick); err != nil {
		errs = append(errs, err)
	}
	for _, k := range f.Kicks {
		if err := e.Kick(k); err != nil {
			errs = append(errs, err)
		}
	}
	if f.Goal != nil {
		if _, err := e.Goal(*f.Goal); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// End finalizes the running match on victory or stop and returns its immutable record.
func (e *Engine) End(end model.MatchEnd) (rec *model.MatchRecord, err error) {
	defer e.guard("end", &err)
	m := e.cur
	if m == nil {
		return nil, ErrNoMatch
	}
	if end.Reason == "" {
		end.Reason = model.EndVictory
	}
	now := m.at(end.Time)
	// Stop notifications carry no score.
	if end.Score.Red == 0 && end.Score.Blue == 0 {
		end.Score.Red, end.Score.Blue = m.score.Red, m.score.Blue
	}
	if end.Score.TimeLimit == 0 && end.Score.ScoreLimit == 0 {
		end.Score.TimeLimit, end.Score.ScoreLimit = m.timeLimit, m.scoreLimit
	}

	rec = m.finalize(end, now, e.cfg.DriveEpsilon)
	e.cur = nil

	metrics.RecordMatch(string(end.Reason))
	e.logger.Info(context.Background(), "match finished",
		logger.String("match", rec.ID),
		logger.String("reason", string(end.Reason)),
		logger.Int("red", end.Score.Red),
		logger.Int("blue", end.Score.Blue),
		logger.Int("kicks", len(rec.Kicks)),
		logger.Int("drives", len(rec.Possessions)))

	typ := model.StreamVictory
	if end.Reason == model.EndStop {
		typ = model.StreamStop
	}
	e.snapshot.Store(&model.LiveSnapshot{
		MatchID:    rec.ID,
		Stadium:    rec.Summary.Stadium,
		Time:       now,
		Score:      end.Score,
		Possession: aggregator.TimeOfPossession(rec.Possessions),
	})
	e.emit(model.StreamEvent{
		Type:    typ,
		MatchID: rec.ID,
		Stadium: rec.Summary.Stadium,
		Time:    now,
		Score:   end.Score,
	})
	return rec, nil
}

// at clamps a notification time to the match clock so drives never run backwards and
// a non-finite time never reaches it.
func (m *match) at(t float64) float64 {
	if !finite(t) || t < m.clock {
		return m.clock
	}
	return t
}

func validateTick(t model.Tick, clock float64) error {
	if !finite(t.Time) || !finite(t.Ball.X) || !finite(t.Ball.Y) {
		return fmt.Errorf("tick at %v: %w: non-finite time or ball", t.Time, ErrInvalidTick)
	}
	if t.Time < clock {
		return fmt.Errorf("tick at %v: %w: clock already at %v", t.Time, ErrInvalidTick, clock)
	}
	for _, p := range t.Players {
		if p.Position != nil && (!finite(p.Position.X) || !finite(p.Position.Y)) {
			return fmt.Errorf("tick at %v: %w: player %d position", t.Time, ErrInvalidTick, p.ID)
		}
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func (e *Engine) kickLogged(k model.KickRecord, correction bool) {
	metrics.RecordKick(string(k.Type))
	e.logger.Debug(context.Background(), "kick",
		logger.String("type", string(k.Type)),
		logger.String("from", k.From.Name),
		logger.Float64("time", k.Time))
	kick := k
	e.emit(model.StreamEvent{
		Type:       model.StreamKick,
		MatchID:    e.cur.id,
		Time:       k.Time,
		Score:      k.Score,
		Kick:       &kick,
		Correction: correction,
	})
}

func (e *Engine) emit(ev model.StreamEvent) {
	for _, l := range e.listeners {
		l.OnEvent(ev)
	}
}

func (e *Engine) publish() {
	m := e.cur
	if m == nil {
		return
	}
	snap := &model.LiveSnapshot{
		MatchID:         m.id,
		Stadium:         m.stadium,
		Running:         true,
		Time:            m.clock,
		Score:           m.score,
		Possessor:       model.SnapshotOf(m.touch.holder),
		PossessionSince: m.touch.since,
		Possession:      m.possession(m.clock),
	}
	e.snapshot.Store(snap)
}

// guard turns a handler panic into an error and reports failures. Transitions commit only
// after they are fully computed, so the match state stays consistent.
func (e *Engine) guard(handler string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s: recovered from panic: %v", handler, r)
	}
	if *err != nil {
		metrics.RecordHandlerError(handler)
		e.logger.Warn(context.Background(), "handler failed",
			logger.String("handler", handler),
			logger.Error(*err))
	}
}
