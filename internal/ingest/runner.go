// Package ingest replays a host event stream through the engine and hands finished
// matches to persistence.
package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/pable/go-hax-metrics/internal/aggregator"
	"github.com/pable/go-hax-metrics/internal/engine"
	"github.com/pable/go-hax-metrics/internal/model"
	"github.com/pable/go-hax-metrics/internal/parser"
	"github.com/pable/go-hax-metrics/pkg/logger"
)

// namespace scopes match IDs derived from stream content.
var namespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("haxmetrics.match")) //nolint:gochecknoglobals // constant

// MatchID derives a stable ID for the ordinal-th match of a source, so re-ingesting the
// same stream yields the same IDs.
func MatchID(source, startHash string, ordinal int) string {
	return uuid.NewSHA1(namespace, []byte(fmt.Sprintf("%s\x00%s\x00%d", source, startHash, ordinal))).String()
}

// Store reports whether a match has been stored before.
type Store interface {
	MatchExists(id string) (bool, error)
}

// Submitter queues a finished match for writing.
type Submitter interface {
	Submit(rec *model.MatchRecord, stats []model.PlayerMatchStats) bool
}

// Outcome is one finished match with its derived statistics.
type Outcome struct {
	Record     *model.MatchRecord
	Stats      []model.PlayerMatchStats
	Possession []model.TeamPossession
	Queued     bool
}

// Runner implements parser.Handler on top of an engine.
type Runner struct {
	engine  *engine.Engine
	store   Store
	saver   Submitter
	speed   float64
	onMatch func(Outcome)
	onSkip  func(id string)
	logger  logger.Logger

	ctx      context.Context
	ordinal  int
	skipping bool
	paced    bool
	lastTime float64
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore enables skipping matches that are already stored.
func WithStore(s Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithSaver sends finished matches to s.
func WithSaver(s Submitter) Option {
	return func(r *Runner) { r.saver = s }
}

// WithSpeed replays frames in real time scaled by speed. Zero replays as fast as possible.
func WithSpeed(speed float64) Option {
	return func(r *Runner) {
		if speed > 0 {
			r.speed = speed
		}
	}
}

// WithMatchHandler is called after every finished match.
func WithMatchHandler(fn func(Outcome)) Option {
	return func(r *Runner) { r.onMatch = fn }
}

// WithSkipHandler is called for every match skipped because it is already stored.
func WithSkipHandler(fn func(id string)) Option {
	return func(r *Runner) { r.onSkip = fn }
}

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a runner driving eng.
func New(eng *engine.Engine, opts ...Option) *Runner {
	r := &Runner{
		engine:  eng,
		onMatch: func(Outcome) {},
		onSkip:  func(string) {},
		logger:  logger.Get().Named("ingest"),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run parses src to the end. A match still running when the stream ends is closed
// as stopped at its last clock.
func (r *Runner) Run(ctx context.Context, src io.Reader, opts parser.Options) (parser.Stats, error) {
	r.ctx = ctx
	defer func() { r.ctx = context.Background() }()

	stats, err := parser.Parse(ctx, src, r, opts)
	if r.engine.Running() {
		r.logger.Warn(ctx, "stream ended mid-match, stopping it")
		if endErr := r.stopDangling(); endErr != nil && err == nil {
			err = endErr
		}
	}
	return stats, err
}

// OnStart implements parser.Handler.
func (r *Runner) OnStart(s parser.Start) error {
	r.ordinal++
	if s.MatchID == "" {
		s.MatchID = MatchID(s.Source, s.Hash, r.ordinal)
	}
	if r.engine.Running() {
		r.logger.Warn(r.ctx, "match started before the previous one ended", logger.Int("line", s.Line))
		if err := r.stopDangling(); err != nil {
			return err
		}
	}

	r.skipping = false
	if r.store != nil {
		exists, err := r.store.MatchExists(s.MatchID)
		if err != nil {
			return fmt.Errorf("check match %s: %w", s.MatchID, err)
		}
		if exists {
			r.skipping = true
			r.logger.Info(r.ctx, "match already stored, skipping", logger.String("match", s.MatchID))
			r.onSkip(s.MatchID)
			return nil
		}
	}
	r.paced = false
	return r.engine.Start(s.MatchStart)
}

// OnFrame implements parser.Handler.
func (r *Runner) OnFrame(f model.Frame) error {
	if r.skipping {
		return nil
	}
	if err := r.pace(f.Tick.Time); err != nil {
		return err
	}
	return r.engine.Frame(f)
}

// OnEnd implements parser.Handler.
func (r *Runner) OnEnd(e model.MatchEnd) error {
	if r.skipping {
		r.skipping = false
		return nil
	}
	// The host sends a stop after every victory.
	if e.Reason == model.EndStop && !r.engine.Running() {
		return nil
	}
	return r.finish(e)
}

func (r *Runner) stopDangling() error {
	snap := r.engine.Snapshot()
	return r.finish(model.MatchEnd{Time: snap.Time, Score: snap.Score, Reason: model.EndStop})
}

func (r *Runner) finish(e model.MatchEnd) error {
	rec, err := r.engine.End(e)
	if err != nil {
		return err
	}
	stats, poss, err := aggregator.Aggregate(rec)
	if err != nil {
		return fmt.Errorf("aggregate match %s: %w", rec.ID, err)
	}
	out := Outcome{Record: rec, Stats: stats, Possession: poss}
	if r.saver != nil {
		out.Queued = r.saver.Submit(rec, stats)
		if !out.Queued {
			r.logger.Warn(r.ctx, "match not queued for saving", logger.String("match", rec.ID))
		}
	}
	r.onMatch(out)
	return nil
}

// pace sleeps for the scaled gap between consecutive tick times.
func (r *Runner) pace(t float64) error {
	if r.speed == 0 {
		return nil
	}
	if !r.paced {
		r.paced, r.lastTime = true, t
		return nil
	}
	gap := time.Duration((t - r.lastTime) / r.speed * float64(time.Second))
	r.lastTime = t
	if gap <= 0 {
		return nil
	}
	timer := time.NewTimer(gap)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
}
