// Package persist writes finished matches to storage off the engine goroutine.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pable/go-hax-metrics/internal/metrics"
	"github.com/pable/go-hax-metrics/internal/model"
	"github.com/pable/go-hax-metrics/pkg/logger"
)

const defaultQueueSize = 16

// ErrClosed is returned by Close on a saver that was already closed.
var ErrClosed = errors.New("saver closed")

// Store is the write side of the match store.
type Store interface {
	InsertMatch(rec *model.MatchRecord, stats []model.PlayerMatchStats) error
}

// Result reports the outcome of one save. Message is the human-readable line
// shown to the room.
type Result struct {
	MatchID string
	Message string
	Err     error
}

type job struct {
	rec   *model.MatchRecord
	stats []model.PlayerMatchStats
}

// Saver is a bounded queue drained by a single worker.
type Saver struct {
	store    Store
	size     int
	onResult func(Result)
	logger   logger.Logger

	jobs  chan job
	done  chan struct{}
	start sync.Once

	mu      sync.RWMutex
	closed  bool
	stopped bool // worker saw ctx cancellation
}

// Option configures a Saver.
type Option func(*Saver)

// WithQueueSize bounds the number of matches waiting to be written.
func WithQueueSize(n int) Option {
	return func(s *Saver) {
		if n > 0 {
			s.size = n
		}
	}
}

// WithResultHandler is called on the worker goroutine after every save.
func WithResultHandler(fn func(Result)) Option {
	return func(s *Saver) {
		if fn != nil {
			s.onResult = fn
		}
	}
}

// WithLogger sets a custom logger for the saver.
func WithLogger(l logger.Logger) Option {
	return func(s *Saver) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a saver. Start must be called before results are produced.
func New(store Store, opts ...Option) *Saver {
	s := &Saver{
		store:    store,
		size:     defaultQueueSize,
		onResult: func(Result) {},
		logger:   logger.Get().Named("persist"),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.jobs = make(chan job, s.size)
	metrics.SetPersistQueueDepth(0)
	return s
}

// Start runs the worker until the queue is closed or ctx is canceled. On
// cancellation the saver stops accepting matches and writes what is already queued.
// Only the first call has an effect.
func (s *Saver) Start(ctx context.Context) {
	s.start.Do(func() { go s.run(ctx) })
}

func (s *Saver) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.stopped = true
			s.mu.Unlock()
			s.drain(context.WithoutCancel(ctx))
			return
		case j, ok := <-s.jobs:
			if !ok {
				return
			}
			metrics.SetPersistQueueDepth(len(s.jobs))
			s.onResult(s.save(ctx, j))
		}
	}
}

// drain writes every job queued before the saver stopped accepting new ones.
func (s *Saver) drain(ctx context.Context) {
	for {
		select {
		case j, ok := <-s.jobs:
			if !ok {
				return
			}
			metrics.SetPersistQueueDepth(len(s.jobs))
			s.onResult(s.save(ctx, j))
		default:
			return
		}
	}
}

func (s *Saver) save(ctx context.Context, j job) Result {
	id := j.rec.ID
	if err := s.store.InsertMatch(j.rec, j.stats); err != nil {
		metrics.RecordPersist(false)
		s.logger.Error(ctx, "save match", logger.String("match", id), logger.Error(err))
		return Result{
			MatchID: id,
			Message: fmt.Sprintf("Failed to save match %s.", id),
			Err:     fmt.Errorf("insert match %s: %w", id, err),
		}
	}
	metrics.RecordPersist(true)
	s.logger.Info(ctx, "match saved", logger.String("match", id),
		logger.Int("kicks", len(j.rec.Kicks)), logger.Int("goals", len(j.rec.Goals)))
	return Result{MatchID: id, Message: "Match ID: " + id}
}

// Submit queues a finished match without blocking. It returns false when the
// queue is full, the saver is closed, or its worker was canceled.
func (s *Saver) Submit(rec *model.MatchRecord, stats []model.PlayerMatchStats) bool {
	if rec == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.stopped {
		return false
	}
	select {
	case s.jobs <- job{rec: rec, stats: stats}:
		metrics.SetPersistQueueDepth(len(s.jobs))
		return true
	default:
		s.logger.Warn(context.Background(), "persist queue full, dropping match", logger.String("match", rec.ID))
		return false
	}
}

// Len returns the number of queued matches.
func (s *Saver) Len() int { return len(s.jobs) }

// Close stops accepting matches and waits for queued ones to be written. A saver
// that was never started is started here so its queue still drains.
func (s *Saver) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	close(s.jobs)
	s.mu.Unlock()
	s.Start(context.Background())

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		s.logger.Warn(ctx, "persist drain timed out", logger.Int("pending", len(s.jobs)))
		return fmt.Errorf("drain persist queue: %w", ctx.Err())
	}
}
