package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pable/go-hax-metrics/internal/model"
	"github.com/pable/go-hax-metrics/pkg/logger"
)

type fakeStore struct {
	mu    sync.Mutex
	saved []string
	fail  map[string]error
	gate  chan struct{} // when non-nil, each insert waits for a value
}

func (f *fakeStore) InsertMatch(rec *model.MatchRecord, _ []model.PlayerMatchStats) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[rec.ID]; err != nil {
		return err
	}
	f.saved = append(f.saved, rec.ID)
	return nil
}

type collector struct {
	mu      sync.Mutex
	results []Result
}

func (c *collector) add(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func newSaver(t *testing.T, store Store, c *collector, opts ...Option) *Saver {
	t.Helper()
	opts = append(opts, WithResultHandler(c.add), WithLogger(logger.Discard()))
	s := New(store, opts...)
	s.Start(context.Background())
	return s
}

func closeSaver(t *testing.T, s *Saver) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSaverWritesInOrder(t *testing.T) {
	store := &fakeStore{}
	var c collector
	s := newSaver(t, store, &c)

	for _, id := range []string{"a", "b", "c"} {
		if !s.Submit(&model.MatchRecord{ID: id}, nil) {
			t.Fatalf("Submit(%s) rejected", id)
		}
	}
	closeSaver(t, s)

	if len(store.saved) != 3 || store.saved[0] != "a" || store.saved[2] != "c" {
		t.Errorf("saved: %v", store.saved)
	}
	if len(c.results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(c.results))
	}
	if got := c.results[1]; got.Err != nil || got.Message != "Match ID: b" || got.MatchID != "b" {
		t.Errorf("result: %+v", got)
	}
}

func TestSaverReportsFailures(t *testing.T) {
	boom := errors.New("disk full")
	store := &fakeStore{fail: map[string]error{"bad": boom}}
	var c collector
	s := newSaver(t, store, &c)

	s.Submit(&model.MatchRecord{ID: "bad"}, nil)
	s.Submit(&model.MatchRecord{ID: "good"}, nil)
	closeSaver(t, s)

	if len(c.results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(c.results))
	}
	failed := c.results[0]
	if !errors.Is(failed.Err, boom) {
		t.Errorf("expected wrapped store error, got %v", failed.Err)
	}
	if failed.Message != "Failed to save match bad." {
		t.Errorf("message: %q", failed.Message)
	}
	if c.results[1].Err != nil {
		t.Errorf("a failed save must not affect the next one: %+v", c.results[1])
	}
}

func TestSubmitNeverBlocks(t *testing.T) {
	store := &fakeStore{gate: make(chan struct{})}
	var c collector
	s := newSaver(t, store, &c, WithQueueSize(1))

	// The worker takes "a" and waits on the gate; "b" fills the queue.
	s.Submit(&model.MatchRecord{ID: "a"}, nil)
	deadline := time.Now().Add(time.Second)
	for s.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !s.Submit(&model.MatchRecord{ID: "b"}, nil) {
		t.Fatal("expected room for one queued match")
	}
	if s.Submit(&model.MatchRecord{ID: "c"}, nil) {
		t.Error("expected Submit to reject when the queue is full")
	}

	close(store.gate)
	closeSaver(t, s)
	if len(store.saved) != 2 {
		t.Errorf("saved: %v", store.saved)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	var c collector
	s := newSaver(t, &fakeStore{}, &c)
	closeSaver(t, s)

	if s.Submit(&model.MatchRecord{ID: "late"}, nil) {
		t.Error("expected Submit to fail after Close")
	}
	if err := s.Close(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed on second Close, got %v", err)
	}
	if s.Submit(nil, nil) {
		t.Error("nil record must be rejected")
	}
}

func TestCanceledSaverReportsEveryAcceptedMatch(t *testing.T) {
	store := &fakeStore{}
	var c collector
	s := New(store, WithResultHandler(c.add), WithLogger(logger.Discard()))
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	accepted := 0
	for _, id := range []string{"a", "b", "c"} {
		if s.Submit(&model.MatchRecord{ID: id}, nil) {
			accepted++
		}
	}
	deadline := time.Now().Add(time.Second)
	for s.Submit(&model.MatchRecord{ID: "late"}, nil) {
		accepted++
		if time.Now().After(deadline) {
			t.Fatal("Submit still accepts matches after the worker was canceled")
		}
		time.Sleep(time.Millisecond)
	}
	closeSaver(t, s)

	if len(c.results) != accepted {
		t.Errorf("accepted %d matches but got %d results", accepted, len(c.results))
	}
	if len(store.saved) != accepted {
		t.Errorf("accepted %d matches but saved %v", accepted, store.saved)
	}
}

func TestCancelDrainsQueuedMatches(t *testing.T) {
	store := &fakeStore{gate: make(chan struct{})}
	var c collector
	s := New(store, WithResultHandler(c.add), WithLogger(logger.Discard()))
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	s.Submit(&model.MatchRecord{ID: "a"}, nil)
	deadline := time.Now().Add(time.Second)
	for s.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !s.Submit(&model.MatchRecord{ID: "b"}, nil) {
		t.Fatal("expected room for a queued match")
	}
	cancel()
	close(store.gate)
	closeSaver(t, s)

	if len(store.saved) != 2 || len(c.results) != 2 {
		t.Errorf("saved %v, %d results", store.saved, len(c.results))
	}
}

func TestCloseWithoutStart(t *testing.T) {
	store := &fakeStore{}
	var c collector
	s := New(store, WithResultHandler(c.add), WithLogger(logger.Discard()))
	s.Submit(&model.MatchRecord{ID: "a"}, nil)

	closeSaver(t, s)
	if len(store.saved) != 1 || len(c.results) != 1 {
		t.Errorf("saved %v, %d results", store.saved, len(c.results))
	}
}
