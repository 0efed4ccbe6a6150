// Package live fans engine notifications out to websocket watchers and serves
// the read-only HTTP side channel.
package live

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pable/go-hax-metrics/internal/metrics"
	"github.com/pable/go-hax-metrics/internal/model"
	"github.com/pable/go-hax-metrics/pkg/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = time.Minute

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Watchers only send control frames.
	maxMessageSize = 512

	watcherBuffer   = 64
	broadcastBuffer = 256
)

// Hub owns the watcher set. All mutations happen on the Run goroutine.
type Hub struct {
	watchers   map[*watcher]bool
	register   chan *watcher
	unregister chan *watcher
	broadcast  chan []byte
	done       chan struct{}
	count      atomic.Int64
	logger     logger.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHub creates a hub. Run must be started before watchers can join.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		watchers:   make(map[*watcher]bool),
		register:   make(chan *watcher),
		unregister: make(chan *watcher),
		broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("live"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run serves register, unregister and broadcast until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for w := range h.watchers {
				h.drop(w)
			}
			return
		case w := <-h.register:
			h.watchers[w] = true
			h.setCount()
			h.logger.Debug(ctx, "watcher joined", logger.String("remote", w.remote()))
		case w := <-h.unregister:
			if h.watchers[w] {
				h.drop(w)
			}
		case msg := <-h.broadcast:
			for w := range h.watchers {
				select {
				case w.send <- msg:
				default:
					h.logger.Warn(ctx, "dropping slow watcher", logger.String("remote", w.remote()))
					h.drop(w)
				}
			}
		}
	}
}

func (h *Hub) drop(w *watcher) {
	delete(h.watchers, w)
	close(w.send)
	h.setCount()
}

func (h *Hub) setCount() {
	h.count.Store(int64(len(h.watchers)))
	metrics.SetLiveWatchers(len(h.watchers))
}

// Watchers returns the number of connected watchers.
func (h *Hub) Watchers() int { return int(h.count.Load()) }

// OnEvent encodes ev and queues it for every watcher. It never blocks: when
// the hub is stopped or backed up the event is dropped.
func (h *Hub) OnEvent(ev model.StreamEvent) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error(context.Background(), "encode stream event", logger.Error(err))
		return
	}
	select {
	case <-h.done:
	case h.broadcast <- msg:
	default:
		h.logger.Warn(context.Background(), "live broadcast full, dropping event",
			logger.String("type", string(ev.Type)))
	}
}

// join hands a connection to the hub and starts its pumps. It returns false
// when the hub has stopped.
func (h *Hub) join(conn *websocket.Conn) bool {
	w := &watcher{hub: h, conn: conn, send: make(chan []byte, watcherBuffer)}
	select {
	case h.register <- w:
	case <-h.done:
		return false
	}
	go w.writeEvents()
	go w.readControl()
	return true
}

func (h *Hub) leave(w *watcher) {
	select {
	case h.unregister <- w:
	case <-h.done:
	}
}
