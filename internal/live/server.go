package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/pable/go-hax-metrics/internal/metrics"
	"github.com/pable/go-hax-metrics/internal/model"
	"github.com/pable/go-hax-metrics/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// SnapshotFunc returns the current view of the running match.
type SnapshotFunc func() model.LiveSnapshot

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Watchers are local dashboards served from other origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewRouter wires the side-channel endpoints.
func NewRouter(hub *Hub, snapshot SnapshotFunc) http.Handler {
	router := chi.NewRouter()

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok\n"))
	})
	router.Method(http.MethodGet, "/metrics", metrics.Handler())
	router.Get("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, snapshot())
	})
	router.Get("/live", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the error response.
			hub.logger.Warn(r.Context(), "websocket upgrade", logger.Error(err))
			return
		}
		if !hub.join(conn) {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub stopped"))
			conn.Close()
		}
	})

	return router
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Get().Named("live").Error(r.Context(), "write json", logger.Error(err))
	}
}

// Serve listens on addr until ctx is canceled, then shuts the server down.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
