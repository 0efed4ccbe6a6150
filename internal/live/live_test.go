package live

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pable/go-hax-metrics/internal/model"
	"github.com/pable/go-hax-metrics/pkg/logger"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(WithLogger(logger.Discard()))
	go hub.Run(ctx)

	snap := func() model.LiveSnapshot {
		return model.LiveSnapshot{MatchID: "m1", Stadium: "Classic", Running: true, Time: 42.5,
			Score: model.Score{Red: 1}}
	}
	srv := httptest.NewServer(NewRouter(hub, snap))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitWatchers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Watchers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d watchers, have %d", n, hub.Watchers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) model.StreamEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev model.StreamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return ev
}

func TestHubBroadcastsToAllWatchers(t *testing.T) {
	hub, srv := startHub(t)
	a := dial(t, srv)
	b := dial(t, srv)
	waitWatchers(t, hub, 2)

	to := model.PlayerSnapshot{ID: 2, Name: "ben", Team: model.TeamRed}
	hub.OnEvent(model.StreamEvent{
		Type: model.StreamKick, MatchID: "m1", Time: 3.2,
		Kick: &model.KickRecord{Type: model.KickPass, From: model.PlayerSnapshot{ID: 1, Name: "ana"}, To: &to},
	})
	hub.OnEvent(model.StreamEvent{Type: model.StreamGoal, MatchID: "m1", Time: 4})

	for _, conn := range []*websocket.Conn{a, b} {
		first := readEvent(t, conn)
		if first.Type != model.StreamKick || first.Kick == nil || first.Kick.Type != model.KickPass {
			t.Errorf("first event: %+v", first)
		}
		if first.Kick.To == nil || first.Kick.To.Name != "ben" {
			t.Errorf("kick receiver lost in encoding: %+v", first.Kick)
		}
		if second := readEvent(t, conn); second.Type != model.StreamGoal {
			t.Errorf("second event: %+v", second)
		}
	}
}

func TestHubForgetsClosedWatchers(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)
	waitWatchers(t, hub, 1)

	conn.Close()
	waitWatchers(t, hub, 0)
}

func TestOnEventAfterStopDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(WithLogger(logger.Discard()))
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.OnEvent(model.StreamEvent{Type: model.StreamKick})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("OnEvent blocked on a stopped hub")
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	_, srv := startHub(t)

	resp, err := http.Get(srv.URL + "/snapshot")
	if err != nil {
		t.Fatalf("GET /snapshot: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: %s", ct)
	}
	var snap model.LiveSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.MatchID != "m1" || !snap.Running || snap.Score.Red != 1 || snap.Time != 42.5 {
		t.Errorf("snapshot: %+v", snap)
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	hub, srv := startHub(t)
	dial(t, srv)
	waitWatchers(t, hub, 1)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status: %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "haxmetrics_live_watchers") {
		t.Errorf("metrics missing watcher gauge:\n%s", body)
	}
}

func TestLiveRejectsPlainHTTP(t *testing.T) {
	_, srv := startHub(t)
	resp, err := http.Get(srv.URL + "/live")
	if err != nil {
		t.Fatalf("GET /live: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for a non-websocket request, got %d", resp.StatusCode)
	}
}
