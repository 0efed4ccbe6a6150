package live

import (
	"time"

	"github.com/gorilla/websocket"
)

type watcher struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (w *watcher) remote() string { return w.conn.RemoteAddr().String() }

// writeEvents pumps queued events to the peer, one JSON document per frame.
func (w *watcher) writeEvents() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		w.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-w.send:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				w.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := w.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				w.hub.leave(w)
				return
			}
		case <-ticker.C:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				w.hub.leave(w)
				return
			}
		}
	}
}

// readControl consumes pongs and close frames until the peer goes away.
func (w *watcher) readControl() {
	defer w.hub.leave(w)
	w.conn.SetReadLimit(maxMessageSize)
	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			return
		}
	}
}
