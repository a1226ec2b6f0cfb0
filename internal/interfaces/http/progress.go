package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin enforcement happens in the CORS middleware; the upgrade itself
	// accepts any origin that got this far.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ProgressUpdate is one sync progress message on the stream
type ProgressUpdate struct {
	Progress int `json:"progress"`
}

// HandleProgress streams sync progress updates for one session over a
// WebSocket. The stream ends when the client disconnects or the session is
// discarded.
func (h *LinkHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Session %s: progress stream upgrade failed: %v", entry.orch.SessionID(), err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := entry.orch.SubscribeProgress()
	defer unsubscribe()

	// Drain client frames so close/ping handling works; the first read error
	// signals disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case p := <-updates:
			if err := conn.WriteJSON(ProgressUpdate{Progress: p}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
