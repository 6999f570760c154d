package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/simeonpalla/GovLensAP/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedHub pushes complaint lifecycle events to connected officer dashboards.
type FeedHub struct {
	clients map[*websocket.Conn]bool
	mutex   sync.Mutex
}

// NewFeedHub creates an empty hub.
func NewFeedHub() *FeedHub {
	return &FeedHub{clients: make(map[*websocket.Conn]bool)}
}

// ServeWS upgrades the connection and registers it for broadcasts.
func (h *FeedHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("websocket upgrade failed", "error", err)
		return
	}

	h.mutex.Lock()
	h.clients[conn] = true
	h.mutex.Unlock()
	zap.S().Debugw("dashboard connected to /ws/feed", "remote", conn.RemoteAddr())

	conn.SetCloseHandler(func(code int, text string) error {
		h.drop(conn)
		return nil
	})

	// drain the connection; clients only listen on this feed
	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.drop(conn)
			conn.Close()
			break
		}
	}
}

// Broadcast sends one complaint event to every connected dashboard. Safe to
// call on a nil hub so handlers need no wiring in tests.
func (h *FeedHub) Broadcast(event string, complaint models.Complaint) {
	if h == nil {
		return
	}
	payload := map[string]interface{}{
		"event": event,
		"data":  complaint,
	}

	// writes to a websocket connection must be serialized; the lock is held
	// across the loop so overlapping broadcasts never share a connection
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(payload); err != nil {
			zap.S().Debugw("dropping dead feed connection", "error", err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

func (h *FeedHub) drop(conn *websocket.Conn) {
	h.mutex.Lock()
	delete(h.clients, conn)
	h.mutex.Unlock()
}
