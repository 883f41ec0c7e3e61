package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"auron/internal/history"
)

var upgrader = websocket.Upgrader{
	// the UI is served from the same daemon on localhost
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub pushes store events to every connected websocket client. Slow or
// dead clients are dropped instead of blocking the broadcast.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]chan []byte)}
}

// Broadcast fans an event out to all clients.
func (h *Hub) Broadcast(ev history.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to marshal event", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- data:
		default:
			// client can't keep up
			close(ch)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// ServeWS upgrades the request and streams events until the client goes
// away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "err", err)
		return
	}

	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	go h.writeLoop(conn, ch)
	h.readLoop(conn)
}

func (h *Hub) writeLoop(conn *websocket.Conn, ch chan []byte) {
	for data := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
	conn.Close()
}

// readLoop only exists to notice the close frame; clients never send.
func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(conn)
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	conn.Close()
}

// Clients reports the number of connected listeners.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
