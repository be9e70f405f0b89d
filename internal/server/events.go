package server

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ssd-technologies/lanshare/internal/ratelimit"
)

// Event is one change notification pushed to connected clients after a
// successful mutation of the shared tree or settings.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"` // "upload", "delete", "folder-create", "folder-delete", "settings"
	Path string    `json:"path"`
	At   time.Time `json:"at"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// eventHub fans change events out to all connected websocket clients.
type eventHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func newEventHub() *eventHub {
	return &eventHub{conns: make(map[*websocket.Conn]bool)}
}

// Broadcast sends an event to every connected client. Clients that fail the
// write are dropped.
func (h *eventHub) Broadcast(eventType, path string) {
	ev := Event{
		ID:   uuid.New().String(),
		Type: eventType,
		Path: path,
		At:   time.Now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(ev); err != nil {
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

func (h *eventHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = true
}

func (h *eventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// handleEvents handles GET /api/events — upgrade to websocket and stream
// change notifications until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[events] websocket upgrade: %v", err)
		return
	}

	s.events.add(conn)
	defer func() {
		s.events.remove(conn)
		conn.Close()
	}()

	// The feed is push-only; the read loop exists to observe disconnects.
	// A chatty client gets cut off.
	limiter := ratelimit.New(60, time.Minute)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		if !limiter.Allow() {
			log.Printf("[events] dropping chatty client %s", conn.RemoteAddr())
			return
		}
	}
}
