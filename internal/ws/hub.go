// internal/ws/hub.go
package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event is a server-push frame. Today the only producer is the session
// registry announcing revocations, so open clients learn about a forced
// logout without waiting for their next refresh to fail.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
}

const EventSessionRevoked = "session_revoked"

// client serializes writes to one connection. Gorilla allows at most one
// concurrent writer per conn, and revocation events for the same user can
// fire from several goroutines at once.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub tracks open websocket connections per user and fans events out to
// them. It satisfies the registry's EventPublisher port.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]map[*websocket.Conn]*client
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		conns:  make(map[string]map[*websocket.Conn]*client),
		logger: logger,
	}
}

// Register attaches a connection to a user.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]*client)
	}
	h.conns[userID][conn] = &client{conn: conn}
}

// Unregister detaches a connection; safe to call twice.
func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.conns[userID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, userID)
		}
	}
}

// SessionRevoked pushes a revocation notice to every open connection of the
// user. Write failures just drop the connection; delivery is best-effort.
func (h *Hub) SessionRevoked(userID, sessionID string) {
	event := Event{Type: EventSessionRevoked, SessionID: sessionID}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.conns[userID]))
	for _, cl := range h.conns[userID] {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	for _, cl := range clients {
		if err := cl.writeJSON(event); err != nil {
			h.logger.Debug("dropping websocket connection",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			cl.conn.Close()
			h.Unregister(userID, cl.conn)
		}
	}
}
