package notify

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/annostudio/annostudio/pkg/handlers"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 16
)

// Hub fans notifications out to the websocket sessions of each actor.
// Sessions that cannot keep up have messages dropped rather than
// blocking the producing operation.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan Notification
}

// NewHub creates a notification hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger.With("system", "notify"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[uuid.UUID]map[*client]struct{}),
	}
}

// Notify implements Notifier by broadcasting to every session of the actor.
func (h *Hub) Notify(actor uuid.UUID, level Level, message string) {
	n := Notification{
		Level:     level,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[actor] {
		select {
		case c.send <- n:
		default:
			h.logger.Warn("notification dropped", "actor", actor, "message", message)
		}
	}
}

// Subscribe upgrades the request to a websocket and streams the actor's
// notifications until the connection closes.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request) {
	actor, err := uuid.Parse(r.Header.Get("X-Actor-ID"))
	if err != nil {
		actor, err = uuid.Parse(r.URL.Query().Get("actor"))
	}
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan Notification, sendBufferSize)}
	h.register(actor, c)

	go h.writePump(actor, c)
	go h.readPump(actor, c)
}

// SessionCount reports the number of open sessions for an actor.
func (h *Hub) SessionCount(actor uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[actor])
}

func (h *Hub) register(actor uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[actor] == nil {
		h.clients[actor] = make(map[*client]struct{})
	}
	h.clients[actor][c] = struct{}{}
}

func (h *Hub) unregister(actor uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessions, ok := h.clients[actor]; ok {
		if _, ok := sessions[c]; ok {
			delete(sessions, c)
			close(c.send)
			if len(sessions) == 0 {
				delete(h.clients, actor)
			}
		}
	}
}

func (h *Hub) writePump(actor uuid.UUID, c *client) {
	for n := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(n); err != nil {
			h.logger.Debug("notification write failed", "actor", actor, "error", err)
			break
		}
	}
	c.conn.Close()
}

func (h *Hub) readPump(actor uuid.UUID, c *client) {
	defer func() {
		h.unregister(actor, c)
		c.conn.Close()
	}()

	// Inbound frames are only read to detect disconnects.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
