// Package broadcast pushes state snapshots to passive websocket viewers.
package broadcast

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/roxytools/roxy-stream/internal/domain/track"
)

// Snapshot is the complete externally-visible state at a point in time.
type Snapshot struct {
	CurrentSong *track.Request  `json:"currentSong"`
	Queue       []track.Request `json:"queue"`
	Votes       int             `json:"votes"`
}

const writeTimeout = 500 * time.Millisecond

// Hub manages viewer subscriptions and snapshot broadcasting.
// Delivery is fire-and-forget: no acknowledgment, no replay buffer. Late
// subscribers receive only the next change.
type Hub struct {
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	clients  map[string]*client
}

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes to the connection
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// Viewers are local overlay pages; origin is not enforced.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// ServeHTTP upgrades a viewer connection and registers it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{id: uuid.New().String(), conn: conn}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	zlog.Debug().Str("subscriber", c.id).Msg("viewer connected")

	// Drain inbound frames so pings/closes are processed; viewers never
	// send application data.
	go func() {
		defer h.drop(c.id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends the snapshot to all connected viewers.
// Dead connections are dropped on write failure.
func (h *Hub) Broadcast(snap Snapshot) {
	if snap.Queue == nil {
		snap.Queue = []track.Request{}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		zlog.Error().Err(err).Msg("failed to marshal snapshot")
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.drop(c.id)
		}
	}
}

// Subscribers returns the number of connected viewers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all viewers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		_ = c.conn.Close()
		delete(h.clients, id)
	}
}

func (h *Hub) drop(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()

	if ok {
		_ = c.conn.Close()
		zlog.Debug().Str("subscriber", id).Msg("viewer disconnected")
	}
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
