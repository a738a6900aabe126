package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Leothelion6721/Whatsapp-attachments/internal/observability"
)

// Hub tracks every open WebSocket connection, identified or not, keyed by
// connection id. It is pure delivery: who should receive what is decided by
// the router (service.ChatService), which addresses pushes by connection id.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID]*Client)}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	observability.ConnectedClients.Set(float64(total))
	log.Debug().Str("conn_id", c.id.String()).Int("total", total).Msg("ws: connection opened")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	// Closed under the lock so Send can never race a push against the close.
	close(c.send)
	total := len(h.clients)
	h.mu.Unlock()

	observability.ConnectedClients.Set(float64(total))
	log.Debug().Str("conn_id", c.id.String()).Int("total", total).Msg("ws: connection closed")
}

// Send queues an event for one connection. A full send buffer drops the
// event rather than block the router; a connection that is gone is a no-op.
func (h *Hub) Send(connID uuid.UUID, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("ws hub: marshal error")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[connID]
	if !ok {
		return
	}

	// The push stays under the read lock: remove closes the channel under
	// the write lock, so a send can never hit a closed channel.
	select {
	case client.send <- data:
	default:
		log.Warn().Str("conn_id", connID.String()).Str("type", event.Type).Msg("ws hub: send buffer full, event dropped")
	}
}

// ClientCount reports open connections, identified or not.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
