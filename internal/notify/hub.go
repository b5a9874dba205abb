// Package notify fans out "something changed, go re-fetch" signals to
// subscribed devices over WebSocket.
package notify

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/freezer/internal/remote"
)

// TypeRecordChanged is the only message type the hub sends today.
const TypeRecordChanged = "record_changed"

// Message is a change signal. It never carries the payload: receivers
// re-fetch the record.
type Message struct {
	Type       string       `json:"type"`
	Scope      remote.Scope `json:"scope"`
	RecordName string       `json:"record_name"`
	At         time.Time    `json:"at"`
}

// RecordChanged creates a change signal for a record.
func RecordChanged(scope remote.Scope, recordName string, at time.Time) Message {
	return Message{
		Type:       TypeRecordChanged,
		Scope:      scope,
		RecordName: recordName,
		At:         at,
	}
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every client watching its scope.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !c.watches(msg.Scope) {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full; a later signal triggers the same re-fetch.
			h.logger.Debug("dropped change signal", "record", msg.RecordName)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
