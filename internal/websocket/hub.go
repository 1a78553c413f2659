// Package websocket pushes regression run events to connected dashboard
// clients. The hub fans one broadcast channel out to every registered
// client; the engine itself knows nothing about connections.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"factorlens/pkg/contracts/events"
)

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	totalConnections  int64
	activeConnections int64
	messagesSent      int64

	quit     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket_hub")),
		quit:       make(chan struct{}),
	}
}

// Run starts the hub's event loop. Call in a goroutine; Stop terminates it.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			h.activeConnections++
			active := h.activeConnections
			h.mu.Unlock()
			h.logger.Debug("client registered",
				slog.String("client_id", client.id),
				slog.Int64("active", active),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.activeConnections--
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", slog.String("client_id", client.id))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					h.messagesSent++
				default:
					// Slow client: drop it rather than block the hub
					delete(h.clients, client)
					close(client.send)
					h.activeConnections--
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.activeConnections = 0
			h.mu.Unlock()
			return
		}
	}
}

// Stop terminates the hub's event loop and disconnects all clients.
// Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})
}

// enqueueRegister hands a client to the event loop. Returns false if the
// hub has stopped, so a late upgrade never blocks on a channel with no
// receiver.
func (h *Hub) enqueueRegister(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// enqueueUnregister hands a client back to the event loop for removal.
// A no-op once the hub has stopped; Stop already closed every send channel.
func (h *Hub) enqueueUnregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Broadcast queues a raw message for delivery to every connected client
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// BroadcastEvent marshals and broadcasts a typed event message
func (h *Hub) BroadcastEvent(ctx context.Context, msgType events.MessageType, data interface{}) {
	msg := events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.New().String(),
			Type:      msgType,
			Timestamp: time.Now().UTC(),
		},
		Data: data,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "marshal websocket event",
			slog.String("type", string(msgType)),
			slog.String("error", err.Error()),
		)
		return
	}
	h.Broadcast(payload)
}

// ActiveConnections returns the current number of connected clients
func (h *Hub) ActiveConnections() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.activeConnections
}

// TotalConnections returns the number of connections seen since start
func (h *Hub) TotalConnections() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConnections
}
