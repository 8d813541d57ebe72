package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-picarx/internal/log"
)

// sender is the part of a client the hub needs.
type sender interface {
	queue() chan Message
}

// Hub maintains the set of active clients and broadcasts messages to them.
// A client that cannot keep up is dropped rather than slowing the others.
type Hub struct {
	name string
	log  *slog.Logger

	clients    map[sender]bool
	broadcast  chan Message
	register   chan sender
	unregister chan sender
	done       chan struct{}

	mu    sync.RWMutex
	count int
}

// New creates a new Hub.
func New(name string, logger *slog.Logger) *Hub {
	return &Hub{
		name:       name,
		log:        log.Or(logger).With("component", "hub", "hub", name),
		clients:    make(map[sender]bool),
		broadcast:  make(chan Message, 16),
		register:   make(chan sender),
		unregister: make(chan sender),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.queue())
				delete(h.clients, c)
			}
			h.setCount(0)
			close(h.done)
			return

		case c := <-h.register:
			h.clients[c] = true
			h.setCount(len(h.clients))
			h.log.Info("client connected", "clients", len(h.clients))

		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.queue())
			}
			h.setCount(len(h.clients))
			h.log.Info("client disconnected", "clients", len(h.clients))

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.queue() <- msg:
				default:
					close(c.queue())
					delete(h.clients, c)
					h.log.Warn("dropped slow client")
				}
			}
			h.setCount(len(h.clients))
		}
	}
}

// join registers c; it is a no-op once the hub has stopped.
func (h *Hub) join(c sender) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.queue())
	}
}

// leave unregisters c; it is a no-op once the hub has stopped.
func (h *Hub) leave(c sender) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// Broadcast queues msg for every client. If the hub is backed up the
// message is dropped; telemetry is always superseded by the next one.
func (h *Hub) Broadcast(msg Message) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		h.log.Debug("broadcast queue full, dropping message")
		return false
	}
}

// BroadcastJSON encodes v and broadcasts it.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(Message{Data: data})
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
