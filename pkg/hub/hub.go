package hub

import (
	"log/slog"
	"sync"
)

// Hub maintains the set of active clients and broadcasts envelopes to
// them. Clients that cannot keep up with the broadcast rate are dropped
// rather than allowed to stall the whole fan-out.
type Hub struct {
	// Name for logging
	name string

	// Registered clients
	clients map[*Client]bool

	// Inbound envelopes to broadcast
	broadcast chan Envelope

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Stops the run loop
	done chan struct{}

	// Mutex for client map (read-only access from outside)
	mu sync.RWMutex

	log *slog.Logger
}

// New creates a new Hub
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        slog.Default().With("component", "hub", "hub", name),
	}
}

// Run starts the hub's main loop.
// This should be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client connected", "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client disconnected", "remaining", count)

		case env := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- env:
				default:
					// Client's buffer is full, they're too slow.
					close(client.send)
					delete(h.clients, client)
					h.log.Warn("dropped slow client")
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop shuts down the run loop and disconnects all clients.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Broadcast queues an envelope for all connected clients.
// Drops the envelope if the broadcast channel is full.
func (h *Hub) Broadcast(env Envelope) {
	select {
	case h.broadcast <- env:
	default:
		h.log.Warn("broadcast channel full, dropping", "kind", env.Kind)
	}
}

// BroadcastJSON encodes a payload under its kind tag and broadcasts it.
func (h *Hub) BroadcastJSON(kind Kind, payload any) error {
	env, err := Wrap(kind, payload)
	if err != nil {
		return err
	}
	h.Broadcast(env)
	return nil
}

// BroadcastFrame broadcasts a JPEG preview frame.
func (h *Hub) BroadcastFrame(jpeg []byte) {
	h.Broadcast(FrameEnvelope(jpeg))
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
