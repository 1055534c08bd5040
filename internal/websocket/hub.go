package websocket

import (
	"sync"

	"github.com/vidigest/backend/internal/metrics"
)

// Hub maintains the set of active clients and broadcasts queue events to
// them. Queue state is global, so every client sees every event.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Broadcast channel for queue events
	broadcast chan *Message

	// Optional gauge for connected-client count
	metrics *metrics.Metrics

	mu sync.RWMutex
}

// Message is the wire envelope for queue events.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Event types sent to clients.
const (
	TypeItemUpdate  = "item_update"
	TypeQueueState  = "queue_state"
	TypeRunStarted  = "run_started"
	TypeRunFinished = "run_finished"
)

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message),
	}
}

// SetMetrics attaches a metrics registry whose connection gauge the hub
// keeps current. Call before Run.
func (h *Hub) SetMetrics(m *metrics.Metrics) {
	h.metrics = m
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.updateGauge()
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.updateGauge()
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's buffer is full, close the connection
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.updateGauge()
			h.mu.Unlock()
		}
	}
}

// updateGauge refreshes the connection gauge. Caller holds the lock.
func (h *Hub) updateGauge() {
	if h.metrics != nil {
		h.metrics.SetWSConnections(int64(len(h.clients)))
	}
}

// Broadcast sends a message to every connected client.
func (h *Hub) Broadcast(msg *Message) {
	h.broadcast <- msg
}

// TotalClients returns the total number of connected clients.
func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
