package websocket

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"shoplist-backend/pkg/observability"
)

// Hub maintains the set of active WebSocket connections and fans broadcast
// messages out to all of them. Every client shares the one document, so
// unlike a per-user hub there is no routing: a broadcast reaches everyone,
// the originating client included.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	// Channels for client management
	register   chan *Client
	unregister chan *Client

	// Message broadcasting
	broadcast chan []byte

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	metrics *observability.Metrics
}

// NewHub creates a new WebSocket hub. metrics may be nil.
func NewHub(metrics *observability.Metrics, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 100),
		unregister: make(chan *Client, 100),
		broadcast:  make(chan []byte, 1000),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run starts the hub's main event loop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("hub shutting down")
			h.closeAllConnections()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToAll(message)
		}
	}
}

// Stop gracefully shuts down the hub.
func (h *Hub) Stop() {
	h.cancel()
}

// Broadcast queues an encoded message for delivery to every connected
// client. It never blocks the caller: the hub goroutine performs the
// fan-out.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.ctx.Done():
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	if h.metrics != nil {
		h.metrics.ActiveConnections.Inc()
	}

	h.logger.Info("client registered",
		zap.String("connectionID", client.id),
		zap.Int("activeConnections", len(h.clients)),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	client.shutdown()
	if h.metrics != nil {
		h.metrics.ActiveConnections.Dec()
	}

	h.logger.Info("client unregistered",
		zap.String("connectionID", client.id),
		zap.Int("activeConnections", len(h.clients)),
	)
}

func (h *Hub) broadcastToAll(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- message:
			if h.metrics != nil {
				h.metrics.MessagesSent.Inc()
			}
		default:
			// Client's send channel is full, drop it
			if h.metrics != nil {
				h.metrics.MessagesFailed.Inc()
			}
			h.logger.Warn("closing slow client",
				zap.String("connectionID", client.id),
			)
			go func(c *Client) {
				h.unregister <- c
				c.conn.Close()
			}(client)
		}
	}
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.shutdown()
		client.conn.Close()
		delete(h.clients, client)
	}
	if h.metrics != nil {
		h.metrics.ActiveConnections.Set(0)
	}

	h.logger.Info("all connections closed")
}
