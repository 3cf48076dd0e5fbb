package websocket

import (
	"bytes"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Full-document replacements
	// ride over this channel, so the limit is generous.
	maxMessageSize = 512 * 1024 // 512KB

	// Send buffer size
	sendBufferSize = 256
)

// MessageHandler dispatches one inbound wire message from a client.
type MessageHandler interface {
	HandleMessage(client *Client, message []byte)
}

// Client represents a single WebSocket connection.
//
// send is never closed: messages arrive from the hub goroutine, the read
// pump (session replies) and the upgrade goroutine (initial state), so no
// single sender owns it. Shutdown is signalled through done instead, and
// the write pump exits on that signal.
type Client struct {
	id      string          // Unique connection ID
	hub     *Hub            // Reference to hub
	conn    *websocket.Conn // WebSocket connection
	send    chan []byte     // Buffered channel of outbound messages
	done    chan struct{}   // Closed once the client is shut down
	once    sync.Once
	handler MessageHandler
	logger  *zap.Logger
}

// NewClient creates a new WebSocket client.
func NewClient(hub *Hub, conn *websocket.Conn, handler MessageHandler, logger *zap.Logger) *Client {
	id := uuid.New().String()
	return &Client{
		id:      id,
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		handler: handler,
		logger:  logger.With(zap.String("connectionID", id)),
	}
}

// Start registers the client with the hub and begins its read and write
// pumps.
func (c *Client) Start() {
	c.hub.register <- c

	go c.writePump()
	go c.readPump()
}

// Send queues a message for this client only. It reports whether the
// message was queued; a full buffer drops the message rather than blocking,
// and a shut-down client drops it silently.
func (c *Client) Send(message []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- message:
		return true
	case <-c.done:
		return false
	default:
		c.logger.Warn("dropping message for slow client")
		return false
	}
}

// shutdown signals the write pump to stop. Safe to call from any goroutine,
// any number of times.
func (c *Client) shutdown() {
	c.once.Do(func() { close(c.done) })
}

// ID returns the client's connection ID.
func (c *Client) ID() string {
	return c.id
}

// readPump pumps messages from the WebSocket connection to the handler.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		c.logger.Debug("read pump stopped")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.handler.HandleMessage(c, bytes.TrimSpace(message))
		case websocket.BinaryMessage:
			c.logger.Warn("binary messages not supported")
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.Debug("write pump stopped")
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("failed to write message", zap.Error(err))
				return
			}

			// Drain queued messages into the same write window
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					c.logger.Error("failed to write batched message", zap.Error(err))
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
