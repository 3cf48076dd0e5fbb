package websocket

import (
	"go.uber.org/zap"

	"shoplist-backend/domain/history"
	"shoplist-backend/domain/list"
)

// Broadcaster pushes authoritative state through the hub to every connected
// client. It implements ports.Broadcaster.
type Broadcaster struct {
	hub    *Hub
	logger *zap.Logger
}

// NewBroadcaster creates a hub-backed broadcaster.
func NewBroadcaster(hub *Hub, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		hub:    hub,
		logger: logger,
	}
}

// BroadcastListUpdated pushes the new document to all clients.
func (b *Broadcaster) BroadcastListUpdated(doc *list.Document) {
	data, err := encodeMessage(MessageListUpdated, doc)
	if err != nil {
		b.logger.Error("failed to encode list broadcast", zap.Error(err))
		return
	}
	b.hub.Broadcast(data)
}

// BroadcastHistoryUpdated pushes the new action log to all clients.
func (b *Broadcaster) BroadcastHistoryUpdated(log history.Log) {
	data, err := encodeMessage(MessageHistoryUpdated, log)
	if err != nil {
		b.logger.Error("failed to encode history broadcast", zap.Error(err))
		return
	}
	b.hub.Broadcast(data)
}
