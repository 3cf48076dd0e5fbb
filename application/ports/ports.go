// Package ports defines the interfaces the application services depend on,
// keeping persistence and transport behind seams the tests can replace.
package ports

import (
	"context"

	"shoplist-backend/domain/history"
	"shoplist-backend/domain/list"
)

// ListRepository owns the persisted shopping-list document snapshot.
type ListRepository interface {
	LoadList(ctx context.Context) (*list.Document, error)
	SaveList(ctx context.Context, doc *list.Document) error
}

// HistoryRepository owns the persisted action log snapshot.
type HistoryRepository interface {
	LoadHistory(ctx context.Context) (history.Log, error)
	SaveHistory(ctx context.Context, log history.Log) error
}

// Broadcaster pushes authoritative state to every connected client,
// including the client that caused the change.
type Broadcaster interface {
	BroadcastListUpdated(doc *list.Document)
	BroadcastHistoryUpdated(log history.Log)
}
