// Package services contains the application services that own all mutations
// of the shared document and action log. Every change funnels through
// ListService so the read-modify-write-persist-broadcast span is a single
// serialized choke point.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shoplist-backend/application/ports"
	"shoplist-backend/domain/history"
	"shoplist-backend/domain/list"
	appErrors "shoplist-backend/pkg/errors"
	"shoplist-backend/pkg/observability"
)

// ListService coordinates the document store, the action log and the
// broadcaster. Persist-then-broadcast is treated as one step: by the time a
// method returns, every connected client has been handed the new state.
type ListService struct {
	mu          sync.Mutex
	lists       ports.ListRepository
	histories   ports.HistoryRepository
	broadcaster ports.Broadcaster
	metrics     *observability.Metrics
	logger      *zap.Logger

	now   func() time.Time
	genID func() string
}

// NewListService creates the service. metrics may be nil in tests.
func NewListService(
	lists ports.ListRepository,
	histories ports.HistoryRepository,
	broadcaster ports.Broadcaster,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ListService {
	return &ListService{
		lists:       lists,
		histories:   histories,
		broadcaster: broadcaster,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
		genID:       uuid.NewString,
	}
}

// Document returns the current shopping-list document.
func (s *ListService) Document(ctx context.Context) (*list.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists.LoadList(ctx)
}

// History returns the current action log.
func (s *ListService) History(ctx context.Context) (history.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.histories.LoadHistory(ctx)
}

// ReplaceDocument persists a full replacement document submitted by a
// client and broadcasts it to every connected client, sender included.
func (s *ListService) ReplaceDocument(ctx context.Context, doc *list.Document) error {
	if doc == nil {
		return appErrors.NewValidation("document is required")
	}
	if doc.HasDuplicateStoreNames() {
		return appErrors.NewValidation("two stores cannot share a name")
	}
	if doc.HasDuplicateItemIDs() {
		return appErrors.NewValidation("two items cannot share an id")
	}
	doc.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lists.SaveList(ctx, doc); err != nil {
		return appErrors.Wrap(err, "failed to persist document")
	}
	s.broadcaster.BroadcastListUpdated(doc)
	return nil
}

// AppendEntry prepends a history entry and broadcasts the updated log.
// Missing id and timestamp are filled in server-side.
func (s *ListService) AppendEntry(ctx context.Context, entry history.Entry) (history.Log, error) {
	if entry.ActionType == "" {
		return nil, appErrors.NewValidation("history entry missing actionType")
	}
	if len(entry.Payload) == 0 || string(entry.Payload) == "null" {
		return nil, appErrors.NewValidation("history entry missing payload")
	}
	if entry.ID == "" {
		entry.ID = s.genID()
	}
	if entry.Timestamp == 0 {
		entry.Timestamp = s.now().UnixMilli()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.histories.LoadHistory(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to load history")
	}
	log = log.Push(entry)
	if err := s.histories.SaveHistory(ctx, log); err != nil {
		return nil, appErrors.Wrap(err, "failed to persist history")
	}
	s.broadcaster.BroadcastHistoryUpdated(log)
	return log, nil
}

// UndoResult describes the outcome of an undo request.
type UndoResult struct {
	// Empty is true when there was nothing to undo. Neither document nor
	// log changed and nothing was broadcast.
	Empty bool
	// Reverted is true when the inverse was applied. When false (and Empty
	// is false) the entry diverged and was re-queued at the head of the log.
	Reverted bool
	Entry    history.Entry
	Document *list.Document
	Log      history.Log
}

// UndoLast pops the newest history entry and applies its inverse to the
// document. A diverged or unknown entry is pushed back onto the head of the
// log instead of being dropped, so it stays available for a later retry.
// In both cases document and log are persisted and broadcast; only an empty
// log short-circuits without touching anything.
//
// Clients send the id of the action they want undone, but the engine always
// undoes the head of the log regardless.
func (s *ListService) UndoLast(ctx context.Context) (UndoResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.histories.LoadHistory(ctx)
	if err != nil {
		return UndoResult{}, appErrors.Wrap(err, "failed to load history")
	}

	entry, rest, ok := log.Pop()
	if !ok {
		return UndoResult{Empty: true}, nil
	}

	doc, err := s.lists.LoadList(ctx)
	if err != nil {
		return UndoResult{}, appErrors.Wrap(err, "failed to load document")
	}

	result := UndoResult{Entry: entry}
	reverted, revertErr := history.Revert(entry, doc)
	if revertErr != nil {
		// Divergence: keep the entry at the head so it can be retried once
		// the document matches again.
		s.logger.Warn("undo skipped, entry re-queued",
			zap.String("entryID", entry.ID),
			zap.String("actionType", string(entry.ActionType)),
			zap.Error(revertErr),
		)
		result.Log = rest.Push(entry)
		result.Document = doc
		s.observeUndo(false)
	} else {
		result.Reverted = true
		result.Document = reverted
		result.Log = rest
		s.observeUndo(true)
		s.logger.Info("undid action",
			zap.String("entryID", entry.ID),
			zap.String("actionType", string(entry.ActionType)),
		)
	}

	if err := s.lists.SaveList(ctx, result.Document); err != nil {
		return UndoResult{}, appErrors.Wrap(err, "failed to persist document")
	}
	if err := s.histories.SaveHistory(ctx, result.Log); err != nil {
		return UndoResult{}, appErrors.Wrap(err, "failed to persist history")
	}

	s.broadcaster.BroadcastListUpdated(result.Document)
	s.broadcaster.BroadcastHistoryUpdated(result.Log)
	return result, nil
}

// PruneExpired removes history entries older than the retention window.
// The trimmed log is persisted and broadcast only when at least one entry
// was removed.
func (s *ListService) PruneExpired(ctx context.Context, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.histories.LoadHistory(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, "failed to load history")
	}

	cutoff := s.now().Add(-window).UnixMilli()
	kept, removed := log.Prune(cutoff)
	if removed == 0 {
		return 0, nil
	}

	if err := s.histories.SaveHistory(ctx, kept); err != nil {
		return 0, appErrors.Wrap(err, "failed to persist history")
	}
	if s.metrics != nil {
		s.metrics.HistoryPruned.Add(float64(removed))
	}
	s.broadcaster.BroadcastHistoryUpdated(kept)
	s.logger.Info("removed expired history entries", zap.Int("removed", removed))
	return removed, nil
}

// ApplyVoiceProposal merges a voice-interpreter proposal for the unpurchased
// portion of the document back against the full document, records the merge
// as a single bulk-replace history entry carrying the pre-merge snapshot,
// and broadcasts both. A proposal that changes nothing is a no-op.
func (s *ListService) ApplyVoiceProposal(ctx context.Context, proposal []list.ProposedStore, description string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.lists.LoadList(ctx)
	if err != nil {
		return false, appErrors.Wrap(err, "failed to load document")
	}

	merged := list.MergeProposal(current, proposal, s.genID)
	if merged.HasDuplicateStoreNames() || merged.HasDuplicateItemIDs() {
		return false, appErrors.NewValidation("merged document has duplicate store names or item ids")
	}
	if merged.Equal(current) {
		return false, nil
	}

	snapshot, err := history.SnapshotPayload(current)
	if err != nil {
		return false, appErrors.NewInternal("failed to snapshot document", err)
	}
	entry := history.Entry{
		ID:          "hist_" + s.genID(),
		ActionType:  history.ActionVoiceCommandUpdate,
		Payload:     snapshot,
		Timestamp:   s.now().UnixMilli(),
		Description: description,
	}

	log, err := s.histories.LoadHistory(ctx)
	if err != nil {
		return false, appErrors.Wrap(err, "failed to load history")
	}
	log = log.Push(entry)

	if err := s.lists.SaveList(ctx, merged); err != nil {
		return false, appErrors.Wrap(err, "failed to persist document")
	}
	if err := s.histories.SaveHistory(ctx, log); err != nil {
		return false, appErrors.Wrap(err, "failed to persist history")
	}

	s.broadcaster.BroadcastListUpdated(merged)
	s.broadcaster.BroadcastHistoryUpdated(log)
	return true, nil
}

func (s *ListService) observeUndo(reverted bool) {
	if s.metrics == nil {
		return
	}
	if reverted {
		s.metrics.UndoExecuted.Inc()
	} else {
		s.metrics.UndoRequeued.Inc()
	}
}
