package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shoplist-backend/domain/history"
	"shoplist-backend/domain/list"
	appErrors "shoplist-backend/pkg/errors"
)

// memoryStore is an in-memory stand-in for the file store.
type memoryStore struct {
	doc     *list.Document
	log     history.Log
	loadErr error
	saveErr error
}

func (m *memoryStore) LoadList(ctx context.Context) (*list.Document, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.doc.Clone(), nil
}

func (m *memoryStore) SaveList(ctx context.Context, doc *list.Document) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.doc = doc.Clone()
	return nil
}

func (m *memoryStore) LoadHistory(ctx context.Context) (history.Log, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append(history.Log{}, m.log...), nil
}

func (m *memoryStore) SaveHistory(ctx context.Context, log history.Log) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.log = append(history.Log{}, log...)
	return nil
}

// recordingBroadcaster counts what was pushed to clients.
type recordingBroadcaster struct {
	docs []*list.Document
	logs []history.Log
}

func (r *recordingBroadcaster) BroadcastListUpdated(doc *list.Document) { r.docs = append(r.docs, doc) }
func (r *recordingBroadcaster) BroadcastHistoryUpdated(log history.Log) { r.logs = append(r.logs, log) }

func newTestService(t *testing.T, doc *list.Document, log history.Log) (*ListService, *memoryStore, *recordingBroadcaster) {
	t.Helper()
	if doc == nil {
		doc = list.NewDocument()
	}
	store := &memoryStore{doc: doc, log: log}
	broadcaster := &recordingBroadcaster{}
	svc := NewListService(store, store, broadcaster, nil, zap.NewNop())
	n := 0
	svc.genID = func() string {
		n++
		return fmt.Sprintf("gen_%d", n)
	}
	svc.now = func() time.Time { return time.UnixMilli(1_000_000) }
	return svc, store, broadcaster
}

func testDocument() *list.Document {
	return &list.Document{
		Stores: []list.Store{
			{Name: "Grocer", Items: []list.Item{
				{ID: "i1", Name: "Milk", Quantity: 1, Unit: "l"},
			}},
		},
		ActiveStoreFilter: "All",
	}
}

func TestReplaceDocument_PersistsAndBroadcasts(t *testing.T) {
	// Arrange
	svc, store, broadcaster := newTestService(t, nil, nil)
	doc := testDocument()

	// Act
	err := svc.ReplaceDocument(context.Background(), doc)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Milk", store.doc.Stores[0].Items[0].Name)
	require.Len(t, broadcaster.docs, 1)
	assert.Empty(t, broadcaster.logs)
}

func TestReplaceDocument_RejectsDuplicates(t *testing.T) {
	svc, store, broadcaster := newTestService(t, nil, nil)

	dupStores := testDocument()
	dupStores.Stores = append(dupStores.Stores, list.Store{Name: "Grocer"})
	err := svc.ReplaceDocument(context.Background(), dupStores)
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))

	dupItems := testDocument()
	dupItems.Stores = append(dupItems.Stores, list.Store{
		Name:  "Bakery",
		Items: []list.Item{{ID: "i1", Name: "Copy"}},
	})
	err = svc.ReplaceDocument(context.Background(), dupItems)
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))

	// Nothing was persisted or broadcast.
	assert.Empty(t, store.doc.Stores)
	assert.Empty(t, broadcaster.docs)
}

func TestAppendEntry_FillsDefaultsAndPrepends(t *testing.T) {
	existing := history.Log{{ID: "old", ActionType: history.ActionAddItem, Payload: json.RawMessage(`{}`), Timestamp: 1}}
	svc, store, broadcaster := newTestService(t, nil, existing)

	log, err := svc.AppendEntry(context.Background(), history.Entry{
		ActionType: history.ActionTogglePurchased,
		Payload:    json.RawMessage(`{"itemId":"i1","storeName":"Grocer","wasPurchased":false}`),
	})

	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, "old", log[1].ID)
	assert.Equal(t, "gen_1", log[0].ID)
	assert.Equal(t, int64(1_000_000), log[0].Timestamp)
	assert.Len(t, store.log, 2)
	require.Len(t, broadcaster.logs, 1)
}

func TestAppendEntry_RejectsMissingFields(t *testing.T) {
	svc, _, broadcaster := newTestService(t, nil, nil)

	_, err := svc.AppendEntry(context.Background(), history.Entry{
		Payload: json.RawMessage(`{}`),
	})
	assert.True(t, appErrors.IsValidation(err))

	_, err = svc.AppendEntry(context.Background(), history.Entry{
		ActionType: history.ActionAddItem,
	})
	assert.True(t, appErrors.IsValidation(err))

	_, err = svc.AppendEntry(context.Background(), history.Entry{
		ActionType: history.ActionAddItem,
		Payload:    json.RawMessage(`null`),
	})
	assert.True(t, appErrors.IsValidation(err))

	assert.Empty(t, broadcaster.logs)
}

func TestUndoLast_RevertsAndBroadcastsBoth(t *testing.T) {
	// A toggle recorded against the current document undoes cleanly and the
	// result matches the pre-toggle state.
	doc := testDocument()
	doc.Stores[0].Items[0].Purchased = true
	payload, _ := json.Marshal(history.TogglePurchasedPayload{
		ItemID:       "i1",
		StoreName:    "Grocer",
		WasPurchased: func() *bool { b := false; return &b }(),
	})
	log := history.Log{{ID: "h1", ActionType: history.ActionTogglePurchased, Payload: payload, Timestamp: 5}}
	svc, store, broadcaster := newTestService(t, doc, log)

	result, err := svc.UndoLast(context.Background())

	require.NoError(t, err)
	assert.False(t, result.Empty)
	assert.True(t, result.Reverted)
	assert.False(t, store.doc.Stores[0].Items[0].Purchased)
	assert.Empty(t, store.log)
	require.Len(t, broadcaster.docs, 1)
	require.Len(t, broadcaster.logs, 1)
}

func TestUndoLast_EmptyLogIsNoOp(t *testing.T) {
	svc, _, broadcaster := newTestService(t, testDocument(), nil)

	result, err := svc.UndoLast(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Empty)
	assert.Empty(t, broadcaster.docs)
	assert.Empty(t, broadcaster.logs)
}

func TestUndoLast_DivergedEntryIsRequeued(t *testing.T) {
	// The recorded toggle points at an item that no longer exists. The entry
	// must go back to the head of the log and the document stay unchanged.
	payload, _ := json.Marshal(history.TogglePurchasedPayload{
		ItemID:       "gone",
		StoreName:    "Grocer",
		WasPurchased: func() *bool { b := false; return &b }(),
	})
	log := history.Log{
		{ID: "h2", ActionType: history.ActionTogglePurchased, Payload: payload, Timestamp: 9},
		{ID: "h1", ActionType: history.ActionAddItem, Payload: json.RawMessage(`{}`), Timestamp: 5},
	}
	svc, store, broadcaster := newTestService(t, testDocument(), log)

	result, err := svc.UndoLast(context.Background())

	require.NoError(t, err)
	assert.False(t, result.Empty)
	assert.False(t, result.Reverted)
	require.Len(t, store.log, 2)
	assert.Equal(t, "h2", store.log[0].ID, "diverged entry stays at the head")
	assert.Equal(t, "Milk", store.doc.Stores[0].Items[0].Name)
	// Both channels are still broadcast so clients converge.
	require.Len(t, broadcaster.docs, 1)
	require.Len(t, broadcaster.logs, 1)
}

func TestUndoLast_UnknownTagIsRequeued(t *testing.T) {
	log := history.Log{{ID: "h1", ActionType: "FUTURE_ACTION", Payload: json.RawMessage(`{"x":1}`), Timestamp: 5}}
	svc, store, _ := newTestService(t, testDocument(), log)

	result, err := svc.UndoLast(context.Background())

	require.NoError(t, err)
	assert.False(t, result.Reverted)
	require.Len(t, store.log, 1)
	assert.Equal(t, "h1", store.log[0].ID)
	// The unknown payload survives byte-for-byte.
	assert.JSONEq(t, `{"x":1}`, string(store.log[0].Payload))
}

func TestUndoLast_LoadFailurePropagates(t *testing.T) {
	svc, store, broadcaster := newTestService(t, testDocument(), nil)
	store.loadErr = errors.New("disk on fire")

	_, err := svc.UndoLast(context.Background())

	require.Error(t, err)
	assert.Empty(t, broadcaster.docs)
}

func TestPruneExpired_RemovesOldAndBroadcasts(t *testing.T) {
	// now = 1_000_000 ms, window = 100 ms, so the cutoff is 999_900.
	log := history.Log{
		{ID: "fresh", ActionType: history.ActionAddItem, Payload: json.RawMessage(`{}`), Timestamp: 999_950},
		{ID: "stale", ActionType: history.ActionAddItem, Payload: json.RawMessage(`{}`), Timestamp: 10},
		{ID: "undated", ActionType: history.ActionAddItem, Payload: json.RawMessage(`{}`)},
	}
	svc, store, broadcaster := newTestService(t, nil, log)

	removed, err := svc.PruneExpired(context.Background(), 100*time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	require.Len(t, store.log, 1)
	assert.Equal(t, "fresh", store.log[0].ID)
	require.Len(t, broadcaster.logs, 1)
}

func TestPruneExpired_NothingRemoved_NoBroadcast(t *testing.T) {
	log := history.Log{{ID: "fresh", ActionType: history.ActionAddItem, Payload: json.RawMessage(`{}`), Timestamp: 999_999}}
	svc, store, broadcaster := newTestService(t, nil, log)

	removed, err := svc.PruneExpired(context.Background(), time.Hour)

	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Len(t, store.log, 1)
	assert.Empty(t, broadcaster.logs)
}

func TestApplyVoiceProposal_RecordsSnapshotEntry(t *testing.T) {
	svc, store, broadcaster := newTestService(t, testDocument(), nil)
	proposal := []list.ProposedStore{
		{Name: "Grocer", Items: []list.ProposedItem{
			{ID: "i1", Name: "Milk"},
			{Name: "Eggs"},
		}},
	}

	changed, err := svc.ApplyVoiceProposal(context.Background(), proposal, "added eggs")

	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, store.doc.Stores, 1)
	assert.Len(t, store.doc.Stores[0].Items, 2)

	require.Len(t, store.log, 1)
	entry := store.log[0]
	assert.Equal(t, history.ActionVoiceCommandUpdate, entry.ActionType)
	assert.Equal(t, "added eggs", entry.Description)
	assert.True(t, len(entry.ID) > len("hist_") && entry.ID[:5] == "hist_")

	// The snapshot in the entry restores the pre-merge document.
	restored, err := history.Revert(entry, store.doc)
	require.NoError(t, err)
	assert.True(t, restored.Equal(testDocument()))

	require.Len(t, broadcaster.docs, 1)
	require.Len(t, broadcaster.logs, 1)
}

func TestApplyVoiceProposal_NoChangeIsNoOp(t *testing.T) {
	doc := testDocument()
	svc, store, broadcaster := newTestService(t, doc, nil)
	proposal := []list.ProposedStore{
		{Name: "Grocer", Items: []list.ProposedItem{{ID: "i1", Name: "Milk"}}},
	}

	changed, err := svc.ApplyVoiceProposal(context.Background(), proposal, "no change")

	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, store.log)
	assert.Empty(t, broadcaster.docs)
	assert.Empty(t, broadcaster.logs)
}

func TestMutationThenUndo_RoundTripsDocument(t *testing.T) {
	// Apply a client mutation plus its history entry, then undo. The
	// persisted document must come back identical to the starting state.
	original := testDocument()
	svc, store, _ := newTestService(t, original.Clone(), nil)

	// Client deletes Milk and records the deletion.
	mutated := original.Clone()
	deleted, ok := mutated.Stores[0].TakeItem("i1")
	require.True(t, ok)
	require.NoError(t, svc.ReplaceDocument(context.Background(), mutated))

	idx := 0
	payload, err := json.Marshal(history.DeleteItemPayload{
		StoreName:     "Grocer",
		DeletedItem:   &deleted,
		OriginalIndex: &idx,
	})
	require.NoError(t, err)
	_, err = svc.AppendEntry(context.Background(), history.Entry{
		ActionType: history.ActionDeleteItem,
		Payload:    payload,
	})
	require.NoError(t, err)

	result, err := svc.UndoLast(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Reverted)
	assert.True(t, store.doc.Equal(original))
	assert.Empty(t, store.log)
}
