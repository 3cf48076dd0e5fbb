// Package history holds the action log: an ordered, newest-first sequence of
// reversible action records, plus the engine that applies their inverses
// against the shopping-list document.
package history

import (
	"encoding/json"

	"shoplist-backend/domain/list"
)

// ActionType tags a history entry and determines the shape of its payload.
type ActionType string

const (
	ActionAddItem            ActionType = "ADD_ITEM"
	ActionDeleteItem         ActionType = "DELETE_ITEM"
	ActionAddStore           ActionType = "ADD_STORE"
	ActionDeleteStore        ActionType = "DELETE_STORE"
	ActionMoveItem           ActionType = "MOVE_ITEM"
	ActionUpdateStoreName    ActionType = "UPDATE_STORE_NAME"
	ActionUpdateItemProperty ActionType = "UPDATE_ITEM_PROPERTY"
	ActionTogglePurchased    ActionType = "TOGGLE_PURCHASED"

	// Bulk-replace class: the inverse restores a full document snapshot.
	ActionClearPurchased             ActionType = "CLEAR_PURCHASED"
	ActionPermanentlyDeletePurchased ActionType = "PERMANENTLY_DELETE_PURCHASED"
	ActionVoiceCommandUpdate         ActionType = "VOICE_COMMAND_UPDATE"

	// Legacy aliases of UPDATE_ITEM_PROPERTY kept for persisted data from
	// older clients.
	ActionUpdateItemQuantity ActionType = "UPDATE_ITEM_QUANTITY"
	ActionUpdateItemName     ActionType = "UPDATE_ITEM_NAME"
	ActionUpdateItemUnit     ActionType = "UPDATE_ITEM_UNIT"
)

// Entry is a single reversible action record. The payload is kept raw so
// entries round-trip byte-for-byte through persistence even when the tag is
// unknown to this server version; it is decoded into its typed variant only
// when the inverse is computed.
type Entry struct {
	ID          string          `json:"id"`
	ActionType  ActionType      `json:"actionType"`
	Payload     json.RawMessage `json:"payload"`
	Timestamp   int64           `json:"timestamp"` // unix milliseconds, retention only
	Description string          `json:"description,omitempty"`
}

// Payload variants, one per action type. Pointer fields distinguish an
// absent field from a zero value so a malformed payload is detectable.

// AddItemPayload records an item addition; the inverse removes the item.
type AddItemPayload struct {
	StoreName string     `json:"storeName"`
	AddedItem *list.Item `json:"addedItem"`
}

// DeleteItemPayload records an item deletion; the inverse reinserts the
// item at its original position.
type DeleteItemPayload struct {
	StoreName     string     `json:"storeName"`
	DeletedItem   *list.Item `json:"deletedItem"`
	OriginalIndex *int       `json:"originalIndex"`
}

// AddStorePayload records a store addition; the inverse removes the store.
type AddStorePayload struct {
	StoreName string `json:"storeName"`
}

// DeleteStorePayload records a store deletion; the inverse reinserts the
// whole store at its original position.
type DeleteStorePayload struct {
	DeletedStoreData *list.Store `json:"deletedStoreData"`
	OriginalIndex    *int        `json:"originalIndex"`
}

// MoveItemPayload records an item move between stores; the inverse moves
// the item back to its original position in the source store.
type MoveItemPayload struct {
	ItemID                string `json:"itemId"`
	SourceStoreName       string `json:"sourceStoreName"`
	TargetStoreName       string `json:"targetStoreName"`
	OriginalIndexInSource *int   `json:"originalIndexInSource"`
	NewIndexInTarget      *int   `json:"newIndexInTarget"`
}

// UpdateStoreNamePayload records a store rename; the inverse renames it
// back and restores the active filter when it tracked the rename.
type UpdateStoreNamePayload struct {
	PreviousStoreName string `json:"previousStoreName"`
	NewStoreName      string `json:"newStoreName"`
}

// UpdateItemPropertyPayload records a single-property change; the inverse
// writes the previous value back. PreviousQuantity carries the value for
// legacy UPDATE_ITEM_QUANTITY entries that predate propertyName.
type UpdateItemPropertyPayload struct {
	ItemID           string          `json:"itemId"`
	StoreName        string          `json:"storeName"`
	PropertyName     string          `json:"propertyName,omitempty"`
	PreviousValue    json.RawMessage `json:"previousValue,omitempty"`
	PreviousQuantity *float64        `json:"previousQuantity,omitempty"`
}

// TogglePurchasedPayload records a purchased toggle; the inverse restores
// the previous flag.
type TogglePurchasedPayload struct {
	ItemID       string `json:"itemId"`
	StoreName    string `json:"storeName"`
	WasPurchased *bool  `json:"wasPurchased"`
}

// BulkReplacePayload carries the full pre-action snapshot used by the
// bulk-replace action class.
type BulkReplacePayload struct {
	PreviousShoppingListData *list.Document `json:"previousShoppingListData"`
}

// SnapshotPayload encodes a bulk-replace payload holding the given document
// as the pre-action snapshot.
func SnapshotPayload(doc *list.Document) (json.RawMessage, error) {
	return json.Marshal(BulkReplacePayload{PreviousShoppingListData: doc})
}
