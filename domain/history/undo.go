package history

import (
	"encoding/json"
	"fmt"

	"shoplist-backend/domain/list"
	appErrors "shoplist-backend/pkg/errors"
)

// Revert computes the document that results from undoing entry against doc.
// doc itself is never modified: the inverse is applied to a deep copy and
// the copy is returned. A divergence error means the recorded payload no
// longer matches the document (or the tag is unknown) and the inverse was
// skipped; the caller is expected to re-queue the entry.
func Revert(entry Entry, doc *list.Document) (*list.Document, error) {
	next := doc.Clone()

	var err error
	switch entry.ActionType {
	case ActionAddItem:
		err = revertAddItem(entry.Payload, next)
	case ActionDeleteItem:
		err = revertDeleteItem(entry.Payload, next)
	case ActionAddStore:
		err = revertAddStore(entry.Payload, next)
	case ActionDeleteStore:
		err = revertDeleteStore(entry.Payload, next)
	case ActionMoveItem:
		err = revertMoveItem(entry.Payload, next)
	case ActionUpdateStoreName:
		err = revertUpdateStoreName(entry.Payload, next)
	case ActionUpdateItemProperty, ActionUpdateItemQuantity, ActionUpdateItemName, ActionUpdateItemUnit:
		err = revertUpdateItemProperty(entry.ActionType, entry.Payload, next)
	case ActionTogglePurchased:
		err = revertTogglePurchased(entry.Payload, next)
	case ActionClearPurchased, ActionPermanentlyDeletePurchased, ActionVoiceCommandUpdate:
		next, err = revertBulkReplace(entry.Payload)
	default:
		// Forward compatibility: entries written by a newer server version
		// must survive untouched until that version can undo them.
		err = appErrors.NewDivergence(fmt.Sprintf("unknown action type %q", entry.ActionType))
	}

	if err != nil {
		return nil, err
	}
	return next, nil
}

func revertAddItem(raw json.RawMessage, doc *list.Document) error {
	var p AddItemPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return appErrors.NewDivergence("malformed ADD_ITEM payload")
	}
	if p.StoreName == "" || p.AddedItem == nil {
		return appErrors.NewDivergence("ADD_ITEM payload missing storeName or addedItem")
	}
	store := doc.FindStore(p.StoreName)
	if store == nil {
		return appErrors.NewDivergence(fmt.Sprintf("store %q not found", p.StoreName))
	}
	if !store.RemoveItem(p.AddedItem.ID) {
		return appErrors.NewDivergence(fmt.Sprintf("item %q not found in store %q", p.AddedItem.ID, p.StoreName))
	}
	return nil
}

func revertDeleteItem(raw json.RawMessage, doc *list.Document) error {
	var p DeleteItemPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return appErrors.NewDivergence("malformed DELETE_ITEM payload")
	}
	if p.StoreName == "" || p.DeletedItem == nil || p.OriginalIndex == nil {
		return appErrors.NewDivergence("DELETE_ITEM payload missing storeName, deletedItem or originalIndex")
	}
	store := doc.FindStore(p.StoreName)
	if store == nil {
		return appErrors.NewDivergence(fmt.Sprintf("store %q not found", p.StoreName))
	}
	// Item ids are unique across the whole document, so reinsertion must not
	// collide with an item that reappeared since the deletion was recorded.
	if existing, _ := doc.FindItem(p.DeletedItem.ID); existing != nil {
		return appErrors.NewDivergence(fmt.Sprintf("item %q already exists", p.DeletedItem.ID))
	}
	store.InsertItemAt(*p.DeletedItem, *p.OriginalIndex)
	return nil
}

func revertAddStore(raw json.RawMessage, doc *list.Document) error {
	var p AddStorePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return appErrors.NewDivergence("malformed ADD_STORE payload")
	}
	if p.StoreName == "" {
		return appErrors.NewDivergence("ADD_STORE payload missing storeName")
	}
	if !doc.RemoveStore(p.StoreName) {
		return appErrors.NewDivergence(fmt.Sprintf("store %q not found", p.StoreName))
	}
	return nil
}

func revertDeleteStore(raw json.RawMessage, doc *list.Document) error {
	var p DeleteStorePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return appErrors.NewDivergence("malformed DELETE_STORE payload")
	}
	if p.DeletedStoreData == nil || p.OriginalIndex == nil {
		return appErrors.NewDivergence("DELETE_STORE payload missing deletedStoreData or originalIndex")
	}
	if doc.FindStore(p.DeletedStoreData.Name) != nil {
		return appErrors.NewDivergence(fmt.Sprintf("store %q already exists", p.DeletedStoreData.Name))
	}
	doc.InsertStoreAt(*p.DeletedStoreData, *p.OriginalIndex)
	return nil
}

func revertMoveItem(raw json.RawMessage, doc *list.Document) error {
	var p MoveItemPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return appErrors.NewDivergence("malformed MOVE_ITEM payload")
	}
	if p.ItemID == "" || p.SourceStoreName == "" || p.TargetStoreName == "" ||
		p.OriginalIndexInSource == nil || p.NewIndexInTarget == nil {
		return appErrors.NewDivergence("MOVE_ITEM payload missing required fields")
	}
	target := doc.FindStore(p.TargetStoreName)
	source := doc.FindStore(p.SourceStoreName)
	if target == nil || source == nil {
		return appErrors.NewDivergence(fmt.Sprintf("source %q or target %q store not found", p.SourceStoreName, p.TargetStoreName))
	}
	item, ok := target.TakeItem(p.ItemID)
	if !ok {
		return appErrors.NewDivergence(fmt.Sprintf("item %q not found in target store %q", p.ItemID, p.TargetStoreName))
	}
	source.InsertItemAt(item, *p.OriginalIndexInSource)
	return nil
}

func revertUpdateStoreName(raw json.RawMessage, doc *list.Document) error {
	var p UpdateStoreNamePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return appErrors.NewDivergence("malformed UPDATE_STORE_NAME payload")
	}
	if p.PreviousStoreName == "" || p.NewStoreName == "" {
		return appErrors.NewDivergence("UPDATE_STORE_NAME payload missing previousStoreName or newStoreName")
	}
	store := doc.FindStore(p.NewStoreName)
	if store == nil {
		return appErrors.NewDivergence(fmt.Sprintf("store %q not found", p.NewStoreName))
	}
	// Two stores cannot share a name, so renaming back must not collide.
	if p.PreviousStoreName != p.NewStoreName && doc.FindStore(p.PreviousStoreName) != nil {
		return appErrors.NewDivergence(fmt.Sprintf("store %q already exists", p.PreviousStoreName))
	}
	store.Name = p.PreviousStoreName
	if doc.ActiveStoreFilter == p.NewStoreName {
		doc.ActiveStoreFilter = p.PreviousStoreName
	}
	return nil
}

func revertUpdateItemProperty(tag ActionType, raw json.RawMessage, doc *list.Document) error {
	var p UpdateItemPropertyPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return appErrors.NewDivergence("malformed item property payload")
	}
	if p.ItemID == "" || p.StoreName == "" {
		return appErrors.NewDivergence("item property payload missing itemId or storeName")
	}
	store := doc.FindStore(p.StoreName)
	if store == nil {
		return appErrors.NewDivergence(fmt.Sprintf("store %q not found", p.StoreName))
	}
	idx := store.ItemIndex(p.ItemID)
	if idx < 0 {
		return appErrors.NewDivergence(fmt.Sprintf("item %q not found in store %q", p.ItemID, p.StoreName))
	}
	item := &store.Items[idx]

	// Legacy quantity entries carry previousQuantity instead of a
	// propertyName/previousValue pair.
	if p.PropertyName == "" {
		if tag == ActionUpdateItemQuantity && p.PreviousQuantity != nil {
			item.Quantity = *p.PreviousQuantity
			return nil
		}
		return appErrors.NewDivergence("item property payload missing propertyName")
	}
	if p.PreviousValue == nil {
		return appErrors.NewDivergence("item property payload missing previousValue")
	}

	switch p.PropertyName {
	case "name":
		return decodeInto(p.PreviousValue, &item.Name)
	case "quantity":
		return decodeInto(p.PreviousValue, &item.Quantity)
	case "unit":
		return decodeInto(p.PreviousValue, &item.Unit)
	case "emoji":
		return decodeInto(p.PreviousValue, &item.Emoji)
	case "notes":
		return decodeInto(p.PreviousValue, &item.Notes)
	case "purchased":
		return decodeInto(p.PreviousValue, &item.Purchased)
	default:
		return appErrors.NewDivergence(fmt.Sprintf("unknown item property %q", p.PropertyName))
	}
}

func revertTogglePurchased(raw json.RawMessage, doc *list.Document) error {
	var p TogglePurchasedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return appErrors.NewDivergence("malformed TOGGLE_PURCHASED payload")
	}
	if p.ItemID == "" || p.StoreName == "" || p.WasPurchased == nil {
		return appErrors.NewDivergence("TOGGLE_PURCHASED payload missing itemId, storeName or wasPurchased")
	}
	store := doc.FindStore(p.StoreName)
	if store == nil {
		return appErrors.NewDivergence(fmt.Sprintf("store %q not found", p.StoreName))
	}
	idx := store.ItemIndex(p.ItemID)
	if idx < 0 {
		return appErrors.NewDivergence(fmt.Sprintf("item %q not found in store %q", p.ItemID, p.StoreName))
	}
	store.Items[idx].Purchased = *p.WasPurchased
	return nil
}

func revertBulkReplace(raw json.RawMessage) (*list.Document, error) {
	var p BulkReplacePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, appErrors.NewDivergence("malformed bulk-replace payload")
	}
	if p.PreviousShoppingListData == nil {
		return nil, appErrors.NewDivergence("bulk-replace payload missing previousShoppingListData")
	}
	restored := p.PreviousShoppingListData.Clone()
	restored.Normalize()
	return restored, nil
}

func decodeInto(raw json.RawMessage, target interface{}) error {
	if err := json.Unmarshal(raw, target); err != nil {
		return appErrors.NewDivergence("previousValue has the wrong type for the property")
	}
	return nil
}
