// Package list holds the shopping-list document model.
// The document is a plain serializable structure: stores in user-controlled
// order, each holding items in user-controlled order. Stores are addressed
// by display name and items by their stable id.
package list

import "encoding/json"

// DefaultStoreFilter is the filter value a fresh document starts with.
const DefaultStoreFilter = "All"

// Document is the complete shopping list shared by all clients.
type Document struct {
	Stores            []Store `json:"stores"`
	ActiveStoreFilter string  `json:"activeStoreFilter"`
}

// Store is a named, ordered group of items. The name doubles as the key
// clients use to address the store in actions, so it must stay unique
// within the document.
type Store struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Item is a single shopping-list entry. The id is generated once at
// creation and never changes for the item's lifetime.
type Item struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit"`
	Emoji     string  `json:"emoji"`
	Notes     string  `json:"notes"`
	Purchased bool    `json:"purchased"`
}

// NewDocument returns the empty default document.
func NewDocument() *Document {
	return &Document{
		Stores:            []Store{},
		ActiveStoreFilter: DefaultStoreFilter,
	}
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{
		Stores:            make([]Store, len(d.Stores)),
		ActiveStoreFilter: d.ActiveStoreFilter,
	}
	for i, s := range d.Stores {
		items := make([]Item, len(s.Items))
		copy(items, s.Items)
		out.Stores[i] = Store{Name: s.Name, Items: items}
	}
	return out
}

// Normalize backfills fields that older persisted documents may lack.
// Currently that is the items' notes field and nil item slices.
func (d *Document) Normalize() {
	if d.Stores == nil {
		d.Stores = []Store{}
	}
	if d.ActiveStoreFilter == "" {
		d.ActiveStoreFilter = DefaultStoreFilter
	}
	for i := range d.Stores {
		if d.Stores[i].Items == nil {
			d.Stores[i].Items = []Item{}
		}
	}
}

// FindStore returns the store with the given name, or nil.
func (d *Document) FindStore(name string) *Store {
	for i := range d.Stores {
		if d.Stores[i].Name == name {
			return &d.Stores[i]
		}
	}
	return nil
}

// StoreIndex returns the position of the named store, or -1.
func (d *Document) StoreIndex(name string) int {
	for i := range d.Stores {
		if d.Stores[i].Name == name {
			return i
		}
	}
	return -1
}

// RemoveStore deletes the named store. It reports whether it was present.
func (d *Document) RemoveStore(name string) bool {
	idx := d.StoreIndex(name)
	if idx < 0 {
		return false
	}
	d.Stores = append(d.Stores[:idx], d.Stores[idx+1:]...)
	return true
}

// InsertStoreAt inserts a store at the given index, clamped to the current
// bounds of the store list.
func (d *Document) InsertStoreAt(store Store, index int) {
	index = clamp(index, len(d.Stores))
	d.Stores = append(d.Stores, Store{})
	copy(d.Stores[index+1:], d.Stores[index:])
	d.Stores[index] = store
}

// FindItem locates an item by id anywhere in the document. It returns the
// owning store and the item's index within it, or (nil, -1).
func (d *Document) FindItem(itemID string) (*Store, int) {
	for i := range d.Stores {
		for j := range d.Stores[i].Items {
			if d.Stores[i].Items[j].ID == itemID {
				return &d.Stores[i], j
			}
		}
	}
	return nil, -1
}

// HasDuplicateStoreNames reports whether two stores share a name.
func (d *Document) HasDuplicateStoreNames() bool {
	seen := make(map[string]struct{}, len(d.Stores))
	for _, s := range d.Stores {
		if _, ok := seen[s.Name]; ok {
			return true
		}
		seen[s.Name] = struct{}{}
	}
	return false
}

// HasDuplicateItemIDs reports whether two items anywhere in the document
// share an id.
func (d *Document) HasDuplicateItemIDs() bool {
	seen := make(map[string]struct{})
	for _, s := range d.Stores {
		for _, it := range s.Items {
			if _, ok := seen[it.ID]; ok {
				return true
			}
			seen[it.ID] = struct{}{}
		}
	}
	return false
}

// Equal reports whether two documents serialize identically.
func (d *Document) Equal(other *Document) bool {
	a, err := json.Marshal(d)
	if err != nil {
		return false
	}
	b, err := json.Marshal(other)
	if err != nil {
		return false
	}
	return string(a) == string(b)
}

// ItemIndex returns the position of the item with the given id within the
// store, or -1.
func (s *Store) ItemIndex(itemID string) int {
	for i := range s.Items {
		if s.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// RemoveItem deletes the item with the given id from the store. It reports
// whether the item was present.
func (s *Store) RemoveItem(itemID string) bool {
	idx := s.ItemIndex(itemID)
	if idx < 0 {
		return false
	}
	s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
	return true
}

// TakeItem removes and returns the item with the given id.
func (s *Store) TakeItem(itemID string) (Item, bool) {
	idx := s.ItemIndex(itemID)
	if idx < 0 {
		return Item{}, false
	}
	item := s.Items[idx]
	s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
	return item, true
}

// InsertItemAt inserts an item at the given index, clamped to the current
// bounds of the item list.
func (s *Store) InsertItemAt(item Item, index int) {
	index = clamp(index, len(s.Items))
	s.Items = append(s.Items, Item{})
	copy(s.Items[index+1:], s.Items[index:])
	s.Items[index] = item
}

func clamp(index, length int) int {
	if index < 0 {
		return 0
	}
	if index > length {
		return length
	}
	return index
}
