package list

// Defaults applied when a voice proposal omits a field and no prior item
// exists to inherit it from.
const (
	defaultItemName  = "Unknown item"
	defaultItemUnit  = "pcs"
	defaultItemEmoji = "🛒"
	defaultStoreName = "Unknown store"
)

// ProposedStore is one store of a voice-interpreter proposal. The proposal
// describes only the unpurchased portion of the document.
type ProposedStore struct {
	Name  string         `json:"name"`
	Items []ProposedItem `json:"items"`
}

// ProposedItem is a proposed unpurchased item. Pointer fields distinguish
// an omitted value from an explicit zero so existing values can be
// inherited.
type ProposedItem struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name,omitempty"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Emoji    string   `json:"emoji,omitempty"`
	Notes    *string  `json:"notes,omitempty"`
}

// MergeProposal merges a proposed replacement of the unpurchased portion
// back against the full document. Purchased items are preserved untouched,
// proposed items inherit missing fields from the unpurchased item with the
// same id, and unpurchased items the proposal forgot are reinserted into
// their original store. genID supplies ids for proposed items that have
// none. The current document is not modified.
func MergeProposal(current *Document, proposal []ProposedStore, genID func() string) *Document {
	// Index the unpurchased items the proposal may refer to.
	type origin struct {
		item      Item
		storeName string
	}
	oldUnpurchased := make(map[string]origin)
	for _, s := range current.Stores {
		for _, it := range s.Items {
			if !it.Purchased {
				oldUnpurchased[it.ID] = origin{item: it, storeName: s.Name}
			}
		}
	}

	// Start from the current document with only purchased items kept.
	next := current.Clone()
	for i := range next.Stores {
		kept := next.Stores[i].Items[:0:0]
		for _, it := range next.Stores[i].Items {
			if it.Purchased {
				kept = append(kept, it)
			}
		}
		if kept == nil {
			kept = []Item{}
		}
		next.Stores[i].Items = kept
	}

	consumed := make(map[string]struct{})
	for _, ps := range proposal {
		storeName := ps.Name
		if storeName == "" {
			storeName = defaultStoreName
		}
		store := next.FindStore(storeName)
		if store == nil {
			next.Stores = append(next.Stores, Store{Name: storeName, Items: []Item{}})
			store = &next.Stores[len(next.Stores)-1]
		}

		for _, pi := range ps.Items {
			var old *Item
			if o, ok := oldUnpurchased[pi.ID]; ok {
				old = &o.item
				consumed[pi.ID] = struct{}{}
			}

			item := Item{
				ID:        pi.ID,
				Name:      pi.Name,
				Unit:      pi.Unit,
				Emoji:     pi.Emoji,
				Purchased: false,
			}
			if item.ID == "" {
				item.ID = genID()
			}
			if item.Name == "" {
				item.Name = inheritString(old, func(i *Item) string { return i.Name }, defaultItemName)
			}
			if pi.Quantity != nil {
				item.Quantity = *pi.Quantity
			} else if old != nil {
				item.Quantity = old.Quantity
			}
			if item.Unit == "" {
				item.Unit = inheritString(old, func(i *Item) string { return i.Unit }, defaultItemUnit)
			}
			if item.Emoji == "" {
				item.Emoji = inheritString(old, func(i *Item) string { return i.Emoji }, defaultItemEmoji)
			}
			if pi.Notes != nil && *pi.Notes != "" {
				item.Notes = *pi.Notes
			} else if old != nil {
				item.Notes = old.Notes
			}

			store.Items = append(store.Items, item)
		}
	}

	// Reinsert unpurchased items the proposal forgot, in document order.
	for _, s := range current.Stores {
		for _, it := range s.Items {
			if it.Purchased {
				continue
			}
			if _, ok := consumed[it.ID]; ok {
				continue
			}
			store := next.FindStore(s.Name)
			if store == nil {
				next.Stores = append(next.Stores, Store{Name: s.Name, Items: []Item{}})
				store = &next.Stores[len(next.Stores)-1]
			}
			if store.ItemIndex(it.ID) < 0 {
				store.Items = append(store.Items, it)
			}
		}
	}

	return next
}

func inheritString(old *Item, get func(*Item) string, fallback string) string {
	if old != nil {
		if v := get(old); v != "" {
			return v
		}
	}
	return fallback
}
