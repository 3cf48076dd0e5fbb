package list

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("gen_%d", n)
	}
}

func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

func TestMergeProposal_PreservesPurchasedItems(t *testing.T) {
	// Arrange
	current := &Document{
		Stores: []Store{
			{Name: "A", Items: []Item{
				{ID: "i1", Name: "Milk", Quantity: 1, Unit: "l", Purchased: false},
				{ID: "i2", Name: "Bread", Quantity: 1, Unit: "pcs", Purchased: true},
			}},
		},
		ActiveStoreFilter: "All",
	}
	proposal := []ProposedStore{
		{Name: "A", Items: []ProposedItem{
			{ID: "i1", Name: "Milk", Quantity: floatPtr(2)},
		}},
	}

	// Act
	merged := MergeProposal(current, proposal, sequentialIDs())

	// Assert
	store := merged.FindStore("A")
	require.NotNil(t, store)
	require.Len(t, store.Items, 2)
	assert.Equal(t, "i2", store.Items[0].ID, "purchased item stays")
	assert.True(t, store.Items[0].Purchased)
	assert.Equal(t, "i1", store.Items[1].ID)
	assert.Equal(t, float64(2), store.Items[1].Quantity)
	// The input document is untouched
	assert.Equal(t, float64(1), current.Stores[0].Items[0].Quantity)
}

func TestMergeProposal_InheritsOmittedFields(t *testing.T) {
	current := &Document{
		Stores: []Store{
			{Name: "A", Items: []Item{
				{ID: "i1", Name: "Milk", Quantity: 1, Unit: "l", Emoji: "🥛", Notes: "lactose free"},
			}},
		},
		ActiveStoreFilter: "All",
	}
	proposal := []ProposedStore{
		{Name: "A", Items: []ProposedItem{{ID: "i1"}}},
	}

	merged := MergeProposal(current, proposal, sequentialIDs())

	item := merged.FindStore("A").Items[0]
	assert.Equal(t, "Milk", item.Name)
	assert.Equal(t, float64(1), item.Quantity)
	assert.Equal(t, "l", item.Unit)
	assert.Equal(t, "🥛", item.Emoji)
	assert.Equal(t, "lactose free", item.Notes)
	assert.False(t, item.Purchased)
}

func TestMergeProposal_GeneratesIDsAndDefaults(t *testing.T) {
	current := NewDocument()
	proposal := []ProposedStore{
		{Name: "A", Items: []ProposedItem{{Name: "Apples"}}},
		{Items: []ProposedItem{{}}},
	}

	merged := MergeProposal(current, proposal, sequentialIDs())

	require.Len(t, merged.Stores, 2)
	apples := merged.FindStore("A").Items[0]
	assert.Equal(t, "gen_1", apples.ID)
	assert.Equal(t, "pcs", apples.Unit)
	assert.Equal(t, "🛒", apples.Emoji)

	unknown := merged.FindStore("Unknown store")
	require.NotNil(t, unknown)
	assert.Equal(t, "Unknown item", unknown.Items[0].Name)
}

func TestMergeProposal_ReinsertsForgottenUnpurchasedItems(t *testing.T) {
	current := &Document{
		Stores: []Store{
			{Name: "A", Items: []Item{
				{ID: "i1", Name: "Milk"},
				{ID: "i2", Name: "Bread"},
			}},
		},
		ActiveStoreFilter: "All",
	}
	// The proposal only mentions i1; i2 must survive.
	proposal := []ProposedStore{
		{Name: "A", Items: []ProposedItem{{ID: "i1", Name: "Milk"}}},
	}

	merged := MergeProposal(current, proposal, sequentialIDs())

	store := merged.FindStore("A")
	require.NotNil(t, store)
	assert.ElementsMatch(t, []string{"i1", "i2"}, itemIDs(store.Items))
}

func TestMergeProposal_ProposalNotesWin(t *testing.T) {
	current := &Document{
		Stores: []Store{
			{Name: "A", Items: []Item{{ID: "i1", Name: "Milk", Notes: "old"}}},
		},
		ActiveStoreFilter: "All",
	}
	proposal := []ProposedStore{
		{Name: "A", Items: []ProposedItem{{ID: "i1", Notes: strPtr("new")}}},
	}

	merged := MergeProposal(current, proposal, sequentialIDs())

	assert.Equal(t, "new", merged.FindStore("A").Items[0].Notes)
}
