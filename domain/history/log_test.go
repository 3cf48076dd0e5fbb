package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_PushPop_NewestFirst(t *testing.T) {
	log := NewLog()

	log = log.Push(Entry{ID: "a"})
	log = log.Push(Entry{ID: "b"})

	entry, rest, ok := log.Pop()
	require.True(t, ok)
	assert.Equal(t, "b", entry.ID)

	entry, rest, ok = rest.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", entry.ID)

	_, _, ok = rest.Pop()
	assert.False(t, ok)
}

func TestLog_Prune(t *testing.T) {
	log := Log{
		{ID: "new", Timestamp: 1000},
		{ID: "old", Timestamp: 10},
		{ID: "no-timestamp"},
	}

	kept, removed := log.Prune(100)

	assert.Equal(t, 2, removed)
	require.Len(t, kept, 1)
	assert.Equal(t, "new", kept[0].ID)
}

func TestLog_Prune_NothingExpired(t *testing.T) {
	log := Log{{ID: "a", Timestamp: 500}}

	kept, removed := log.Prune(100)

	assert.Zero(t, removed)
	assert.Equal(t, log, kept)
}
