package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendIsIdempotentAndOrdersLIFO(t *testing.T) {
	s := newTestStore(t)
	collID := "https://example.social/orderedcollection/coll1"
	require.NoError(t, s.CreateCollection(collID, "https://example.social/person/1", "outbox", false))

	require.NoError(t, s.Append(collID, "https://example.social/object/1"))
	require.NoError(t, s.Append(collID, "https://example.social/object/2"))
	require.NoError(t, s.Append(collID, "https://example.social/object/1")) // duplicate, no-op

	coll, err := s.GetCollection(collID)
	require.NoError(t, err)
	assert.Equal(t, 2, coll.TotalItems)

	items, hasMore, err := s.PageItems(collID, 0, 20)
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, items, 2)
	assert.Equal(t, "https://example.social/object/2", items[0]) // newest first
}

func TestRemoveDecrementsTotalItems(t *testing.T) {
	s := newTestStore(t)
	collID := "https://example.social/orderedcollection/coll2"
	require.NoError(t, s.CreateCollection(collID, "https://example.social/person/1", "liked", true))
	require.NoError(t, s.Append(collID, "https://example.social/object/9"))

	ok, err := s.Contains(collID, "https://example.social/object/9")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Remove(collID, "https://example.social/object/9"))
	coll, err := s.GetCollection(collID)
	require.NoError(t, err)
	assert.Equal(t, 0, coll.TotalItems)

	ok, err = s.Contains(collID, "https://example.social/object/9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPageItemsPaginates(t *testing.T) {
	s := newTestStore(t)
	collID := "https://example.social/orderedcollection/coll3"
	require.NoError(t, s.CreateCollection(collID, "https://example.social/person/1", "outbox", false))
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(collID, "https://example.social/object/"+string(rune('a'+i))))
	}

	page1, hasMore, err := s.PageItems(collID, 0, 2)
	require.NoError(t, err)
	assert.True(t, hasMore)
	assert.Len(t, page1, 2)

	page3, hasMore, err := s.PageItems(collID, 4, 2)
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.Len(t, page3, 1)
}
