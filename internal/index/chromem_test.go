package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChromem(t *testing.T, dim int) *Chromem {
	t.Helper()
	idx, err := NewChromem(ChromemConfig{Dimension: dim}, nil)
	require.NoError(t, err)
	return idx
}

func TestChromemAddSearchRoundTrip(t *testing.T) {
	idx := newTestChromem(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, Entry{ChunkID: "c1", OrgID: "org-a", OwnerID: "u1", Embedding: vec(1, 0, 0)}))
	require.NoError(t, idx.Add(ctx, Entry{ChunkID: "c2", OrgID: "org-b", OwnerID: "u2", Embedding: vec(0, 1, 0)}))
	assert.Equal(t, 2, idx.Count())

	results, err := idx.Search(ctx, vec(1, 0, 0), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ChunkID)
	assert.Equal(t, "org-a", results[0].OrgID)
	assert.Equal(t, "u1", results[0].OwnerID)
	assert.InDelta(t, 0, results[0].Distance, 1e-5)
}

func TestChromemSearchEmpty(t *testing.T) {
	idx := newTestChromem(t, 3)

	results, err := idx.Search(context.Background(), vec(1, 0, 0), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemKCappedAtSize(t *testing.T) {
	idx := newTestChromem(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, Entry{ChunkID: "c1", OrgID: "org-a", Embedding: vec(1, 0, 0)}))

	results, err := idx.Search(ctx, vec(1, 0, 0), 50)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestChromemDuplicateAdd(t *testing.T) {
	idx := newTestChromem(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, Entry{ChunkID: "c1", OrgID: "org-a", Embedding: vec(1, 0, 0)}))
	err := idx.Add(ctx, Entry{ChunkID: "c1", OrgID: "org-a", Embedding: vec(0, 1, 0)})
	require.ErrorIs(t, err, ErrDuplicateEntry)
	assert.Equal(t, 1, idx.Count())
}

func TestChromemDimensionMismatch(t *testing.T) {
	idx := newTestChromem(t, 3)
	ctx := context.Background()

	err := idx.Add(ctx, Entry{ChunkID: "c1", OrgID: "org-a", Embedding: vec(1, 0)})
	require.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 0, idx.Count())

	_, err = idx.Search(ctx, vec(1, 0), 1)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestChromemInvalidate(t *testing.T) {
	idx := newTestChromem(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, Entry{ChunkID: "c1", OrgID: "org-a", Embedding: vec(1, 0, 0)}))
	require.NoError(t, idx.Invalidate(ctx, "c1"))
	assert.Equal(t, 0, idx.Count())

	require.ErrorIs(t, idx.Invalidate(ctx, "c1"), ErrNotFound)
}
