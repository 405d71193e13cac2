package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/sentryd/internal/identity"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Path: filepath.Join(t.TempDir(), "sentryd.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDocument(orgID string) *Document {
	return &Document{
		DocID:       "doc-1",
		OrgID:       orgID,
		OwnerID:     "user-1",
		Title:       "Vacation Policy",
		Sensitivity: identity.SensitivityInternal,
		ACLRoles:    []string{"employee", "manager"},
		ContentHash: "abc123",
	}
}

func testChunk(chunkID, docID, orgID string) *Chunk {
	return &Chunk{
		ChunkID:     chunkID,
		DocID:       docID,
		OrgID:       orgID,
		Text:        "Employees accrue 20 vacation days per year.",
		Embedding:   []float32{0.1, 0.2, 0.3, 0.4},
		Sensitivity: identity.SensitivityInternal,
		PIITags:     []string{},
		ACLRoles:    []string{"employee", "manager"},
	}
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDocumentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := testDocument("org-1")
	require.NoError(t, s.CreateDocument(ctx, doc))
	assert.False(t, doc.CreatedAt.IsZero())

	got, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc.OrgID, got.OrgID)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.Sensitivity, got.Sensitivity)
	assert.Equal(t, doc.ACLRoles, got.ACLRoles)
	assert.Equal(t, doc.ContentHash, got.ContentHash)
	assert.WithinDuration(t, doc.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestGetDocumentNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetDocument(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateDocumentInvalid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.ErrorIs(t, s.CreateDocument(ctx, nil), ErrInvalidRecord)
	require.ErrorIs(t, s.CreateDocument(ctx, &Document{OrgID: "org-1"}), ErrInvalidRecord)
	require.ErrorIs(t, s.CreateDocument(ctx, &Document{DocID: "doc-1"}), ErrInvalidRecord)
}

func TestChunkRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateDocument(ctx, testDocument("org-1")))

	chunk := testChunk("chunk-1", "doc-1", "org-1")
	chunk.PIITags = []string{TagSSN, TagSalary}
	require.NoError(t, s.CreateChunk(ctx, chunk))

	got, err := s.GetChunk(ctx, "chunk-1")
	require.NoError(t, err)
	assert.Equal(t, chunk.Text, got.Text)
	assert.Equal(t, chunk.Embedding, got.Embedding)
	assert.Equal(t, chunk.Sensitivity, got.Sensitivity)
	assert.Equal(t, chunk.PIITags, got.PIITags)
	assert.Equal(t, chunk.ACLRoles, got.ACLRoles)
	assert.True(t, got.HasTag(TagSSN))
	assert.False(t, got.HasTag("medical"))
}

func TestGetChunkNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetChunk(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetChunksPreservesOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateDocument(ctx, testDocument("org-1")))
	for _, id := range []string{"chunk-a", "chunk-b", "chunk-c"} {
		require.NoError(t, s.CreateChunk(ctx, testChunk(id, "doc-1", "org-1")))
	}

	got, err := s.GetChunks(ctx, []string{"chunk-c", "chunk-a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "chunk-c", got[0].ChunkID)
	assert.Equal(t, "chunk-a", got[1].ChunkID)

	_, err = s.GetChunks(ctx, []string{"chunk-a", "missing"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListChunksByDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateDocument(ctx, testDocument("org-1")))
	for _, id := range []string{"chunk-1", "chunk-2"} {
		require.NoError(t, s.CreateChunk(ctx, testChunk(id, "doc-1", "org-1")))
	}

	chunks, err := s.ListChunksByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	chunks, err = s.ListChunksByDocument(ctx, "no-such-doc")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestDeleteChunk(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateDocument(ctx, testDocument("org-1")))
	require.NoError(t, s.CreateChunk(ctx, testChunk("chunk-1", "doc-1", "org-1")))

	require.NoError(t, s.DeleteChunk(ctx, "chunk-1"))
	_, err := s.GetChunk(ctx, "chunk-1")
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, s.DeleteChunk(ctx, "chunk-1"), ErrNotFound)
}

func TestDeleteDocumentCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateDocument(ctx, testDocument("org-1")))
	require.NoError(t, s.CreateChunk(ctx, testChunk("chunk-1", "doc-1", "org-1")))
	require.NoError(t, s.CreateChunk(ctx, testChunk("chunk-2", "doc-1", "org-1")))

	chunkIDs, err := s.DeleteDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"chunk-1", "chunk-2"}, chunkIDs)

	_, err = s.GetDocument(ctx, "doc-1")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetChunk(ctx, "chunk-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteDocumentNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.DeleteDocument(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateChunkRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateDocument(ctx, testDocument("org-1")))
	require.NoError(t, s.CreateChunk(ctx, testChunk("chunk-1", "doc-1", "org-1")))
	require.Error(t, s.CreateChunk(ctx, testChunk("chunk-1", "doc-1", "org-1")))
}

func TestEmbeddingEncodingRoundTrip(t *testing.T) {
	vec := []float32{0, -1.5, 3.14159, 1e-7}
	assert.Equal(t, vec, decodeEmbedding(encodeEmbedding(vec)))
	assert.Empty(t, decodeEmbedding(encodeEmbedding(nil)))
}
