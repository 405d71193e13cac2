package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// metadata keys stored per chromem document.
const (
	metaOrgID   = "org_id"
	metaOwnerID = "owner_id"
)

// ChromemConfig holds configuration for the chromem-backed index.
type ChromemConfig struct {
	// Path is the directory for persistent storage. Empty means
	// in-memory only.
	Path string

	// Collection is the chromem collection name.
	Collection string

	// Compress enables gzip compression for stored data.
	Compress bool

	// Dimension is the expected embedding dimension.
	Dimension int
}

// Chromem is a persistent index backed by chromem-go.
//
// Metric note: chromem ranks by cosine similarity over normalized vectors;
// Candidate.Distance is reported as 1 - similarity. The metric differs from
// the flat backend's squared L2 but is fixed per deployment, which is what
// the index contract requires. Equal-distance ordering follows chromem's
// internal ordering rather than insertion order.
type Chromem struct {
	db         *chromem.DB
	collection *chromem.Collection
	dim        int
	logger     *zap.Logger

	// mu serializes mutations so count checks and writes stay consistent.
	mu sync.Mutex
}

// NewChromem creates a chromem-backed index.
func NewChromem(cfg ChromemConfig, logger *zap.Logger) (*Chromem, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, cfg.Dimension)
	}
	if cfg.Collection == "" {
		cfg.Collection = "sentryd_chunks"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory %s: %w", cfg.Path, err)
		}
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
	}

	// Vectors are always supplied by the caller; chromem never needs to
	// embed on its own.
	embedStub := func(_ context.Context, _ string) ([]float32, error) {
		return nil, errors.New("index stores caller-supplied vectors only")
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, embedStub)
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", cfg.Collection, err)
	}

	return &Chromem{
		db:         db,
		collection: collection,
		dim:        cfg.Dimension,
		logger:     logger,
	}, nil
}

// Add stores one vector with its metadata tuple.
func (c *Chromem) Add(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if len(entry.Embedding) != c.dim {
		return fmt.Errorf("%w: got %d, index configured for %d", ErrDimensionMismatch, len(entry.Embedding), c.dim)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// chromem upserts on duplicate ids, which would silently replace a
	// vector; the index contract forbids that.
	existing, err := c.collection.GetByID(ctx, entry.ChunkID)
	if err == nil && existing.ID == entry.ChunkID {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, entry.ChunkID)
	}

	doc := chromem.Document{
		ID:        entry.ChunkID,
		Embedding: entry.Embedding,
		Metadata: map[string]string{
			metaOrgID:   entry.OrgID,
			metaOwnerID: entry.OwnerID,
		},
	}
	if err := c.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("adding document: %w", err)
	}
	return nil
}

// Search returns up to k candidates ordered by ascending distance
// (1 - cosine similarity).
func (c *Chromem) Search(ctx context.Context, embedding []float32, k int) ([]Candidate, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if len(embedding) != c.dim {
		return nil, fmt.Errorf("%w: got %d, index configured for %d", ErrDimensionMismatch, len(embedding), c.dim)
	}

	// Cap k at collection size (chromem requires nResults <= doc count).
	count := c.collection.Count()
	if count == 0 {
		return []Candidate{}, nil
	}
	if k > count {
		k = count
	}

	results, err := c.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, Candidate{
			ChunkID:  r.ID,
			OrgID:    r.Metadata[metaOrgID],
			OwnerID:  r.Metadata[metaOwnerID],
			Distance: 1 - r.Similarity,
		})
	}
	return candidates, nil
}

// Invalidate removes a chunk from the collection.
func (c *Chromem) Invalidate(ctx context.Context, chunkID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.collection.GetByID(ctx, chunkID); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, chunkID)
	}
	if err := c.collection.Delete(ctx, nil, nil, chunkID); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// Count returns the number of stored vectors.
func (c *Chromem) Count() int {
	return c.collection.Count()
}

// Dimension returns the configured embedding dimension.
func (c *Chromem) Dimension() int {
	return c.dim
}

// Close releases index resources. chromem persists on write, so there is
// nothing to flush.
func (c *Chromem) Close() error {
	return nil
}

var _ Index = (*Chromem)(nil)
