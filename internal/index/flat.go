package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// flatEntry is one stored vector with its metadata tuple. The insertion id
// provides the deterministic tie-break for equal distances.
type flatEntry struct {
	id      int64
	chunkID string
	orgID   string
	ownerID string
	vector  []float32
	invalid bool
}

// Flat is an in-memory brute-force index using squared Euclidean distance.
//
// The metric is fixed: squared L2, matching the flat-index behavior of the
// reference deployment. Ties are broken by ascending insertion id so search
// results are fully deterministic.
//
// Flat is a single-writer, multiple-reader resource: searches share a read
// lock, mutations take the write lock. The vector and its metadata live in
// one slice element, so their counts can never diverge.
type Flat struct {
	mu      sync.RWMutex
	dim     int
	entries []flatEntry
	byChunk map[string]int
	nextID  int64
	closed  bool
}

// NewFlat creates an empty flat index for vectors of the given dimension.
func NewFlat(dimension int) (*Flat, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, dimension)
	}
	return &Flat{
		dim:     dimension,
		byChunk: make(map[string]int),
	}, nil
}

// Add appends one vector and its metadata atomically. On any validation
// failure nothing becomes visible to searches.
func (f *Flat) Add(_ context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if len(entry.Embedding) != f.dim {
		return fmt.Errorf("%w: got %d, index configured for %d", ErrDimensionMismatch, len(entry.Embedding), f.dim)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	if _, exists := f.byChunk[entry.ChunkID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, entry.ChunkID)
	}

	// Copy the vector so callers cannot mutate indexed state.
	vec := make([]float32, f.dim)
	copy(vec, entry.Embedding)

	f.entries = append(f.entries, flatEntry{
		id:      f.nextID,
		chunkID: entry.ChunkID,
		orgID:   entry.OrgID,
		ownerID: entry.OwnerID,
		vector:  vec,
	})
	f.byChunk[entry.ChunkID] = len(f.entries) - 1
	f.nextID++
	return nil
}

// Search returns up to k candidates by ascending squared Euclidean
// distance, ties broken by ascending insertion id. An empty index yields an
// empty, non-error result.
func (f *Flat) Search(_ context.Context, embedding []float32, k int) ([]Candidate, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if len(embedding) != f.dim {
		return nil, fmt.Errorf("%w: got %d, index configured for %d", ErrDimensionMismatch, len(embedding), f.dim)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrClosed
	}

	type scored struct {
		entry    *flatEntry
		distance float32
	}
	candidates := make([]scored, 0, len(f.entries))
	for i := range f.entries {
		e := &f.entries[i]
		if e.invalid {
			continue
		}
		candidates = append(candidates, scored{entry: e, distance: squaredL2(embedding, e.vector)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].entry.id < candidates[j].entry.id
	})

	if k > len(candidates) {
		k = len(candidates)
	}

	results := make([]Candidate, 0, k)
	for _, c := range candidates[:k] {
		results = append(results, Candidate{
			ChunkID:  c.entry.chunkID,
			OrgID:    c.entry.orgID,
			OwnerID:  c.entry.ownerID,
			Distance: c.distance,
		})
	}
	return results, nil
}

// Invalidate excludes a chunk from future searches. The slot stays in place
// so insertion ids remain stable.
func (f *Flat) Invalidate(_ context.Context, chunkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	i, ok := f.byChunk[chunkID]
	if !ok || f.entries[i].invalid {
		return fmt.Errorf("%w: %s", ErrNotFound, chunkID)
	}
	f.entries[i].invalid = true
	return nil
}

// Count returns the number of live entries.
func (f *Flat) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := 0
	for i := range f.entries {
		if !f.entries[i].invalid {
			n++
		}
	}
	return n
}

// Dimension returns the configured embedding dimension.
func (f *Flat) Dimension() int {
	return f.dim
}

// Close marks the index closed; later mutations and searches return
// ErrClosed. Close is idempotent.
func (f *Flat) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// squaredL2 computes squared Euclidean distance. Accumulates in float64 to
// limit rounding drift over long vectors.
func squaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}

var _ Index = (*Flat)(nil)
