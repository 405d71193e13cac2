// Package index defines the vector index contract and its backends.
//
// The index stores embedding vectors keyed by chunk id, with a small
// metadata tuple per vector. Similarity search is approximate retrieval
// only: it deliberately knows nothing about authorization. Tenant and
// policy filtering happen after search, per candidate, in the retrieval
// orchestrator - the index may freely return candidates from any
// organization and the policy engine decides what the requester sees.
package index

import (
	"context"
	"errors"
)

// Sentinel errors for index operations.
var (
	// ErrDimensionMismatch is returned when a vector's dimension does not
	// match the index's configured dimension. This indicates a fatal
	// configuration error, not a per-request condition.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidK is returned when a search is requested with k < 1.
	ErrInvalidK = errors.New("k must be >= 1")

	// ErrInvalidEntry is returned when an entry is missing required fields.
	ErrInvalidEntry = errors.New("invalid index entry")

	// ErrDuplicateEntry is returned when adding a chunk id that is already
	// indexed.
	ErrDuplicateEntry = errors.New("chunk already indexed")

	// ErrNotFound is returned when invalidating a chunk id that is not
	// indexed.
	ErrNotFound = errors.New("chunk not indexed")

	// ErrInvalidConfig indicates invalid index configuration.
	ErrInvalidConfig = errors.New("invalid index configuration")

	// ErrClosed is returned by operations on a closed index.
	ErrClosed = errors.New("index is closed")
)

// Entry is one vector plus the metadata tuple stored alongside it.
type Entry struct {
	// ChunkID is the chunk this vector belongs to.
	ChunkID string

	// OrgID is the owning organization.
	OrgID string

	// OwnerID is the user who ingested the parent document.
	OwnerID string

	// Embedding is the chunk's embedding vector.
	Embedding []float32
}

// Validate checks required entry fields.
func (e *Entry) Validate() error {
	if e.ChunkID == "" {
		return errors.Join(ErrInvalidEntry, errors.New("chunk id required"))
	}
	if e.OrgID == "" {
		return errors.Join(ErrInvalidEntry, errors.New("org id required"))
	}
	if len(e.Embedding) == 0 {
		return errors.Join(ErrInvalidEntry, errors.New("embedding required"))
	}
	return nil
}

// Candidate is one search result: the stored metadata tuple plus the
// distance to the query vector. Lower distance means more similar.
type Candidate struct {
	ChunkID  string
	OrgID    string
	OwnerID  string
	Distance float32
}

// Index is the vector index contract.
//
// Implementations must keep vector count and metadata count equal at all
// times: Add appends both atomically, and a failed Add leaves no partial
// state. Search on an empty index returns an empty result, not an error.
// The index never returns a chunk id it has not successfully added.
//
// Concurrency: searches may run in parallel with each other; Add and
// Invalidate are mutually exclusive with all other operations. An in-flight
// search observes either the pre-write or the fully-post-write state.
type Index interface {
	// Add appends one vector and its metadata entry atomically.
	Add(ctx context.Context, entry Entry) error

	// Search returns up to k candidates ordered by ascending distance.
	// k must be >= 1; k larger than the index size returns all entries.
	Search(ctx context.Context, embedding []float32, k int) ([]Candidate, error)

	// Invalidate excludes a chunk from all future search results. Used to
	// roll back ingestion when the chunk store write fails after the
	// index add succeeded.
	Invalidate(ctx context.Context, chunkID string) error

	// Count returns the number of live (non-invalidated) entries.
	Count() int

	// Dimension returns the configured embedding dimension.
	Dimension() int

	// Close releases index resources.
	Close() error
}
