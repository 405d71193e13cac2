// Package retrieval orchestrates the policy-gated retrieval pipeline.
//
// Each query runs a fixed state sequence: input validation, injection guard,
// query embedding, vector search, per-candidate policy evaluation, audit
// append, response. Exactly one audit record is written per completed query,
// before the response is released, whether the query was answered or
// rejected by the guard. Denied candidates are dropped from the response
// without a trace; only the audit trail records them.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/sentryd/internal/audit"
	"github.com/fyrsmithlabs/sentryd/internal/embeddings"
	"github.com/fyrsmithlabs/sentryd/internal/guard"
	"github.com/fyrsmithlabs/sentryd/internal/index"
	"github.com/fyrsmithlabs/sentryd/internal/logging"
	"github.com/fyrsmithlabs/sentryd/internal/policy"
	"github.com/fyrsmithlabs/sentryd/internal/store"
)

// Classified pipeline failures. Callers can distinguish a rejected query
// from an unhealthy service.
var (
	// ErrInvalidInput indicates a malformed request or principal.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInjectionRejected indicates the guard flagged the query before
	// any retrieval work was performed.
	ErrInjectionRejected = errors.New("query rejected by injection guard")

	// ErrEmbeddingFailure indicates the embedding provider failed or
	// timed out. Fatal for the query.
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrIndexUnavailable indicates a vector index failure.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrStorageFailure indicates a chunk store failure.
	ErrStorageFailure = errors.New("chunk storage failure")

	// ErrAuditFailure indicates the audit append failed. The query fails
	// rather than release an unaudited response.
	ErrAuditFailure = errors.New("audit append failure")
)

// hardCapK bounds the index over-fetch regardless of the requested chunk
// count.
const hardCapK = 16

// overFetchFactor is how many candidates beyond the requested count the
// search retrieves, so policy denials do not starve the response.
const overFetchFactor = 2

// ChunkStore is the persistence surface the orchestrator needs.
type ChunkStore interface {
	CreateDocument(ctx context.Context, doc *store.Document) error
	CreateChunk(ctx context.Context, chunk *store.Chunk) error
	GetChunk(ctx context.Context, chunkID string) (*store.Chunk, error)
	DeleteDocument(ctx context.Context, docID string) ([]string, error)
}

// Options tunes the pipeline.
type Options struct {
	// MaxChunks is the default maximum number of chunks returned per
	// query when the request does not specify one.
	MaxChunks int

	// ScoreThreshold drops candidates whose distance exceeds it. Zero
	// disables the threshold.
	ScoreThreshold float64
}

// Service is the retrieval orchestrator. Construct once at process start
// and share across request handlers; all dependencies are passed in by
// reference, there is no package-level state.
type Service struct {
	guard    guard.Classifier
	embedder embeddings.Provider
	index    index.Index
	store    ChunkStore
	policy   *policy.Engine
	audit    audit.Log
	logger   *logging.Logger
	metrics  *Metrics
	opts     Options
}

// NewService wires the pipeline. The embedding provider and index must
// agree on dimension; a mismatch is a configuration error.
func NewService(
	g guard.Classifier,
	embedder embeddings.Provider,
	idx index.Index,
	chunkStore ChunkStore,
	engine *policy.Engine,
	auditLog audit.Log,
	logger *logging.Logger,
	metrics *Metrics,
	opts Options,
) (*Service, error) {
	if g == nil || embedder == nil || idx == nil || chunkStore == nil || engine == nil || auditLog == nil {
		return nil, fmt.Errorf("%w: all pipeline dependencies are required", ErrInvalidInput)
	}
	if embedder.Dimension() != idx.Dimension() {
		return nil, fmt.Errorf("%w: embedding dimension %d does not match index dimension %d",
			ErrInvalidInput, embedder.Dimension(), idx.Dimension())
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if opts.MaxChunks < 1 {
		opts.MaxChunks = 5
	}
	return &Service{
		guard:    g,
		embedder: embedder,
		index:    idx,
		store:    chunkStore,
		policy:   engine,
		audit:    auditLog,
		logger:   logger,
		metrics:  metrics,
		opts:     opts,
	}, nil
}

// boundedK converts the requested chunk count into the search k, applying
// the over-fetch factor and the hard cap.
func (s *Service) boundedK(maxChunks int) int {
	k := maxChunks * overFetchFactor
	if k > hardCapK {
		k = hardCapK
	}
	if k < 1 {
		k = 1
	}
	return k
}
