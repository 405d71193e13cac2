package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sentryd/internal/chunker"
	"github.com/fyrsmithlabs/sentryd/internal/identity"
	"github.com/fyrsmithlabs/sentryd/internal/index"
	"github.com/fyrsmithlabs/sentryd/internal/store"
)

// IngestRequest is one document to ingest. The owning user and org come
// from the principal in ctx.
type IngestRequest struct {
	Title       string
	Content     string
	Sensitivity identity.Sensitivity
	ACLRoles    []string
	PIITags     []string
}

// IngestResult reports what was created.
type IngestResult struct {
	DocID         string
	ChunksCreated int
	ChunkIDs      []string
}

// Ingest chunks, embeds, indexes, and persists one document. Index add and
// store write are composed per chunk under a transactional discipline: a
// store failure after a successful index add invalidates the index entry,
// and a mid-batch failure rolls back the whole batch, so the index and the
// store never diverge.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	owner, err := identity.PrincipalFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := owner.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !req.Sensitivity.Valid() {
		return nil, fmt.Errorf("%w: unknown sensitivity %q", ErrInvalidInput, req.Sensitivity)
	}

	paragraphs := chunker.Paragraphs(req.Content)
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("%w: content has no text", ErrInvalidInput)
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, paragraphs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
	}
	if len(vectors) != len(paragraphs) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks",
			ErrEmbeddingFailure, len(vectors), len(paragraphs))
	}

	hash := sha256.Sum256([]byte(req.Content))
	doc := &store.Document{
		DocID:       uuid.NewString(),
		OrgID:       owner.OrgID,
		OwnerID:     owner.UserID,
		Title:       strings.TrimSpace(req.Title),
		Sensitivity: req.Sensitivity,
		ACLRoles:    req.ACLRoles,
		ContentHash: hex.EncodeToString(hash[:]),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	chunkIDs := make([]string, 0, len(paragraphs))
	indexed := make([]string, 0, len(paragraphs))
	for i, text := range paragraphs {
		chunkID := uuid.NewString()

		entry := index.Entry{
			ChunkID:   chunkID,
			OrgID:     owner.OrgID,
			OwnerID:   owner.UserID,
			Embedding: vectors[i],
		}
		if err := s.index.Add(ctx, entry); err != nil {
			s.rollback(ctx, doc.DocID, indexed)
			return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
		}
		indexed = append(indexed, chunkID)

		chunk := &store.Chunk{
			ChunkID:     chunkID,
			DocID:       doc.DocID,
			OrgID:       doc.OrgID,
			Text:        text,
			Embedding:   vectors[i],
			Sensitivity: doc.Sensitivity,
			PIITags:     req.PIITags,
			ACLRoles:    doc.ACLRoles,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.store.CreateChunk(ctx, chunk); err != nil {
			s.rollback(ctx, doc.DocID, indexed)
			return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
		chunkIDs = append(chunkIDs, chunkID)
	}

	s.metrics.IngestedDocuments.Inc()
	s.metrics.IngestedChunks.Add(float64(len(chunkIDs)))
	s.logger.Info(ctx, "document ingested",
		zap.String("doc_id", doc.DocID),
		zap.Int("chunks", len(chunkIDs)))

	return &IngestResult{
		DocID:         doc.DocID,
		ChunksCreated: len(chunkIDs),
		ChunkIDs:      chunkIDs,
	}, nil
}

// rollback undoes a partially ingested batch: every index entry added so
// far is invalidated and the document row (with any chunks already
// persisted) is removed. Runs on a detached context so a caller disconnect
// cannot leave the divergence in place.
func (s *Service) rollback(ctx context.Context, docID string, indexed []string) {
	ctx = context.WithoutCancel(ctx)
	for _, chunkID := range indexed {
		if err := s.index.Invalidate(ctx, chunkID); err != nil {
			s.logger.Error(ctx, "rollback invalidate failed",
				zap.String("chunk_id", chunkID), zap.Error(err))
		}
	}
	if _, err := s.store.DeleteDocument(ctx, docID); err != nil {
		s.logger.Error(ctx, "rollback document delete failed",
			zap.String("doc_id", docID), zap.Error(err))
	}
}
