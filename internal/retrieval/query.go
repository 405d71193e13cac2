package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sentryd/internal/audit"
	"github.com/fyrsmithlabs/sentryd/internal/identity"
	"github.com/fyrsmithlabs/sentryd/internal/logging"
	"github.com/fyrsmithlabs/sentryd/internal/policy"
	"github.com/fyrsmithlabs/sentryd/internal/store"
)

// QueryRequest is one retrieval query.
type QueryRequest struct {
	// Query is the natural-language query text.
	Query string

	// Purpose is the declared access purpose (e.g. "dsar"). Optional.
	Purpose string

	// MaxChunks caps the returned chunk count. Zero means the service
	// default.
	MaxChunks int
}

// Citation references one allowed chunk in a query response.
type Citation struct {
	ChunkID  string
	DocID    string
	Text     string
	Distance float32
}

// QueryResult is the user-visible outcome of an answered query. It
// references allowed chunks only.
type QueryResult struct {
	QueryID   string
	Answer    string
	Citations []Citation
}

// Query runs the full pipeline for one query. The requester principal must
// be present in ctx. The audit record is written before the result is
// returned; if the audit append fails the query fails.
func (s *Service) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	queryID := uuid.NewString()
	ctx = logging.WithQueryID(ctx, queryID)
	start := time.Now()

	requester, err := identity.PrincipalFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := requester.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query text is required", ErrInvalidInput)
	}
	maxChunks := req.MaxChunks
	if maxChunks <= 0 {
		maxChunks = s.opts.MaxChunks
	}
	if maxChunks > hardCapK {
		maxChunks = hardCapK
	}

	if unsafe, rule := s.guard.Unsafe(query); unsafe {
		s.logger.Warn(ctx, "query rejected by guard", zap.String("rule", rule))
		s.metrics.InjectionRejections.Inc()

		record := &audit.Record{
			LogID:   uuid.NewString(),
			QueryID: queryID,
			UserID:  requester.UserID,
			OrgID:   requester.OrgID,
			Query:   query,
			Outcome: audit.OutcomeRejected,
		}
		if err := s.appendAudit(ctx, record); err != nil {
			return nil, err
		}
		s.metrics.ObserveQuery(audit.OutcomeRejected, time.Since(start))
		return nil, fmt.Errorf("%w: matched rule %s", ErrInjectionRejected, rule)
	}

	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		// Fatal for the query, but the failure itself still gets an
		// audit row. Best-effort: an audit error here must not mask
		// the embedding failure.
		record := &audit.Record{
			LogID:   uuid.NewString(),
			QueryID: queryID,
			UserID:  requester.UserID,
			OrgID:   requester.OrgID,
			Query:   query,
			Outcome: audit.OutcomeFailed,
		}
		if auditErr := s.audit.Append(context.WithoutCancel(ctx), record); auditErr != nil {
			s.metrics.AuditFailures.Inc()
			s.logger.Error(ctx, "audit append failed for failed query", zap.Error(auditErr))
		}
		s.metrics.ObserveQuery(audit.OutcomeFailed, time.Since(start))
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
	}

	candidates, err := s.index.Search(ctx, embedding, s.boundedK(maxChunks))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	var (
		decisions []audit.ChunkDecision
		allowed   []Citation
		denied    int
	)
	for _, cand := range candidates {
		if s.opts.ScoreThreshold > 0 && float64(cand.Distance) > s.opts.ScoreThreshold {
			continue
		}

		chunk, err := s.store.GetChunk(ctx, cand.ChunkID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Index and store drifted; the chunk cannot be
				// evaluated, so it is never returned.
				s.logger.Warn(ctx, "candidate missing from store",
					zap.String("chunk_id", cand.ChunkID))
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}

		decision := s.policy.Evaluate(chunk, requester, req.Purpose)
		decisions = append(decisions, audit.ChunkDecision{
			ChunkID: decision.ChunkID,
			Outcome: string(decision.Outcome),
			Reason:  decision.Reason,
			Score:   policy.SensitivityScore(chunk),
		})
		if decision.Allowed() {
			allowed = append(allowed, Citation{
				ChunkID:  chunk.ChunkID,
				DocID:    chunk.DocID,
				Text:     chunk.Text,
				Distance: cand.Distance,
			})
		} else {
			denied++
		}
	}

	if len(allowed) > maxChunks {
		allowed = allowed[:maxChunks]
	}

	// AllowedChunks reflects what the response actually releases, not the
	// raw allow-decision count; the full partition stays in Decisions.
	record := &audit.Record{
		LogID:         uuid.NewString(),
		QueryID:       queryID,
		UserID:        requester.UserID,
		OrgID:         requester.OrgID,
		Query:         query,
		Outcome:       audit.OutcomeAnswered,
		Decisions:     decisions,
		AllowedChunks: len(allowed),
		DeniedChunks:  denied,
	}
	if err := s.appendAudit(ctx, record); err != nil {
		return nil, err
	}

	s.metrics.ChunksAllowed.Add(float64(len(allowed)))
	s.metrics.ChunksDenied.Add(float64(denied))
	s.metrics.ObserveQuery(audit.OutcomeAnswered, time.Since(start))
	s.logger.Info(ctx, "query answered",
		zap.Int("candidates", len(candidates)),
		zap.Int("allowed", len(allowed)),
		zap.Int("denied", denied))

	return &QueryResult{
		QueryID:   queryID,
		Answer:    assembleAnswer(allowed),
		Citations: allowed,
	}, nil
}

// appendAudit writes the record on a context detached from the caller's
// cancellation: a client disconnect after policy evaluation must still
// produce the audit row.
func (s *Service) appendAudit(ctx context.Context, record *audit.Record) error {
	if err := s.audit.Append(context.WithoutCancel(ctx), record); err != nil {
		s.metrics.AuditFailures.Inc()
		return fmt.Errorf("%w: %v", ErrAuditFailure, err)
	}
	return nil
}

// assembleAnswer joins the allowed chunk texts in relevance order.
func assembleAnswer(citations []Citation) string {
	if len(citations) == 0 {
		return ""
	}
	parts := make([]string, len(citations))
	for i, c := range citations {
		parts[i] = c.Text
	}
	return strings.Join(parts, "\n\n")
}

