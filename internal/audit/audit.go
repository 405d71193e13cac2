// Package audit records every access decision in an append-only log.
//
// The log is write-only by construction: implementations expose Append and
// nothing that mutates or removes existing records. One record is written
// per query, whether it was answered, rejected, or failed mid-pipeline.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors.
var (
	ErrInvalidRecord = errors.New("invalid audit record")
	ErrAppendFailed  = errors.New("audit append failed")
)

// Query outcomes recorded in the log. A query that completed the full
// pipeline is "allowed" even when every chunk was denied; "disallowed"
// means the guard rejected it before any retrieval work; "failed" means
// the pipeline died mid-flight (e.g. embedding provider unreachable) and
// no answer was produced.
const (
	OutcomeAnswered = "allowed"
	OutcomeRejected = "disallowed"
	OutcomeFailed   = "failed"
)

// ChunkDecision summarizes one per-chunk policy decision for the audit row.
// Score is the chunk's sensitivity score at decision time, so reviewers can
// rank denials without refetching the chunk.
type ChunkDecision struct {
	ChunkID string  `json:"chunk_id"`
	Outcome string  `json:"outcome"`
	Reason  string  `json:"reason"`
	Score   float64 `json:"sensitivity_score"`
}

// Record is one immutable audit log entry.
type Record struct {
	// LogID is the unique record identifier.
	LogID string

	// QueryID correlates the record with request logs.
	QueryID string

	// UserID and OrgID identify the requester.
	UserID string
	OrgID  string

	// Query is the raw query text as received.
	Query string

	// Outcome is OutcomeAnswered, OutcomeRejected, or OutcomeFailed.
	Outcome string

	// Decisions holds every per-chunk policy decision made for the
	// query. Empty for queries rejected or failed before search.
	Decisions []ChunkDecision

	// AllowedChunks counts the chunks actually released in the
	// response; it can be lower than the allow decisions in Decisions
	// when the response was truncated to the requested chunk count.
	// DeniedChunks counts the policy denials.
	AllowedChunks int
	DeniedChunks  int

	// CreatedAt is the append timestamp.
	CreatedAt time.Time
}

// Validate checks the record for required fields.
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if r.LogID == "" {
		return fmt.Errorf("%w: log_id is required", ErrInvalidRecord)
	}
	if r.QueryID == "" {
		return fmt.Errorf("%w: query_id is required", ErrInvalidRecord)
	}
	if r.UserID == "" || r.OrgID == "" {
		return fmt.Errorf("%w: user_id and org_id are required", ErrInvalidRecord)
	}
	switch r.Outcome {
	case OutcomeAnswered, OutcomeRejected, OutcomeFailed:
	default:
		return fmt.Errorf("%w: outcome must be %q, %q, or %q",
			ErrInvalidRecord, OutcomeAnswered, OutcomeRejected, OutcomeFailed)
	}
	return nil
}

// Log is an append-only audit sink.
type Log interface {
	// Append writes one record. Implementations must be safe for
	// concurrent use and must make each append atomic.
	Append(ctx context.Context, record *Record) error

	Close() error
}
