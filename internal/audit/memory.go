package audit

import (
	"context"
	"sync"
	"time"
)

// MemoryLog is an in-memory Log for tests.
type MemoryLog struct {
	mu      sync.Mutex
	records []Record

	// FailAppend, when set, makes every Append return ErrAppendFailed.
	FailAppend bool
}

// NewMemoryLog returns an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append stores a copy of the record.
func (l *MemoryLog) Append(_ context.Context, record *Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailAppend {
		return ErrAppendFailed
	}
	r := *record
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.Decisions = append([]ChunkDecision(nil), record.Decisions...)
	l.records = append(l.records, r)
	return nil
}

// Records returns a copy of everything appended so far.
func (l *MemoryLog) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

func (l *MemoryLog) Close() error { return nil }
