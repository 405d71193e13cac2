package audit

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() *Record {
	return &Record{
		LogID:   "log-1",
		QueryID: "query-1",
		UserID:  "user-1",
		OrgID:   "org-1",
		Query:   "what is the vacation policy",
		Outcome: OutcomeAnswered,
		Decisions: []ChunkDecision{
			{ChunkID: "chunk-1", Outcome: "allow", Reason: "policy check passed"},
			{ChunkID: "chunk-2", Outcome: "deny", Reason: "cross-tenant access not allowed"},
		},
		AllowedChunks: 1,
		DeniedChunks:  1,
	}
}

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"missing log id", func(r *Record) { r.LogID = "" }},
		{"missing query id", func(r *Record) { r.QueryID = "" }},
		{"missing user id", func(r *Record) { r.UserID = "" }},
		{"missing org id", func(r *Record) { r.OrgID = "" }},
		{"bad outcome", func(r *Record) { r.Outcome = "maybe" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(r)
			require.ErrorIs(t, r.Validate(), ErrInvalidRecord)
		})
	}

	require.NoError(t, validRecord().Validate())

	// All three outcome values are admissible.
	for _, outcome := range []string{OutcomeAnswered, OutcomeRejected, OutcomeFailed} {
		r := validRecord()
		r.Outcome = outcome
		require.NoError(t, r.Validate())
	}

	var nilRecord *Record
	require.ErrorIs(t, nilRecord.Validate(), ErrInvalidRecord)
}

func TestMemoryLogAppend(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, validRecord()))

	records := log.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "log-1", records[0].LogID)
	assert.Equal(t, 1, records[0].AllowedChunks)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestMemoryLogFailAppend(t *testing.T) {
	log := NewMemoryLog()
	log.FailAppend = true
	require.ErrorIs(t, log.Append(context.Background(), validRecord()), ErrAppendFailed)
	assert.Empty(t, log.Records())
}

func TestSQLiteLogAppend(t *testing.T) {
	log, err := NewSQLiteLog(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer log.Close()

	ctx := context.Background()
	require.NoError(t, log.Append(ctx, validRecord()))

	rejected := validRecord()
	rejected.LogID = "log-2"
	rejected.Outcome = OutcomeRejected
	rejected.Decisions = nil
	rejected.AllowedChunks = 0
	rejected.DeniedChunks = 0
	require.NoError(t, log.Append(ctx, rejected))

	n, err := log.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLiteLogRejectsInvalid(t *testing.T) {
	log, err := NewSQLiteLog(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer log.Close()

	r := validRecord()
	r.Outcome = ""
	require.ErrorIs(t, log.Append(context.Background(), r), ErrInvalidRecord)
}

func TestSQLiteLogDuplicateLogID(t *testing.T) {
	log, err := NewSQLiteLog(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer log.Close()

	ctx := context.Background()
	require.NoError(t, log.Append(ctx, validRecord()))
	require.ErrorIs(t, log.Append(ctx, validRecord()), ErrAppendFailed)
}

func TestSQLiteLogConcurrentAppends(t *testing.T) {
	log, err := NewSQLiteLog(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer log.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				r := validRecord()
				r.LogID = string(rune('a'+i)) + "-" + string(rune('0'+j))
				assert.NoError(t, log.Append(ctx, r))
			}
		}(i)
	}
	wg.Wait()

	n, err := log.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 80, n)
}
