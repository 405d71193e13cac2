package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteLog persists audit records in SQLite. It exposes no update or
// delete operations.
type SQLiteLog struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_logs (
	log_id         TEXT PRIMARY KEY,
	query_id       TEXT NOT NULL,
	user_id        TEXT NOT NULL,
	org_id         TEXT NOT NULL,
	query          TEXT NOT NULL,
	outcome        TEXT NOT NULL,
	decisions      TEXT NOT NULL,
	allowed_chunks INTEGER NOT NULL,
	denied_chunks  INTEGER NOT NULL,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_org ON audit_logs(org_id);
CREATE INDEX IF NOT EXISTS idx_audit_query ON audit_logs(query_id);
`

// NewSQLiteLog opens (creating if needed) the audit log at path.
func NewSQLiteLog(path string) (*SQLiteLog, error) {
	if path == "" {
		return nil, fmt.Errorf("audit log path is required")
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying audit schema: %w", err)
	}
	return &SQLiteLog{db: db}, nil
}

// Append writes one record.
func (l *SQLiteLog) Append(ctx context.Context, record *Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	decisions, err := json.Marshal(record.Decisions)
	if err != nil {
		return fmt.Errorf("%w: encoding decisions: %v", ErrAppendFailed, err)
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO audit_logs (log_id, query_id, user_id, org_id, query, outcome, decisions, allowed_chunks, denied_chunks, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.LogID, record.QueryID, record.UserID, record.OrgID,
		record.Query, record.Outcome, string(decisions),
		record.AllowedChunks, record.DeniedChunks,
		record.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAppendFailed, err)
	}
	return nil
}

// Count returns the number of records. Intended for operational checks.
func (l *SQLiteLog) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting audit records: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}
