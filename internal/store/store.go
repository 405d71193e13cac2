// Package store persists documents and chunks in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/sentryd/internal/identity"
)

// Sentinel errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidRecord = errors.New("invalid record")
	ErrInvalidConfig = errors.New("invalid store config")
)

// Config holds store configuration.
type Config struct {
	// Path is the SQLite database file, or ":memory:" for tests.
	Path string `koanf:"path"`
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidConfig)
	}
	return nil
}

// Store is a SQLite-backed document and chunk store.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_id       TEXT PRIMARY KEY,
	org_id       TEXT NOT NULL,
	owner_id     TEXT NOT NULL,
	title        TEXT NOT NULL,
	sensitivity  TEXT NOT NULL,
	acl_roles    TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_org ON documents(org_id);

CREATE TABLE IF NOT EXISTS chunks (
	chunk_id     TEXT PRIMARY KEY,
	doc_id       TEXT NOT NULL REFERENCES documents(doc_id) ON DELETE CASCADE,
	org_id       TEXT NOT NULL,
	text         TEXT NOT NULL,
	embedding    BLOB NOT NULL,
	sensitivity  TEXT NOT NULL,
	pii_tags     TEXT NOT NULL,
	acl_roles    TEXT NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id);
CREATE INDEX IF NOT EXISTS idx_chunks_org ON chunks(org_id);
`

// New opens (creating if needed) the store at cfg.Path.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dsn := cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// modernc sqlite is single-writer; serialize access through one conn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateDocument inserts a document record.
func (s *Store) CreateDocument(ctx context.Context, doc *Document) error {
	if doc == nil || doc.DocID == "" || doc.OrgID == "" {
		return fmt.Errorf("%w: document requires doc_id and org_id", ErrInvalidRecord)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	roles, err := encodeRoles(doc.ACLRoles)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (doc_id, org_id, owner_id, title, sensitivity, acl_roles, content_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.DocID, doc.OrgID, doc.OwnerID, doc.Title, string(doc.Sensitivity),
		roles, doc.ContentHash, doc.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting document %s: %w", doc.DocID, err)
	}
	return nil
}

// GetDocument fetches a document by id.
func (s *Store) GetDocument(ctx context.Context, docID string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc_id, org_id, owner_id, title, sensitivity, acl_roles, content_hash, created_at
		 FROM documents WHERE doc_id = ?`, docID)

	var doc Document
	var sensitivity, roles, createdAt string
	err := row.Scan(&doc.DocID, &doc.OrgID, &doc.OwnerID, &doc.Title,
		&sensitivity, &roles, &doc.ContentHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document %s: %w", docID, err)
	}

	doc.Sensitivity = identity.Sensitivity(sensitivity)
	if doc.ACLRoles, err = decodeRoles(roles); err != nil {
		return nil, err
	}
	if doc.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for document %s: %w", docID, err)
	}
	return &doc, nil
}

// CreateChunk inserts a chunk record.
func (s *Store) CreateChunk(ctx context.Context, chunk *Chunk) error {
	if chunk == nil || chunk.ChunkID == "" || chunk.DocID == "" || chunk.OrgID == "" {
		return fmt.Errorf("%w: chunk requires chunk_id, doc_id, and org_id", ErrInvalidRecord)
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now().UTC()
	}

	roles, err := encodeRoles(chunk.ACLRoles)
	if err != nil {
		return err
	}
	tags, err := encodeTags(chunk.PIITags)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chunks (chunk_id, doc_id, org_id, text, embedding, sensitivity, pii_tags, acl_roles, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chunk.ChunkID, chunk.DocID, chunk.OrgID, chunk.Text,
		encodeEmbedding(chunk.Embedding), string(chunk.Sensitivity),
		tags, roles, chunk.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting chunk %s: %w", chunk.ChunkID, err)
	}
	return nil
}

// GetChunk fetches a chunk by id.
func (s *Store) GetChunk(ctx context.Context, chunkID string) (*Chunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT chunk_id, doc_id, org_id, text, embedding, sensitivity, pii_tags, acl_roles, created_at
		 FROM chunks WHERE chunk_id = ?`, chunkID)
	return scanChunk(row, chunkID)
}

// GetChunks fetches multiple chunks, preserving the order of ids. Any id
// that does not exist yields ErrNotFound.
func (s *Store) GetChunks(ctx context.Context, chunkIDs []string) ([]*Chunk, error) {
	chunks := make([]*Chunk, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		c, err := s.GetChunk(ctx, id)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// ListChunksByDocument returns all chunks for a document.
func (s *Store) ListChunksByDocument(ctx context.Context, docID string) ([]*Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id, doc_id, org_id, text, embedding, sensitivity, pii_tags, acl_roles, created_at
		 FROM chunks WHERE doc_id = ? ORDER BY created_at, chunk_id`, docID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks for document %s: %w", docID, err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		c, err := scanChunk(rows, docID)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteChunk removes a chunk. Missing chunks return ErrNotFound.
func (s *Store) DeleteChunk(ctx context.Context, chunkID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE chunk_id = ?`, chunkID)
	if err != nil {
		return fmt.Errorf("deleting chunk %s: %w", chunkID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting chunk %s: %w", chunkID, err)
	}
	if n == 0 {
		return fmt.Errorf("chunk %s: %w", chunkID, ErrNotFound)
	}
	return nil
}

// DeleteDocument removes a document and its chunks, returning the ids of
// the removed chunks so callers can invalidate index entries.
func (s *Store) DeleteDocument(ctx context.Context, docID string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning delete of document %s: %w", docID, err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT chunk_id FROM chunks WHERE doc_id = ?`, docID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks of document %s: %w", docID, err)
	}
	var chunkIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning chunk id: %w", err)
		}
		chunkIDs = append(chunkIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID)
	if err != nil {
		return nil, fmt.Errorf("deleting document %s: %w", docID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing delete of document %s: %w", docID, err)
	}
	return chunkIDs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner, id string) (*Chunk, error) {
	var chunk Chunk
	var embedding []byte
	var sensitivity, tags, roles, createdAt string
	err := row.Scan(&chunk.ChunkID, &chunk.DocID, &chunk.OrgID, &chunk.Text,
		&embedding, &sensitivity, &tags, &roles, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chunk %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning chunk %s: %w", id, err)
	}

	chunk.Embedding = decodeEmbedding(embedding)
	chunk.Sensitivity = identity.Sensitivity(sensitivity)
	if chunk.PIITags, err = decodeTags(tags); err != nil {
		return nil, err
	}
	if chunk.ACLRoles, err = decodeRoles(roles); err != nil {
		return nil, err
	}
	if chunk.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for chunk %s: %w", chunk.ChunkID, err)
	}
	return &chunk, nil
}

// Embeddings are stored as little-endian float32 blobs.
func encodeEmbedding(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

func encodeRoles(roles []string) (string, error) {
	b, err := json.Marshal(roles)
	if err != nil {
		return "", fmt.Errorf("encoding acl roles: %w", err)
	}
	return string(b), nil
}

func decodeRoles(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var roles []string
	if err := json.Unmarshal([]byte(s), &roles); err != nil {
		return nil, fmt.Errorf("decoding acl roles: %w", err)
	}
	return roles, nil
}

func encodeTags(tags []string) (string, error) {
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding pii tags: %w", err)
	}
	return string(b), nil
}

func decodeTags(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return nil, fmt.Errorf("decoding pii tags: %w", err)
	}
	return tags, nil
}
