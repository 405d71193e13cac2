package store

import (
	"time"

	"github.com/fyrsmithlabs/sentryd/internal/identity"
)

// PII tag values with dedicated policy rules.
const (
	// TagSSN marks chunks containing social security numbers. Access
	// requires the request purpose to be PurposeDSAR regardless of
	// clearance.
	TagSSN = "ssn"

	// TagSalary marks chunks containing compensation data. Access is
	// limited to hr and admin roles.
	TagSalary = "salary"
)

// PurposeDSAR is the declared purpose required to access SSN-tagged content
// (Data Subject Access Request).
const PurposeDSAR = "dsar"

// ACLWildcard in a chunk's ACL grants access to every role.
const ACLWildcard = "all"

// Document is an ingested document owning one or more chunks.
type Document struct {
	// DocID is the unique document identifier.
	DocID string

	// OrgID is the owning organization - the tenancy boundary.
	OrgID string

	// OwnerID is the user who ingested the document.
	OwnerID string

	// Title is the human-readable document title.
	Title string

	// Sensitivity classifies the document's content.
	Sensitivity identity.Sensitivity

	// ACLRoles is the allow-list of roles permitted to view the
	// document's chunks. May contain ACLWildcard.
	ACLRoles []string

	// ContentHash is the SHA-256 hex digest of the original content.
	ContentHash string

	// CreatedAt is the ingestion timestamp.
	CreatedAt time.Time
}

// Chunk is the smallest retrievable unit of document text. Chunks are
// immutable after creation; they are written once at ingestion time.
//
// OrgID, Sensitivity and ACLRoles are denormalized from the parent document
// so a single chunk record carries everything policy evaluation needs.
// A chunk's OrgID must always equal its parent document's OrgID.
type Chunk struct {
	// ChunkID is the unique chunk identifier.
	ChunkID string

	// DocID is the parent document.
	DocID string

	// OrgID is the owning organization, denormalized from the document.
	OrgID string

	// Text is the chunk's content.
	Text string

	// Embedding is the chunk's embedding vector, fixed dimension
	// process-wide.
	Embedding []float32

	// Sensitivity classifies the chunk's content.
	Sensitivity identity.Sensitivity

	// PIITags labels legally or organizationally restricted data
	// categories present in the text (e.g. "ssn", "salary").
	PIITags []string

	// ACLRoles is the allow-list of roles permitted to view this chunk,
	// denormalized from the document.
	ACLRoles []string

	// CreatedAt is the ingestion timestamp.
	CreatedAt time.Time
}

// HasTag reports whether the chunk carries the given PII tag.
func (c *Chunk) HasTag(tag string) bool {
	for _, t := range c.PIITags {
		if t == tag {
			return true
		}
	}
	return false
}
