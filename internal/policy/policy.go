// Package policy evaluates a single chunk against a single requester and
// purpose, producing a deterministic allow/deny decision with a reason.
//
// The engine runs an ordered, short-circuiting chain of checks: the first
// failing check determines the deny reason, so the same (chunk, principal,
// purpose) triple always reproduces the same decision for the audit trail.
package policy

import (
	"fmt"

	"github.com/fyrsmithlabs/sentryd/internal/identity"
	"github.com/fyrsmithlabs/sentryd/internal/store"
)

// Outcome is the result of a policy evaluation.
type Outcome string

const (
	// Allow means the requester may see the chunk.
	Allow Outcome = "allow"
	// Deny means the chunk is withheld from the requester.
	Deny Outcome = "deny"
)

// ReasonAllowed is the reason attached to every allow decision.
const ReasonAllowed = "policy check passed"

// Decision is the outcome of evaluating one chunk for one request.
// Decisions are ephemeral: they are produced per query and only summarized
// into the audit record, never persisted standalone.
type Decision struct {
	ChunkID string
	Outcome Outcome
	Reason  string
}

// Allowed reports whether the decision permits access.
func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// Check inspects one chunk for one requester and purpose. It returns a
// non-empty deny reason when the check fails, or an empty string when it
// passes.
type Check struct {
	// Name identifies the check for logging.
	Name string
	// Evaluate returns a deny reason, or "" when the check passes.
	Evaluate func(chunk *store.Chunk, requester *identity.Principal, purpose string) string
}

// Engine evaluates chunks through an ordered check chain.
type Engine struct {
	checks []Check
}

// NewEngine returns an engine with the standard check chain:
//
//  1. Tenant isolation - must run first; cross-tenant leakage is the
//     highest-severity failure and similarity search may surface
//     candidates from other tenants.
//  2. Clearance vs sensitivity on the shared ordered scale.
//  3. SSN content requires the DSAR purpose, independent of clearance.
//  4. Salary content requires the hr or admin role.
//  5. Requester role must be in the chunk's ACL (or the ACL carries the
//     "all" wildcard).
func NewEngine() *Engine {
	return &Engine{
		checks: []Check{
			{Name: "tenant_isolation", Evaluate: checkTenant},
			{Name: "clearance", Evaluate: checkClearance},
			{Name: "pii_purpose", Evaluate: checkPIIPurpose},
			{Name: "restricted_category", Evaluate: checkRestrictedCategory},
			{Name: "acl", Evaluate: checkACL},
		},
	}
}

// Append adds checks after the standard chain. Earlier checks keep their
// semantics; appended checks only see chunks that passed everything before
// them.
func (e *Engine) Append(checks ...Check) {
	e.checks = append(e.checks, checks...)
}

// Evaluate runs the chain and returns the decision for one chunk. The first
// failing check wins; if every check passes the chunk is allowed.
func (e *Engine) Evaluate(chunk *store.Chunk, requester *identity.Principal, purpose string) Decision {
	for _, check := range e.checks {
		if reason := check.Evaluate(chunk, requester, purpose); reason != "" {
			return Decision{ChunkID: chunk.ChunkID, Outcome: Deny, Reason: reason}
		}
	}
	return Decision{ChunkID: chunk.ChunkID, Outcome: Allow, Reason: ReasonAllowed}
}

func checkTenant(chunk *store.Chunk, requester *identity.Principal, _ string) string {
	if chunk.OrgID != requester.OrgID {
		return "cross-tenant access not allowed"
	}
	return ""
}

func checkClearance(chunk *store.Chunk, requester *identity.Principal, _ string) string {
	if requester.Clearance.Level() < chunk.Sensitivity.RequiredClearance() {
		return fmt.Sprintf("insufficient clearance: %s < required level", requester.Clearance)
	}
	return ""
}

func checkPIIPurpose(chunk *store.Chunk, requester *identity.Principal, purpose string) string {
	if chunk.HasTag(store.TagSSN) && purpose != store.PurposeDSAR {
		return "SSN access requires DSAR purpose"
	}
	return ""
}

func checkRestrictedCategory(chunk *store.Chunk, requester *identity.Principal, _ string) string {
	if chunk.HasTag(store.TagSalary) && requester.Role != identity.RoleHR && requester.Role != identity.RoleAdmin {
		return "salary information requires HR/admin role"
	}
	return ""
}

func checkACL(chunk *store.Chunk, requester *identity.Principal, _ string) string {
	for _, role := range chunk.ACLRoles {
		if role == store.ACLWildcard || role == string(requester.Role) {
			return ""
		}
	}
	return fmt.Sprintf("role %s not in ACL: %v", requester.Role, chunk.ACLRoles)
}
