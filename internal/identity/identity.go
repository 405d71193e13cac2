// Package identity defines the verified principal attached to every request
// and the ordered role/clearance/sensitivity scales used by policy checks.
//
// Token validation is performed by an external identity provider; this
// package only models the already-verified identity and enforces that it is
// present and well-formed before any retrieval work happens.
package identity

import (
	"errors"
	"fmt"
)

// Identity errors - fail closed security model.
var (
	// ErrMissingPrincipal is returned when principal info is missing from context.
	ErrMissingPrincipal = errors.New("principal missing from context")

	// ErrInvalidPrincipal is returned when a principal fails validation.
	ErrInvalidPrincipal = errors.New("invalid principal")

	// ErrUnknownRole is returned for role values outside the fixed enum.
	ErrUnknownRole = errors.New("unknown role")

	// ErrUnknownClearance is returned for clearance values outside the fixed enum.
	ErrUnknownClearance = errors.New("unknown clearance")

	// ErrUnknownSensitivity is returned for sensitivity values outside the fixed enum.
	ErrUnknownSensitivity = errors.New("unknown sensitivity")
)

// Role is a user's organizational role.
type Role string

// Fixed role enum, ordered employee < manager < hr < admin.
const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleHR       Role = "hr"
	RoleAdmin    Role = "admin"
)

// roleRank defines the total order over roles.
var roleRank = map[Role]int{
	RoleEmployee: 0,
	RoleManager:  1,
	RoleHR:       2,
	RoleAdmin:    3,
}

// ParseRole validates and returns a Role from its string form.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleRank[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Rank returns the role's position in the total order. Unknown roles rank
// lowest so a malformed role never grants elevated access.
func (r Role) Rank() int {
	if rank, ok := roleRank[r]; ok {
		return rank
	}
	return -1
}

// Valid reports whether the role is part of the fixed enum.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Clearance is a user's ordered trust level, mirroring the role hierarchy.
type Clearance string

// Fixed clearance enum, ordered employee < manager < hr < admin.
const (
	ClearanceEmployee Clearance = "employee"
	ClearanceManager  Clearance = "manager"
	ClearanceHR       Clearance = "hr"
	ClearanceAdmin    Clearance = "admin"
)

var clearanceLevel = map[Clearance]int{
	ClearanceEmployee: 0,
	ClearanceManager:  1,
	ClearanceHR:       2,
	ClearanceAdmin:    3,
}

// ParseClearance validates and returns a Clearance from its string form.
func ParseClearance(s string) (Clearance, error) {
	c := Clearance(s)
	if _, ok := clearanceLevel[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownClearance, s)
	}
	return c, nil
}

// Level returns the clearance's position in the total order. Unknown
// clearances level lowest (fail closed).
func (c Clearance) Level() int {
	if lvl, ok := clearanceLevel[c]; ok {
		return lvl
	}
	return -1
}

// Valid reports whether the clearance is part of the fixed enum.
func (c Clearance) Valid() bool {
	_, ok := clearanceLevel[c]
	return ok
}

// Sensitivity is the ordered classification of a chunk's content.
type Sensitivity string

// Fixed sensitivity enum, ordered public < internal < confidential < restricted.
const (
	SensitivityPublic       Sensitivity = "public"
	SensitivityInternal     Sensitivity = "internal"
	SensitivityConfidential Sensitivity = "confidential"
	SensitivityRestricted   Sensitivity = "restricted"
)

var sensitivityOrder = map[Sensitivity]int{
	SensitivityPublic:       0,
	SensitivityInternal:     1,
	SensitivityConfidential: 2,
	SensitivityRestricted:   3,
}

// requiredClearance maps sensitivity to the minimum clearance level needed
// to read content at that sensitivity. Everything below restricted is open
// to every authenticated principal; access to confidential content is
// governed by the ACL and category checks rather than clearance.
var requiredClearance = map[Sensitivity]int{
	SensitivityPublic:       0,
	SensitivityInternal:     0,
	SensitivityConfidential: 0,
	SensitivityRestricted:   2,
}

// ParseSensitivity validates and returns a Sensitivity from its string form.
func ParseSensitivity(s string) (Sensitivity, error) {
	sv := Sensitivity(s)
	if _, ok := sensitivityOrder[sv]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSensitivity, s)
	}
	return sv, nil
}

// Valid reports whether the sensitivity is part of the fixed enum.
func (s Sensitivity) Valid() bool {
	_, ok := sensitivityOrder[s]
	return ok
}

// RequiredClearance returns the minimum clearance level needed to read
// content at this sensitivity. Unknown sensitivities require the highest
// level (fail closed).
func (s Sensitivity) RequiredClearance() int {
	if lvl, ok := requiredClearance[s]; ok {
		return lvl
	}
	return clearanceLevel[ClearanceAdmin]
}

// Principal is the verified identity attached to a request by the external
// identity provider. It is immutable for the duration of the request.
type Principal struct {
	// UserID is the verified user identifier.
	UserID string

	// OrgID is the user's organization - the tenancy boundary.
	// A principal belongs to exactly one organization.
	OrgID string

	// Role is the user's organizational role.
	Role Role

	// Clearance is the user's ordered trust level.
	Clearance Clearance
}

// Validate checks that all principal fields are present and within the
// fixed enums.
func (p *Principal) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: user id required", ErrInvalidPrincipal)
	}
	if p.OrgID == "" {
		return fmt.Errorf("%w: org id required", ErrInvalidPrincipal)
	}
	if !p.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, p.Role)
	}
	if !p.Clearance.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownClearance, p.Clearance)
	}
	return nil
}
