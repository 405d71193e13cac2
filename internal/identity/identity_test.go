package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleOrdering(t *testing.T) {
	assert.Less(t, RoleEmployee.Rank(), RoleManager.Rank())
	assert.Less(t, RoleManager.Rank(), RoleHR.Rank())
	assert.Less(t, RoleHR.Rank(), RoleAdmin.Rank())
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Role
		wantErr bool
	}{
		{name: "employee", input: "employee", want: RoleEmployee},
		{name: "manager", input: "manager", want: RoleManager},
		{name: "hr", input: "hr", want: RoleHR},
		{name: "admin", input: "admin", want: RoleAdmin},
		{name: "unknown", input: "root", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "case sensitive", input: "Admin", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnknownRanksLowest(t *testing.T) {
	// Malformed values must never outrank valid ones.
	assert.Equal(t, -1, Role("superuser").Rank())
	assert.Equal(t, -1, Clearance("topsecret").Level())
}

func TestSensitivityRequiredClearance(t *testing.T) {
	tests := []struct {
		sensitivity Sensitivity
		required    int
	}{
		{SensitivityPublic, 0},
		{SensitivityInternal, 0},
		{SensitivityConfidential, 0},
		{SensitivityRestricted, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.sensitivity), func(t *testing.T) {
			assert.Equal(t, tt.required, tt.sensitivity.RequiredClearance())
		})
	}

	// Unknown sensitivity requires the highest clearance level.
	assert.Equal(t, ClearanceAdmin.Level(), Sensitivity("unknown").RequiredClearance())
}

func TestPrincipalValidate(t *testing.T) {
	valid := Principal{
		UserID:    "u-101",
		OrgID:     "org-1",
		Role:      RoleEmployee,
		Clearance: ClearanceEmployee,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(p *Principal)
	}{
		{name: "missing user id", mutate: func(p *Principal) { p.UserID = "" }},
		{name: "missing org id", mutate: func(p *Principal) { p.OrgID = "" }},
		{name: "unknown role", mutate: func(p *Principal) { p.Role = "root" }},
		{name: "unknown clearance", mutate: func(p *Principal) { p.Clearance = "cosmic" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()

	// Fail closed when absent.
	_, err := PrincipalFromContext(ctx)
	require.ErrorIs(t, err, ErrMissingPrincipal)
	assert.False(t, HasPrincipal(ctx))

	p := &Principal{UserID: "u-1", OrgID: "org-1", Role: RoleHR, Clearance: ClearanceHR}
	ctx = ContextWithPrincipal(ctx, p)

	got, err := PrincipalFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.True(t, HasPrincipal(ctx))
}

func TestPrincipalContextNil(t *testing.T) {
	ctx := ContextWithPrincipal(context.Background(), nil)
	_, err := PrincipalFromContext(ctx)
	require.ErrorIs(t, err, ErrMissingPrincipal)
}
