package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sentryd/internal/identity"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(*Config) {}, false},
		{"debug level", func(c *Config) { c.Level = "debug" }, false},
		{"console format", func(c *Config) { c.Format = "console" }, false},
		{"bad level", func(c *Config) { c.Level = "verbose" }, true},
		{"bad format", func(c *Config) { c.Format = "xml" }, true},
		{"empty field value", func(c *Config) { c.Fields = map[string]string{"env": ""} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewLoggerRejectsInvalidConfig(t *testing.T) {
	_, err := NewLogger(&Config{Level: "verbose", Format: "json"})
	require.Error(t, err)
}

func TestNewLoggerNilConfigUsesDefaults(t *testing.T) {
	logger, err := NewLogger(nil)
	require.NoError(t, err)
	require.NotNil(t, logger.Underlying())
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ContextFields(ctx))

	ctx = WithQueryID(ctx, "query-1")
	fields := ContextFields(ctx)
	require.Len(t, fields, 1)
	assert.Equal(t, zap.String("query.id", "query-1"), fields[0])

	ctx = identity.ContextWithPrincipal(ctx, &identity.Principal{
		UserID:    "user-1",
		OrgID:     "org-1",
		Role:      identity.RoleEmployee,
		Clearance: identity.ClearanceEmployee,
	})
	fields = ContextFields(ctx)
	require.Len(t, fields, 4)
	assert.Contains(t, fields, zap.String("user.id", "user-1"))
	assert.Contains(t, fields, zap.String("org.id", "org-1"))
}

func TestQueryIDFromContext(t *testing.T) {
	assert.Empty(t, QueryIDFromContext(context.Background()))
	assert.Equal(t, "q-9", QueryIDFromContext(WithQueryID(context.Background(), "q-9")))
}
