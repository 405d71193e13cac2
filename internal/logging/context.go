package logging

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sentryd/internal/identity"
)

// Context key types.
type queryIDCtxKey struct{}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 4)

	if queryID := QueryIDFromContext(ctx); queryID != "" {
		fields = append(fields, zap.String("query.id", queryID))
	}

	if p, err := identity.PrincipalFromContext(ctx); err == nil {
		fields = append(fields,
			zap.String("user.id", p.UserID),
			zap.String("org.id", p.OrgID),
			zap.String("user.role", string(p.Role)),
		)
	}

	return fields
}

// WithQueryID adds the query id to context for log correlation.
func WithQueryID(ctx context.Context, queryID string) context.Context {
	return context.WithValue(ctx, queryIDCtxKey{}, queryID)
}

// QueryIDFromContext extracts the query id from context.
func QueryIDFromContext(ctx context.Context) string {
	if q, ok := ctx.Value(queryIDCtxKey{}).(string); ok {
		return q
	}
	return ""
}
