package identity

import "context"

// principalContextKey is the context key for Principal.
type principalContextKey struct{}

// ContextWithPrincipal adds a Principal to a context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the Principal from a context.
// Returns ErrMissingPrincipal if not present - fail closed.
func PrincipalFromContext(ctx context.Context) (*Principal, error) {
	val := ctx.Value(principalContextKey{})
	if val == nil {
		return nil, ErrMissingPrincipal
	}
	p, ok := val.(*Principal)
	if !ok || p == nil {
		return nil, ErrMissingPrincipal
	}
	return p, nil
}

// HasPrincipal checks if a Principal is present in context without error.
func HasPrincipal(ctx context.Context) bool {
	_, err := PrincipalFromContext(ctx)
	return err == nil
}
