package shared

import "context"

type principalContextKey struct{}

// ContextWithPrincipal stores the resolved principal id in context.
// Access checks still take the principal as an explicit parameter; the
// context carries it only from the auth middleware to the handler.
func ContextWithPrincipal(ctx context.Context, principalID int64) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principalID)
}

// PrincipalFromContext extracts the principal id from context.
// The second return is false when the request was never authenticated.
func PrincipalFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(principalContextKey{}).(int64)
	return id, ok
}
