package domain

import "context"

type callerKey struct{}

// WithUserID returns a context carrying the authenticated caller
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, callerKey{}, userID)
}

// UserIDFromContext resolves the authenticated caller. ok is false when the
// request carries no (or an empty) identity.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	userID, ok := ctx.Value(callerKey{}).(string)
	return userID, ok && userID != ""
}
