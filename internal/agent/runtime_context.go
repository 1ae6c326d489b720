package agent

import "context"

type sessionIDKey struct{}

// WithSessionID stores the active session id in ctx, for tools and
// providers that need to correlate work with the turn they're part of.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// SessionIDFromContext retrieves the session id stored by WithSessionID.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}
