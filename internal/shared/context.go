package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession attaches the authenticated session so handlers and
// services further down the chain can read the acting user.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the session the middleware attached, or nil for
// an unauthenticated request.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
