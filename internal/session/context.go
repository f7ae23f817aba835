package session

import "context"

type sessionContextKey struct{}

// ContextWith attaches the request's session to the context.
func ContextWith(ctx context.Context, s *Session) context.Context {
	if s == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// FromContext extracts the request's session from the context.
func FromContext(ctx context.Context) (*Session, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(sessionContextKey{}).(*Session)
	if !ok || s == nil {
		return nil, false
	}
	return s, true
}
