// Package timezone resolves the IANA location used to render timestamps for
// the current request: the signed-in user's stored preference when set and
// valid, otherwise the deployment default.
package timezone

import (
	"context"
	"time"
)

type contextKey struct{}

// ContextWith attaches loc to ctx.
func ContextWith(ctx context.Context, loc *time.Location) context.Context {
	return context.WithValue(ctx, contextKey{}, loc)
}

// FromContext returns the request location, defaulting to UTC.
func FromContext(ctx context.Context) *time.Location {
	if loc, ok := ctx.Value(contextKey{}).(*time.Location); ok && loc != nil {
		return loc
	}
	return time.UTC
}

// Resolve loads the preferred zone, falling back to fallback and finally UTC.
// Invalid zone names never fail a request.
func Resolve(preference, fallback string) *time.Location {
	for _, name := range []string{preference, fallback} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}
