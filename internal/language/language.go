// Package language resolves the display language for the current request:
// the signed-in user's stored preference when it is one of the configured
// languages, otherwise the deployment default.
package language

import (
	"context"
	"strings"
)

type contextKey struct{}

// ContextWith attaches code to ctx.
func ContextWith(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, contextKey{}, code)
}

// FromContext returns the request language, defaulting to "en".
func FromContext(ctx context.Context) string {
	if code, ok := ctx.Value(contextKey{}).(string); ok && code != "" {
		return code
	}
	return "en"
}

// Resolve picks the preferred code when supported, falling back to fallback.
// Matching is case-insensitive and the returned code is lowercased.
func Resolve(preference string, supported []string, fallback string) string {
	preference = strings.TrimSpace(strings.ToLower(preference))
	if preference != "" {
		for _, code := range supported {
			if strings.ToLower(code) == preference {
				return preference
			}
		}
	}
	return strings.TrimSpace(strings.ToLower(fallback))
}
