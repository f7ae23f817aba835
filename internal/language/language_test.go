package language

import (
	"context"
	"testing"
)

func TestResolve(t *testing.T) {
	supported := []string{"en", "es", "pt-BR"}
	tests := []struct {
		name       string
		preference string
		want       string
	}{
		{"preference wins", "es", "es"},
		{"case folded", "PT-br", "pt-br"},
		{"empty preference falls back", "", "en"},
		{"unsupported falls back", "fr", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.preference, supported, "en"); got != tt.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tt.preference, got, tt.want)
			}
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	if got := FromContext(context.Background()); got != "en" {
		t.Fatalf("empty context = %q, want en", got)
	}
	ctx := ContextWith(context.Background(), "es")
	if got := FromContext(ctx); got != "es" {
		t.Fatalf("got %q, want es", got)
	}
}
