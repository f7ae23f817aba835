package session

import (
	"context"
	"testing"
)

func TestMasqueradeKeysRoundTrip(t *testing.T) {
	s := New("user-1", BackendPassword)
	if !s.Authenticated() {
		t.Fatal("fresh session should be authenticated")
	}
	if s.IsMasquerading() {
		t.Fatal("fresh session should not be masquerading")
	}

	s.UserID = "target-1"
	s.SetMasquerade("admin-1", true, "/admin/users/")

	// External consumers depend on the exact key names.
	if v, _ := s.Values["is_masquerading"].(bool); !v {
		t.Fatal("is_masquerading not set")
	}
	if v, _ := s.Values["masquerade_user_id"].(string); v != "admin-1" {
		t.Fatalf("masquerade_user_id = %q", v)
	}
	if v, _ := s.Values["masquerade_is_superuser"].(bool); !v {
		t.Fatal("masquerade_is_superuser not set")
	}
	if v, _ := s.Values["return_page"].(string); v != "/admin/users/" {
		t.Fatalf("return_page = %q", v)
	}

	id, ok := s.MasqueradeUserID()
	if !ok || id != "admin-1" {
		t.Fatalf("MasqueradeUserID = %q, %v", id, ok)
	}
	if !s.MasqueradeIsSuperuser() {
		t.Fatal("superuser snapshot lost")
	}

	s.ClearMasquerade()
	for _, key := range []string{KeyIsMasquerading, KeyMasqueradeUserID, KeyMasqueradeIsSuperuser, KeyReturnPage} {
		if _, present := s.Values[key]; present {
			t.Fatalf("key %s not cleared", key)
		}
	}
}

func TestFlashesDrainOnce(t *testing.T) {
	s := New("user-1", BackendPassword)
	s.AddFlash(FlashSuccess, "Masquerade ended")
	flashes := s.ConsumeFlashes()
	if len(flashes) != 1 || flashes[0].Message != "Masquerade ended" {
		t.Fatalf("unexpected flashes: %v", flashes)
	}
	if len(s.ConsumeFlashes()) != 0 {
		t.Fatal("flashes should drain")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s := New("user-1", BackendPassword)
	if err := store.Create(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}

	loaded, err := store.Find(ctx, s.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	loaded.SetMasquerade("admin-1", false, "/admin/users/")
	if err := store.Save(ctx, loaded); err != nil {
		t.Fatalf("save: %v", err)
	}

	// The stored copy must not alias the caller's session.
	loaded.Values[KeyMasqueradeUserID] = "tampered"
	again, err := store.Find(ctx, s.ID)
	if err != nil {
		t.Fatalf("find again: %v", err)
	}
	if id, _ := again.MasqueradeUserID(); id != "admin-1" {
		t.Fatalf("store aliased caller state: %q", id)
	}

	if err := store.Delete(ctx, s.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Find(ctx, s.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	s := New("user-1", BackendPassword)
	ctx := ContextWith(context.Background(), s)
	got, ok := FromContext(ctx)
	if !ok || got.ID != s.ID {
		t.Fatal("session lost in context")
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("empty context should have no session")
	}
}
