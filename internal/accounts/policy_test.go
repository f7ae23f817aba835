package accounts

import (
	"errors"
	"testing"
)

func TestPasswordPolicy(t *testing.T) {
	cases := []struct {
		candidate string
		ok        bool
	}{
		{"aab1234AAAA", false},   // no punctuation
		{"aab$$$$AAAA", false},   // no digit
		{"$$$$1234AAAA", false},  // no lowercase
		{"aab1234$$$$", false},   // no uppercase
		{"aab1234AAAA$#", true},  // all classes present
		{"aB1#", false},          // # is not in the punctuation class
		{"", false},              // empty
		{"aB1$", true},           // no minimum length
		{" aB1$", false},         // leading character outside the alphabet
		{"aB1$ trailing ok", true},
	}
	var policy PasswordPolicy
	for _, tc := range cases {
		if got := policy.Acceptable(tc.candidate); got != tc.ok {
			t.Errorf("Acceptable(%q)=%v, want %v", tc.candidate, got, tc.ok)
		}
	}
}

func TestPasswordPolicyValidate(t *testing.T) {
	var policy PasswordPolicy
	if err := policy.Validate("aab1234AAAA$#"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := policy.Validate("weak")
	if !errors.Is(err, ErrWeakPassword) || !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected weak password error chain, got %v", err)
	}
}

func TestPasswordPolicyRequirement(t *testing.T) {
	want := "Password should contain capital and small letters, numeric values and one of the following $@$!%*?&"
	if got := (PasswordPolicy{}).Requirement(); got != want {
		t.Fatalf("Requirement() = %q, want %q", got, want)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("aab1234AAAA$#")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := VerifyPassword(hash, "aab1234AAAA$#"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := VerifyPassword(hash, "different"); err == nil {
		t.Fatal("expected mismatch error")
	}
}
