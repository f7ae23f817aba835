package accounts

import (
	"fmt"
	"strings"
)

const (
	policyPunctuation = "$@!%*?&"
	policyLower       = "abcdefghijklmnopqrstuvwxyz"
	policyUpper       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	policyDigits      = "0123456789"
)

// ErrWeakPassword wraps ErrInvalidInput so callers can branch on either.
var ErrWeakPassword = fmt.Errorf("%w: password is too weak", ErrInvalidInput)

// PasswordPolicy is a stateless complexity predicate. A candidate must
// contain at least one lowercase letter, one uppercase letter, one digit and
// one of $@!%*?&. The legacy pattern it reproduces was anchored at the start
// of the string only, so the leading character must come from the combined
// alphabet but anything may follow; no minimum length is enforced. Kept
// bug-compatible pending a product decision on tightening it.
type PasswordPolicy struct{}

// Acceptable reports whether candidate satisfies the policy.
func (PasswordPolicy) Acceptable(candidate string) bool {
	if candidate == "" {
		return false
	}
	if !strings.ContainsAny(candidate, policyLower) ||
		!strings.ContainsAny(candidate, policyUpper) ||
		!strings.ContainsAny(candidate, policyDigits) ||
		!strings.ContainsAny(candidate, policyPunctuation) {
		return false
	}
	alphabet := policyLower + policyUpper + policyDigits + policyPunctuation
	return strings.ContainsRune(alphabet, rune(candidate[0]))
}

// Validate returns ErrWeakPassword when candidate fails the policy.
func (p PasswordPolicy) Validate(candidate string) error {
	if !p.Acceptable(candidate) {
		return ErrWeakPassword
	}
	return nil
}

// Requirement returns the policy description shown to users. The wording,
// duplicated $ included, is verbatim from the legacy product copy.
func (PasswordPolicy) Requirement() string {
	return "Password should contain capital and small letters, numeric values and " +
		"one of the following $@$!%*?&"
}
