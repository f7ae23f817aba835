package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Addr != DefaultAddr {
		t.Fatalf("unexpected addr: %s", cfg.Addr)
	}
	if cfg.AuditLogEnabled {
		t.Fatal("audit log should default to disabled")
	}
	if cfg.LoginFailureLimit != DefaultLoginFailureLimit {
		t.Fatalf("unexpected failure limit: %d", cfg.LoginFailureLimit)
	}
	if cfg.LockoutCooloff != DefaultLockoutCooloff {
		t.Fatalf("unexpected cooloff: %s", cfg.LockoutCooloff)
	}
	if len(cfg.SupportedLanguages) != 1 || cfg.SupportedLanguages[0] != DefaultLanguage {
		t.Fatalf("unexpected languages: %v", cfg.SupportedLanguages)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ACCOUNTS_ENABLE_AUDIT_LOG", "true")
	t.Setenv("ACCOUNTS_LOGIN_FAILURE_LIMIT", "7")
	t.Setenv("ACCOUNTS_LOCKOUT_COOLOFF", "30m")
	t.Setenv("ACCOUNTS_LANGUAGES", "en, FR ,de")

	cfg := FromEnv()
	if !cfg.AuditLogEnabled {
		t.Fatal("audit log should be enabled")
	}
	if cfg.LoginFailureLimit != 7 {
		t.Fatalf("unexpected failure limit: %d", cfg.LoginFailureLimit)
	}
	if cfg.LockoutCooloff != 30*time.Minute {
		t.Fatalf("unexpected cooloff: %s", cfg.LockoutCooloff)
	}
	if len(cfg.SupportedLanguages) != 3 || cfg.SupportedLanguages[1] != "fr" {
		t.Fatalf("unexpected languages: %v", cfg.SupportedLanguages)
	}
	if !cfg.SupportsLanguage("FR") || cfg.SupportsLanguage("es") {
		t.Fatal("language support lookup broken")
	}
}

func TestFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("ACCOUNTS_LOGIN_FAILURE_LIMIT", "-1")
	t.Setenv("ACCOUNTS_LOCKOUT_COOLOFF", "soon")

	cfg := FromEnv()
	if cfg.LoginFailureLimit != DefaultLoginFailureLimit {
		t.Fatalf("negative limit should fall back: %d", cfg.LoginFailureLimit)
	}
	if cfg.LockoutCooloff != DefaultLockoutCooloff {
		t.Fatalf("unparseable cooloff should fall back: %s", cfg.LockoutCooloff)
	}
}
