package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults mirror the historical deployment values.
const (
	DefaultAddr               = ":8080"
	DefaultSessionCookie      = "accounts_session"
	DefaultLoginFailureLimit  = 3
	DefaultLockoutCooloff     = 15 * time.Minute
	DefaultLockoutURL         = "/locked/"
	DefaultLockoutTemplate    = "accounts/locked_out.html"
	DefaultTimezone           = "America/New_York"
	DefaultLanguage           = "en"
	DefaultResetTokenLifetime = time.Hour
)

// Config captures the recognized runtime options. Everything is read from the
// environment so main stays lean.
type Config struct {
	Addr  string
	PGDSN string

	SessionCookie string

	// AuditLogEnabled gates every audit write; when false all triggers are
	// silent no-ops.
	AuditLogEnabled bool

	LoginFailureLimit int
	LockoutCooloff    time.Duration
	LockoutURL        string
	LockoutTemplate   string

	DefaultTimezone    string
	DefaultLanguage    string
	SupportedLanguages []string

	ResetTokenSecret   string
	ResetTokenLifetime time.Duration
}

// FromEnv builds a Config from ACCOUNTS_* environment variables, falling back
// to defaults for anything unset.
func FromEnv() Config {
	cfg := Config{
		Addr:               envOr("ACCOUNTS_ADDR", DefaultAddr),
		PGDSN:              os.Getenv("ACCOUNTS_PG_DSN"),
		SessionCookie:      envOr("ACCOUNTS_SESSION_COOKIE", DefaultSessionCookie),
		AuditLogEnabled:    envBool("ACCOUNTS_ENABLE_AUDIT_LOG", false),
		LoginFailureLimit:  envInt("ACCOUNTS_LOGIN_FAILURE_LIMIT", DefaultLoginFailureLimit),
		LockoutCooloff:     envDuration("ACCOUNTS_LOCKOUT_COOLOFF", DefaultLockoutCooloff),
		LockoutURL:         envOr("ACCOUNTS_LOCKOUT_URL", DefaultLockoutURL),
		LockoutTemplate:    envOr("ACCOUNTS_LOCKOUT_TEMPLATE", DefaultLockoutTemplate),
		DefaultTimezone:    envOr("ACCOUNTS_DEFAULT_TIMEZONE", DefaultTimezone),
		DefaultLanguage:    envOr("ACCOUNTS_DEFAULT_LANGUAGE", DefaultLanguage),
		SupportedLanguages: envList("ACCOUNTS_LANGUAGES", []string{DefaultLanguage}),
		ResetTokenSecret:   os.Getenv("ACCOUNTS_RESET_TOKEN_SECRET"),
		ResetTokenLifetime: envDuration("ACCOUNTS_RESET_TOKEN_TTL", DefaultResetTokenLifetime),
	}
	return cfg
}

// SupportsLanguage reports whether code is one of the configured display
// languages.
func (c Config) SupportsLanguage(code string) bool {
	code = strings.TrimSpace(strings.ToLower(code))
	if code == "" {
		return false
	}
	for _, lang := range c.SupportedLanguages {
		if strings.EqualFold(lang, code) {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
