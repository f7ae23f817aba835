// Package httpapi is the HTTP surface: sign-in and the password lifecycle,
// the masquerade protocol endpoints under /admin/masquerade/, and the staff
// account administration endpoints.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"accountsplus.org/internal/accounts"
	"accountsplus.org/internal/admin"
	"accountsplus.org/internal/audit"
	"accountsplus.org/internal/auth"
	"accountsplus.org/internal/config"
	"accountsplus.org/internal/masquerade"
	"accountsplus.org/internal/obs"
	"accountsplus.org/internal/session"
)

// ReadyProbe reports backing-store readiness (DB ping when one is wired).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API owns the mux and the services behind it.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string
	cfg        config.Config

	users      accounts.UserStore
	sessions   session.Store
	auditStore audit.Store
	auth       *auth.Service
	masq       *masquerade.Service
	admin      *admin.Service
}

func New(cfg config.Config, rp ReadyProbe, version string,
	users accounts.UserStore, sessions session.Store, auditStore audit.Store,
	authSvc *auth.Service, masqSvc *masquerade.Service, adminSvc *admin.Service) *API {

	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		cfg:        cfg,
		users:      users,
		sessions:   sessions,
		auditStore: auditStore,
		auth:       authSvc,
		masq:       masqSvc,
		admin:      adminSvc,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth and password lifecycle
	a.mux.HandleFunc("/login/", a.handleLogin)
	a.mux.HandleFunc("/logout/", a.handleLogout)
	a.mux.HandleFunc("/locked/", a.handleLocked)
	a.mux.HandleFunc("/password_change/", a.handlePasswordChange)
	a.mux.HandleFunc("/password_reset/", a.handlePasswordReset)
	a.mux.HandleFunc("/password_reset/confirm/", a.handlePasswordResetConfirm)

	// masquerade protocol; end/ must be registered explicitly because the
	// user-id route is a prefix match
	a.mux.HandleFunc("/admin/masquerade/end/", a.handleMasqueradeEnd)
	a.mux.HandleFunc("/admin/masquerade/", a.handleMasqueradeStart)

	// staff administration
	a.mux.HandleFunc("/admin/users/reset_passwords/", a.handleBulkPasswordReset)
	a.mux.HandleFunc("/admin/users/", a.handleUsers)
	a.mux.HandleFunc("/admin/companies/", a.handleCompanies)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withSession(h)
	h = SecurityHeaders(h)
	h = MaxBodyBytes(h, 1<<20)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "accounts-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "accounts-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
