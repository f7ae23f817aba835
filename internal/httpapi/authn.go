package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"accountsplus.org/internal/accounts"
	"accountsplus.org/internal/language"
	"accountsplus.org/internal/session"
	"accountsplus.org/internal/timezone"
)

var publicPaths = []string{
	"/",
	"/login/",
	"/locked/",
	"/password_reset/",
	"/password_reset/confirm/",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
}

type currentUserKey struct{}

func contextWithUser(ctx context.Context, u *accounts.User) context.Context {
	return context.WithValue(ctx, currentUserKey{}, u)
}

func userFromContext(ctx context.Context) (*accounts.User, bool) {
	u, ok := ctx.Value(currentUserKey{}).(*accounts.User)
	return u, ok && u != nil
}

// withSession resolves the session cookie and attaches the session, the
// current user and the rendering timezone and language to the request
// context. Requests
// without a valid session are redirected to the login page unless the path is
// public. The attached user is always the session's effective identity; while
// masquerading that is the target, never the impersonator.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := a.sessionFromRequest(r)
		if sess == nil {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, "/login/", http.StatusFound)
			return
		}

		ctx := session.ContextWith(r.Context(), sess)
		user, err := a.users.Find(ctx, sess.UserID)
		if err != nil {
			if errors.Is(err, accounts.ErrNotFound) {
				// Stale cookie for a removed account.
				a.clearSessionCookie(w)
				http.Redirect(w, r, "/login/", http.StatusFound)
				return
			}
			writeError(w, r, http.StatusInternalServerError, "session lookup failed")
			return
		}
		if !user.IsActive {
			a.clearSessionCookie(w)
			http.Redirect(w, r, "/login/", http.StatusFound)
			return
		}

		ctx = contextWithUser(ctx, user)
		ctx = timezone.ContextWith(ctx, timezone.Resolve(user.Timezone, a.cfg.DefaultTimezone))
		lang := language.Resolve(user.Language, a.cfg.SupportedLanguages, a.cfg.DefaultLanguage)
		ctx = language.ContextWith(ctx, lang)
		w.Header().Set("Content-Language", lang)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) sessionFromRequest(r *http.Request) *session.Session {
	cookie, err := r.Cookie(a.cfg.SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	sess, err := a.sessions.Find(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	if !sess.Authenticated() {
		return nil
	}
	return sess
}

func (a *API) setSessionCookie(w http.ResponseWriter, sess *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return strings.HasPrefix(path, "/assets/")
}
