package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"accountsplus.org/internal/masquerade"
	"accountsplus.org/internal/session"
)

// handleMasqueradeStart serves /admin/masquerade/<user_id>/. The target id
// lives in the path; the Referer header decides where a rejection or a later
// end lands.
func (a *API) handleMasqueradeStart(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodPost:
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		return
	}

	targetID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/masquerade/"), "/")
	if strings.Contains(targetID, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login/", http.StatusFound)
		return
	}

	redirect, err := a.masq.Begin(r.Context(), sess, targetID, refererPath(r))
	if err != nil {
		if errors.Is(err, masquerade.ErrNotAuthenticated) {
			http.Redirect(w, r, "/login/", http.StatusFound)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "masquerade failed")
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (a *API) handleMasqueradeEnd(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodPost:
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		return
	}

	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login/", http.StatusFound)
		return
	}

	redirect, err := a.masq.End(r.Context(), sess)
	if err != nil {
		if errors.Is(err, masquerade.ErrNotAuthenticated) {
			http.Redirect(w, r, "/login/", http.StatusFound)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "masquerade end failed")
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

// refererPath keeps same-site referers only; anything else falls back to the
// default return page inside the service.
func refererPath(r *http.Request) string {
	ref := r.Header.Get("Referer")
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "/") {
		return ref
	}
	for _, scheme := range []string{"http://", "https://"} {
		if strings.HasPrefix(ref, scheme) {
			rest := strings.TrimPrefix(ref, scheme)
			if idx := strings.Index(rest, "/"); idx >= 0 && strings.HasPrefix(rest, r.Host) {
				return rest[idx:]
			}
			return ""
		}
	}
	return ""
}
