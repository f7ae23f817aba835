package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"accountsplus.org/internal/accounts"
	"accountsplus.org/internal/auth"
	"accountsplus.org/internal/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type passwordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	sess, err := a.auth.SignIn(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrLockedOut):
		http.Redirect(w, r, a.cfg.LockoutURL, http.StatusSeeOther)
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, "sign-in failed")
		return
	}

	a.setSessionCookie(w, sess)
	http.Redirect(w, r, "/admin/", http.StatusSeeOther)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
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

	redirect, err := a.auth.SignOut(r.Context(), sess)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "sign-out failed")
		return
	}
	if redirect == "/login/" {
		a.clearSessionCookie(w)
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (a *API) handleLocked(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusForbidden, map[string]any{
		"error":    "account locked",
		"detail":   "too many failed sign-in attempts, try again later",
		"template": a.cfg.LockoutTemplate,
	})
}

func (a *API) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login/", http.StatusFound)
		return
	}
	var req passwordChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	err := a.auth.ChangePassword(r.Context(), sess, req.CurrentPassword, req.NewPassword)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusForbidden, "current password is incorrect")
		return
	case errors.Is(err, accounts.ErrWeakPassword):
		writeError(w, r, http.StatusBadRequest, accounts.PasswordPolicy{}.Requirement())
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, "password change failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *API) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req passwordResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, r, http.StatusBadRequest, "email is required")
		return
	}

	// The response does not reveal whether the address exists; the token
	// travels out of band.
	if _, err := a.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, http.StatusInternalServerError, "password reset failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *API) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req passwordResetConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	err := a.auth.ResetPassword(r.Context(), req.Token, req.NewPassword)
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusBadRequest, "invalid or expired reset token")
		return
	case errors.Is(err, accounts.ErrWeakPassword):
		writeError(w, r, http.StatusBadRequest, accounts.PasswordPolicy{}.Requirement())
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, "password reset failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
