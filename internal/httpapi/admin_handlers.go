package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"accountsplus.org/internal/accounts"
	"accountsplus.org/internal/admin"
	"accountsplus.org/internal/session"
	"accountsplus.org/internal/timezone"
)

type createUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	CompanyID string `json:"company_id"`
	Timezone  string `json:"timezone"`
	Language  string `json:"language"`
	Password  string `json:"password"`
}

type changeEmailRequest struct {
	Email string `json:"email"`
}

type renameCompanyRequest struct {
	Name string `json:"name"`
}

type bulkResetRequest struct {
	UserIDs []string `json:"user_ids"`
}

// handleUsers routes /admin/users/ and its sub-resources:
//
//	POST /admin/users/                      create
//	GET  /admin/users/?company_id=...       list
//	POST /admin/users/<id>/activate/
//	POST /admin/users/<id>/deactivate/
//	POST /admin/users/<id>/email/
//	GET  /admin/users/<id>/audit/
func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/admin/users/")
	if rest == "" {
		switch r.Method {
		case http.MethodPost:
			a.createUser(w, r)
		case http.MethodGet:
			a.listUsers(w, r)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
		return
	}

	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	userID, action := parts[0], parts[1]

	switch action {
	case "activate":
		a.setUserActive(w, r, userID, true)
	case "deactivate":
		a.setUserActive(w, r, userID, false)
	case "email":
		a.changeUserEmail(w, r, userID)
	case "audit":
		a.listUserAudit(w, r, userID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// handleCompanies routes POST /admin/companies/<id>/name/.
func (a *API) handleCompanies(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/companies/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "name" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, sess, ok := a.actor(w, r)
	if !ok {
		return
	}
	var req renameCompanyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.admin.RenameCompany(r.Context(), actor, sess, parts[0], req.Name); err != nil {
		a.adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	actor, sess, ok := a.actor(w, r)
	if !ok {
		return
	}
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, r, http.StatusBadRequest, "email is required")
		return
	}
	if req.Language != "" && !a.cfg.SupportsLanguage(req.Language) {
		writeError(w, r, http.StatusBadRequest, "unsupported language")
		return
	}

	user := &accounts.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		CompanyID: req.CompanyID,
		Timezone:  req.Timezone,
		Language:  req.Language,
	}
	if user.Language == "" {
		user.Language = a.cfg.DefaultLanguage
	}
	if err := a.admin.CreateUser(r.Context(), actor, sess, user, req.Password); err != nil {
		a.adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := a.actor(w, r)
	if !ok {
		return
	}
	if err := a.admin.Authorize(r.Context(), actor); err != nil {
		a.adminError(w, r, err)
		return
	}
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		companyID = actor.CompanyID
	}
	users, err := a.users.ListByCompany(r.Context(), companyID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "list failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": users})
}

func (a *API) setUserActive(w http.ResponseWriter, r *http.Request, userID string, active bool) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, sess, ok := a.actor(w, r)
	if !ok {
		return
	}
	var err error
	if active {
		err = a.admin.Activate(r.Context(), actor, sess, userID)
	} else {
		err = a.admin.Deactivate(r.Context(), actor, sess, userID)
	}
	if err != nil {
		a.adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *API) changeUserEmail(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, sess, ok := a.actor(w, r)
	if !ok {
		return
	}
	var req changeEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.admin.ChangeEmail(r.Context(), actor, sess, userID, req.Email); err != nil {
		a.adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *API) listUserAudit(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor, _, ok := a.actor(w, r)
	if !ok {
		return
	}
	if err := a.admin.Authorize(r.Context(), actor); err != nil {
		a.adminError(w, r, err)
		return
	}
	records, err := a.auditStore.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "audit list failed")
		return
	}
	loc := timezone.FromContext(r.Context())
	for i := range records {
		records[i].RecordedAt = records[i].RecordedAt.In(loc)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": records})
}

func (a *API) handleBulkPasswordReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, _, ok := a.actor(w, r)
	if !ok {
		return
	}
	if err := a.admin.Authorize(r.Context(), actor); err != nil {
		a.adminError(w, r, err)
		return
	}
	var req bulkResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.UserIDs) == 0 {
		writeError(w, r, http.StatusBadRequest, "user_ids is required")
		return
	}
	sent, err := a.auth.BulkRequestPasswordReset(r.Context(), req.UserIDs)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "bulk reset failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sent": sent})
}

// actor pulls the signed-in user and session placed by withSession.
func (a *API) actor(w http.ResponseWriter, r *http.Request) (*accounts.User, *session.Session, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login/", http.StatusFound)
		return nil, nil, false
	}
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "no user on request")
		return nil, nil, false
	}
	return user, sess, true
}

func (a *API) adminError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, admin.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, accounts.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, accounts.ErrConflict):
		writeError(w, r, http.StatusConflict, "conflict")
	case errors.Is(err, accounts.ErrWeakPassword):
		writeError(w, r, http.StatusBadRequest, accounts.PasswordPolicy{}.Requirement())
	case errors.Is(err, accounts.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
