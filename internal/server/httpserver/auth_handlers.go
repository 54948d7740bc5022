package httpserver

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/folioguard/internal/common"
	"github.com/dmitrijs2005/folioguard/internal/server/metrics"
	"github.com/dmitrijs2005/folioguard/internal/server/services"
)

type loginRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

type loginResponse struct {
	Success            bool `json:"success"`
	MustChangePassword bool `json:"mustChangePassword"`
}

type changePasswordRequest struct {
	NewPassword *string `json:"newPassword"`
}

type changePasswordResponse struct {
	Success        bool `json:"success"`
	Reauthenticate bool `json:"reauthenticate,omitempty"`
}

type sessionResponse struct {
	Authenticated      bool   `json:"authenticated"`
	MustChangePassword *bool  `json:"mustChangePassword,omitempty"`
	Username           string `json:"username,omitempty"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Username == nil || req.Password == nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	identity, err := h.admins.Authenticate(ctx, *req.Username, *req.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			h.metrics.Login(metrics.OutcomeInvalid)
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.metrics.Login(metrics.OutcomeError)
		h.logger.Error(ctx, "login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to login")
		return
	}

	token, _, err := h.access.Establish(ctx, identity.ID)
	if err != nil {
		h.metrics.Login(metrics.OutcomeError)
		h.logger.Error(ctx, "establish session failed", "error", err, "account_id", identity.ID)
		writeError(w, http.StatusInternalServerError, "Unable to login")
		return
	}

	if old := sessionToken(r); old != "" {
		if err := h.access.Revoke(ctx, old); err != nil {
			h.logger.Warn(ctx, "revoke previous session failed", "error", err)
		}
	}

	h.cookies.set(w, token)
	h.metrics.Login(metrics.OutcomeSuccess)
	h.logger.Info(ctx, "admin logged in", "account_id", identity.ID, "must_change_password", identity.MustChangePassword)

	writeJSON(w, http.StatusOK, loginResponse{Success: true, MustChangePassword: identity.MustChangePassword})
}

func (h *handlers) session(w http.ResponseWriter, r *http.Request) {
	access := AccessFromContext(r.Context())
	if !access.Authenticated() {
		writeJSON(w, http.StatusOK, sessionResponse{Authenticated: false})
		return
	}

	must := access.State == services.StateMustChange
	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated:      true,
		MustChangePassword: &must,
		Username:           access.Identity.Username,
	})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.access.Revoke(ctx, sessionToken(r)); err != nil {
		h.logger.Error(ctx, "revoke session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to logout")
		return
	}
	h.cookies.clear(w)

	if a := AccessFromContext(ctx); a.Authenticated() {
		h.logger.Info(ctx, "admin logged out", "account_id", a.Identity.ID)
	}
	writeJSON(w, http.StatusOK, changePasswordResponse{Success: true})
}

// changePassword replaces the credential of the signed-in admin and swaps
// the session for one bound to the new credential. If that swap fails the
// browser is signed out and told to log in again.
func (h *handlers) changePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	access := AccessFromContext(ctx)

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil || req.NewPassword == nil {
		h.metrics.PasswordChange(metrics.OutcomeRejected)
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters long")
		return
	}

	if err := h.admins.ChangePassword(ctx, access.Identity.ID, *req.NewPassword); err != nil {
		var coded *common.CodedError
		if errors.As(err, &coded) {
			h.metrics.PasswordChange(metrics.OutcomeRejected)
			status := http.StatusUnauthorized
			if coded.Code == common.CodeBadRequest {
				status = http.StatusBadRequest
			}
			writeError(w, status, coded.Message)
			return
		}
		h.metrics.PasswordChange(metrics.OutcomeError)
		h.logger.Error(ctx, "change password failed", "error", err, "account_id", access.Identity.ID)
		writeError(w, http.StatusInternalServerError, "Unable to change password")
		return
	}
	h.metrics.PasswordChange(metrics.OutcomeSuccess)

	if err := h.access.Revoke(ctx, sessionToken(r)); err != nil {
		h.logger.Warn(ctx, "revoke old session failed", "error", err, "account_id", access.Identity.ID)
	}

	token, _, err := h.access.Establish(ctx, access.Identity.ID)
	if err != nil {
		h.logger.Warn(ctx, "re-establish session failed, signing out", "error", err, "account_id", access.Identity.ID)
		h.cookies.clear(w)
		writeJSON(w, http.StatusOK, changePasswordResponse{Success: true, Reauthenticate: true})
		return
	}

	h.cookies.set(w, token)
	h.logger.Info(ctx, "admin password changed", "account_id", access.Identity.ID)
	writeJSON(w, http.StatusOK, changePasswordResponse{Success: true})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	id := AccessFromContext(r.Context()).Identity
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       id.ID,
		"username": id.Username,
		"name":     id.Name,
		"email":    id.Email,
	})
}
