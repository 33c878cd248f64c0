// internal/app/features/login/handler.go
//
// Package login signs a user in by email alone. Authentication proper is
// delegated to whatever sits in front of the registry, so this route is only
// mounted when dev_login is enabled.
package login

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/mdregistry/internal/app/system/auth"
	"github.com/dalemusser/mdregistry/internal/app/system/normalize"
	"github.com/dalemusser/mdregistry/internal/app/system/ratelimit"
	"github.com/dalemusser/mdregistry/internal/app/system/timeouts"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

// UserLookup finds an account by its email address.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

type Handler struct {
	Users      UserLookup
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.SignInLimiter
	Log        *zap.Logger
}

func NewHandler(users UserLookup, sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      users,
		SessionMgr: sessionMgr,
		Limiter:    ratelimit.NewSignInLimiter(),
		Log:        logger,
	}
}

// HandleLoginPost handles POST /login (form: email, return).
// On success it redirects to a same-site "return" path, or answers 204.
func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad form")
		return
	}
	email := normalize.Email(r.PostForm.Get("email"))
	if email == "" {
		writeJSONError(w, http.StatusBadRequest, "email is required")
		return
	}
	if ok, reason := h.Limiter.Check(r, email); !ok {
		h.Log.Warn("sign-in rate limited", zap.String("ip", ratelimit.ClientIP(r)))
		writeJSONError(w, http.StatusTooManyRequests, reason)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeJSONError(w, http.StatusUnauthorized, "unknown account")
		return
	case err != nil:
		h.Log.Error("sign-in lookup failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if u.Status == models.UserStatusDisabled {
		writeJSONError(w, http.StatusUnauthorized, "account disabled")
		return
	}

	if err := h.SessionMgr.SignIn(w, r, &auth.SessionUser{
		ID:           u.ID.Hex(),
		Name:         u.FullName,
		Email:        u.Email,
		Capabilities: u.Capabilities,
	}); err != nil {
		h.Log.Error("sign-in: save session", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.Limiter.ResetEmail(email)
	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()))

	if ret := r.PostForm.Get("return"); ret != "" {
		http.Redirect(w, r, urlutil.SafeReturn(ret, "", "/"), http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
