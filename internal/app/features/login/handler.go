// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/positivevibes/internal/app/features/errors"
	userstore "github.com/dalemusser/positivevibes/internal/app/store/users"
	"github.com/dalemusser/positivevibes/internal/app/system/auditlog"
	"github.com/dalemusser/positivevibes/internal/app/system/auth"
	"github.com/dalemusser/positivevibes/internal/app/system/authutil"
	"github.com/dalemusser/positivevibes/internal/app/system/formutil"
	"github.com/dalemusser/positivevibes/internal/app/system/normalize"
	"github.com/dalemusser/positivevibes/internal/app/system/ratelimit"
	"github.com/dalemusser/positivevibes/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	MsgMissingCredentials = "Email and password required"
	MsgInvalidCredentials = "Invalid email or password"
	MsgLoginFailed        = "Server error during login"
	MsgLoginSuccessful    = "Login successful"
)

type Handler struct {
	Users      *userstore.Store
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger        // optional
	Limiter    *ratelimit.LoginLimiter // optional
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, limiter *ratelimit.LoginLimiter, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      userstore.New(db),
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		AuditLog:   auditLog,
		Limiter:    limiter,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginUser struct {
	Email string `json:"email"`
}

type loginResponse struct {
	Message string    `json:"message"`
	User    loginUser `json:"user"`
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := formutil.Decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "login: bad body", err, MsgMissingCredentials)
		return
	}
	email := normalize.Email(in.Email)
	if email == "" || in.Password == "" {
		uierrors.WriteMessage(w, http.StatusBadRequest, MsgMissingCredentials)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	/*── throttle before touching the database ─────────────────────────────*/

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, email); !ok {
			h.AuditLog.LoginFailedRateLimit(ctx, r, email)
			uierrors.WriteMessage(w, http.StatusTooManyRequests, reason)
			return
		}
	}

	u, err := h.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		h.AuditLog.LoginFailedUserNotFound(ctx, r, email)
		uierrors.WriteMessage(w, http.StatusUnauthorized, MsgInvalidCredentials)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "login: find user", err, MsgLoginFailed)
		return
	}

	if !authutil.CheckPassword(u.PasswordHash, in.Password) {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, u.ID, email)
		uierrors.WriteMessage(w, http.StatusUnauthorized, MsgInvalidCredentials)
		return
	}

	/*── new session ID on every login ─────────────────────────────────────*/

	if err := h.SessionMgr.Login(w, r, auth.SessionUser{ID: u.ID.Hex(), Email: u.Email}); err != nil {
		h.ErrLog.LogServerError(w, r, "login: save session", err, MsgLoginFailed)
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.Email)
	h.Log.Info("user logged in", zap.String("user_id", u.ID.Hex()))

	uierrors.WriteJSON(w, http.StatusOK, loginResponse{
		Message: MsgLoginSuccessful,
		User:    loginUser{Email: u.Email},
	})
}
