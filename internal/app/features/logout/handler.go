// internal/app/features/logout/handler.go
package logout

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/positivevibes/internal/app/features/errors"
	"github.com/dalemusser/positivevibes/internal/app/system/auditlog"
	"github.com/dalemusser/positivevibes/internal/app/system/auth"
	"github.com/dalemusser/positivevibes/internal/app/system/timeouts"
	"go.uber.org/zap"
)

const (
	MsgLoggedOut          = "Logged out"
	MsgLoggedOutNoSession = "Logged out (no session)"
	MsgLogoutFailed       = "Error logging out"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		AuditLog:   auditLog,
	}
}

// HandleLogout handles POST /api/auth/logout. It succeeds whether or not a
// session exists.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	u, signedIn := auth.CurrentUser(r)
	if !signedIn {
		uierrors.WriteMessage(w, http.StatusOK, MsgLoggedOutNoSession)
		return
	}

	if err := h.SessionMgr.Destroy(w, r); err != nil {
		h.ErrLog.LogServerError(w, r, "logout: destroy session", err, MsgLogoutFailed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	h.AuditLog.Logout(ctx, r, u.ID)

	uierrors.WriteMessage(w, http.StatusOK, MsgLoggedOut)
}
