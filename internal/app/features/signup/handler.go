// internal/app/features/signup/handler.go
package signup

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/positivevibes/internal/app/features/errors"
	userstore "github.com/dalemusser/positivevibes/internal/app/store/users"
	"github.com/dalemusser/positivevibes/internal/app/system/auditlog"
	"github.com/dalemusser/positivevibes/internal/app/system/authutil"
	"github.com/dalemusser/positivevibes/internal/app/system/formutil"
	"github.com/dalemusser/positivevibes/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	MsgInvalidSignup = "Valid email and password (min 6 chars) required"
	MsgEmailTaken    = "Email already registered"
	MsgSignupFailed  = "Server error during signup"
	MsgSignedUp      = "Signup successful! Please log in."
)

type Handler struct {
	Users    *userstore.Store
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: auditLog,
	}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Location string `json:"location"`
}

// HandleSignup handles POST /api/auth/signup. The new account starts with an
// empty streak and is not signed in.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var in signupRequest
	if err := formutil.Decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "signup: bad body", err, MsgInvalidSignup)
		return
	}
	if err := authutil.ValidateCredentials(in.Email, in.Password); err != nil {
		uierrors.WriteMessage(w, http.StatusBadRequest, MsgInvalidSignup)
		return
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "signup: hash password", err, MsgSignupFailed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Create(ctx, in.Email, hash, in.Location)
	switch {
	case errors.Is(err, userstore.ErrDuplicateEmail):
		uierrors.WriteMessage(w, http.StatusConflict, MsgEmailTaken)
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "signup: create user", err, MsgSignupFailed)
		return
	}

	h.AuditLog.Signup(ctx, r, u.ID, u.Email)
	h.Log.Info("user signed up", zap.String("user_id", u.ID.Hex()))

	uierrors.WriteMessage(w, http.StatusCreated, MsgSignedUp)
}
