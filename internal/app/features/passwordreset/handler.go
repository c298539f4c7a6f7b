// internal/app/features/passwordreset/handler.go
package passwordreset

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	uierrors "github.com/dalemusser/positivevibes/internal/app/features/errors"
	resetstore "github.com/dalemusser/positivevibes/internal/app/store/passwordreset"
	userstore "github.com/dalemusser/positivevibes/internal/app/store/users"
	"github.com/dalemusser/positivevibes/internal/app/system/auditlog"
	"github.com/dalemusser/positivevibes/internal/app/system/authutil"
	"github.com/dalemusser/positivevibes/internal/app/system/formutil"
	"github.com/dalemusser/positivevibes/internal/app/system/mailer"
	"github.com/dalemusser/positivevibes/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	MsgEmailRequired   = "Email address is required."
	MsgResetLinkSent   = "If an account with that email exists, a password reset link has been sent."
	MsgResetFieldsReq  = "Token and new password are required."
	MsgTokenInvalid    = "Password reset token is invalid or has expired."
	MsgPasswordReset   = "Password has been reset successfully."
	MsgResetFailed     = "An error occurred while resetting the password."
	MsgTooManyRequests = "Too many password reset requests. Please try again later."
)

// ResetPage is the static page that consumes the emailed token.
const ResetPage = "/reset-password.html"

// Sender delivers mail. *mailer.Mailer satisfies it.
type Sender interface {
	Enabled() bool
	Send(msg mailer.Email) error
}

type Handler struct {
	Users    *userstore.Store
	Resets   *resetstore.Store
	Mail     Sender
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	BaseURL  string // e.g. "https://positivevibes.example"
	SiteName string
}

func NewHandler(db *mongo.Database, tokenTTL time.Duration, mail Sender, baseURL, siteName string, errLog *uierrors.ErrorLogger, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		Resets:   resetstore.New(db, tokenTTL),
		Mail:     mail,
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: auditLog,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		SiteName: siteName,
	}
}

type forgotRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// HandleForgot handles POST /api/auth/forgot-password. Apart from a missing
// email, the response never reveals whether the account exists or whether
// the mail went out.
func (h *Handler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var in forgotRequest
	_ = formutil.Decode(w, r, &in)
	email := strings.TrimSpace(in.Email)
	if email == "" {
		uierrors.WriteMessage(w, http.StatusBadRequest, MsgEmailRequired)
		return
	}

	h.sendResetLink(r, email)
	uierrors.WriteMessage(w, http.StatusOK, MsgResetLinkSent)
}

func (h *Handler) sendResetLink(r *http.Request, email string) {
	if h.Mail == nil || !h.Mail.Enabled() {
		h.Log.Error("password reset requested but mail is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		h.Log.Info("password reset requested for unknown email")
		return
	}
	if err != nil {
		h.ErrLog.Report(r, "forgot-password: find user", err)
		return
	}

	token, err := h.Resets.Create(ctx, u.ID)
	if err != nil {
		h.ErrLog.Report(r, "forgot-password: create token", err)
		return
	}

	msg := mailer.BuildPasswordResetEmail(u.Email, mailer.PasswordResetEmailData{
		SiteName:  h.SiteName,
		ResetLink: h.BaseURL + ResetPage + "?token=" + url.QueryEscape(token),
		ExpiresIn: formatExpiry(h.Resets.Expiry()),
	})
	if err := h.Mail.Send(msg); err != nil {
		h.ErrLog.Report(r, "forgot-password: send mail", err)
		return
	}
	h.AuditLog.PasswordResetRequested(ctx, r, u.ID)
}

// HandleReset handles POST /api/auth/reset-password.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var in resetRequest
	_ = formutil.Decode(w, r, &in)
	token := strings.TrimSpace(in.Token)
	if token == "" || in.Password == "" {
		uierrors.WriteMessage(w, http.StatusBadRequest, MsgResetFieldsReq)
		return
	}
	if err := authutil.ValidatePassword(in.Password); err != nil {
		uierrors.WriteMessage(w, http.StatusBadRequest, authutil.Message(err))
		return
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reset-password: hash", err, MsgResetFailed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	// Consume first so a token can never be used twice.
	rec, err := h.Resets.Consume(ctx, token)
	if errors.Is(err, resetstore.ErrNotFound) {
		uierrors.WriteMessage(w, http.StatusBadRequest, MsgTokenInvalid)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reset-password: consume token", err, MsgResetFailed)
		return
	}

	err = h.Users.UpdatePassword(ctx, rec.UserID, hash)
	if errors.Is(err, userstore.ErrNotFound) {
		uierrors.WriteMessage(w, http.StatusBadRequest, MsgTokenInvalid)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "reset-password: update password", err, MsgResetFailed)
		return
	}

	h.AuditLog.PasswordResetCompleted(ctx, r, rec.UserID)
	uierrors.WriteMessage(w, http.StatusOK, MsgPasswordReset)
}

// formatExpiry renders d for the email body, e.g. "1 hour" or "30 minutes".
func formatExpiry(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 60 {
		if minutes == 1 {
			return "1 minute"
		}
		return strconv.Itoa(minutes) + " minutes"
	}
	hours := minutes / 60
	if hours == 1 {
		return "1 hour"
	}
	return strconv.Itoa(hours) + " hours"
}
