// internal/app/features/contact/handler.go
package contact

import (
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/positivevibes/internal/app/features/errors"
	"github.com/dalemusser/positivevibes/internal/app/system/auth"
	"github.com/dalemusser/positivevibes/internal/app/system/formutil"
	"github.com/dalemusser/positivevibes/internal/app/system/limits"
	"github.com/dalemusser/positivevibes/internal/app/system/mailer"
	"go.uber.org/zap"
)

const (
	MsgEmptyMessage    = "Message content cannot be empty."
	MsgMessageTooLong  = "Message is too long."
	MsgMailUnavailable = "Message received, but server email configuration is incomplete."
	MsgSent            = "Message sent successfully! Thank you."
	MsgSendFailed      = "Failed to send message due to a server error. Please try again later."
	MsgTooManyMessages = "Too many messages. Please try again later."
)

// Sender delivers mail. *mailer.Mailer satisfies it.
type Sender interface {
	Enabled() bool
	Send(msg mailer.Email) error
}

type Handler struct {
	Mail     Sender
	To       string // inbox that receives contact messages
	SiteName string
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(mail Sender, to, siteName string, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Mail:     mail,
		To:       to,
		SiteName: siteName,
		ErrLog:   errLog,
		Log:      logger,
	}
}

type contactRequest struct {
	Message string `json:"message"`
}

// HandleContact handles POST /api/contact. Signed-in senders are identified
// by their session; everyone else is anonymous.
func (h *Handler) HandleContact(w http.ResponseWriter, r *http.Request) {
	var in contactRequest
	_ = formutil.Decode(w, r, &in)
	message := strings.TrimSpace(in.Message)
	if message == "" {
		uierrors.WriteMessage(w, http.StatusBadRequest, MsgEmptyMessage)
		return
	}
	if len(message) > limits.MaxContactMessageLen {
		uierrors.WriteMessage(w, http.StatusBadRequest, MsgMessageTooLong)
		return
	}

	if h.Mail == nil || !h.Mail.Enabled() || h.To == "" {
		h.Log.Error("contact message received but mail is not configured")
		uierrors.WriteMessage(w, http.StatusInternalServerError, MsgMailUnavailable)
		return
	}

	data := mailer.ContactEmailData{SiteName: h.SiteName, Message: message}
	if u, ok := auth.CurrentUser(r); ok {
		data.SenderEmail = u.Email
	}

	if err := h.Mail.Send(mailer.BuildContactEmail(h.To, data)); err != nil {
		h.ErrLog.LogServerError(w, r, "contact: send mail", err, MsgSendFailed)
		return
	}

	h.Log.Info("contact message sent", zap.Bool("anonymous", data.SenderEmail == ""))
	uierrors.WriteMessage(w, http.StatusOK, MsgSent)
}
