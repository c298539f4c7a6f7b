// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// MsgServerError is the generic body for unexpected failures.
const MsgServerError = "An internal server error occurred."

// MsgAPINotFound is returned for any unmatched /api path.
const MsgAPINotFound = "API endpoint not found"

// messageBody is the JSON shape of every error response.
type messageBody struct {
	Message string `json:"message"`
}

// WriteJSON writes v as a JSON response with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteMessage writes {"message": msg} with status.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, messageBody{Message: msg})
}

// ErrorLogger logs handler failures and writes the JSON error response.
// Server errors are also reported to Sentry when it is initialized.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

func (e *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	return fields
}

// LogServerError logs msg and err at error level, reports err to Sentry,
// and responds 500 with userMsg (or a generic message when empty).
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.log.Error(msg, e.fields(r, err)...)
	capture(r, err)

	if userMsg == "" {
		userMsg = MsgServerError
	}
	WriteMessage(w, http.StatusInternalServerError, userMsg)
}

// LogBadRequest logs at warn level and responds 400 with userMsg.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.log.Warn(msg, e.fields(r, err)...)
	WriteMessage(w, http.StatusBadRequest, userMsg)
}

// Report logs and captures err without writing a response, for failures the
// handler recovers from.
func (e *ErrorLogger) Report(r *http.Request, msg string, err error) {
	e.log.Warn(msg, e.fields(r, err)...)
	capture(r, err)
}

func capture(r *http.Request, err error) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(r.Context())
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(r)
		hub.CaptureException(err)
	})
}

// APINotFound answers unmatched /api requests with a JSON 404.
func APINotFound(w http.ResponseWriter, r *http.Request) {
	WriteMessage(w, http.StatusNotFound, MsgAPINotFound)
}
