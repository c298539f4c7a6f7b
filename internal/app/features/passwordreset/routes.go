// internal/app/features/passwordreset/routes.go
package passwordreset

import (
	"github.com/dalemusser/positivevibes/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// ForgotRoutes serves POST /api/auth/forgot-password. Requests are throttled
// per client IP when limiter is non-nil, since each one may send mail.
func ForgotRoutes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	if limiter != nil {
		r.Use(ratelimit.Middleware(limiter, MsgTooManyRequests))
	}
	r.Post("/", h.HandleForgot)
	return r
}

// ResetRoutes serves POST /api/auth/reset-password.
func ResetRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleReset)
	return r
}
