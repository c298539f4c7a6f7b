// internal/app/features/signup/routes.go
package signup

import (
	"github.com/dalemusser/positivevibes/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// MsgTooManySignups is returned when one address signs up too often.
const MsgTooManySignups = "Too many signup attempts. Please try again later."

// Routes serves POST /api/auth/signup, throttled per client IP when limiter
// is non-nil.
func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	if limiter != nil {
		r.Use(ratelimit.Middleware(limiter, MsgTooManySignups))
	}
	r.Post("/", h.HandleSignup)
	return r
}
