// internal/app/features/contact/routes.go
package contact

import (
	"github.com/dalemusser/positivevibes/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the contact form endpoint. limiter may be nil.
func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	if limiter != nil {
		r.Use(ratelimit.Middleware(limiter, MsgTooManyMessages))
	}
	r.Post("/", h.HandleContact)
	return r
}
