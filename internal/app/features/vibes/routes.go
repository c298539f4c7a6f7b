// internal/app/features/vibes/routes.go
package vibes

import (
	"github.com/dalemusser/positivevibes/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves /api/vibes. Submitting requires a signed-in user.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Post("/", h.SubmitVibe)
	return r
}
