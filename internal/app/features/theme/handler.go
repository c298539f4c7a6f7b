// internal/app/features/theme/handler.go
package theme

import (
	"context"
	"errors"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/positivevibes/internal/app/features/errors"
	themestore "github.com/dalemusser/positivevibes/internal/app/store/themes"
	"github.com/dalemusser/positivevibes/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const MsgThemeFailed = "Server error fetching theme"

// Fallback is served with a 404 until the first theme is set.
var Fallback = Response{
	Theme: "Stay Tuned!",
	Suggestions: []string{
		"A new theme is coming soon.",
		"Keep spreading positive vibes!",
		"Check back next week.",
	},
}

// Response is the body of GET /api/theme/current.
type Response struct {
	Theme       string   `json:"theme"`
	Suggestions []string `json:"suggestions"`
}

type Handler struct {
	Themes *themestore.Store
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
	Now    func() time.Time
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Themes: themestore.New(db),
		ErrLog: errLog,
		Log:    logger,
		Now:    time.Now,
	}
}

// ServeCurrent handles GET /api/theme/current.
func (h *Handler) ServeCurrent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Themes.Current(ctx, h.Now())
	if errors.Is(err, themestore.ErrNotFound) {
		uierrors.WriteJSON(w, http.StatusNotFound, Fallback)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "theme: load current", err, MsgThemeFailed)
		return
	}

	suggestions := t.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	uierrors.WriteJSON(w, http.StatusOK, Response{Theme: t.Theme, Suggestions: suggestions})
}
