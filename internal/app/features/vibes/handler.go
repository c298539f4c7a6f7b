// internal/app/features/vibes/handler.go
package vibes

import (
	"context"
	"errors"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/positivevibes/internal/app/features/errors"
	"github.com/dalemusser/positivevibes/internal/app/system/auth"
	"github.com/dalemusser/positivevibes/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// User-facing messages.
const (
	MsgAlreadySubmitted = "You've already spread your vibe this week!"
	MsgSubmitFailed     = "Server error recording vibe"
	MsgStatusFailed     = "Error fetching status"
	MsgStatsFailed      = "Server error fetching stats"
	MsgMapDataFailed    = "Server error fetching map data"
)

type Handler struct {
	Svc        *Service
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger

	// Now is the clock; tests replace it.
	Now func() time.Time
}

func NewHandler(svc *Service, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:        svc,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		Log:        logger,
		Now:        time.Now,
	}
}

type submitResponse struct {
	Message                string    `json:"message"`
	NextAvailableTimestamp time.Time `json:"nextAvailableTimestamp"`
}

type statusFailure struct {
	LoggedIn bool   `json:"loggedIn"`
	Message  string `json:"message,omitempty"`
}

// sessionUserID resolves the signed-in user. A session holding an unusable
// ID is destroyed.
func (h *Handler) sessionUserID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		h.Log.Warn("invalid user id in session", zap.String("user_id", u.ID))
		h.destroySession(w, r)
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *Handler) destroySession(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.Destroy(w, r); err != nil {
		h.Log.Warn("failed to destroy session", zap.Error(err))
	}
}

// SubmitVibe handles POST /api/vibes.
func (h *Handler) SubmitVibe(w http.ResponseWriter, r *http.Request) {
	// A missing or unusable session leaves userID zero; Submit rejects it.
	userID, _ := h.sessionUserID(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Svc.Submit(ctx, userID, h.Now())
	var already *AlreadySubmittedError
	switch {
	case err == nil:
		uierrors.WriteJSON(w, http.StatusCreated, submitResponse{
			Message:                res.Message,
			NextAvailableTimestamp: res.NextAvailable,
		})
	case errors.As(err, &already):
		h.Log.Info("vibe already submitted this week",
			zap.String("user_id", userID.Hex()),
			zap.Time("next_available", already.NextAvailable))
		uierrors.WriteJSON(w, http.StatusTooManyRequests, submitResponse{
			Message:                MsgAlreadySubmitted,
			NextAvailableTimestamp: already.NextAvailable,
		})
	case errors.Is(err, ErrUnauthenticated):
		auth.WriteUnauthorized(w)
	case errors.Is(err, ErrNotFound):
		h.Log.Warn("session user no longer exists", zap.String("user_id", userID.Hex()))
		h.Svc.Metrics.VibeRejected("unauthenticated")
		h.destroySession(w, r)
		auth.WriteUnauthorized(w)
	default:
		h.ErrLog.LogServerError(w, r, "vibe submission failed", err, MsgSubmitFailed)
	}
}

// ServeStatus handles GET /api/auth/status. Anonymous callers and sessions
// whose user has vanished get {"loggedIn": false}.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.sessionUserID(w, r)
	if !ok {
		uierrors.WriteJSON(w, http.StatusOK, statusFailure{LoggedIn: false})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	st, err := h.Svc.Status(ctx, userID, h.Now())
	switch {
	case err == nil:
		uierrors.WriteJSON(w, http.StatusOK, st)
	case errors.Is(err, ErrNotFound):
		h.Log.Warn("session user no longer exists; destroying session", zap.String("user_id", userID.Hex()))
		h.destroySession(w, r)
		uierrors.WriteJSON(w, http.StatusOK, statusFailure{LoggedIn: false})
	default:
		h.ErrLog.Report(r, "status query failed", err)
		uierrors.WriteJSON(w, http.StatusInternalServerError, statusFailure{LoggedIn: false, Message: MsgStatusFailed})
	}
}

// ServeStats handles GET /api/stats.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	stats, err := h.Svc.Stats(ctx, h.Now())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "stats query failed", err, MsgStatsFailed)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, stats)
}

// ServeMapData handles GET /api/map-data.
func (h *Handler) ServeMapData(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rows, err := h.Svc.MapData(ctx, h.Now())
	if err != nil {
		h.ErrLog.LogServerError(w, r, "map data query failed", err, MsgMapDataFailed)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, rows)
}
