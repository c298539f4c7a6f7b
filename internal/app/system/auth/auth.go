// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	mongosessions "github.com/dalemusser/positivevibes/internal/app/store/sessions"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	isAuthKey = "is_authenticated"
	userIDKey = "user_id"
	userEmail = "user_email"
)

// MsgAuthRequired is the 401 body for endpoints that need a signed-in user.
const MsgAuthRequired = "Authentication required. Please log in."

// SessionUser is what we cache in the session & inject into r.Context().
type SessionUser struct {
	ID    string
	Email string
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// regenerator is implemented by server-side stores that can rotate a session ID.
type regenerator interface {
	Regenerate(r *http.Request, s *sessions.Session) error
}

// SessionManager owns the session store and the auth middleware built on it.
type SessionManager struct {
	store  sessions.Store
	name   string
	logger *zap.Logger
}

func cookieOptions(domain string, maxAge time.Duration, secure bool) *sessions.Options {
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	// Secure cookies go out cross-site (SameSite=None); plain http dev uses Lax.
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	return opts
}

func checkKey(sessionKey string, logger *zap.Logger) error {
	if sessionKey == "" {
		return errors.New("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	return nil
}

// NewSessionManager builds a manager over a signed cookie store. Session data
// lives entirely in the cookie.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if err := checkKey(sessionKey, logger); err != nil {
		return nil, err
	}
	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = cookieOptions(domain, maxAge, secure)
	store.MaxAge(store.Options.MaxAge)

	logger.Info("session store initialized",
		zap.String("backend", "cookie"),
		zap.Bool("secure", secure),
		zap.String("domain", domain))
	return &SessionManager{store: store, name: name, logger: logger}, nil
}

// NewMongoSessionManager builds a manager whose session data is kept in
// MongoDB; the cookie carries only the signed session ID.
func NewMongoSessionManager(db *mongo.Database, sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if err := checkKey(sessionKey, logger); err != nil {
		return nil, err
	}
	store := mongosessions.New(db, cookieOptions(domain, maxAge, secure), []byte(sessionKey))

	logger.Info("session store initialized",
		zap.String("backend", "mongo"),
		zap.Bool("secure", secure),
		zap.String("domain", domain))
	return &SessionManager{store: store, name: name, logger: logger}, nil
}

// Store exposes the underlying gorilla store.
func (sm *SessionManager) Store() sessions.Store {
	return sm.store
}

// GetSession returns the named session for r. A decode failure yields a fresh
// session along with the error.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return sm.store.Get(r, sm.name)
}

// Login stores u in a fresh session. Any previous session ID is discarded
// to prevent fixation.
func (sm *SessionManager) Login(w http.ResponseWriter, r *http.Request, u SessionUser) error {
	sess, _ := sm.store.Get(r, sm.name)

	if rg, ok := sm.store.(regenerator); ok {
		if err := rg.Regenerate(r, sess); err != nil {
			return err
		}
	}
	for k := range sess.Values {
		delete(sess.Values, k)
	}

	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = u.ID
	sess.Values[userEmail] = u.Email
	return sess.Save(r, w)
}

// Destroy ends the session and expires its cookie.
func (sm *SessionManager) Destroy(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser injects u into the request context the way LoadSessionUser does.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// LoadSessionUser injects the user into context if they are logged in.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			sm.logger.Debug("session decode failed", zap.Error(err))
		}

		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			u := &SessionUser{
				ID:    getString(sess, userIDKey),
				Email: getString(sess, userEmail),
			}
			if u.ID != "" {
				r = withUser(r, u)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// Callers without one get a JSON 401.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		WriteUnauthorized(w)
	})
}

// WriteUnauthorized writes the standard JSON 401 body.
func WriteUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": MsgAuthRequired})
}

// helpers

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
