package signup_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	uierrors "github.com/dalemusser/positivevibes/internal/app/features/errors"
	"github.com/dalemusser/positivevibes/internal/app/features/signup"
	userstore "github.com/dalemusser/positivevibes/internal/app/store/users"
	"github.com/dalemusser/positivevibes/internal/app/system/indexes"
	"github.com/dalemusser/positivevibes/internal/app/system/ratelimit"
	"github.com/dalemusser/positivevibes/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*signup.Handler, *userstore.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	logger := zap.NewNop()
	return signup.NewHandler(db, uierrors.NewErrorLogger(logger), nil, logger), userstore.New(db)
}

func TestHandleSignup_Created(t *testing.T) {
	handler, users := newTestHandler(t)

	rec := testutil.NewRecorder()
	handler.HandleSignup(rec, testutil.NewJSONRequest("POST", "/api/auth/signup", map[string]string{
		"email":    "New@Example.com",
		"password": "secret1",
		"location": " Denver, CO ",
	}))
	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertMessage(t, signup.MsgSignedUp)

	if rec.Cookie("test-session") != nil {
		t.Error("signup must not sign the user in")
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, err := users.GetByEmail(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if u.Location != "Denver, CO" {
		t.Errorf("location: got %q", u.Location)
	}
	if u.CurrentStreak != 0 || u.LongestStreak != 0 || u.LastVibeWeekStart != nil || len(u.Badges) != 0 {
		t.Errorf("expected zeroed streak state, got %+v", u)
	}
	if u.PasswordHash == "" || u.PasswordHash == "secret1" {
		t.Error("expected bcrypt hash to be stored")
	}
}

func TestHandleSignup_Duplicate(t *testing.T) {
	handler, _ := newTestHandler(t)
	body := map[string]string{"email": "dup@example.com", "password": "secret1"}

	rec := testutil.NewRecorder()
	handler.HandleSignup(rec, testutil.NewJSONRequest("POST", "/api/auth/signup", body))
	rec.AssertStatus(t, http.StatusCreated)

	body["email"] = "DUP@example.com"
	rec = testutil.NewRecorder()
	handler.HandleSignup(rec, testutil.NewJSONRequest("POST", "/api/auth/signup", body))
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertMessage(t, signup.MsgEmailTaken)
}

func TestHandleSignup_Invalid(t *testing.T) {
	handler, _ := newTestHandler(t)

	for _, body := range []map[string]string{
		{"email": "dup@example.com", "password": "12345"},
		{"email": "not-an-email", "password": "secret1"},
		{"password": "secret1"},
	} {
		rec := testutil.NewRecorder()
		handler.HandleSignup(rec, testutil.NewJSONRequest("POST", "/api/auth/signup", body))
		rec.AssertStatus(t, http.StatusBadRequest)
		rec.AssertMessage(t, signup.MsgInvalidSignup)
	}
}

func TestRoutes_RateLimited(t *testing.T) {
	handler, _ := newTestHandler(t)
	limiter := ratelimit.New(1, time.Minute)
	t.Cleanup(limiter.Stop)
	router := signup.Routes(handler, limiter)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, testutil.NewJSONRequest("POST", "/", map[string]string{"email": "a@example.com", "password": "secret1"}))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}

	second := testutil.NewRecorder()
	router.ServeHTTP(second, testutil.NewJSONRequest("POST", "/", map[string]string{"email": "b@example.com", "password": "secret1"}))
	second.AssertStatus(t, http.StatusTooManyRequests)
	second.AssertMessage(t, signup.MsgTooManySignups)
}
