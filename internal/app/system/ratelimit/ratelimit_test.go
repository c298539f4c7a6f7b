package ratelimit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/positivevibes/internal/app/system/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_AllowAndReset(t *testing.T) {
	l := ratelimit.New(3, time.Hour)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("k"), "attempt %d", i)
	}
	assert.False(t, l.Allow("k"))
	assert.Equal(t, 0, l.Remaining("k"))

	// Other keys are independent.
	assert.True(t, l.Allow("other"))
	assert.Equal(t, 3, l.Remaining("unseen"))

	l.Reset("k")
	assert.True(t, l.Allow("k"))
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"forwarded first entry", map[string]string{"X-Forwarded-For": " 1.2.3.4 , 10.0.0.1"}, "9.9.9.9:1", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "5.6.7.8"}, "9.9.9.9:1", "5.6.7.8"},
		{"remote with port", nil, "9.9.9.9:1234", "9.9.9.9"},
		{"remote without port", nil, "9.9.9.9", "9.9.9.9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.header {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, ratelimit.ClientIP(r))
		})
	}
}

func TestMiddleware_Rejects(t *testing.T) {
	l := ratelimit.New(1, time.Minute)
	defer l.Stop()

	h := ratelimit.Middleware(l, "slow down")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/contact", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/contact", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "slow down")
}

func TestLoginLimiter_EmailLimit(t *testing.T) {
	ll := ratelimit.NewLoginLimiterWithConfig(100, time.Minute, 2, time.Hour)
	defer ll.Stop()

	r := httptest.NewRequest("POST", "/api/auth/login", nil)
	ok, _ := ll.Check(r, "A@example.com")
	assert.True(t, ok)
	ok, _ = ll.Check(r, " a@example.com")
	assert.True(t, ok)

	ok, reason := ll.Check(r, "a@example.com")
	assert.False(t, ok)
	assert.Contains(t, reason, "this account")

	ll.ResetEmail("A@EXAMPLE.COM")
	ok, _ = ll.Check(r, "a@example.com")
	assert.True(t, ok)
}
