package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/positivevibes/internal/app/system/tasks"
	"github.com/dalemusser/positivevibes/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func testAppConfig() AppConfig {
	return AppConfig{
		MongoURI:            testutil.DefaultMongoURI,
		MongoDatabase:       "positiveVibesDB",
		SessionKey:          "test-session-key-for-testing-only-0123456789",
		SessionName:         "test-session",
		SessionMaxAge:       time.Hour,
		CacheTTL:            time.Minute,
		BaseURL:             "http://localhost:3000",
		ResetTokenTTL:       time.Hour,
		AuditLogAuth:        "db",
		AuditLogAdmin:       "db",
		StreakSweepSchedule: tasks.DefaultStreakSweepSchedule,
	}
}

func TestValidateConfig(t *testing.T) {
	dev := &config.CoreConfig{Env: "dev"}
	prod := &config.CoreConfig{Env: "prod"}

	if err := ValidateConfig(dev, testAppConfig(), testLogger()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		core   *config.CoreConfig
		mutate func(*AppConfig)
	}{
		{"bad mongo uri", dev, func(c *AppConfig) { c.MongoURI = "postgres://nope" }},
		{"empty database", dev, func(c *AppConfig) { c.MongoDatabase = "" }},
		{"short session key", dev, func(c *AppConfig) { c.SessionKey = "too-short" }},
		{"dev key in prod", prod, func(c *AppConfig) { c.SessionKey = devSessionKey }},
		{"zero session age", dev, func(c *AppConfig) { c.SessionMaxAge = 0 }},
		{"bad cron", dev, func(c *AppConfig) { c.StreakSweepSchedule = "every monday" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testAppConfig()
			tt.mutate(&cfg)
			if err := ValidateConfig(tt.core, cfg, testLogger()); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestBuildHandler_RequiresStartup(t *testing.T) {
	if _, err := BuildHandler(&config.CoreConfig{}, testAppConfig(), DBDeps{}, testLogger()); err == nil {
		t.Fatal("expected error when Startup has not run")
	}
}

// startServer runs the real lifecycle hooks (minus ConnectDB) against a
// throwaway database and serves the resulting handler.
func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coreCfg := &config.CoreConfig{Env: "dev"}
	appCfg := testAppConfig()
	logger := testLogger()

	// MongoClient is left nil so Shutdown does not disconnect the shared
	// test client.
	deps := DBDeps{MongoDatabase: db, services: &services{}}

	if err := EnsureSchema(ctx, coreCfg, appCfg, deps, logger); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	if err := Startup(ctx, coreCfg, appCfg, deps, logger); err != nil {
		t.Fatalf("Startup failed: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = Shutdown(stopCtx, coreCfg, appCfg, deps, logger)
	})

	h, err := BuildHandler(coreCfg, appCfg, deps, logger)
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

type apiClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newAPIClient(t *testing.T, srv *httptest.Server) *apiClient {
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &apiClient{t: t, base: srv.URL, http: &http.Client{Jar: jar}}
}

func (c *apiClient) do(method, path string, body any) (int, map[string]any) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp.StatusCode, out
}

func TestRouter_VibeLifecycle(t *testing.T) {
	srv := startServer(t)
	c := newAPIClient(t, srv)

	creds := map[string]string{"email": "sam@example.com", "password": "hunter22", "location": "Reno, NV"}

	if code, _ := c.do("POST", "/api/auth/signup", creds); code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", code)
	}
	if code, _ := c.do("POST", "/api/auth/signup", creds); code != http.StatusConflict {
		t.Fatalf("duplicate signup: expected 409, got %d", code)
	}

	// Not signed in yet.
	if code, body := c.do("GET", "/api/auth/status", nil); code != http.StatusOK || body["loggedIn"] != false {
		t.Fatalf("anonymous status: got %d %v", code, body)
	}
	if code, _ := c.do("POST", "/api/vibes", nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous vibe: expected 401, got %d", code)
	}

	if code, body := c.do("POST", "/api/auth/login", creds); code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d %v", code, body)
	}

	code, body := c.do("GET", "/api/auth/status", nil)
	if code != http.StatusOK || body["loggedIn"] != true || body["currentStreak"] != float64(0) {
		t.Fatalf("fresh status: got %d %v", code, body)
	}

	if code, body := c.do("POST", "/api/vibes", nil); code != http.StatusCreated {
		t.Fatalf("vibe: expected 201, got %d %v", code, body)
	}
	if code, body := c.do("POST", "/api/vibes", nil); code != http.StatusTooManyRequests || body["nextAvailableTimestamp"] == nil {
		t.Fatalf("second vibe: expected 429 with next time, got %d %v", code, body)
	}

	code, body = c.do("GET", "/api/auth/status", nil)
	if code != http.StatusOK || body["currentStreak"] != float64(1) || body["longestStreak"] != float64(1) {
		t.Fatalf("status after vibe: got %d %v", code, body)
	}

	code, body = c.do("GET", "/api/stats", nil)
	if code != http.StatusOK || body["weeklyVibeCount"] != float64(1) || body["totalVibeCount"] != float64(1) {
		t.Fatalf("stats: got %d %v", code, body)
	}

	if code, _ := c.do("POST", "/api/auth/logout", nil); code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", code)
	}
	if code, body := c.do("GET", "/api/auth/status", nil); code != http.StatusOK || body["loggedIn"] != false {
		t.Fatalf("status after logout: got %d %v", code, body)
	}
}

func TestRouter_APIFallbacks(t *testing.T) {
	srv := startServer(t)
	c := newAPIClient(t, srv)

	code, body := c.do("GET", "/api/no-such-thing", nil)
	if code != http.StatusNotFound || body["message"] != "API endpoint not found" {
		t.Errorf("unknown route: got %d %v", code, body)
	}

	code, body = c.do("GET", "/api/theme/current", nil)
	if code != http.StatusNotFound || body["theme"] != "Stay Tuned!" {
		t.Errorf("theme fallback: got %d %v", code, body)
	}

	// Mail is not configured in tests.
	code, _ = c.do("POST", "/api/contact", map[string]string{"message": "hello"})
	if code != http.StatusInternalServerError {
		t.Errorf("contact without mail: expected 500, got %d", code)
	}

	// /metrics stays hidden without credentials.
	code, _ = c.do("GET", "/metrics", nil)
	if code != http.StatusNotFound {
		t.Errorf("metrics without credentials: expected 404, got %d", code)
	}
}
