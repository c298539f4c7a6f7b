package auditlog_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/positivevibes/internal/app/store/audit"
	"github.com/dalemusser/positivevibes/internal/app/system/auditlog"
	"github.com/dalemusser/positivevibes/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, primitive.NewObjectID(), "a@example.com")
	logger.Logout(ctx, req, "")
	logger.StreakSweep(ctx, "cron", 3, nil)
}

func TestLogger_Log_ConfigOff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	core, logs := observer.New(zap.InfoLevel)
	logger := auditlog.New(store, zap.New(core), auditlog.Config{Auth: "off", Admin: "off"})

	userID := primitive.NewObjectID()
	logger.LoginSuccess(ctx, httptest.NewRequest("POST", "/api/auth/login", nil), userID, "a@example.com")
	logger.ThemeSet(ctx, "2024-05-13", "Kindness")

	events, err := store.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no stored events when config is 'off', got %d", len(events))
	}
	if logs.Len() != 0 {
		t.Errorf("expected no log entries when config is 'off', got %d", logs.Len())
	}
}

func TestLogger_Log_ConfigDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	core, logs := observer.New(zap.InfoLevel)
	logger := auditlog.New(store, zap.New(core), auditlog.Config{Auth: "db", Admin: "off"})

	req := httptest.NewRequest("POST", "/api/auth/signup", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	userID := primitive.NewObjectID()
	logger.Signup(ctx, req, userID, "new@example.com")

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].EventType != audit.EventSignup || events[0].IP != "203.0.113.5" {
		t.Errorf("unexpected event %+v", events[0])
	}
	if logs.Len() != 0 {
		t.Errorf("expected no zap entries for 'db', got %d", logs.Len())
	}
}

func TestLogger_Log_ConfigLog(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	core, logs := observer.New(zap.InfoLevel)
	logger := auditlog.New(store, zap.New(core), auditlog.Config{Auth: "log", Admin: "all"})

	logger.LoginFailedUserNotFound(ctx, httptest.NewRequest("POST", "/api/auth/login", nil), "ghost@example.com")

	events, err := store.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected nothing stored for 'log', got %d", len(events))
	}
	entries := logs.FilterField(zap.String("event_type", audit.EventLoginFailedUserNotFound)).All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 zap entry, got %d", len(entries))
	}
	if entries[0].Level != zap.WarnLevel {
		t.Errorf("failed logins should log at warn, got %v", entries[0].Level)
	}

	logger.StreakSweep(ctx, "cli", 4, nil)
	n, err := store.CountByFilter(ctx, audit.QueryFilter{EventType: audit.EventStreakSweep})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected admin sweep event stored, got %d", n)
	}
}
