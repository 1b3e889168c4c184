package auditlog

import (
	"net/http/httptest"
	"testing"

	"github.com/mysre-platform/mysre/internal/app/store/audit"
	"github.com/mysre-platform/mysre/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const alice = "3f2b8c1e-9a4d-4e7f-b1c2-0d9e8f7a6b5c"

func TestLogger_NilIsNoop(t *testing.T) {
	var l *Logger
	req := httptest.NewRequest("POST", "/api/xapi/statements", nil)
	l.UnauthenticatedWrite(req.Context(), req, "no identity")
}

func TestLogger_Destinations(t *testing.T) {
	tests := []struct {
		name    string
		setting string
		wantDB  int64
		wantLog int
	}{
		{"all", All, 1, 1},
		{"db", DB, 1, 0},
		{"log", Log, 0, 1},
		{"off", Off, 0, 0},
		{"unset defaults to all", "", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			store := audit.New(db)
			core, logs := observer.New(zapcore.DebugLevel)
			l := New(store, zap.New(core), Config{Auth: tt.setting, Admin: Off})

			req := httptest.NewRequest("POST", "/api/auth/session", nil)
			req.Header.Set("X-Forwarded-For", "203.0.113.7")
			l.LoginSuccess(req.Context(), req, alice, "alice@example.com")

			ctx, cancel := testutil.TestContext()
			defer cancel()
			n, err := store.CountByFilter(ctx, audit.QueryFilter{UserID: alice})
			if err != nil {
				t.Fatalf("CountByFilter() error = %v", err)
			}
			if n != tt.wantDB {
				t.Errorf("stored = %d, want %d", n, tt.wantDB)
			}
			if logs.Len() != tt.wantLog {
				t.Errorf("logged = %d, want %d", logs.Len(), tt.wantLog)
			}
		})
	}
}

func TestLogger_UnauthenticatedWrite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(store, zap.New(core), Config{Auth: All, Admin: All})

	req := httptest.NewRequest("POST", "/api/xapi/statements", nil)
	l.UnauthenticatedWrite(req.Context(), req, "no writable identity")

	if logs.Len() != 1 || logs.All()[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected one warn entry, got %v", logs.All())
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	events, err := store.Query(ctx, audit.QueryFilter{EventType: audit.EventUnauthenticatedWrite})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Query() len = %d, want 1", len(events))
	}
	e := events[0]
	if e.Success || e.FailureReason != "no writable identity" {
		t.Errorf("event = %+v", e)
	}
	if e.Details["path"] != "/api/xapi/statements" || e.Details["method"] != "POST" {
		t.Errorf("details = %v", e.Details)
	}
}
