package logout

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/mysre-platform/mysre/internal/app/store/statements"
	"github.com/mysre-platform/mysre/internal/app/system/identity"
	"github.com/mysre-platform/mysre/internal/app/system/ids"
	"github.com/mysre-platform/mysre/internal/app/system/recorder"
	"github.com/mysre-platform/mysre/internal/domain/models"
	"github.com/mysre-platform/mysre/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type fakeDestroyer struct{ calls int }

func (f *fakeDestroyer) DestroySession(http.ResponseWriter, *http.Request) { f.calls++ }

func newTestHandler(t *testing.T) (*Handler, *mongo.Database, *fakeDestroyer) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	stmts := statements.New(db, statements.Options{})
	rec := recorder.New(recorder.Config{Statements: stmts, Logger: logger})
	sessions := &fakeDestroyer{}

	// auditLogger can be nil - it's nil-safe
	return NewHandler(sessions, rec, nil, logger), db, sessions
}

func TestLogout_RecordsDuration(t *testing.T) {
	h, db, sessions := newTestHandler(t)
	user := testutil.RegularUser()
	sid := user.Identity().SessionID

	ctx, cancel := testutil.TestContext()
	defer cancel()
	start := time.Now().UTC().Add(-300 * time.Second)
	_, err := db.Collection("statements").InsertOne(ctx, models.Statement{
		ID:        ids.NewAt(start),
		Verb:      models.Verb{ID: models.VerbLoggedIn},
		Object:    models.Object{ID: recorder.DefaultAppIRI},
		UserID:    user.ID,
		SessionID: sid,
		Sequence:  1,
		Timestamp: start,
	})
	if err != nil {
		t.Fatalf("seed statement: %v", err)
	}

	rec := testutil.NewRecorder()
	h.handleLogout(rec, testutil.NewAuthenticatedRequest(http.MethodPost, "/logout", user))
	rec.AssertStatus(t, http.StatusOK)

	var resp logoutResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp.Duration, "PT300.") {
		t.Errorf("duration = %q, want about PT300S", resp.Duration)
	}
	if resp.Statement.Verb.ID != models.VerbLoggedOut || resp.Statement.Sequence != 2 {
		t.Errorf("statement = %+v", resp.Statement)
	}
	if resp.Statement.Result == nil || resp.Statement.Result.Completion == nil || !*resp.Statement.Result.Completion {
		t.Error("expected result.completion=true")
	}
	if sessions.calls != 1 {
		t.Errorf("DestroySession calls = %d, want 1", sessions.calls)
	}
}

func TestLogout_EmptySessionUsesFallback(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := testutil.NewRecorder()
	h.handleLogout(rec, testutil.NewAuthenticatedRequest(http.MethodPost, "/logout", testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"duration":"PT60.0S"`)
}

func TestLogout_BareUUIDSessionParam(t *testing.T) {
	h, _, _ := newTestHandler(t)
	user := testutil.RegularUser()
	id := user.Identity()
	id.Source = identity.SourceDerived
	id.Strategy = identity.StrategySessionParam
	id.SessionID = user.ID
	id.ExpiresAt = time.Time{}

	rec := testutil.NewRecorder()
	h.handleLogout(rec, testutil.WithIdentity(testutil.NewRequest(http.MethodPost, "/logout?sessionId="+user.ID), id))
	rec.AssertStatus(t, http.StatusOK)

	var resp logoutResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Statement.SessionID != user.ID || resp.Statement.Sequence != 1 {
		t.Errorf("statement = %+v, want session %s sequence 1", resp.Statement, user.ID)
	}
	if resp.Duration != "PT60.0S" {
		t.Errorf("duration = %q, want fallback PT60.0S", resp.Duration)
	}
}

func TestLogout_ClearsCookieWhenRecordFails(t *testing.T) {
	h, _, sessions := newTestHandler(t)
	user := testutil.RegularUser()
	id := user.Identity()
	id.Source = identity.SourceReadOnly
	id.Strategy = identity.StrategyOwnedResource

	rec := testutil.NewRecorder()
	h.handleLogout(rec, testutil.WithIdentity(testutil.NewRequest(http.MethodPost, "/logout"), id))
	rec.AssertStatus(t, http.StatusForbidden)
	if sessions.calls != 1 {
		t.Errorf("DestroySession calls = %d, want 1", sessions.calls)
	}
}

func TestLogout_NoIdentity(t *testing.T) {
	h, _, sessions := newTestHandler(t)

	rec := testutil.NewRecorder()
	h.handleLogout(rec, testutil.NewRequest(http.MethodPost, "/logout"))
	rec.AssertStatus(t, http.StatusUnauthorized)
	if sessions.calls != 0 {
		t.Error("cookie should not be touched without an identity")
	}
}
