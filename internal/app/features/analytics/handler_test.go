package analyticsfeature

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	projectstore "github.com/mysre-platform/mysre/internal/app/store/projects"
	"github.com/mysre-platform/mysre/internal/app/store/statements"
	"github.com/mysre-platform/mysre/internal/app/system/analytics"
	"github.com/mysre-platform/mysre/internal/app/system/apperr"
	"github.com/mysre-platform/mysre/internal/app/system/identity"
	"github.com/mysre-platform/mysre/internal/app/system/recorder"
	"github.com/mysre-platform/mysre/internal/domain/models"
	"github.com/mysre-platform/mysre/internal/testutil"
	"go.uber.org/zap"
)

type auditCalls struct {
	onBehalf [][2]string
	allUsers []string
}

func (a *auditCalls) OnBehalfRead(_ context.Context, _ *http.Request, actorID, target string) {
	a.onBehalf = append(a.onBehalf, [2]string{actorID, target})
}

func (a *auditCalls) AllUsersRead(_ context.Context, _ *http.Request, actorID string) {
	a.allUsers = append(a.allUsers, actorID)
}

type env struct {
	handler  *Handler
	recorder *recorder.Recorder
	projects *projectstore.Store
	audit    *auditCalls
}

func setup(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	stmts := statements.New(db, statements.Options{})
	projects := projectstore.New(db)
	audit := &auditCalls{}
	agg := analytics.NewAggregator(stmts, projects, analytics.DefaultWindow, logger)
	return env{
		handler:  NewHandler(agg, audit),
		recorder: recorder.New(recorder.Config{Statements: stmts, Projects: projects, Logger: logger}),
		projects: projects,
		audit:    audit,
	}
}

func decodeSummary(t *testing.T, rec *testutil.ResponseRecorder) analytics.Summary {
	t.Helper()
	var s analytics.Summary
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	return s
}

func TestServeSummary(t *testing.T) {
	e := setup(t)
	user := testutil.RegularUser()
	id := user.Identity()

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := e.recorder.RecordLogin(ctx, id); err != nil {
		t.Fatalf("RecordLogin: %v", err)
	}
	for _, page := range []string{"dashboard", "brainstorm"} {
		if _, err := e.recorder.RecordPageView(ctx, id, page); err != nil {
			t.Fatalf("RecordPageView: %v", err)
		}
	}
	if _, err := e.projects.Create(ctx, user.ID, models.ProjectKindWriter, "Draft"); err != nil {
		t.Fatalf("Create project: %v", err)
	}

	rec := testutil.NewRecorder()
	e.handler.ServeSummary(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/summary", user))
	rec.AssertStatus(t, http.StatusOK)

	s := decodeSummary(t, rec)
	if s.UserID != user.ID {
		t.Errorf("userId = %q", s.UserID)
	}
	if s.TotalStatements != 3 || s.ActionCounts.Logins != 1 || s.ActionCounts.PageViews != 2 {
		t.Errorf("counts = total %d, %+v", s.TotalStatements, s.ActionCounts)
	}
	if s.RecentActivity != 3 || s.EngagementLevel != analytics.EngagementLow || s.ProductivityScore != 81 {
		t.Errorf("recent=%d engagement=%s productivity=%d", s.RecentActivity, s.EngagementLevel, s.ProductivityScore)
	}
	if s.ProjectSessions != 1 {
		t.Errorf("projectSessions = %d, want 1", s.ProjectSessions)
	}
	if len(e.audit.onBehalf) != 0 {
		t.Error("self read must not be audited")
	}
}

func TestServeSummary_EmptyUser(t *testing.T) {
	e := setup(t)

	rec := testutil.NewRecorder()
	e.handler.ServeSummary(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/summary", testutil.RegularUser()))
	rec.AssertStatus(t, http.StatusOK)

	s := decodeSummary(t, rec)
	if s.TotalStatements != 0 || s.EngagementLevel != analytics.EngagementLow || s.ProductivityScore != 75 {
		t.Errorf("empty summary = %+v", s)
	}
	if len(s.Timeline) != 7 {
		t.Errorf("timeline has %d days, want 7", len(s.Timeline))
	}
}

func TestServeSummary_OnBehalfIsAudited(t *testing.T) {
	e := setup(t)
	admin := testutil.AdminUser()
	target := testutil.RegularUser()

	id := identity.Identity{
		UserID:       target.ID,
		Source:       identity.SourceDerived,
		Strategy:     identity.StrategyUserParam,
		ActingUserID: admin.ID,
	}
	rec := testutil.NewRecorder()
	e.handler.ServeSummary(rec, testutil.WithIdentity(testutil.NewRequest(http.MethodGet, "/summary?userId="+target.ID), id))
	rec.AssertStatus(t, http.StatusOK)

	if len(e.audit.onBehalf) != 1 || e.audit.onBehalf[0] != [2]string{admin.ID, target.ID} {
		t.Errorf("on-behalf audit = %v", e.audit.onBehalf)
	}
}

func TestServeSummaryAll(t *testing.T) {
	e := setup(t)
	admin := testutil.AdminUser()

	ctx, cancel := testutil.TestContext()
	defer cancel()
	for range 2 {
		u := testutil.RegularUser()
		if _, err := e.recorder.RecordLogin(ctx, u.Identity()); err != nil {
			t.Fatalf("RecordLogin: %v", err)
		}
	}

	rec := testutil.NewRecorder()
	e.handler.ServeSummaryAll(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/summary/all", admin))
	rec.AssertStatus(t, http.StatusOK)

	s := decodeSummary(t, rec)
	if s.DistinctUsers != 2 || s.ActionCounts.Logins != 2 {
		t.Errorf("distinctUsers=%d logins=%d", s.DistinctUsers, s.ActionCounts.Logins)
	}
	if len(e.audit.allUsers) != 1 || e.audit.allUsers[0] != admin.ID {
		t.Errorf("all-users audit = %v", e.audit.allUsers)
	}
}

type failingSummarizer struct{}

func (failingSummarizer) ForUser(context.Context, string) (analytics.Summary, error) {
	return analytics.Summary{}, apperr.Persistence(errors.New("db down"), "could not load statements")
}

func (failingSummarizer) ForAll(context.Context) (analytics.Summary, error) {
	return analytics.Summary{}, apperr.Persistence(errors.New("db down"), "could not load statements")
}

func TestServeSummary_StoreFailure(t *testing.T) {
	h := NewHandler(failingSummarizer{}, nil)
	user := testutil.AdminUser()

	rec := testutil.NewRecorder()
	h.ServeSummary(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/summary", user))
	rec.AssertStatus(t, http.StatusInternalServerError)

	rec = testutil.NewRecorder()
	h.ServeSummaryAll(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/summary/all", user))
	rec.AssertStatus(t, http.StatusInternalServerError)
	rec.AssertContains(t, `"kind":"persistence"`)

	rec = testutil.NewRecorder()
	h.ServeSummary(rec, testutil.NewRequest(http.MethodGet, "/summary"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
