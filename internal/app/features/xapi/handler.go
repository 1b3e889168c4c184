// Package xapi provides the statement recording endpoints.
//
// Endpoints (mounted at /api/xapi):
//   - POST /statements        - record a statement (write identity)
//   - GET  /statements        - list the caller's statements
//   - GET  /sessions/duration - elapsed time of a derived session
//   - POST /pageviews         - record a page view for the current session
package xapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mysre-platform/mysre/internal/app/system/apperr"
	"github.com/mysre-platform/mysre/internal/app/system/identity"
	"github.com/mysre-platform/mysre/internal/app/system/jsonutil"
	"github.com/mysre-platform/mysre/internal/app/system/recorder"
	"github.com/mysre-platform/mysre/internal/app/system/sessionid"
	"github.com/mysre-platform/mysre/internal/app/system/timeouts"
	"github.com/mysre-platform/mysre/internal/domain/models"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// StatementReader lists stored statements.
type StatementReader interface {
	ListBySession(ctx context.Context, userID, sessionID string) ([]models.Statement, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.Statement, error)
}

// ReadAuditor is told when an admin reads another user's statements.
type ReadAuditor interface {
	OnBehalfRead(ctx context.Context, r *http.Request, actorID, targetUserID string)
}

// Handler serves the statement endpoints.
type Handler struct {
	recorder   *recorder.Recorder
	statements StatementReader
	audit      ReadAuditor
	logger     *zap.Logger
}

// NewHandler creates a new xapi Handler. audit may be nil.
func NewHandler(rec *recorder.Recorder, statements StatementReader, audit ReadAuditor, logger *zap.Logger) *Handler {
	return &Handler{
		recorder:   rec,
		statements: statements,
		audit:      audit,
		logger:     logger,
	}
}

// Record handles POST /statements.
//
// The body is a statement without id, sequence or timestamp. The response
// (201) is the stored statement.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		jsonutil.WriteError(w, apperr.Unauthenticated("authentication required"))
		return
	}

	var in recorder.Input
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.WriteError(w, apperr.Validation("body", "invalid JSON: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	st, err := h.recorder.Record(ctx, id, in)
	if err != nil {
		jsonutil.WriteError(w, err)
		return
	}
	jsonutil.Created(w, st)
}

// List handles GET /statements.
//
// With ?session=<derived id> the statements of that session are returned in
// sequence order. Without it the caller's most recent statements are
// returned newest first, bounded by ?limit= (default 100, max 1000).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		jsonutil.WriteError(w, apperr.Unauthenticated("authentication required"))
		return
	}
	h.auditOnBehalf(r, id)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	q := r.URL.Query()
	var (
		list []models.Statement
		err  error
	)
	if session := strings.TrimSpace(q.Get("session")); session != "" {
		if owner, ok := sessionid.ParseUserID(session); !ok || owner != id.UserID {
			jsonutil.WriteError(w, apperr.Validation("session", "session does not belong to the caller"))
			return
		}
		list, err = h.statements.ListBySession(ctx, id.UserID, session)
	} else {
		limit, perr := parseLimit(q.Get("limit"))
		if perr != nil {
			jsonutil.WriteError(w, perr)
			return
		}
		list, err = h.statements.ListByUser(ctx, id.UserID, limit)
	}
	if err != nil {
		h.logger.Error("list statements failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("user_id", id.UserID),
			zap.Error(err))
		jsonutil.WriteError(w, apperr.Persistence(err, "could not load statements"))
		return
	}
	if list == nil {
		list = []models.Statement{}
	}
	jsonutil.OK(w, map[string]any{
		"statements": list,
		"count":      len(list),
	})
}

// durationResponse is the body of GET /sessions/duration.
type durationResponse struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	Duration  string `json:"duration"`
}

// Duration handles GET /sessions/duration.
//
// The session is ?session= when given, else the caller's own derived
// session. Sessions without statements report the fallback duration.
func (h *Handler) Duration(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		jsonutil.WriteError(w, apperr.Unauthenticated("authentication required"))
		return
	}

	session := strings.TrimSpace(r.URL.Query().Get("session"))
	if session == "" {
		session = id.SessionID
	}
	if session == "" {
		jsonutil.WriteError(w, apperr.Validation("session", "no session id available"))
		return
	}
	if owner, ok := sessionid.ParseUserID(session); !ok || owner != id.UserID {
		jsonutil.WriteError(w, apperr.Validation("session", "session does not belong to the caller"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	jsonutil.OK(w, durationResponse{
		UserID:    id.UserID,
		SessionID: session,
		Duration:  h.recorder.SessionDuration(ctx, id.UserID, session),
	})
}

// pageViewRequest is the body of POST /pageviews.
type pageViewRequest struct {
	Page string `json:"page"`
}

// PageView handles POST /pageviews. It records a "viewed" statement for the
// caller's current session.
func (h *Handler) PageView(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		jsonutil.WriteError(w, apperr.Unauthenticated("authentication required"))
		return
	}

	var req pageViewRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.WriteError(w, apperr.Validation("body", "invalid JSON: "+err.Error()))
		return
	}
	if strings.TrimSpace(req.Page) == "" {
		jsonutil.WriteError(w, apperr.Validation("page", "page is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	st, err := h.recorder.RecordPageView(ctx, id, req.Page)
	if err != nil {
		jsonutil.WriteError(w, err)
		return
	}
	jsonutil.Created(w, st)
}

func (h *Handler) auditOnBehalf(r *http.Request, id identity.Identity) {
	if h.audit != nil && id.ActingUserID != "" {
		h.audit.OnBehalfRead(r.Context(), r, id.ActingUserID, id.UserID)
	}
}

func parseLimit(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, apperr.Validation("limit", "limit must be a positive integer")
	}
	return min(n, maxListLimit), nil
}
