// internal/app/features/login/login.go
package login

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	userstore "github.com/mysre-platform/mysre/internal/app/store/users"
	"github.com/mysre-platform/mysre/internal/app/system/apperr"
	"github.com/mysre-platform/mysre/internal/app/system/auditlog"
	"github.com/mysre-platform/mysre/internal/app/system/auth"
	"github.com/mysre-platform/mysre/internal/app/system/identity"
	"github.com/mysre-platform/mysre/internal/app/system/jsonutil"
	"github.com/mysre-platform/mysre/internal/app/system/recorder"
	"github.com/mysre-platform/mysre/internal/app/system/status"
	"github.com/mysre-platform/mysre/internal/app/system/timeouts"
	"github.com/mysre-platform/mysre/internal/domain/models"
	"go.uber.org/zap"
)

// UserMirror creates or refreshes the local copy of a provider user.
type UserMirror interface {
	UpsertFromProfile(ctx context.Context, p userstore.Profile, now time.Time) (models.User, error)
}

// SessionWriter stores the provider credential in the login cookie.
type SessionWriter interface {
	CreateSession(w http.ResponseWriter, r *http.Request, ls auth.LoginSession) error
}

// Handler accepts identity-provider tokens and turns them into a login
// session.
type Handler struct {
	verifier    identity.TokenVerifier
	users       UserMirror
	sessions    SessionWriter
	recorder    *recorder.Recorder
	auditLogger *auditlog.Logger
	logger      *zap.Logger
	now         func() time.Time
}

// NewHandler creates a new login Handler.
func NewHandler(
	verifier identity.TokenVerifier,
	userMirror UserMirror,
	sessions SessionWriter,
	rec *recorder.Recorder,
	auditLogger *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		verifier:    verifier,
		users:       userMirror,
		sessions:    sessions,
		recorder:    rec,
		auditLogger: auditLogger,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Routes returns a chi.Router with the login routes mounted.
//
// When mounted at /api/auth:
//   - POST /api/auth/session - exchange a provider token for a login cookie
//   - GET  /api/auth/me      - report the resolved identity
func Routes(h *Handler, res *identity.Resolver) http.Handler {
	r := chi.NewRouter()
	r.Post("/session", h.CreateSession)
	r.With(res.Require(identity.ModeRead, nil)).Get("/me", h.Me)
	return r
}

type sessionRequest struct {
	AccessToken string `json:"accessToken"`
}

// sessionResponse is returned by POST /session.
type sessionResponse struct {
	User      models.User       `json:"user"`
	SessionID string            `json:"sessionId"`
	ExpiresAt time.Time         `json:"expiresAt"`
	Statement *models.Statement `json:"statement,omitempty"`
}

// CreateSession handles POST /session.
//
// The provider token comes from the JSON body ("accessToken") or an
// Authorization bearer header. On success the user mirror is refreshed, the
// login cookie is set and a logged-in statement is recorded.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if r.ContentLength != 0 {
		if err := jsonutil.Decode(r, &req); err != nil {
			jsonutil.WriteError(w, apperr.Validation("body", "invalid JSON: "+err.Error()))
			return
		}
	}
	token := strings.TrimSpace(req.AccessToken)
	if token == "" {
		token, _ = auth.BearerToken(r)
	}
	if token == "" {
		h.auditLogger.LoginFailed(r.Context(), r, "missing token")
		jsonutil.WriteError(w, apperr.Validation("accessToken", "accessToken is required"))
		return
	}

	claims, err := h.verifier.Verify(token)
	if err != nil {
		h.auditLogger.LoginFailed(r.Context(), r, err.Error())
		jsonutil.WriteError(w, err)
		return
	}
	id := identity.FromClaims(claims, identity.StrategyCookie, token)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.users.UpsertFromProfile(ctx, userstore.Profile{
		ID:       id.UserID,
		Email:    id.Email,
		FullName: id.Name,
		Role:     id.Role,
	}, h.now())
	if err != nil {
		h.logger.Error("user mirror upsert failed",
			zap.String("request_id", middleware.GetReqID(ctx)),
			zap.String("user_id", id.UserID),
			zap.Error(err))
		h.auditLogger.LoginFailed(r.Context(), r, "user mirror unavailable")
		jsonutil.WriteError(w, apperr.Persistence(err, "could not store user"))
		return
	}
	if !status.Resolvable(u.Status) {
		h.auditLogger.LoginFailed(r.Context(), r, "user disabled")
		jsonutil.WriteError(w, apperr.Forbidden("user is disabled"))
		return
	}
	id.Role = u.Role

	if err := h.sessions.CreateSession(w, r, auth.LoginSession{
		AccessToken: token,
		UserID:      id.UserID,
		ExpiresAt:   id.ExpiresAt,
	}); err != nil {
		h.logger.Error("login cookie could not be written",
			zap.String("request_id", middleware.GetReqID(ctx)),
			zap.Error(err))
		jsonutil.WriteError(w, err)
		return
	}
	h.auditLogger.LoginSuccess(r.Context(), r, id.UserID, id.Email)

	resp := sessionResponse{User: u, SessionID: id.SessionID, ExpiresAt: id.ExpiresAt}

	// The login itself stands even when its statement cannot be stored.
	if st, err := h.recorder.RecordLogin(ctx, id); err != nil {
		h.logger.Warn("logged-in statement not recorded",
			zap.String("request_id", middleware.GetReqID(ctx)),
			zap.String("user_id", id.UserID),
			zap.Error(err))
	} else {
		resp.Statement = &st
	}
	jsonutil.Created(w, resp)
}

// meResponse is returned by GET /me.
type meResponse struct {
	UserID       string     `json:"userId"`
	Email        string     `json:"email,omitempty"`
	Name         string     `json:"name,omitempty"`
	Role         string     `json:"role,omitempty"`
	Source       string     `json:"source"`
	Strategy     string     `json:"strategy"`
	SessionID    string     `json:"sessionId,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	Writable     bool       `json:"writable"`
	ActingUserID string     `json:"actingUserId,omitempty"`
}

// Me handles GET /me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		jsonutil.WriteError(w, apperr.Unauthenticated("authentication required"))
		return
	}
	resp := meResponse{
		UserID:       id.UserID,
		Email:        id.Email,
		Name:         id.Name,
		Role:         id.Role,
		Source:       string(id.Source),
		Strategy:     string(id.Strategy),
		SessionID:    id.SessionID,
		Writable:     id.Writable(),
		ActingUserID: id.ActingUserID,
	}
	if !id.ExpiresAt.IsZero() {
		exp := id.ExpiresAt
		resp.ExpiresAt = &exp
	}
	jsonutil.OK(w, resp)
}
