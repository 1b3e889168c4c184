// internal/app/features/logout/logout.go
package logout

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mysre-platform/mysre/internal/app/system/apperr"
	"github.com/mysre-platform/mysre/internal/app/system/auditlog"
	"github.com/mysre-platform/mysre/internal/app/system/identity"
	"github.com/mysre-platform/mysre/internal/app/system/jsonutil"
	"github.com/mysre-platform/mysre/internal/app/system/recorder"
	"github.com/mysre-platform/mysre/internal/app/system/timeouts"
	"github.com/mysre-platform/mysre/internal/domain/models"
	"go.uber.org/zap"
)

// SessionDestroyer clears the login cookie.
type SessionDestroyer interface {
	DestroySession(w http.ResponseWriter, r *http.Request)
}

// Handler provides the logout handler.
type Handler struct {
	sessions    SessionDestroyer
	recorder    *recorder.Recorder
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

// NewHandler creates a new logout Handler.
func NewHandler(
	sessions SessionDestroyer,
	rec *recorder.Recorder,
	auditLogger *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		sessions:    sessions,
		recorder:    rec,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Routes returns a chi.Router with logout routes mounted.
func Routes(h *Handler, res *identity.Resolver, audit identity.RejectAuditor) http.Handler {
	r := chi.NewRouter()
	r.Use(res.Require(identity.ModeWrite, audit))
	r.Post("/", h.handleLogout)
	return r
}

type logoutResponse struct {
	Statement models.Statement `json:"statement"`
	Duration  string           `json:"duration"`
}

// handleLogout records a logged-out statement carrying the session's
// duration and clears the login cookie. The cookie is cleared even when the
// statement cannot be stored.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		jsonutil.WriteError(w, apperr.Unauthenticated("authentication required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	st, err := h.recorder.RecordLogout(ctx, id)
	h.sessions.DestroySession(w, r)
	h.auditLogger.Logout(r.Context(), r, id.UserID, id.SessionID)

	if err != nil {
		h.logger.Warn("logged-out statement not recorded",
			zap.String("request_id", middleware.GetReqID(ctx)),
			zap.String("user_id", id.UserID),
			zap.Error(err))
		jsonutil.WriteError(w, err)
		return
	}

	var duration string
	if st.Result != nil {
		duration = st.Result.Duration
	}
	jsonutil.OK(w, logoutResponse{Statement: st, Duration: duration})
}
