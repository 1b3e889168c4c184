// internal/app/features/analytics/handler.go
package analyticsfeature

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mysre-platform/mysre/internal/app/system/analytics"
	"github.com/mysre-platform/mysre/internal/app/system/apperr"
	"github.com/mysre-platform/mysre/internal/app/system/identity"
	"github.com/mysre-platform/mysre/internal/app/system/jsonutil"
)

// Summarizer computes activity summaries.
type Summarizer interface {
	ForUser(ctx context.Context, userID string) (analytics.Summary, error)
	ForAll(ctx context.Context) (analytics.Summary, error)
}

// ReadAuditor is told about admin reads of other users' data.
type ReadAuditor interface {
	OnBehalfRead(ctx context.Context, r *http.Request, actorID, targetUserID string)
	AllUsersRead(ctx context.Context, r *http.Request, actorID string)
}

// Handler serves the analytics summaries.
type Handler struct {
	summaries Summarizer
	audit     ReadAuditor
}

// NewHandler creates a new analytics Handler. audit may be nil.
func NewHandler(summaries Summarizer, audit ReadAuditor) *Handler {
	return &Handler{summaries: summaries, audit: audit}
}

// Routes returns a chi.Router with the analytics routes mounted.
//
// When mounted at /api/analytics:
//   - GET /api/analytics/summary     - summary for the resolved user
//   - GET /api/analytics/summary/all - summary across all users (admin)
func Routes(h *Handler, res *identity.Resolver) http.Handler {
	r := chi.NewRouter()
	r.Use(res.Require(identity.ModeRead, nil))
	r.Get("/summary", h.ServeSummary)
	r.With(identity.RequireAdmin).Get("/summary/all", h.ServeSummaryAll)
	return r
}

// ServeSummary handles GET /summary.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		jsonutil.WriteError(w, apperr.Unauthenticated("authentication required"))
		return
	}
	if h.audit != nil && id.ActingUserID != "" {
		h.audit.OnBehalfRead(r.Context(), r, id.ActingUserID, id.UserID)
	}

	sum, err := h.summaries.ForUser(r.Context(), id.UserID)
	if err != nil {
		jsonutil.WriteError(w, err)
		return
	}
	jsonutil.OK(w, sum)
}

// ServeSummaryAll handles GET /summary/all.
func (h *Handler) ServeSummaryAll(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		jsonutil.WriteError(w, apperr.Unauthenticated("authentication required"))
		return
	}
	if h.audit != nil {
		h.audit.AllUsersRead(r.Context(), r, id.UserID)
	}

	sum, err := h.summaries.ForAll(r.Context())
	if err != nil {
		jsonutil.WriteError(w, err)
		return
	}
	jsonutil.OK(w, sum)
}
