// Package projectsfeature serves the brainstorming and writer project
// sessions a user owns.
package projectsfeature

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mysre-platform/mysre/internal/app/system/apperr"
	"github.com/mysre-platform/mysre/internal/app/system/identity"
	"github.com/mysre-platform/mysre/internal/app/system/inputval"
	"github.com/mysre-platform/mysre/internal/app/system/jsonutil"
	"github.com/mysre-platform/mysre/internal/app/system/timeouts"
	"github.com/mysre-platform/mysre/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ProjectStore is the part of the project store the handlers use.
type ProjectStore interface {
	Create(ctx context.Context, ownerID, kind, title string) (models.ProjectSession, error)
	GetByID(ctx context.Context, id string) (*models.ProjectSession, error)
	ListByOwner(ctx context.Context, ownerID, kind string, limit, page int64) ([]models.ProjectSession, error)
}

// Handler serves project sessions.
type Handler struct {
	projects ProjectStore
	logger   *zap.Logger
}

// NewHandler creates a new projects Handler.
func NewHandler(projects ProjectStore, logger *zap.Logger) *Handler {
	return &Handler{projects: projects, logger: logger}
}

// Routes returns a chi.Router with the project routes mounted.
//
// When mounted at /api/projects:
//   - POST /api/projects      - create a project (write identity)
//   - GET  /api/projects      - list the caller's projects
//   - GET  /api/projects/{id} - one of the caller's projects
func Routes(h *Handler, res *identity.Resolver, audit identity.RejectAuditor) http.Handler {
	r := chi.NewRouter()
	r.With(res.Require(identity.ModeWrite, audit)).Post("/", h.Create)
	r.Group(func(rr chi.Router) {
		rr.Use(res.Require(identity.ModeRead, nil))
		rr.Get("/", h.List)
		rr.Get("/{id}", h.Get)
	})
	return r
}

type createRequest struct {
	Kind  string `json:"kind" validate:"required,projectkind" label:"Kind"`
	Title string `json:"title" validate:"max=200" label:"Title"`
}

// Create handles POST /.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		jsonutil.WriteError(w, apperr.Unauthenticated("authentication required"))
		return
	}

	var req createRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.WriteError(w, apperr.Validation("body", "invalid JSON: "+err.Error()))
		return
	}
	if err := inputval.Validate(req).Err(); err != nil {
		jsonutil.WriteError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.projects.Create(ctx, id.UserID, req.Kind, req.Title)
	if err != nil {
		h.logger.Error("create project failed",
			zap.String("request_id", middleware.GetReqID(ctx)),
			zap.String("user_id", id.UserID),
			zap.Error(err))
		jsonutil.WriteError(w, apperr.Persistence(err, "could not create project"))
		return
	}
	jsonutil.Created(w, p)
}

// List handles GET /. Supports ?kind=, ?limit= and ?page=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		jsonutil.WriteError(w, apperr.Unauthenticated("authentication required"))
		return
	}

	q := r.URL.Query()
	kind := strings.TrimSpace(q.Get("kind"))
	if kind != "" && !models.IsValidProjectKind(strings.ToLower(kind)) {
		jsonutil.WriteError(w, apperr.Validation("kind", "kind must be one of: "+strings.Join(models.AllProjectKinds(), ", ")))
		return
	}
	limit, err := positiveInt(q.Get("limit"), "limit")
	if err != nil {
		jsonutil.WriteError(w, err)
		return
	}
	page, err := positiveInt(q.Get("page"), "page")
	if err != nil {
		jsonutil.WriteError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.projects.ListByOwner(ctx, id.UserID, kind, limit, page)
	if err != nil {
		h.logger.Error("list projects failed",
			zap.String("request_id", middleware.GetReqID(ctx)),
			zap.String("user_id", id.UserID),
			zap.Error(err))
		jsonutil.WriteError(w, apperr.Persistence(err, "could not list projects"))
		return
	}
	jsonutil.OK(w, map[string]any{"projects": list, "count": len(list)})
}

// Get handles GET /{id}. Projects owned by someone else are reported as
// not found.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		jsonutil.WriteError(w, apperr.Unauthenticated("authentication required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.projects.GetByID(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && p.OwnerID != id.UserID) {
		jsonutil.WriteError(w, apperr.NotFound("project not found"))
		return
	}
	if err != nil {
		h.logger.Error("load project failed",
			zap.String("request_id", middleware.GetReqID(ctx)),
			zap.Error(err))
		jsonutil.WriteError(w, apperr.Persistence(err, "could not load project"))
		return
	}
	jsonutil.OK(w, p)
}

// positiveInt parses an optional positive query value; 0 means unset.
func positiveInt(raw, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, apperr.Validation(field, field+" must be a positive integer")
	}
	return n, nil
}
