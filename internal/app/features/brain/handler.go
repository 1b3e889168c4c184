// Package brain proxies brainstorming requests to the AI backend and records
// each one as a statement, whether or not the backend answered.
//
// Endpoints (mounted at /api/brain):
//   - POST /chat  - one chat turn; recorded as "asked"
//   - POST /graph - synthesize nodes and edges from text; recorded as "uploaded"
package brain

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mysre-platform/mysre/internal/app/system/aiclient"
	"github.com/mysre-platform/mysre/internal/app/system/apperr"
	"github.com/mysre-platform/mysre/internal/app/system/identity"
	"github.com/mysre-platform/mysre/internal/app/system/inputval"
	"github.com/mysre-platform/mysre/internal/app/system/jsonutil"
	"github.com/mysre-platform/mysre/internal/app/system/recorder"
	"github.com/mysre-platform/mysre/internal/domain/models"
	"go.uber.org/zap"
)

// Backend is the AI service.
type Backend interface {
	Chat(ctx context.Context, req aiclient.ChatRequest) (aiclient.ChatReply, error)
	SynthesizeGraph(ctx context.Context, req aiclient.GraphRequest) (aiclient.Graph, error)
}

// Handler serves the brain endpoints.
type Handler struct {
	backend  Backend
	recorder *recorder.Recorder
	logger   *zap.Logger
}

// NewHandler creates a new brain Handler.
func NewHandler(backend Backend, rec *recorder.Recorder, logger *zap.Logger) *Handler {
	return &Handler{backend: backend, recorder: rec, logger: logger}
}

// Routes returns a chi.Router with the brain routes mounted. Every route
// needs a writable identity since each call records a statement.
func Routes(h *Handler, res *identity.Resolver, audit identity.RejectAuditor) http.Handler {
	r := chi.NewRouter()
	r.Use(res.Require(identity.ModeWrite, audit))
	r.Post("/chat", h.Chat)
	r.Post("/graph", h.Graph)
	return r
}

type chatRequest struct {
	Message   string                 `json:"message" validate:"required,max=8000" label:"Message"`
	History   []aiclient.ChatMessage `json:"history"`
	ProjectID string                 `json:"projectId" validate:"uuid" label:"Project"`
}

type chatResponse struct {
	aiclient.ChatReply
	Statement *models.Statement `json:"statement,omitempty"`
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		jsonutil.WriteError(w, apperr.Unauthenticated("authentication required"))
		return
	}

	var req chatRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.WriteError(w, apperr.Validation("body", "invalid JSON: "+err.Error()))
		return
	}
	if err := inputval.Validate(req).Err(); err != nil {
		jsonutil.WriteError(w, err)
		return
	}

	reply, callErr := h.backend.Chat(r.Context(), aiclient.ChatRequest{
		Message:   req.Message,
		History:   req.History,
		ProjectID: req.ProjectID,
		UserID:    id.UserID,
	})

	// Record with the request context so a backend timeout does not also
	// cancel the write.
	st, recErr := h.recorder.RecordChatTurn(r.Context(), id, req.ProjectID, req.Message, callErr == nil)
	if recErr != nil {
		h.logger.Warn("asked statement not recorded",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("user_id", id.UserID),
			zap.Error(recErr))
	}

	if callErr != nil {
		jsonutil.WriteError(w, callErr)
		return
	}
	resp := chatResponse{ChatReply: reply}
	if recErr == nil {
		resp.Statement = &st
	}
	jsonutil.OK(w, resp)
}

type graphRequest struct {
	Text      string `json:"text" validate:"required" label:"Text"`
	Title     string `json:"title" validate:"max=200" label:"Title"`
	ProjectID string `json:"projectId" validate:"uuid" label:"Project"`
}

type graphResponse struct {
	aiclient.Graph
	Statement *models.Statement `json:"statement,omitempty"`
}

// Graph handles POST /graph.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		jsonutil.WriteError(w, apperr.Unauthenticated("authentication required"))
		return
	}

	var req graphRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.WriteError(w, apperr.Validation("body", "invalid JSON: "+err.Error()))
		return
	}
	if err := inputval.Validate(req).Err(); err != nil {
		jsonutil.WriteError(w, err)
		return
	}

	graph, callErr := h.backend.SynthesizeGraph(r.Context(), aiclient.GraphRequest{
		Text:      req.Text,
		Title:     req.Title,
		ProjectID: req.ProjectID,
		UserID:    id.UserID,
	})

	st, recErr := h.recorder.RecordGraphUpload(r.Context(), id, req.ProjectID, req.Title,
		len(graph.Nodes), len(graph.Edges), callErr == nil)
	if recErr != nil {
		h.logger.Warn("uploaded statement not recorded",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("user_id", id.UserID),
			zap.Error(recErr))
	}

	if callErr != nil {
		jsonutil.WriteError(w, callErr)
		return
	}
	resp := graphResponse{Graph: graph}
	if recErr == nil {
		resp.Statement = &st
	}
	jsonutil.OK(w, resp)
}
