// internal/app/features/health/health.go
package health

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mysre-platform/mysre/internal/app/system/jsonutil"
	"github.com/mysre-platform/mysre/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger checks that the database answers. *mongo.Client satisfies it.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// Handler provides health check endpoints.
type Handler struct {
	db     Pinger
	logger *zap.Logger
}

// NewHandler creates a new health check Handler.
func NewHandler(db Pinger, logger *zap.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// Response represents the health check response.
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// Routes returns a chi.Router with health check routes mounted.
// Provides /health (full check), /health/ready, and /health/live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds the Kubernetes probe paths to the root router:
// /ready and /readyz for readiness, /livez for liveness.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

func (h *Handler) ping(r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()
	return h.db.Ping(ctx, readpref.Primary())
}

// Check reports the state of every dependency. The statement log lives in
// MongoDB, so a failed ping means the service is degraded.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	resp := Response{Status: "ok", Services: map[string]string{"mongodb": "ok"}}
	if err := h.ping(r); err != nil {
		h.logger.Warn("health check: mongodb ping failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Services["mongodb"] = "unavailable"
		jsonutil.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	jsonutil.OK(w, resp)
}

// Ready reports whether the service can accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.ping(r); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		jsonutil.JSON(w, http.StatusServiceUnavailable, Response{Status: "not ready"})
		return
	}
	jsonutil.OK(w, Response{Status: "ready"})
}

// Live reports that the process is up.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, Response{Status: "alive"})
}
