package xapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mysre-platform/mysre/internal/app/system/identity"
)

// Routes returns a chi.Router with the statement endpoints mounted.
//
// Writes accept only the strong identity or a derived session id; reads
// accept the whole resolver chain.
func Routes(h *Handler, res *identity.Resolver, audit identity.RejectAuditor) http.Handler {
	r := chi.NewRouter()

	r.Group(func(wr chi.Router) {
		wr.Use(res.Require(identity.ModeWrite, audit))
		wr.Post("/statements", h.Record)
		wr.Post("/pageviews", h.PageView)
	})

	r.Group(func(rr chi.Router) {
		rr.Use(res.Require(identity.ModeRead, nil))
		rr.Get("/statements", h.List)
		rr.Get("/sessions/duration", h.Duration)
	})

	return r
}
