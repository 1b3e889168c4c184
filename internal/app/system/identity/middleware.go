package identity

import (
	"context"
	"net/http"

	"github.com/mysre-platform/mysre/internal/app/system/apperr"
	"github.com/mysre-platform/mysre/internal/app/system/jsonutil"
)

type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity stored by Require.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// RejectAuditor is told about write attempts that could not be attributed
// to anyone.
type RejectAuditor interface {
	UnauthenticatedWrite(ctx context.Context, r *http.Request, reason string)
}

// Require resolves the caller with the given mode and stores the identity
// in the request context. Unresolved callers get the apperr response.
// In ModeWrite, identities that are not Writable are rejected with 403.
func (res *Resolver) Require(mode Mode, audit RejectAuditor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := res.Resolve(r, mode)
			if err != nil {
				if mode == ModeWrite && audit != nil {
					audit.UnauthenticatedWrite(r.Context(), r, err.Error())
				}
				jsonutil.WriteError(w, err)
				return
			}
			if mode == ModeWrite && !id.Writable() {
				jsonutil.WriteError(w, apperr.Forbidden("identity may not record data"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin lets only strong admin identities through. It must run
// after Require.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok {
			jsonutil.WriteError(w, apperr.Unauthenticated("authentication required"))
			return
		}
		if id.Source != SourceStrong || !id.IsAdmin() {
			jsonutil.WriteError(w, apperr.Forbidden("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
