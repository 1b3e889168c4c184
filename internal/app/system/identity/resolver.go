package identity

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mysre-platform/mysre/internal/app/system/apperr"
	"github.com/mysre-platform/mysre/internal/app/system/auth"
	"github.com/mysre-platform/mysre/internal/app/system/metrics"
	"github.com/mysre-platform/mysre/internal/app/system/sessionid"
	"github.com/mysre-platform/mysre/internal/domain/models"
	"go.uber.org/zap"
)

// LoginSessions reads the credential kept in the login cookie.
type LoginSessions interface {
	LoginSession(r *http.Request) (auth.LoginSession, bool)
}

// TokenVerifier validates identity-provider access tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.ProviderClaims, error)
}

// UserLookup loads mirrored users. It returns (nil, nil) when the user does
// not exist or is disabled, and an error only when the store failed.
type UserLookup interface {
	LookupUser(ctx context.Context, userID string) (*models.User, error)
}

// ProjectOwners resolves the owner of a project session. It returns
// ("", nil) when the project does not exist.
type ProjectOwners interface {
	OwnerOf(ctx context.Context, projectID string) (string, error)
}

// Resolver runs the fallback chain described in the package doc.
type Resolver struct {
	sessions       LoginSessions
	verifier       TokenVerifier
	providerCookie string
	users          UserLookup
	projects       ProjectOwners
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

// Config holds the collaborators of a Resolver. Sessions, Verifier and
// Projects may be nil, which disables the strategies that need them.
type Config struct {
	Sessions       LoginSessions
	Verifier       TokenVerifier
	ProviderCookie string
	Users          UserLookup
	Projects       ProjectOwners
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
}

func NewResolver(cfg Config) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		sessions:       cfg.Sessions,
		verifier:       cfg.Verifier,
		providerCookie: cfg.ProviderCookie,
		users:          cfg.Users,
		projects:       cfg.Projects,
		metrics:        cfg.Metrics,
		logger:         logger,
	}
}

// Resolve identifies the caller of r.
func (res *Resolver) Resolve(r *http.Request, mode Mode) (Identity, error) {
	id, err := res.resolve(r, mode)
	if err != nil {
		res.metrics.IdentityResolved("none", "none")
		res.logger.Debug("identity not resolved",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		return Identity{}, err
	}
	res.metrics.IdentityResolved(string(id.Source), string(id.Strategy))
	return id, nil
}

func (res *Resolver) resolve(r *http.Request, mode Mode) (Identity, error) {
	ctx := r.Context()
	q := r.URL.Query()

	strong, ok, err := res.strong(ctx, r)
	if err != nil {
		return Identity{}, err
	}
	if ok {
		if mode == ModeRead {
			return res.onBehalfOf(ctx, strong, strings.TrimSpace(q.Get(ParamUserID)))
		}
		return strong, nil
	}

	if raw := strings.TrimSpace(q.Get(ParamSessionID)); raw != "" {
		id, ok, err := res.fromSessionParam(ctx, raw)
		if err != nil {
			return Identity{}, err
		}
		if ok {
			return id, nil
		}
	}

	if mode == ModeWrite {
		return Identity{}, apperr.Unauthenticated("authentication required")
	}

	if raw := strings.TrimSpace(q.Get(ParamUserID)); raw != "" {
		u, err := res.lookup(ctx, raw)
		if err != nil {
			return Identity{}, err
		}
		if u != nil {
			return fromUser(u, SourceDerived, StrategyUserParam), nil
		}
	}

	if raw := strings.TrimSpace(q.Get(ParamProjectID)); raw != "" && res.projects != nil {
		owner, err := res.projects.OwnerOf(ctx, raw)
		if err != nil {
			res.logger.Warn("project owner lookup failed during identity resolution",
				zap.String("request_id", middleware.GetReqID(ctx)),
				zap.String("project_id", raw),
				zap.Error(err))
			return Identity{}, &apperr.Error{Kind: apperr.KindUnauthenticated, Message: "authentication required", Err: err}
		}
		if owner != "" {
			u, err := res.lookup(ctx, owner)
			if err != nil {
				return Identity{}, err
			}
			if u != nil {
				return fromUser(u, SourceReadOnly, StrategyOwnedResource), nil
			}
		}
	}

	return Identity{}, apperr.Unauthenticated("authentication required")
}

// strong tries every credential carrier in turn. An invalid token only
// fails this step; a user-store failure fails the whole resolution.
func (res *Resolver) strong(ctx context.Context, r *http.Request) (Identity, bool, error) {
	if res.verifier == nil {
		return Identity{}, false, nil
	}

	type candidate struct {
		token    string
		strategy Strategy
	}
	var cands []candidate
	if res.sessions != nil {
		if ls, ok := res.sessions.LoginSession(r); ok {
			cands = append(cands, candidate{ls.AccessToken, StrategyCookie})
		}
	}
	if tok, ok := auth.CookieToken(r, res.providerCookie); ok {
		cands = append(cands, candidate{tok, StrategyCookie})
	}
	if tok, ok := auth.BearerToken(r); ok {
		cands = append(cands, candidate{tok, StrategyBearer})
	}

	for _, c := range cands {
		claims, err := res.verifier.Verify(c.token)
		if err != nil {
			res.logger.Debug("access token rejected",
				zap.String("request_id", middleware.GetReqID(ctx)),
				zap.String("strategy", string(c.strategy)),
				zap.Error(err))
			continue
		}
		id := FromClaims(claims, c.strategy, c.token)

		// A mirror promoted to admin raises the token's role. The mirror
		// does not exist before the first login.
		u, err := res.lookup(ctx, id.UserID)
		if err != nil {
			return Identity{}, false, err
		}
		if u != nil && u.Role == models.RoleAdmin {
			id.Role = models.RoleAdmin
		}
		return id, true, nil
	}
	return Identity{}, false, nil
}

// onBehalfOf lets an admin read another user's data via ?userId=.
// Non-admins keep their own identity and the parameter is ignored.
func (res *Resolver) onBehalfOf(ctx context.Context, strong Identity, target string) (Identity, error) {
	if target == "" || target == strong.UserID || !strong.IsAdmin() {
		return strong, nil
	}
	u, err := res.lookup(ctx, target)
	if err != nil {
		return Identity{}, err
	}
	if u == nil {
		return Identity{}, apperr.NotFound("user not found")
	}
	id := fromUser(u, SourceDerived, StrategyUserParam)
	id.ActingUserID = strong.UserID
	return id, nil
}

func (res *Resolver) fromSessionParam(ctx context.Context, raw string) (Identity, bool, error) {
	userID, ok := sessionid.ParseUserID(raw)
	if !ok {
		return Identity{}, false, nil
	}
	u, err := res.lookup(ctx, userID)
	if err != nil || u == nil {
		return Identity{}, false, err
	}
	id := fromUser(u, SourceDerived, StrategySessionParam)
	// A bare UUID is itself the session id; it carries no expiry.
	id.SessionID = raw
	if raw != userID {
		if secs, err := strconv.ParseInt(raw[len(userID)+1:], 10, 64); err == nil {
			id.ExpiresAt = time.Unix(secs, 0).UTC()
		}
	}
	return id, true, nil
}

func (res *Resolver) lookup(ctx context.Context, userID string) (*models.User, error) {
	if res.users == nil {
		return nil, nil
	}
	u, err := res.users.LookupUser(ctx, userID)
	if err != nil {
		res.logger.Warn("user lookup failed during identity resolution",
			zap.String("request_id", middleware.GetReqID(ctx)),
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, &apperr.Error{Kind: apperr.KindUnauthenticated, Message: "authentication required", Err: err}
	}
	return u, nil
}
