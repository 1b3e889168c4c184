// Package identity resolves who is making a request.
//
// Resolution is an ordered fallback chain; the first strategy that succeeds
// wins and the result is tagged with where it came from:
//
//  1. strong: a verified identity-provider access token, taken from the
//     login cookie, the provider's own cookie, or an Authorization header.
//  2. derived: a "sessionId" query parameter holding a derived session id
//     or bare UUID whose user exists in the user store.
//  3. derived: a "userId" query parameter naming an existing user.
//  4. read_only: a "projectId" query parameter naming a project session;
//     its owner becomes the effective identity.
//
// Write endpoints run steps 1 and 2 only. When nothing succeeds the result
// is apperr.Unauthenticated, never a partial identity.
package identity

import (
	"time"

	"github.com/mysre-platform/mysre/internal/app/system/auth"
	"github.com/mysre-platform/mysre/internal/app/system/sessionid"
	"github.com/mysre-platform/mysre/internal/domain/models"
)

// Source says how trustworthy an Identity is.
type Source string

const (
	SourceStrong   Source = "strong"
	SourceDerived  Source = "derived"
	SourceReadOnly Source = "read_only"
)

// Strategy names the step of the chain that produced an Identity.
type Strategy string

const (
	StrategyCookie        Strategy = "cookie"
	StrategyBearer        Strategy = "bearer"
	StrategySessionParam  Strategy = "session_param"
	StrategyUserParam     Strategy = "user_param"
	StrategyOwnedResource Strategy = "owned_resource"
)

// Mode selects which strategies a caller accepts.
type Mode int

const (
	// ModeWrite accepts the strong path and the derived session id.
	ModeWrite Mode = iota
	// ModeRead accepts every strategy.
	ModeRead
)

// Query parameter names read by the resolver.
const (
	ParamSessionID = "sessionId"
	ParamUserID    = "userId"
	ParamProjectID = "projectId"
)

// Identity is a resolved caller.
type Identity struct {
	UserID   string
	Email    string
	Name     string
	Role     string
	Source   Source
	Strategy Strategy

	// ExpiresAt is the credential expiry the derived session id is built
	// from. Zero when the strategy carried no expiry.
	ExpiresAt time.Time

	// SessionID is the derived session id supplied by or computed for the
	// caller. Empty when neither a token expiry nor a session parameter
	// was available.
	SessionID string

	// ActingUserID is set when an admin reads on behalf of another user.
	ActingUserID string

	// AccessToken is the verified provider token on the strong path.
	AccessToken string
}

// Writable reports whether the identity may be used to record data.
func (id Identity) Writable() bool {
	switch id.Source {
	case SourceStrong:
		return true
	case SourceDerived:
		return id.Strategy == StrategySessionParam
	default:
		return false
	}
}

// IsAdmin reports whether the identity has the admin role.
func (id Identity) IsAdmin() bool {
	return id.Role == models.RoleAdmin
}

// Mailbox returns the xAPI actor mailbox for the identity.
func (id Identity) Mailbox() string {
	if id.Email == "" {
		return ""
	}
	return "mailto:" + id.Email
}

// FromClaims builds a strong identity from verified provider claims.
func FromClaims(claims *auth.ProviderClaims, strategy Strategy, token string) Identity {
	exp := claims.Expiry()
	return Identity{
		UserID:      claims.Subject,
		Email:       claims.Email,
		Name:        claims.DisplayName(),
		Role:        claims.AppRole(),
		Source:      SourceStrong,
		Strategy:    strategy,
		ExpiresAt:   exp,
		SessionID:   sessionid.FromExpiry(claims.Subject, exp),
		AccessToken: token,
	}
}

func fromUser(u *models.User, source Source, strategy Strategy) Identity {
	return Identity{
		UserID:   u.ID,
		Email:    u.Email,
		Name:     u.FullName,
		Role:     u.Role,
		Source:   source,
		Strategy: strategy,
	}
}
