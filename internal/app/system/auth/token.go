package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mysre-platform/mysre/internal/app/system/apperr"
)

// ProviderClaims are the claims the identity provider puts in its access
// tokens. Only the fields the recorder needs are decoded.
type ProviderClaims struct {
	Email        string       `json:"email,omitempty"`
	Role         string       `json:"role,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata,omitempty"`
	AppMetadata  AppMetadata  `json:"app_metadata,omitempty"`
	jwt.RegisteredClaims
}

type UserMetadata struct {
	FullName string `json:"full_name,omitempty"`
	Name     string `json:"name,omitempty"`
}

type AppMetadata struct {
	Role string `json:"role,omitempty"`
}

// DisplayName prefers the profile's full name, then name, then the email.
func (c *ProviderClaims) DisplayName() string {
	switch {
	case c.UserMetadata.FullName != "":
		return c.UserMetadata.FullName
	case c.UserMetadata.Name != "":
		return c.UserMetadata.Name
	default:
		return c.Email
	}
}

// AppRole maps provider roles onto this service's roles. Only an explicit
// "admin" grants admin; everything else is a regular user.
func (c *ProviderClaims) AppRole() string {
	if strings.EqualFold(c.AppMetadata.Role, "admin") || strings.EqualFold(c.Role, "admin") {
		return "admin"
	}
	return "user"
}

// Expiry returns the exp claim, or the zero time when absent.
func (c *ProviderClaims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TokenVerifier validates HS256 access tokens issued by the identity provider.
type TokenVerifier struct {
	secret   []byte
	audience string
	issuer   string
	leeway   time.Duration
	now      func() time.Time
}

// NewTokenVerifier builds a verifier. Empty audience or issuer disables
// that check.
func NewTokenVerifier(secret, audience, issuer string) *TokenVerifier {
	return &TokenVerifier{
		secret:   []byte(secret),
		audience: audience,
		issuer:   issuer,
		leeway:   5 * time.Second,
		now:      time.Now,
	}
}

// Configured reports whether a provider secret is set.
func (v *TokenVerifier) Configured() bool {
	return v != nil && len(v.secret) > 0
}

// Verify parses and validates tokenString. Tokens without a subject or
// without an expiry are rejected because neither a user id nor a derived
// session id could be built from them.
func (v *TokenVerifier) Verify(tokenString string) (*ProviderClaims, error) {
	if !v.Configured() {
		return nil, apperr.Unauthenticated("identity provider not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &ProviderClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &apperr.Error{Kind: apperr.KindUnauthenticated, Message: "token expired", Err: err}
		}
		return nil, &apperr.Error{Kind: apperr.KindUnauthenticated, Message: "invalid token", Err: err}
	}
	if !parsed.Valid {
		return nil, apperr.Unauthenticated("invalid token")
	}
	if claims.Subject == "" {
		return nil, apperr.Unauthenticated("token has no subject")
	}
	return claims, nil
}
