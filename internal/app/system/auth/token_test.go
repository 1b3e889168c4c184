package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mysre-platform/mysre/internal/app/system/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "provider-signing-secret-for-tests"

var fixedNow = time.Unix(1700000000, 0)

func sign(t *testing.T, secret string, method jwt.SigningMethod, c ProviderClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, c).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func validClaims() ProviderClaims {
	return ProviderClaims{
		Email:        "ada@example.com",
		UserMetadata: UserMetadata{FullName: "Ada Lovelace"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "3f2b8c1e-9a4d-4e7f-b1c2-0d9e8f7a6b5c",
			Audience:  jwt.ClaimStrings{"authenticated"},
			Issuer:    "https://idp.example.com/auth/v1",
			ExpiresAt: jwt.NewNumericDate(fixedNow.Add(time.Hour)),
		},
	}
}

func newVerifier() *TokenVerifier {
	v := NewTokenVerifier(testSecret, "authenticated", "https://idp.example.com/auth/v1")
	v.now = func() time.Time { return fixedNow }
	return v
}

func TestVerify_Valid(t *testing.T) {
	claims, err := newVerifier().Verify(sign(t, testSecret, jwt.SigningMethodHS256, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "3f2b8c1e-9a4d-4e7f-b1c2-0d9e8f7a6b5c", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Ada Lovelace", claims.DisplayName())
	assert.Equal(t, "user", claims.AppRole())
	assert.True(t, claims.Expiry().Equal(fixedNow.Add(time.Hour)))
}

func TestVerify_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		token  func(t *testing.T) string
		errMsg string
	}{
		{"expired", func(t *testing.T) string {
			c := validClaims()
			c.ExpiresAt = jwt.NewNumericDate(fixedNow.Add(-time.Minute))
			return sign(t, testSecret, jwt.SigningMethodHS256, c)
		}, "token expired"},
		{"wrong secret", func(t *testing.T) string {
			return sign(t, "some-other-secret", jwt.SigningMethodHS256, validClaims())
		}, "invalid token"},
		{"wrong algorithm", func(t *testing.T) string {
			return sign(t, testSecret, jwt.SigningMethodHS512, validClaims())
		}, "invalid token"},
		{"wrong audience", func(t *testing.T) string {
			c := validClaims()
			c.Audience = jwt.ClaimStrings{"anon"}
			return sign(t, testSecret, jwt.SigningMethodHS256, c)
		}, "invalid token"},
		{"no expiry", func(t *testing.T) string {
			c := validClaims()
			c.ExpiresAt = nil
			return sign(t, testSecret, jwt.SigningMethodHS256, c)
		}, "invalid token"},
		{"no subject", func(t *testing.T) string {
			c := validClaims()
			c.Subject = ""
			return sign(t, testSecret, jwt.SigningMethodHS256, c)
		}, "token has no subject"},
		{"garbage", func(t *testing.T) string { return "not.a.jwt" }, "invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newVerifier().Verify(tt.token(t))
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))
			assert.Equal(t, tt.errMsg, err.Error())
		})
	}
}

func TestVerify_NotConfigured(t *testing.T) {
	_, err := NewTokenVerifier("", "", "").Verify("anything")
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))

	var nilVerifier *TokenVerifier
	assert.False(t, nilVerifier.Configured())
}

func TestProviderClaims_AppRole(t *testing.T) {
	c := validClaims()
	c.Role = "authenticated"
	assert.Equal(t, "user", c.AppRole())

	c.AppMetadata.Role = "admin"
	assert.Equal(t, "admin", c.AppRole())
}

func TestProviderClaims_DisplayNameFallback(t *testing.T) {
	c := validClaims()
	c.UserMetadata = UserMetadata{Name: "ada"}
	assert.Equal(t, "ada", c.DisplayName())
	c.UserMetadata = UserMetadata{}
	assert.Equal(t, "ada@example.com", c.DisplayName())
}
