package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/google/uuid"
	"github.com/mysre-platform/mysre/internal/app/system/identity"
	"github.com/mysre-platform/mysre/internal/app/system/sessionid"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// RegularUser returns a TestUser with a fresh UUID and the user role.
func RegularUser() TestUser {
	return TestUser{
		ID:    uuid.NewString(),
		Name:  "Test User",
		Email: "user@test.com",
		Role:  "user",
	}
}

// AdminUser returns a TestUser with admin role.
func AdminUser() TestUser {
	return TestUser{
		ID:    uuid.NewString(),
		Name:  "Test Admin",
		Email: "admin@test.com",
		Role:  "admin",
	}
}

// TestExpiry is the credential expiry used for strong test identities.
const TestExpiry = 1753741000

// Identity returns a strong identity for user whose derived session id is
// built from TestExpiry.
func (u TestUser) Identity() identity.Identity {
	return identity.Identity{
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Source:    identity.SourceStrong,
		Strategy:  identity.StrategyBearer,
		SessionID: sessionid.Derive(u.ID, TestExpiry),
	}
}

// WithUser adds a strong identity for user to the request context.
// This bypasses the resolver and injects the identity directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return WithIdentity(r, user.Identity())
}

// WithIdentity adds id to the request context.
func WithIdentity(r *http.Request, id identity.Identity) *http.Request {
	return r.WithContext(identity.WithIdentity(r.Context(), id))
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewAuthenticatedRequest creates an HTTP request with a user in context.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return WithUser(req, user)
}

// NewJSONRequest creates an authenticated request with a JSON body.
func NewJSONRequest(method, target, body string, user TestUser) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	return WithUser(req, user)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	body := r.Body.String()
	if !strings.Contains(body, expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}
