package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const testKey = "xK8nP2mQ9rT5vW7yB3cF6hJ0lN4sU1wZ"

func newManager(t *testing.T, key string) *SessionManager {
	t.Helper()
	sm, err := NewSessionManager(SessionConfig{Key: key, MaxAge: time.Hour}, zap.NewNop())
	require.NoError(t, err)
	return sm
}

func TestNewSessionManager(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		secure  bool
		wantErr bool
	}{
		{"strong key dev", testKey, false, false},
		{"strong key secure", testKey, true, false},
		{"empty key", "", false, true},
		{"short key dev", "short", false, false},
		{"short key secure", "short", true, true},
		{"placeholder key secure", "dev-only-session-key-not-for-production", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm, err := NewSessionManager(SessionConfig{Key: tt.key, Secure: tt.secure}, zap.NewNop())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrWeakSessionKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultSessionName, sm.SessionName())
		})
	}
}

// cookieRequest saves ls with sm and returns a request carrying the cookie.
func cookieRequest(t *testing.T, sm *SessionManager, ls LoginSession) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, sm.CreateSession(rec, httptest.NewRequest(http.MethodPost, "/api/auth", nil), ls))

	req := httptest.NewRequest(http.MethodGet, "/api/analytics/summary", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestLoginSession_RoundTrip(t *testing.T) {
	sm := newManager(t, testKey)
	exp := time.Unix(1753741000, 0).UTC()

	got, ok := sm.LoginSession(cookieRequest(t, sm, LoginSession{AccessToken: "tok", UserID: "u-1", ExpiresAt: exp}))
	require.True(t, ok)
	assert.Equal(t, LoginSession{AccessToken: "tok", UserID: "u-1", ExpiresAt: exp}, got)
}

func TestLoginSession_Rejected(t *testing.T) {
	sm := newManager(t, testKey)
	other := newManager(t, "zW1uS4nL0jH6fC3bY7wV5tR9qM2pN8kX")

	_, ok := sm.LoginSession(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok, "no cookie")

	forged := cookieRequest(t, other, LoginSession{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)})
	_, ok = sm.LoginSession(forged)
	assert.False(t, ok, "cookie signed with another key")
}

func TestDestroySession(t *testing.T) {
	sm := newManager(t, testKey)
	req := cookieRequest(t, sm, LoginSession{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)})

	rec := httptest.NewRecorder()
	sm.DestroySession(rec, req)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestLoginSession_Expired(t *testing.T) {
	now := time.Unix(1753741000, 0)
	assert.False(t, LoginSession{ExpiresAt: now.Add(time.Minute)}.Expired(now))
	assert.True(t, LoginSession{ExpiresAt: now}.Expired(now))
	assert.True(t, LoginSession{ExpiresAt: now.Add(-time.Minute)}.Expired(now))
	assert.False(t, LoginSession{}.Expired(now), "unset expiry never expires")
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		wantOK bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"Bearer ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, ok := BearerToken(req)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestCookieToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sb-access-token", Value: "tok"})

	got, ok := CookieToken(req, "sb-access-token")
	assert.True(t, ok)
	assert.Equal(t, "tok", got)

	_, ok = CookieToken(req, "other")
	assert.False(t, ok)
	_, ok = CookieToken(req, "")
	assert.False(t, ok)
}

func TestWeakKey(t *testing.T) {
	for _, key := range []string{"short", "change-me-please-change-me-please!", "a-perfectly-long-password-string-here"} {
		assert.True(t, weakKey(key), key)
	}
	assert.False(t, weakKey(testKey))
}

func TestClassifyCookieError(t *testing.T) {
	tests := []struct {
		msg       string
		decode    bool
		wantLevel zapcore.Level
		wantCat   string
	}{
		{"securecookie: expired timestamp", true, zapcore.DebugLevel, "expired"},
		{"securecookie: the value is not valid (mac)", true, zapcore.WarnLevel, "mac_invalid"},
		{"securecookie: hash mismatch", true, zapcore.WarnLevel, "mac_invalid"},
		{"securecookie: decrypt failed", true, zapcore.InfoLevel, "decrypt_failed"},
		{"securecookie: base64 decode failed", true, zapcore.InfoLevel, "decode_failed"},
		{"securecookie: store unavailable", false, zapcore.ErrorLevel, "backend"},
	}
	for _, tt := range tests {
		t.Run(tt.wantCat+"/"+tt.msg, func(t *testing.T) {
			level, cat := classifyCookieError(fakeCookieError{msg: tt.msg, decode: tt.decode})
			assert.Equal(t, tt.wantLevel, level)
			assert.Equal(t, tt.wantCat, cat)
		})
	}

	level, cat := classifyCookieError(http.ErrNoCookie)
	assert.Equal(t, zapcore.ErrorLevel, level)
	assert.Equal(t, "unknown", cat)
}

// fakeCookieError satisfies securecookie.Error.
type fakeCookieError struct {
	msg    string
	decode bool
}

func (e fakeCookieError) Error() string    { return e.msg }
func (e fakeCookieError) IsDecode() bool   { return e.decode }
func (e fakeCookieError) IsUsage() bool    { return false }
func (e fakeCookieError) IsInternal() bool { return false }
func (e fakeCookieError) Cause() error     { return nil }
