// Package auth holds the credential plumbing shared by the login flow and
// the identity resolver: the signed login cookie, bearer and provider
// cookie extraction, and provider token verification.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Keys inside the login cookie.
const (
	keyAuthenticated = "is_authenticated"
	keyAccessToken   = "access_token"
	keyExpiresAt     = "expires_at"
	keyUserID        = "user_id"
)

// DefaultSessionName is the login cookie name when none is configured.
const DefaultSessionName = "mysre-session"

// minKeyLen is the shortest signing key accepted in secure mode.
const minKeyLen = 32

// ErrWeakSessionKey is returned when the signing key is empty, or when it
// is short or a placeholder while cookies are marked Secure.
var ErrWeakSessionKey = errors.New("auth: session key must be at least 32 random characters")

// SessionConfig describes the login cookie.
type SessionConfig struct {
	Key    string
	Name   string        // DefaultSessionName when empty
	Domain string        // empty means the current host
	MaxAge time.Duration // cookie lifetime
	Secure bool          // HTTPS-only cookies; also enforces a strong key
}

// LoginSession is the provider credential carried by the login cookie.
// Its ExpiresAt feeds the derived session id.
type LoginSession struct {
	AccessToken string
	UserID      string
	ExpiresAt   time.Time
}

// Expired reports whether the credential's expiry has passed.
func (s LoginSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SessionManager reads and writes the login cookie so browser clients need
// not resend the provider token on every request.
type SessionManager struct {
	store  *sessions.CookieStore
	logger *zap.Logger
	name   string
}

// NewSessionManager validates cfg and builds the cookie store. A weak key
// is fatal in secure mode and a warning otherwise.
func NewSessionManager(cfg SessionConfig, logger *zap.Logger) (*SessionManager, error) {
	if cfg.Key == "" {
		return nil, ErrWeakSessionKey
	}
	if weakKey(cfg.Key) {
		if cfg.Secure {
			return nil, ErrWeakSessionKey
		}
		logger.Warn("session key is weak; use 32+ random chars in production",
			zap.Int("length", len(cfg.Key)))
	}

	name := cfg.Name
	if name == "" {
		name = DefaultSessionName
	}

	store := sessions.NewCookieStore([]byte(cfg.Key))
	store.Options = &sessions.Options{
		Domain:   cfg.Domain,
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: true,
		// Lax blocks cross-site POSTs to the JSON write endpoints.
		SameSite: http.SameSiteLaxMode,
	}

	logger.Info("session manager initialized",
		zap.Bool("secure", cfg.Secure),
		zap.String("name", name),
		zap.String("domain", cfg.Domain))

	return &SessionManager{store: store, logger: logger, name: name}, nil
}

// SessionName returns the login cookie name.
func (sm *SessionManager) SessionName() string { return sm.name }

// LoginSession returns the credential in the request's login cookie.
// A missing or unreadable cookie yields ok=false.
func (sm *SessionManager) LoginSession(r *http.Request) (LoginSession, bool) {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		sm.logCookieError(r, err)
		return LoginSession{}, false
	}
	if ok, _ := sess.Values[keyAuthenticated].(bool); !ok {
		return LoginSession{}, false
	}

	ls := LoginSession{}
	ls.AccessToken, _ = sess.Values[keyAccessToken].(string)
	ls.UserID, _ = sess.Values[keyUserID].(string)
	if exp, ok := sess.Values[keyExpiresAt].(int64); ok {
		ls.ExpiresAt = time.Unix(exp, 0).UTC()
	}
	if ls.AccessToken == "" {
		return LoginSession{}, false
	}
	return ls, true
}

// CreateSession writes ls into the login cookie.
func (sm *SessionManager) CreateSession(w http.ResponseWriter, r *http.Request, ls LoginSession) error {
	sess := sm.session(r)
	sess.Values[keyAuthenticated] = true
	sess.Values[keyAccessToken] = ls.AccessToken
	sess.Values[keyUserID] = ls.UserID
	sess.Values[keyExpiresAt] = ls.ExpiresAt.Unix()
	return sess.Save(r, w)
}

// DestroySession expires the login cookie.
func (sm *SessionManager) DestroySession(w http.ResponseWriter, r *http.Request) {
	sess := sm.session(r)
	for _, k := range []string{keyAccessToken, keyUserID, keyExpiresAt} {
		delete(sess.Values, k)
	}
	sess.Values[keyAuthenticated] = false
	sess.Options.MaxAge = -1
	_ = sess.Save(r, w)
}

// session returns the request's cookie session, or a fresh one when the
// existing cookie cannot be decoded.
func (sm *SessionManager) session(r *http.Request) *sessions.Session {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		sess, _ = sm.store.New(r, sm.name)
	}
	return sess
}

func (sm *SessionManager) logCookieError(r *http.Request, err error) {
	level, category := classifyCookieError(err)
	fields := []zap.Field{
		zap.String("category", category),
		zap.String("path", r.URL.Path),
	}
	if level >= zapcore.WarnLevel {
		fields = append(fields,
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
	}
	if ce := sm.logger.Check(level, "login cookie rejected"); ce != nil {
		ce.Write(fields...)
	}
}

// classifyCookieError picks a log level and category for a cookie decode
// failure. Expiry is routine, a bad MAC may be tampering, and anything
// that is not a decode error points at the store itself.
func classifyCookieError(err error) (zapcore.Level, string) {
	var scErr securecookie.Error
	if !errors.As(err, &scErr) {
		return zapcore.ErrorLevel, "unknown"
	}
	if !scErr.IsDecode() {
		return zapcore.ErrorLevel, "backend"
	}

	msg := strings.ToLower(scErr.Error())
	switch {
	case strings.Contains(msg, "expired timestamp"):
		return zapcore.DebugLevel, "expired"
	case strings.Contains(msg, "mac"), strings.Contains(msg, "hash"):
		return zapcore.WarnLevel, "mac_invalid"
	case strings.Contains(msg, "decrypt"):
		return zapcore.InfoLevel, "decrypt_failed"
	default:
		return zapcore.InfoLevel, "decode_failed"
	}
}

var placeholderKeys = []string{
	"dev-only", "change-me", "placeholder", "default",
	"example", "insecure", "test-key", "secret123", "password",
}

// weakKey reports whether key is short or looks like a placeholder.
func weakKey(key string) bool {
	if len(key) < minKeyLen {
		return true
	}
	lower := strings.ToLower(key)
	for _, p := range placeholderKeys {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
