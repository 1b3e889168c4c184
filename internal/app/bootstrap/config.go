// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "MYSRE"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: MYSRE_MONGO_URI, MYSRE_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "mysre", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Login cookie signing key (must be strong in production)"},
	{Name: "session_name", Default: "mysre-session", Desc: "Login cookie name"},
	{Name: "session_domain", Default: "", Desc: "Login cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Login cookie max age (e.g., 24h, 720h, 30m)"},

	// Identity provider
	{Name: "provider_jwt_secret", Default: "", Desc: "HS256 secret used to verify identity provider access tokens"},
	{Name: "provider_jwt_audience", Default: "", Desc: "Expected aud claim (blank disables the check)"},
	{Name: "provider_jwt_issuer", Default: "", Desc: "Expected iss claim (blank disables the check)"},
	{Name: "provider_cookie_name", Default: "sb-access-token", Desc: "Identity provider cookie carrying an access token"},

	// AI backend
	{Name: "ai_base_url", Default: "", Desc: "AI backend MCP endpoint (blank disables /api/brain)"},
	{Name: "ai_timeout", Default: "30s", Desc: "Timeout for AI chat calls"},
	{Name: "ai_graph_timeout", Default: "90s", Desc: "Timeout for AI graph synthesis calls"},
	{Name: "ai_rate_per_second", Default: "5", Desc: "Outbound AI calls per second"},
	{Name: "ai_rate_burst", Default: 10, Desc: "Outbound AI call burst"},

	// Statement recording
	{Name: "session_duration_fallback", Default: "60s", Desc: "Duration reported for a session with no earlier statement"},
	{Name: "sequence_max_attempts", Default: 8, Desc: "Retries when two writers race for the same sequence number"},
	{Name: "analytics_window", Default: 10000, Desc: "Max statements read per analytics summary"},

	// Background jobs
	{Name: "stale_project_max_age", Default: "720h", Desc: "Age after which untouched project sessions are deleted"},

	// Audit logging
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Admin seeding
	{Name: "seed_admin_email", Default: "", Desc: "Email of a mirrored user to promote to admin on startup"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// WAFFLE_* and MYSRE_* environment variables and flags with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	rps, err := parseRate(appValues.String("ai_rate_per_second"))
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),

		// Identity provider
		ProviderJWTSecret:   appValues.String("provider_jwt_secret"),
		ProviderJWTAudience: appValues.String("provider_jwt_audience"),
		ProviderJWTIssuer:   appValues.String("provider_jwt_issuer"),
		ProviderCookieName:  appValues.String("provider_cookie_name"),

		// AI backend
		AIBaseURL:       appValues.String("ai_base_url"),
		AITimeout:       appValues.Duration("ai_timeout", 30*time.Second),
		AIGraphTimeout:  appValues.Duration("ai_graph_timeout", 90*time.Second),
		AIRatePerSecond: rps,
		AIRateBurst:     appValues.Int("ai_rate_burst"),

		// Statement recording
		SessionDurationFallback: appValues.Duration("session_duration_fallback", 60*time.Second),
		SequenceMaxAttempts:     appValues.Int("sequence_max_attempts"),
		AnalyticsWindow:         appValues.Int("analytics_window"),

		StaleProjectMaxAge: appValues.Duration("stale_project_max_age", 30*24*time.Hour),

		// Audit logging
		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		SeedAdminEmail: appValues.String("seed_admin_email"),
	}

	return coreCfg, appCfg, nil
}

// parseRate reads a non-negative float. Blank means "use the client default".
func parseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("ai_rate_per_second: invalid value %q", s)
	}
	return v, nil
}

var validAuditModes = map[string]bool{"all": true, "db": true, "log": true, "off": true, "": true}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if strings.TrimSpace(appCfg.ProviderJWTSecret) == "" {
		if coreCfg != nil && coreCfg.Env == "prod" {
			return errors.New("provider_jwt_secret is required in production")
		}
		logger.Warn("provider_jwt_secret not set: token, provider-cookie and login strategies are disabled")
	}

	if !validAuditModes[appCfg.AuditLogAuth] {
		return fmt.Errorf("audit_log_auth: invalid value %q", appCfg.AuditLogAuth)
	}
	if !validAuditModes[appCfg.AuditLogAdmin] {
		return fmt.Errorf("audit_log_admin: invalid value %q", appCfg.AuditLogAdmin)
	}

	if appCfg.SessionDurationFallback <= 0 {
		return errors.New("session_duration_fallback must be positive")
	}

	return nil
}
