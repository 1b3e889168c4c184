// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// Values come from config files, MYSRE_* environment variables, or
// command-line flags (loaded in LoadConfig). Framework settings such as
// ports, TLS, logging, CORS and body limits live in WAFFLE's CoreConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Login cookie configuration
	SessionKey    string        // signs the login cookie (must be strong in production)
	SessionName   string        // cookie name (default: mysre-session)
	SessionDomain string        // blank means current host
	SessionMaxAge time.Duration // default: 24h

	// Identity provider token verification
	ProviderJWTSecret   string // HS256 secret shared with the identity provider
	ProviderJWTAudience string // optional aud check
	ProviderJWTIssuer   string // optional iss check
	ProviderCookieName  string // provider session cookie read by the resolver

	// AI backend (MCP endpoint)
	AIBaseURL       string
	AITimeout       time.Duration
	AIGraphTimeout  time.Duration
	AIRatePerSecond float64
	AIRateBurst     int

	// Statement recording
	SessionDurationFallback time.Duration // reported when a session has no earlier statement
	SequenceMaxAttempts     int           // retries on a lost sequence race
	AnalyticsWindow         int           // statements read per summary

	// Background jobs
	StaleProjectMaxAge time.Duration

	// Audit logging: "all" (MongoDB + zap), "db", "log", or "off"
	AuditLogAuth  string // login, logout, rejected writes
	AuditLogAdmin string // on-behalf reads, promotions

	// Admin seeding
	SeedAdminEmail string // promoted to admin at startup once mirrored
}
