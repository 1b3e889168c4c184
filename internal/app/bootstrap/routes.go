// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	analyticsfeature "github.com/mysre-platform/mysre/internal/app/features/analytics"
	brainfeature "github.com/mysre-platform/mysre/internal/app/features/brain"
	healthfeature "github.com/mysre-platform/mysre/internal/app/features/health"
	loginfeature "github.com/mysre-platform/mysre/internal/app/features/login"
	logoutfeature "github.com/mysre-platform/mysre/internal/app/features/logout"
	projectsfeature "github.com/mysre-platform/mysre/internal/app/features/projects"
	xapifeature "github.com/mysre-platform/mysre/internal/app/features/xapi"
	projectstore "github.com/mysre-platform/mysre/internal/app/store/projects"
	"github.com/mysre-platform/mysre/internal/app/store/statements"
	userstore "github.com/mysre-platform/mysre/internal/app/store/users"
	"github.com/mysre-platform/mysre/internal/app/system/aiclient"
	"github.com/mysre-platform/mysre/internal/app/system/analytics"
	"github.com/mysre-platform/mysre/internal/app/system/auth"
	"github.com/mysre-platform/mysre/internal/app/system/identity"
	"github.com/mysre-platform/mysre/internal/app/system/metrics"
	"github.com/mysre-platform/mysre/internal/app/system/recorder"
	"go.uber.org/zap"
)

// requestTimeout bounds every request except the AI proxy, whose own
// upstream timeout is longer.
const requestTimeout = 30 * time.Second

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, index setup and
// Startup have completed. The stores, the resolver and the recorder are
// built once here and shared by every feature router.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(auth.SessionConfig{
		Key:    appCfg.SessionKey,
		Name:   appCfg.SessionName,
		Domain: appCfg.SessionDomain,
		MaxAge: appCfg.SessionMaxAge,
		Secure: secure,
	}, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}

	db := deps.MongoDatabase
	users := userstore.New(db)
	projects := projectstore.New(db)
	stmts := statements.New(db, statements.Options{
		MaxAttempts: appCfg.SequenceMaxAttempts,
		Metrics:     m,
	})
	auditLogger := newAuditLogger(appCfg, deps, logger)

	verifier := auth.NewTokenVerifier(appCfg.ProviderJWTSecret, appCfg.ProviderJWTAudience, appCfg.ProviderJWTIssuer)

	// The resolver re-reads the mirrored user on every request so that role
	// changes and disabled accounts take effect immediately.
	res := identity.NewResolver(identity.Config{
		Sessions:       sessionMgr,
		Verifier:       verifier,
		ProviderCookie: appCfg.ProviderCookieName,
		Users:          userstore.NewFetcher(db, logger),
		Projects:       projects,
		Metrics:        m,
		Logger:         logger,
	})

	rec := recorder.New(recorder.Config{
		Statements:       stmts,
		Projects:         projects,
		Metrics:          m,
		Logger:           logger,
		FallbackDuration: appCfg.SessionDurationFallback,
	})

	aggregator := analytics.NewAggregator(stmts, projects, appCfg.AnalyticsWindow, logger)

	r := chi.NewRouter()

	// Correlation id for resolver and recorder log lines.
	r.Use(chimw.RequestID)

	r.Use(m.Instrument)

	// CORS configuration is loaded from WAFFLE's CoreConfig
	// (enable_cors, cors_allowed_origins, ...).
	r.Use(middleware.CORSFromConfig(coreCfg))

	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	r.Handle("/metrics", m.Handler())

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout))

		xapiHandler := xapifeature.NewHandler(rec, stmts, auditLogger, logger)
		r.Mount("/api/xapi", xapifeature.Routes(xapiHandler, res, auditLogger))

		loginHandler := loginfeature.NewHandler(verifier, users, sessionMgr, rec, auditLogger, logger)
		logoutHandler := logoutfeature.NewHandler(sessionMgr, rec, auditLogger, logger)
		r.Route("/api/auth", func(r chi.Router) {
			r.Mount("/logout", logoutfeature.Routes(logoutHandler, res, auditLogger))
			r.Mount("/", loginfeature.Routes(loginHandler, res))
		})

		analyticsHandler := analyticsfeature.NewHandler(aggregator, auditLogger)
		r.Mount("/api/analytics", analyticsfeature.Routes(analyticsHandler, res))

		projectsHandler := projectsfeature.NewHandler(projects, logger)
		r.Mount("/api/projects", projectsfeature.Routes(projectsHandler, res, auditLogger))
	})

	if appCfg.AIBaseURL != "" {
		ai := aiclient.New(aiclient.Config{
			BaseURL:       appCfg.AIBaseURL,
			Timeout:       appCfg.AITimeout,
			GraphTimeout:  appCfg.AIGraphTimeout,
			RatePerSecond: appCfg.AIRatePerSecond,
			Burst:         appCfg.AIRateBurst,
			Metrics:       m,
			Logger:        logger,
		})
		brainHandler := brainfeature.NewHandler(ai, rec, logger)
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(brainTimeout(appCfg)))
			r.Mount("/api/brain", brainfeature.Routes(brainHandler, res, auditLogger))
		})
		logger.Info("AI backend proxy enabled", zap.String("base_url", appCfg.AIBaseURL))
	} else {
		logger.Info("AI backend proxy disabled: ai_base_url not set")
	}

	return r, nil
}

// brainTimeout leaves headroom over the slowest upstream call so the
// client's own deadline fires first and maps to 504.
func brainTimeout(appCfg AppConfig) time.Duration {
	d := appCfg.AIGraphTimeout
	if appCfg.AITimeout > d {
		d = appCfg.AITimeout
	}
	if d <= 0 {
		d = aiclient.DefaultGraphTimeout
	}
	return d + 10*time.Second
}
