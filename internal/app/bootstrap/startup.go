// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"github.com/mysre-platform/mysre/internal/app/store/audit"
	projectstore "github.com/mysre-platform/mysre/internal/app/store/projects"
	"github.com/mysre-platform/mysre/internal/app/store/statements"
	userstore "github.com/mysre-platform/mysre/internal/app/store/users"
	"github.com/mysre-platform/mysre/internal/app/system/auditlog"
	"github.com/mysre-platform/mysre/internal/app/system/seeding"
	"github.com/mysre-platform/mysre/internal/app/system/tasks"
	"github.com/mysre-platform/mysre/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// Returning a non-nil error aborts startup. The context is cancelled if the
// process is asked to shut down while Startup is running.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("applied timeout overrides from environment", zap.Int("count", n))
	}

	auditLogger := newAuditLogger(appCfg, deps, logger)
	users := userstore.New(deps.MongoDatabase)
	if err := seeding.SeedAll(ctx, seeding.Options{AdminEmail: appCfg.SeedAdminEmail}, users, auditLogger, logger); err != nil {
		logger.Error("failed to seed admin user", zap.Error(err))
		return err
	}

	startTaskRunner(appCfg, deps, logger)
	return nil
}

// taskRunner is the process-wide task runner, kept for Shutdown.
var taskRunner *tasks.Runner

// startTaskRunner registers the periodic jobs and starts them.
func startTaskRunner(appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	taskRunner = tasks.New(logger, deps.Metrics)

	stmts := statements.New(deps.MongoDatabase, statements.Options{})
	projects := projectstore.New(deps.MongoDatabase)

	taskRunner.Register(tasks.StatementStatsJob(stmts, deps.Metrics, logger))
	taskRunner.Register(tasks.StaleProjectCleanupJob(projects, appCfg.StaleProjectMaxAge, logger))

	taskRunner.Start()
}

func newAuditLogger(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *auditlog.Logger {
	return auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})
}
