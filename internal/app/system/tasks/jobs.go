// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/mysre-platform/mysre/internal/app/system/metrics"
	"go.uber.org/zap"
)

// Default schedule for the built-in jobs.
const (
	StatementStatsInterval = 5 * time.Minute
	StaleProjectInterval   = 6 * time.Hour
	StaleProjectMaxAge     = 30 * 24 * time.Hour
)

// StatementCounter reports how many statements are stored.
type StatementCounter interface {
	CountAll(ctx context.Context) (int64, error)
}

// StaleProjectDeleter removes projects that never saw activity.
type StaleProjectDeleter interface {
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// StatementStatsJob refreshes the statements_stored gauge.
func StatementStatsJob(statements StatementCounter, m *metrics.Metrics, logger *zap.Logger) Job {
	return Job{
		Name:     "statement-stats",
		Interval: StatementStatsInterval,
		Timeout:  30 * time.Second,
		Run: func(ctx context.Context) error {
			n, err := statements.CountAll(ctx)
			if err != nil {
				return err
			}
			m.SetStatementsStored(n)
			logger.Debug("statement stats refreshed", zap.Int64("statements", n))
			return nil
		},
	}
}

// StaleProjectCleanupJob deletes project sessions older than maxAge that
// never had a statement recorded against them.
func StaleProjectCleanupJob(projects StaleProjectDeleter, maxAge time.Duration, logger *zap.Logger) Job {
	if maxAge <= 0 {
		maxAge = StaleProjectMaxAge
	}
	return Job{
		Name:     "stale-project-cleanup",
		Interval: StaleProjectInterval,
		Timeout:  2 * time.Minute,
		Run: func(ctx context.Context) error {
			cutoff := time.Now().UTC().Add(-maxAge)
			deleted, err := projects.DeleteStale(ctx, cutoff)
			if err != nil {
				return err
			}
			if deleted > 0 {
				logger.Info("cleaned up stale project sessions",
					zap.Int64("deleted", deleted),
					zap.Time("cutoff", cutoff))
			}
			return nil
		},
	}
}
