package analytics

import (
	"context"
	"time"

	"github.com/mysre-platform/mysre/internal/app/system/apperr"
	"github.com/mysre-platform/mysre/internal/app/system/timeouts"
	"github.com/mysre-platform/mysre/internal/domain/models"
	"go.uber.org/zap"
)

// DefaultWindow bounds how many statements one summary reads.
const DefaultWindow = 10000

// StatementReader lists statements newest first.
type StatementReader interface {
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.Statement, error)
	ListRecent(ctx context.Context, limit int64) ([]models.Statement, error)
}

// ProjectCounter counts project sessions.
type ProjectCounter interface {
	CountByOwner(ctx context.Context, ownerID string) (map[string]int64, error)
	CountAll(ctx context.Context) (int64, error)
}

// Aggregator loads statements and project counts and summarizes them.
type Aggregator struct {
	statements StatementReader
	projects   ProjectCounter
	window     int64
	logger     *zap.Logger
	now        func() time.Time
}

// NewAggregator creates an Aggregator. window <= 0 uses DefaultWindow.
func NewAggregator(statements StatementReader, projects ProjectCounter, window int, logger *zap.Logger) *Aggregator {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		statements: statements,
		projects:   projects,
		window:     int64(window),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ForUser summarizes one user's activity.
func (a *Aggregator) ForUser(ctx context.Context, userID string) (Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	rows, err := a.statements.ListByUser(ctx, userID, a.window)
	if err != nil {
		a.logger.Error("analytics: list statements", zap.String("user_id", userID), zap.Error(err))
		return Summary{}, apperr.Persistence(err, "could not load statements")
	}

	s := Summarize(rows, a.now())
	s.UserID = userID
	s.Truncated = int64(len(rows)) >= a.window

	if a.projects != nil {
		counts, err := a.projects.CountByOwner(ctx, userID)
		if err != nil {
			a.logger.Error("analytics: count projects", zap.String("user_id", userID), zap.Error(err))
			return Summary{}, apperr.Persistence(err, "could not count project sessions")
		}
		for _, n := range counts {
			s.ProjectSessions += n
		}
	}
	return s, nil
}

// ForAll summarizes the most recent statements across every user.
func (a *Aggregator) ForAll(ctx context.Context) (Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	rows, err := a.statements.ListRecent(ctx, a.window)
	if err != nil {
		a.logger.Error("analytics: list recent statements", zap.Error(err))
		return Summary{}, apperr.Persistence(err, "could not load statements")
	}

	s := Summarize(rows, a.now())
	s.Truncated = int64(len(rows)) >= a.window

	if a.projects != nil {
		n, err := a.projects.CountAll(ctx)
		if err != nil {
			a.logger.Error("analytics: count all projects", zap.Error(err))
			return Summary{}, apperr.Persistence(err, "could not count project sessions")
		}
		s.ProjectSessions = n
	}
	return s, nil
}
