package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mysre-platform/mysre/internal/app/system/apperr"
	"github.com/mysre-platform/mysre/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatements struct {
	byUser    map[string][]models.Statement
	all       []models.Statement
	err       error
	lastLimit int64
}

func (f *fakeStatements) ListByUser(_ context.Context, userID string, limit int64) ([]models.Statement, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	rows := f.byUser[userID]
	if int64(len(rows)) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeStatements) ListRecent(_ context.Context, limit int64) ([]models.Statement, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	rows := f.all
	if int64(len(rows)) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

type fakeCounter struct {
	byOwner map[string]map[string]int64
	total   int64
	err     error
}

func (f *fakeCounter) CountByOwner(_ context.Context, ownerID string) (map[string]int64, error) {
	return f.byOwner[ownerID], f.err
}

func (f *fakeCounter) CountAll(context.Context) (int64, error) {
	return f.total, f.err
}

// newAggregator keeps a nil pc out of the ProjectCounter interface so the
// aggregator sees no counter at all.
func newAggregator(st *fakeStatements, pc *fakeCounter, window int) *Aggregator {
	var counter ProjectCounter
	if pc != nil {
		counter = pc
	}
	a := NewAggregator(st, counter, window, nil)
	a.now = func() time.Time { return now }
	return a
}

func TestAggregator_ForUser(t *testing.T) {
	st := &fakeStatements{byUser: map[string][]models.Statement{
		alice: {
			stmt(alice, "s1", models.VerbLoggedIn, "", now.Add(-time.Hour)),
			stmt(alice, "s1", models.VerbAsked, models.ObjectTypeChat, now.Add(-30*time.Minute)),
		},
	}}
	pc := &fakeCounter{byOwner: map[string]map[string]int64{
		alice: {models.ProjectKindWriter: 2, models.ProjectKindBrainstorming: 1},
	}}

	s, err := newAggregator(st, pc, 0).ForUser(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, alice, s.UserID)
	assert.Equal(t, 2, s.TotalStatements)
	assert.Equal(t, 1, s.ActionCounts.ChatMessages)
	assert.Equal(t, int64(3), s.ProjectSessions)
	assert.False(t, s.Truncated)
	assert.Equal(t, int64(DefaultWindow), st.lastLimit)
}

func TestAggregator_ForUser_Truncated(t *testing.T) {
	rows := make([]models.Statement, 5)
	for i := range rows {
		rows[i] = stmt(alice, "s1", models.VerbViewed, "", now)
	}
	st := &fakeStatements{byUser: map[string][]models.Statement{alice: rows}}

	s, err := newAggregator(st, nil, 3).ForUser(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, 3, s.TotalStatements)
	assert.True(t, s.Truncated)
	assert.Zero(t, s.ProjectSessions, "no project counter configured")
}

func TestAggregator_ForAll(t *testing.T) {
	st := &fakeStatements{all: []models.Statement{
		stmt(alice, "s1", models.VerbViewed, "", now),
		stmt(bob, "s9", models.VerbViewed, "", now),
	}}
	pc := &fakeCounter{total: 7}

	s, err := newAggregator(st, pc, 0).ForAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, s.UserID)
	assert.Equal(t, 2, s.DistinctUsers)
	assert.Equal(t, int64(7), s.ProjectSessions)
}

func TestAggregator_Errors(t *testing.T) {
	boom := errors.New("boom")

	_, err := newAggregator(&fakeStatements{err: boom}, nil, 0).ForUser(context.Background(), alice)
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.ErrorIs(t, err, boom)

	_, err = newAggregator(&fakeStatements{}, &fakeCounter{err: boom}, 0).ForAll(context.Background())
	assert.ErrorIs(t, err, apperr.ErrPersistence)
}
