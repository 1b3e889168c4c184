package analytics

import (
	"testing"
	"time"

	"github.com/mysre-platform/mysre/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "11111111-1111-1111-1111-111111111111"
	bob   = "22222222-2222-2222-2222-222222222222"
)

var now = time.Date(2025, 7, 28, 12, 0, 0, 0, time.UTC)

func stmt(user, session, verb, objectType string, at time.Time) models.Statement {
	st := models.Statement{
		UserID:    user,
		SessionID: session,
		Verb:      models.Verb{ID: verb},
		Object:    models.Object{ID: "x"},
		Timestamp: at,
	}
	if objectType != "" {
		st.Object.Definition = &models.ObjectDefinition{Type: objectType}
	}
	return st
}

func TestEngagement(t *testing.T) {
	tests := []struct {
		recent int
		want   string
	}{
		{0, EngagementLow},
		{5, EngagementLow},
		{6, EngagementMedium},
		{10, EngagementMedium},
		{11, EngagementHigh},
		{500, EngagementHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Engagement(tt.recent), "recent=%d", tt.recent)
	}
}

func TestProductivity(t *testing.T) {
	for recent := 0; recent <= 30; recent++ {
		want := 75 + 2*recent
		if want > 100 {
			want = 100
		}
		assert.Equal(t, want, Productivity(recent), "recent=%d", recent)
	}
	assert.Equal(t, 75, Productivity(0))
	assert.Equal(t, 99, Productivity(12))
	assert.Equal(t, 100, Productivity(13))
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, now)

	assert.Zero(t, s.TotalStatements)
	assert.Equal(t, EngagementLow, s.EngagementLevel)
	assert.Equal(t, 75, s.ProductivityScore)
	assert.NotNil(t, s.VerbDistribution)
	assert.Nil(t, s.FirstActivity)
	require.Len(t, s.Timeline, 7)
	assert.Equal(t, "2025-07-22", s.Timeline[0].Date)
	assert.Equal(t, "2025-07-28", s.Timeline[6].Date)
}

func TestSummarize_ActionVocabulary(t *testing.T) {
	at := now.Add(-time.Hour)
	rows := []models.Statement{
		stmt(alice, "s1", models.VerbLoggedIn, "", at),
		stmt(alice, "s1", "http://adlnet.gov/expapi/verbs/Logged-Out", "", at),
		stmt(alice, "s1", models.VerbViewed, models.ObjectTypeApplication, at),
		stmt(alice, "s1", models.VerbViewed, "", at),
		stmt(alice, "s1", models.VerbUploaded, models.ObjectTypeDocument, at),
		stmt(alice, "s1", models.VerbCreated, "http://mysre.app/types/node", at),
		stmt(alice, "s1", models.VerbCreated, "http://mysre.app/types/node/", at),
		stmt(alice, "s1", models.VerbCreated, "http://mysre.app/types/edge", at),
		stmt(alice, "s1", models.VerbCreated, models.ObjectTypeProject, at),
		stmt(alice, "s1", models.VerbAsked, models.ObjectTypeChat, at),
		stmt(alice, "s1", "http://mysre.app/verbs/edited", "http://mysre.app/types/draft", at),
		stmt(alice, "s1", "http://mysre.app/verbs/edited", "http://mysre.app/types/node", at),
		stmt(alice, "s1", "exported", "", at),
	}

	s := Summarize(rows, now)
	assert.Equal(t, ActionCounts{
		Logins:            1,
		Logouts:           1,
		PageViews:         2,
		DocumentsUploaded: 1,
		NodesCreated:      2,
		EdgesCreated:      1,
		ChatMessages:      1,
		DraftsEdited:      1,
		Exports:           1,
	}, s.ActionCounts)
	assert.Equal(t, 4, s.VerbDistribution["created"])
	assert.Equal(t, 2, s.VerbDistribution["edited"])
	assert.Equal(t, 13, s.TotalStatements)
}

func TestSummarize_RecentEngagementAndSessions(t *testing.T) {
	var rows []models.Statement
	for i := 0; i < 12; i++ {
		rows = append(rows, stmt(alice, "s1", models.VerbViewed, "", now.Add(-time.Duration(i)*time.Minute)))
	}
	rows = append(rows,
		stmt(alice, "s2", models.VerbViewed, "", now.Add(-25*time.Hour)),
		stmt(bob, "s1", models.VerbViewed, "", now.Add(-48*time.Hour)),
		stmt(bob, "s3", models.VerbViewed, "", now.Add(-10*24*time.Hour)),
	)

	s := Summarize(rows, now)
	assert.Equal(t, 12, s.RecentActivity)
	assert.Equal(t, EngagementHigh, s.EngagementLevel)
	assert.Equal(t, 99, s.ProductivityScore)
	assert.Equal(t, 4, s.DistinctSessions, "same session string under two users counts twice")
	assert.Equal(t, 2, s.DistinctUsers)

	require.NotNil(t, s.FirstActivity)
	require.NotNil(t, s.LastActivity)
	assert.True(t, s.FirstActivity.Equal(now.Add(-10*24*time.Hour)))
	assert.True(t, s.LastActivity.Equal(now))

	byDay := map[string]int{}
	for _, d := range s.Timeline {
		byDay[d.Date] = d.Count
	}
	assert.Equal(t, 12, byDay["2025-07-28"])
	assert.Equal(t, 1, byDay["2025-07-27"])
	assert.Equal(t, 1, byDay["2025-07-26"])
	assert.NotContains(t, byDay, "2025-07-18")
}

func TestSummarize_RecentBoundary(t *testing.T) {
	rows := []models.Statement{
		stmt(alice, "s1", models.VerbViewed, "", now.Add(-24*time.Hour)),
		stmt(alice, "s1", models.VerbViewed, "", now.Add(-24*time.Hour+time.Second)),
	}
	s := Summarize(rows, now)
	assert.Equal(t, 1, s.RecentActivity)
}
