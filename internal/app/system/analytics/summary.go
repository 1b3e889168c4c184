// Package analytics computes read-time summaries over the statement log.
//
// Summaries are recomputed on every request; nothing is cached or stored.
// The engagement thresholds and the productivity formula are product
// heuristics kept stable for compatibility with existing dashboards.
package analytics

import (
	"time"

	"github.com/mysre-platform/mysre/internal/domain/models"
)

// Engagement levels.
const (
	EngagementHigh   = "high"
	EngagementMedium = "medium"
	EngagementLow    = "low"
)

const (
	recentWindow  = 24 * time.Hour
	timelineDays  = 7
	timelineStamp = "2006-01-02"
)

// ActionCounts tallies statements against the fixed action vocabulary.
type ActionCounts struct {
	Logins            int `json:"logins"`
	Logouts           int `json:"logouts"`
	PageViews         int `json:"pageViews"`
	DocumentsUploaded int `json:"documentsUploaded"`
	NodesCreated      int `json:"nodesCreated"`
	EdgesCreated      int `json:"edgesCreated"`
	ChatMessages      int `json:"chatMessages"`
	DraftsEdited      int `json:"draftsEdited"`
	Exports           int `json:"exports"`
}

// DayCount is one bucket of the activity timeline.
type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD, UTC
	Count int    `json:"count"`
}

// Summary is the analytics view of a set of statements.
type Summary struct {
	UserID            string         `json:"userId,omitempty"`
	TotalStatements   int            `json:"totalStatements"`
	ActionCounts      ActionCounts   `json:"actionCounts"`
	VerbDistribution  map[string]int `json:"verbDistribution"`
	DistinctSessions  int            `json:"distinctSessions"`
	DistinctUsers     int            `json:"distinctUsers"`
	RecentActivity    int            `json:"recentActivity"`
	EngagementLevel   string         `json:"engagementLevel"`
	ProductivityScore int            `json:"productivityScore"`
	Timeline          []DayCount     `json:"timeline"`
	FirstActivity     *time.Time     `json:"firstActivity,omitempty"`
	LastActivity      *time.Time     `json:"lastActivity,omitempty"`
	ProjectSessions   int64          `json:"projectSessions"`
	// Truncated is set when the statement window was full, so older
	// statements were not considered.
	Truncated bool `json:"truncated,omitempty"`
}

// Engagement classifies a recent-activity count.
func Engagement(recent int) string {
	switch {
	case recent > 10:
		return EngagementHigh
	case recent > 5:
		return EngagementMedium
	default:
		return EngagementLow
	}
}

// Productivity is min(75 + 2*recent, 100).
func Productivity(recent int) int {
	return min(75+2*recent, 100)
}

// Summarize aggregates statements as of now. Order of the input does not
// matter.
func Summarize(statements []models.Statement, now time.Time) Summary {
	now = now.UTC()
	s := Summary{
		TotalStatements:  len(statements),
		VerbDistribution: map[string]int{},
		Timeline:         emptyTimeline(now),
	}

	sessions := map[string]struct{}{}
	users := map[string]struct{}{}
	dayIndex := make(map[string]int, timelineDays)
	for i, d := range s.Timeline {
		dayIndex[d.Date] = i
	}
	recentFrom := now.Add(-recentWindow)

	for _, st := range statements {
		verb := st.Verb.Name()
		if verb != "" {
			s.VerbDistribution[verb]++
		}
		countAction(&s.ActionCounts, verb, st.Object.Category())

		if st.SessionID != "" {
			sessions[st.UserID+"\x00"+st.SessionID] = struct{}{}
		}
		if st.UserID != "" {
			users[st.UserID] = struct{}{}
		}

		ts := st.Timestamp.UTC()
		if ts.After(recentFrom) {
			s.RecentActivity++
		}
		if i, ok := dayIndex[ts.Format(timelineStamp)]; ok {
			s.Timeline[i].Count++
		}
		if s.FirstActivity == nil || ts.Before(*s.FirstActivity) {
			t := ts
			s.FirstActivity = &t
		}
		if s.LastActivity == nil || ts.After(*s.LastActivity) {
			t := ts
			s.LastActivity = &t
		}
	}

	s.DistinctSessions = len(sessions)
	s.DistinctUsers = len(users)
	s.EngagementLevel = Engagement(s.RecentActivity)
	s.ProductivityScore = Productivity(s.RecentActivity)
	return s
}

// countAction maps a verb name and object category onto the vocabulary.
// Both arguments are already lowercased last path segments.
func countAction(c *ActionCounts, verb, category string) {
	switch verb {
	case "logged-in":
		c.Logins++
	case "logged-out":
		c.Logouts++
	case "viewed":
		c.PageViews++
	case "uploaded":
		c.DocumentsUploaded++
	case "asked":
		c.ChatMessages++
	case "exported":
		c.Exports++
	case "created":
		switch category {
		case "node":
			c.NodesCreated++
		case "edge":
			c.EdgesCreated++
		}
	case "edited":
		if category == "draft" {
			c.DraftsEdited++
		}
	}
}

// emptyTimeline returns the last timelineDays UTC days ending today,
// oldest first.
func emptyTimeline(now time.Time) []DayCount {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]DayCount, timelineDays)
	for i := range out {
		day := today.AddDate(0, 0, i-(timelineDays-1))
		out[i] = DayCount{Date: day.Format(timelineStamp)}
	}
	return out
}
