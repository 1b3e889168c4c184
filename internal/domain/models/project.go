// internal/domain/models/project.go
package models

import "time"

// ProjectSession is a user-owned workspace: a brainstorming board or a
// writer draft. Its ID is a UUID and has nothing to do with the derived
// session id carried on statements.
type ProjectSession struct {
	ID      string `bson:"_id" json:"id"`
	Kind    string `bson:"kind" json:"kind"` // brainstorming, writer
	OwnerID string `bson:"owner_id" json:"ownerId"`
	Title   string `bson:"title" json:"title"`

	// Set whenever a statement references this project. Projects that never
	// see activity are removed by the stale-project cleanup job.
	LastActivityAt *time.Time `bson:"last_activity_at,omitempty" json:"lastActivityAt,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Project session kinds
const (
	ProjectKindBrainstorming = "brainstorming"
	ProjectKindWriter        = "writer"
)

// AllProjectKinds returns all valid project kinds.
func AllProjectKinds() []string {
	return []string{ProjectKindBrainstorming, ProjectKindWriter}
}

// IsValidProjectKind checks if a kind is one of the known project kinds.
func IsValidProjectKind(kind string) bool {
	for _, k := range AllProjectKinds() {
		if k == kind {
			return true
		}
	}
	return false
}
