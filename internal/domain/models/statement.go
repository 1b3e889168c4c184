// internal/domain/models/statement.go
package models

import (
	"path"
	"strings"
	"time"
)

// Statement is one recorded user action in the xAPI style.
//
// Statements are append-only. Sequence starts at 1 for the first statement
// of a (UserID, SessionID) pair and increases by exactly one per statement
// in that pair; the store enforces uniqueness of the triple.
type Statement struct {
	ID        string            `bson:"_id" json:"id"` // ULID
	Actor     Actor             `bson:"actor" json:"actor"`
	Verb      Verb              `bson:"verb" json:"verb"`
	Object    Object            `bson:"object" json:"object"`
	Result    *Result           `bson:"result,omitempty" json:"result,omitempty"`
	Context   *StatementContext `bson:"context,omitempty" json:"context,omitempty"`
	UserID    string            `bson:"user_id" json:"userId"`
	SessionID string            `bson:"session_id" json:"sessionId"`
	Sequence  int64             `bson:"sequence" json:"sequence"`
	Timestamp time.Time         `bson:"timestamp" json:"timestamp"`
}

// Actor identifies who performed the action.
type Actor struct {
	Mbox string `bson:"mbox,omitempty" json:"mbox,omitempty"`
	Name string `bson:"name,omitempty" json:"name,omitempty"`
}

// IsZero reports whether neither mailbox nor name is set.
func (a Actor) IsZero() bool {
	return a.Mbox == "" && a.Name == ""
}

// Verb is the action identifier plus its human-readable labels.
type Verb struct {
	ID      string            `bson:"id" json:"id"`
	Display map[string]string `bson:"display,omitempty" json:"display,omitempty"`
}

// Name returns the last path segment of the verb id, lowercased.
// "http://adlnet.gov/expapi/verbs/logged-in" and "logged-in" both yield "logged-in".
func (v Verb) Name() string {
	return lastSegment(v.ID)
}

// Object is the thing acted upon.
type Object struct {
	ID         string            `bson:"id" json:"id"`
	Definition *ObjectDefinition `bson:"definition,omitempty" json:"definition,omitempty"`
}

// Category returns the last path segment of the object's type, lowercased.
func (o Object) Category() string {
	if o.Definition == nil {
		return ""
	}
	return lastSegment(o.Definition.Type)
}

// ObjectDefinition carries descriptive fields of an Object.
type ObjectDefinition struct {
	Name        string `bson:"name,omitempty" json:"name,omitempty"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	Type        string `bson:"type,omitempty" json:"type,omitempty"`
}

// Result describes the outcome of the action.
type Result struct {
	Duration   string `bson:"duration,omitempty" json:"duration,omitempty"` // ISO-8601, e.g. PT300.0S
	Completion *bool  `bson:"completion,omitempty" json:"completion,omitempty"`
	Success    *bool  `bson:"success,omitempty" json:"success,omitempty"`
}

// StatementContext holds free-form metadata.
// Extensions is the open-ended part; the derived session id is kept under
// ExtensionSessionID so a stored statement is self-describing.
type StatementContext struct {
	Extensions map[string]any `bson:"extensions,omitempty" json:"extensions,omitempty"`
}

// Well-known context extension keys.
const (
	ExtensionSessionID = "sessionId"
	ExtensionProjectID = "projectId"
)

// ExtensionString returns a string-valued extension, or "" when absent.
func (c *StatementContext) ExtensionString(key string) string {
	if c == nil || c.Extensions == nil {
		return ""
	}
	s, _ := c.Extensions[key].(string)
	return s
}

// Verb ids used by the service's own call sites.
const (
	VerbLoggedIn  = "https://w3id.org/xapi/adl/verbs/logged-in"
	VerbLoggedOut = "https://w3id.org/xapi/adl/verbs/logged-out"
	VerbViewed    = "http://id.tincanapi.com/verb/viewed"
	VerbUploaded  = "http://id.tincanapi.com/verb/uploaded"
	VerbAsked     = "http://adlnet.gov/expapi/verbs/asked"
	VerbCreated   = "http://adlnet.gov/expapi/verbs/created"
)

// Object types used by the service's own call sites.
const (
	ObjectTypeApplication = "http://activitystrea.ms/schema/1.0/application"
	ObjectTypeDocument    = "http://id.tincanapi.com/activitytype/document"
	ObjectTypeChat        = "http://id.tincanapi.com/activitytype/chat-message"
	ObjectTypeProject     = "http://id.tincanapi.com/activitytype/project"
)

func lastSegment(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), "/")
	if s == "" {
		return ""
	}
	return strings.ToLower(path.Base(s))
}
