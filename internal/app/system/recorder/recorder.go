// Package recorder turns validated input into stored statements.
//
// It owns the rules that sit between a resolved identity and the statement
// log: actor defaulting, session id selection, cross-user checks, text
// cleanup and the session-duration lookup used at logout.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mysre-platform/mysre/internal/app/system/apperr"
	"github.com/mysre-platform/mysre/internal/app/system/htmlsanitize"
	"github.com/mysre-platform/mysre/internal/app/system/identity"
	"github.com/mysre-platform/mysre/internal/app/system/metrics"
	"github.com/mysre-platform/mysre/internal/app/system/normalize"
	"github.com/mysre-platform/mysre/internal/app/system/sessionid"
	"github.com/mysre-platform/mysre/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultFallbackDuration is reported when a session has no statements to
// measure from.
const DefaultFallbackDuration = 60 * time.Second

// DefaultAppIRI is the object id used for login, logout and page views.
const DefaultAppIRI = "https://mysre.app"

// StatementLog is the part of the statement store the recorder writes to.
type StatementLog interface {
	Append(ctx context.Context, st models.Statement) (models.Statement, error)
	EarliestForSession(ctx context.Context, userID, sessionID string) (models.Statement, error)
}

// ProjectToucher marks project sessions as active.
type ProjectToucher interface {
	Touch(ctx context.Context, id, ownerID string, at time.Time) (bool, error)
}

// Config wires a Recorder.
type Config struct {
	Statements StatementLog
	Projects   ProjectToucher // optional
	Metrics    *metrics.Metrics
	Logger     *zap.Logger

	// FallbackDuration defaults to DefaultFallbackDuration.
	FallbackDuration time.Duration
	// AppIRI defaults to DefaultAppIRI.
	AppIRI string
}

// Recorder records statements on behalf of resolved identities.
type Recorder struct {
	statements StatementLog
	projects   ProjectToucher
	metrics    *metrics.Metrics
	logger     *zap.Logger
	fallback   time.Duration
	appIRI     string
	now        func() time.Time
}

// New creates a Recorder.
func New(cfg Config) *Recorder {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.FallbackDuration <= 0 {
		cfg.FallbackDuration = DefaultFallbackDuration
	}
	if cfg.AppIRI == "" {
		cfg.AppIRI = DefaultAppIRI
	}
	return &Recorder{
		statements: cfg.Statements,
		projects:   cfg.Projects,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		fallback:   cfg.FallbackDuration,
		appIRI:     cfg.AppIRI,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Input is a statement as submitted by a client. Pointers distinguish an
// omitted part from an empty one.
type Input struct {
	Actor     *models.Actor            `json:"actor,omitempty"`
	Verb      *models.Verb             `json:"verb,omitempty"`
	Object    *models.Object           `json:"object,omitempty"`
	Result    *models.Result           `json:"result,omitempty"`
	Context   *models.StatementContext `json:"context,omitempty"`
	UserID    string                   `json:"userId,omitempty"`
	SessionID string                   `json:"sessionId,omitempty"`
}

// Record validates in against id and appends it to the statement log.
func (rec *Recorder) Record(ctx context.Context, id identity.Identity, in Input) (models.Statement, error) {
	st, err := rec.build(id, in)
	if err != nil {
		return models.Statement{}, err
	}

	stored, err := rec.statements.Append(ctx, st)
	if err != nil {
		rec.logger.Error("statement append failed",
			zap.String("request_id", middleware.GetReqID(ctx)),
			zap.String("user_id", st.UserID),
			zap.String("session_id", st.SessionID),
			zap.Error(err))
		return models.Statement{}, apperr.Persistence(err, "could not store statement")
	}

	rec.metrics.StatementRecorded(stored.Verb.Name())
	rec.touchProject(ctx, stored)

	rec.logger.Debug("statement recorded",
		zap.String("request_id", middleware.GetReqID(ctx)),
		zap.String("user_id", stored.UserID),
		zap.String("session_id", stored.SessionID),
		zap.Int64("sequence", stored.Sequence),
		zap.String("verb", stored.Verb.Name()),
		zap.String("source", string(id.Source)))
	return stored, nil
}

func (rec *Recorder) build(id identity.Identity, in Input) (models.Statement, error) {
	if !id.Writable() {
		return models.Statement{}, apperr.Forbidden("identity may not record statements")
	}

	userID, err := targetUser(id, in.UserID)
	if err != nil {
		return models.Statement{}, err
	}

	actor := models.Actor{}
	if in.Actor != nil {
		actor = models.Actor{
			Mbox: normalize.Identifier(in.Actor.Mbox),
			Name: htmlsanitize.Text(in.Actor.Name),
		}
	}
	if actor.IsZero() && userID == id.UserID {
		actor = models.Actor{Mbox: id.Mailbox(), Name: id.Name}
	}
	if actor.IsZero() {
		return models.Statement{}, apperr.Validation("actor", "actor is required")
	}

	if in.Verb == nil || normalize.Identifier(in.Verb.ID) == "" {
		return models.Statement{}, apperr.Validation("verb", "verb.id is required")
	}
	if in.Object == nil || normalize.Identifier(in.Object.ID) == "" {
		return models.Statement{}, apperr.Validation("object", "object.id is required")
	}

	sessionID, err := selectSession(id, userID, in)
	if err != nil {
		return models.Statement{}, err
	}

	st := models.Statement{
		Actor: actor,
		Verb: models.Verb{
			ID:      normalize.Identifier(in.Verb.ID),
			Display: htmlsanitize.Display(in.Verb.Display),
		},
		Object:    cleanObject(*in.Object),
		Result:    in.Result,
		UserID:    userID,
		SessionID: sessionID,
	}

	ext := map[string]any{}
	if in.Context != nil {
		maps.Copy(ext, in.Context.Extensions)
	}
	ext[models.ExtensionSessionID] = sessionID
	st.Context = &models.StatementContext{Extensions: ext}
	return st, nil
}

// targetUser decides whose log the statement goes to. Only an admin holding
// a strong identity may write into another user's log.
func targetUser(id identity.Identity, requested string) (string, error) {
	requested = normalize.Identifier(requested)
	if requested == "" || requested == id.UserID {
		return id.UserID, nil
	}
	if !sessionid.IsUUID(requested) {
		return "", apperr.Validation("userId", "userId must be a UUID")
	}
	if id.Source != identity.SourceStrong || !id.IsAdmin() {
		return "", apperr.Forbidden("cannot record statements for another user")
	}
	return requested, nil
}

// selectSession picks the session id from the top-level field, then the
// context extension, then the identity's own derived session.
func selectSession(id identity.Identity, userID string, in Input) (string, error) {
	sid := normalize.Identifier(in.SessionID)
	if sid == "" {
		sid = normalize.Identifier(in.Context.ExtensionString(models.ExtensionSessionID))
	}
	if sid == "" && userID == id.UserID {
		sid = id.SessionID
	}
	if sid == "" {
		return "", apperr.Validation("sessionId", "sessionId is required")
	}
	owner, ok := sessionid.ParseUserID(sid)
	if !ok {
		return "", apperr.Validation("sessionId", "sessionId must be <uuid>_<unix-seconds> or a UUID")
	}
	if owner != userID {
		return "", apperr.Validation("sessionId", "sessionId belongs to a different user")
	}
	return sid, nil
}

func cleanObject(o models.Object) models.Object {
	out := models.Object{ID: normalize.Identifier(o.ID)}
	if d := o.Definition; d != nil {
		def := models.ObjectDefinition{
			Name:        htmlsanitize.Text(d.Name),
			Description: htmlsanitize.Text(d.Description),
			Type:        normalize.Identifier(d.Type),
		}
		if def != (models.ObjectDefinition{}) {
			out.Definition = &def
		}
	}
	return out
}

func (rec *Recorder) touchProject(ctx context.Context, st models.Statement) {
	if rec.projects == nil {
		return
	}
	pid := st.Context.ExtensionString(models.ExtensionProjectID)
	if pid == "" {
		return
	}
	if _, err := rec.projects.Touch(ctx, pid, st.UserID, st.Timestamp); err != nil {
		rec.logger.Warn("project touch failed",
			zap.String("project_id", pid),
			zap.String("user_id", st.UserID),
			zap.Error(err))
	}
}

// SessionDuration reports how long the session has been running: now minus
// the timestamp of its earliest statement, as "PT<seconds>S". When the
// session has no statements, or the lookup fails, the fallback duration is
// returned instead. Lookup failures are logged.
func (rec *Recorder) SessionDuration(ctx context.Context, userID, sessionID string) string {
	first, err := rec.statements.EarliestForSession(ctx, userID, sessionID)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			rec.logger.Warn("session duration lookup failed; using fallback",
				zap.String("request_id", middleware.GetReqID(ctx)),
				zap.String("user_id", userID),
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
		return FormatDuration(rec.fallback)
	}
	d := rec.now().Sub(first.Timestamp)
	if d < 0 {
		d = 0
	}
	return FormatDuration(d)
}

// FormatDuration renders d as an ISO-8601 seconds duration with one decimal.
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("PT%.1fS", d.Seconds())
}
