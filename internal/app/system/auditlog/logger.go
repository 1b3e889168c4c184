// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mysre-platform/mysre/internal/app/store/audit"
	"github.com/mysre-platform/mysre/internal/app/system/network"
	"go.uber.org/zap"
)

// Destination settings for a category.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	// Auth covers login, logout and rejected writes.
	Auth string
	// Admin covers admin reads on behalf of other users and promotions.
	Admin string
}

// Logger records audit events to MongoDB (via audit.Store) and/or zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so tests can pass nil.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	if setting == "" {
		setting = All
	}
	if setting == Off {
		return
	}

	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func fromRequest(r *http.Request, category, eventType string) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        network.ClientIP(r),
		UserAgent: r.UserAgent(),
		RequestID: middleware.GetReqID(r.Context()),
		Success:   true,
	}
}

// --- Authentication Events ---

// LoginSuccess logs a login-session being established from a provider token.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID, email string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLoginSuccess)
	e.UserID = userID
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// LoginFailed logs a rejected provider token.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, reason string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLoginFailedToken)
	e.Success = false
	e.FailureReason = reason
	l.Log(ctx, e)
}

// Logout logs a user logout with the derived session it closed.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID, sessionID string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLogout)
	e.UserID = userID
	e.Details = map[string]string{"session_id": sessionID}
	l.Log(ctx, e)
}

// UnauthenticatedWrite logs a write that no writable identity backed.
// Implements identity.RejectAuditor.
func (l *Logger) UnauthenticatedWrite(ctx context.Context, r *http.Request, reason string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventUnauthenticatedWrite)
	e.Success = false
	e.FailureReason = reason
	e.Details = map[string]string{"method": r.Method, "path": r.URL.Path}
	l.Log(ctx, e)
}

// --- Admin Events ---

// OnBehalfRead logs an admin reading another user's data.
func (l *Logger) OnBehalfRead(ctx context.Context, r *http.Request, actorID, targetUserID string) {
	e := fromRequest(r, audit.CategoryAdmin, audit.EventOnBehalfRead)
	e.ActorID = actorID
	e.UserID = targetUserID
	e.Details = map[string]string{"path": r.URL.Path}
	l.Log(ctx, e)
}

// AllUsersRead logs an admin reading the cross-user summary.
func (l *Logger) AllUsersRead(ctx context.Context, r *http.Request, actorID string) {
	e := fromRequest(r, audit.CategoryAdmin, audit.EventAllUsersRead)
	e.ActorID = actorID
	l.Log(ctx, e)
}

// AdminPromoted logs a user receiving the admin role outside the identity
// provider (startup seeding).
func (l *Logger) AdminPromoted(ctx context.Context, email, source string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventAdminPromoted,
		Success:   true,
		Details:   map[string]string{"email": email, "source": source},
	})
}
