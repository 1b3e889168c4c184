package recorder

import (
	"context"
	"strings"

	"github.com/mysre-platform/mysre/internal/app/system/identity"
	"github.com/mysre-platform/mysre/internal/domain/models"
)

// RecordLogin records a logged-in statement in the identity's session.
func (rec *Recorder) RecordLogin(ctx context.Context, id identity.Identity) (models.Statement, error) {
	return rec.Record(ctx, id, Input{
		Verb:   &models.Verb{ID: models.VerbLoggedIn, Display: map[string]string{"en-US": "logged in"}},
		Object: rec.appObject("mySRE"),
	})
}

// RecordLogout measures the session and then records a logged-out statement
// carrying that duration. The duration is measured first so the logout
// itself does not count.
func (rec *Recorder) RecordLogout(ctx context.Context, id identity.Identity) (models.Statement, error) {
	duration := rec.SessionDuration(ctx, id.UserID, id.SessionID)
	completed := true
	return rec.Record(ctx, id, Input{
		Verb:   &models.Verb{ID: models.VerbLoggedOut, Display: map[string]string{"en-US": "logged out"}},
		Object: rec.appObject("mySRE"),
		Result: &models.Result{Duration: duration, Completion: &completed},
	})
}

// RecordPageView records a viewed statement for a page path.
func (rec *Recorder) RecordPageView(ctx context.Context, id identity.Identity, page string) (models.Statement, error) {
	page = "/" + strings.TrimLeft(strings.TrimSpace(page), "/")
	return rec.Record(ctx, id, Input{
		Verb: &models.Verb{ID: models.VerbViewed, Display: map[string]string{"en-US": "viewed"}},
		Object: &models.Object{
			ID: rec.appIRI + page,
			Definition: &models.ObjectDefinition{
				Name: page,
				Type: models.ObjectTypeApplication,
			},
		},
	})
}

// maxDescription bounds how much of a chat message is kept on a statement.
const maxDescription = 500

// RecordChatTurn records an asked statement for a message sent to the AI
// backend. success reports whether the backend answered.
func (rec *Recorder) RecordChatTurn(ctx context.Context, id identity.Identity, projectID, message string, success bool) (models.Statement, error) {
	return rec.Record(ctx, id, Input{
		Verb: &models.Verb{ID: models.VerbAsked, Display: map[string]string{"en-US": "asked"}},
		Object: &models.Object{
			ID: rec.appIRI + "/brain/chat",
			Definition: &models.ObjectDefinition{
				Name:        "chat",
				Description: truncate(message, maxDescription),
				Type:        models.ObjectTypeChat,
			},
		},
		Result:  &models.Result{Success: &success},
		Context: projectContext(projectID, nil),
	})
}

// RecordGraphUpload records an uploaded statement for a document sent to the
// AI backend for graph synthesis.
func (rec *Recorder) RecordGraphUpload(ctx context.Context, id identity.Identity, projectID, title string, nodes, edges int, success bool) (models.Statement, error) {
	if strings.TrimSpace(title) == "" {
		title = "document"
	}
	return rec.Record(ctx, id, Input{
		Verb: &models.Verb{ID: models.VerbUploaded, Display: map[string]string{"en-US": "uploaded"}},
		Object: &models.Object{
			ID:         rec.appIRI + "/brain/documents",
			Definition: &models.ObjectDefinition{Name: title, Type: models.ObjectTypeDocument},
		},
		Result: &models.Result{Success: &success},
		Context: projectContext(projectID, map[string]any{
			"nodeCount": nodes,
			"edgeCount": edges,
		}),
	})
}

func projectContext(projectID string, ext map[string]any) *models.StatementContext {
	if projectID = strings.TrimSpace(projectID); projectID != "" {
		if ext == nil {
			ext = map[string]any{}
		}
		ext[models.ExtensionProjectID] = projectID
	}
	if ext == nil {
		return nil
	}
	return &models.StatementContext{Extensions: ext}
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}

func (rec *Recorder) appObject(name string) *models.Object {
	return &models.Object{
		ID:         rec.appIRI,
		Definition: &models.ObjectDefinition{Name: name, Type: models.ObjectTypeApplication},
	}
}
