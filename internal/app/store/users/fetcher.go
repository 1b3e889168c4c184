// internal/app/store/users/fetcher.go
package userstore

import (
	"context"
	"errors"

	"github.com/mysre-platform/mysre/internal/app/system/normalize"
	"github.com/mysre-platform/mysre/internal/app/system/sessionid"
	"github.com/mysre-platform/mysre/internal/app/system/status"
	"github.com/mysre-platform/mysre/internal/app/system/timeouts"
	"github.com/mysre-platform/mysre/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Fetcher implements identity.UserLookup. It loads fresh user data on each
// resolution so disabled accounts and role changes apply immediately.
type Fetcher struct {
	users  *mongo.Collection
	logger *zap.Logger
}

// NewFetcher creates a Fetcher that queries the given database.
func NewFetcher(db *mongo.Database, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		users:  db.Collection("users"),
		logger: logger,
	}
}

// LookupUser returns the user, or (nil, nil) if the id is not a UUID, the
// user does not exist, or the user is disabled. Store failures are returned
// so callers can fail closed.
func (f *Fetcher) LookupUser(ctx context.Context, userID string) (*models.User, error) {
	if !sessionid.IsUUID(userID) {
		return nil, nil
	}

	// Use a short timeout for the DB query
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	proj := options.FindOne().SetProjection(bson.M{
		"_id":       1,
		"full_name": 1,
		"email":     1,
		"role":      1,
		"status":    1,
	})

	err := f.users.FindOne(ctx, bson.M{"_id": userID}, proj).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		f.logger.Error("user lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	if !status.Resolvable(normalize.Status(u.Status)) {
		return nil, nil
	}
	u.Role = normalize.Role(u.Role)
	return &u, nil
}
