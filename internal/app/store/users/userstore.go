// internal/app/store/users/userstore.go
package userstore

// Terminology: User Identifiers
//   - UserID / userID / user_id: The identity provider's UUID, stored as the user's _id
//   - Email: The mailbox the provider reports; used as the xAPI actor mbox

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/mysre-platform/mysre/internal/app/system/normalize"
	"github.com/mysre-platform/mysre/internal/app/system/sessionid"
	"github.com/mysre-platform/mysre/internal/app/system/status"
	"github.com/mysre-platform/mysre/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	errBadID     = errors.New("user id must be a UUID")
	errBadRole   = errors.New("invalid role")
	errBadStatus = errors.New(`status must be "active"|"disabled"`)
)

// GetByID loads a user by id. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by lowercase email.
// Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Profile is what the identity provider tells us about a user at login.
type Profile struct {
	ID       string
	Email    string
	FullName string
	Role     string // "admin" promotes; anything else leaves the stored role alone
}

// UpsertFromProfile creates the mirror on first login and refreshes name,
// email and last_login_at on later logins. The stored role is only ever
// raised here; demotion is an admin action.
func (s *Store) UpsertFromProfile(ctx context.Context, p Profile, now time.Time) (models.User, error) {
	if !sessionid.IsUUID(p.ID) {
		return models.User{}, errBadID
	}
	name := normalize.Name(p.FullName)
	set := bson.M{
		"full_name":     name,
		"full_name_ci":  text.Fold(name),
		"email":         normalize.Email(p.Email),
		"last_login_at": now,
		"updated_at":    now,
	}
	setOnInsert := bson.M{
		"status":     status.Default(),
		"created_at": now,
	}
	if normalize.Role(p.Role) == models.RoleAdmin {
		set["role"] = models.RoleAdmin
	} else {
		setOnInsert["role"] = models.RoleUser
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var u models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": p.ID}, bson.M{
		"$set":         set,
		"$setOnInsert": setOnInsert,
	}, opts).Decode(&u)
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// SetRole changes a user's role.
func (s *Store) SetRole(ctx context.Context, id, role string) error {
	role = normalize.Role(role)
	if !models.IsValidRole(role) {
		return errBadRole
	}
	return s.update(ctx, id, bson.M{"role": role})
}

// SetStatus enables or disables a user. Disabled users cannot be resolved
// from a session or user parameter.
func (s *Store) SetStatus(ctx context.Context, id, st string) error {
	st = normalize.Status(st)
	if !status.IsValid(st) {
		return errBadStatus
	}
	return s.update(ctx, id, bson.M{"status": st})
}

// PromoteByEmail gives the admin role to the user with the given email.
// Reports false when no such user exists yet or the user is already admin.
func (s *Store) PromoteByEmail(ctx context.Context, email string) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"email": normalize.Email(email), "role": bson.M{"$ne": models.RoleAdmin}},
		bson.M{"$set": bson.M{"role": models.RoleAdmin, "updated_at": time.Now()}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// Count returns the number of users matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

func (s *Store) update(ctx context.Context, id string, set bson.M) error {
	set["updated_at"] = time.Now()
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
