// internal/app/store/projects/projectstore.go
package projectstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mysre-platform/mysre/internal/app/store/storeutil"
	"github.com/mysre-platform/mysre/internal/app/system/normalize"
	"github.com/mysre-platform/mysre/internal/app/system/sessionid"
	"github.com/mysre-platform/mysre/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	errBadKind  = errors.New("invalid project kind")
	errBadOwner = errors.New("owner id must be a UUID")
)

// Store manages project sessions (brainstorming boards and writer drafts).
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("project_sessions")}
}

// Create inserts a new project owned by ownerID.
func (s *Store) Create(ctx context.Context, ownerID, kind, title string) (models.ProjectSession, error) {
	kind = normalize.ProjectKind(kind)
	if !models.IsValidProjectKind(kind) {
		return models.ProjectSession{}, errBadKind
	}
	if !sessionid.IsUUID(ownerID) {
		return models.ProjectSession{}, errBadOwner
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	p := models.ProjectSession{
		ID:        uuid.NewString(),
		Kind:      kind,
		OwnerID:   ownerID,
		Title:     normalize.Title(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.ProjectSession{}, err
	}
	return p, nil
}

// GetByID loads a project. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id string) (*models.ProjectSession, error) {
	var p models.ProjectSession
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// OwnerOf returns the owner of a project, or "" when the project does not
// exist. Implements identity.ProjectOwners.
func (s *Store) OwnerOf(ctx context.Context, id string) (string, error) {
	if !sessionid.IsUUID(id) {
		return "", nil
	}
	var p struct {
		OwnerID string `bson:"owner_id"`
	}
	err := s.c.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"owner_id": 1})).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return p.OwnerID, nil
}

// ListByOwner returns a page of the owner's projects, newest first.
// kind filters when non-empty.
func (s *Store) ListByOwner(ctx context.Context, ownerID, kind string, limit, page int64) ([]models.ProjectSession, error) {
	filter := bson.M{"owner_id": ownerID}
	if k := normalize.ProjectKind(kind); k != "" {
		filter["kind"] = k
	}
	opts := storeutil.Paginate(limit, page).SetSort(bson.D{{Key: "created_at", Value: -1}})

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.ProjectSession{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Touch records activity on a project. Unknown ids are ignored; a project
// owned by someone else is left alone.
func (s *Store) Touch(ctx context.Context, id, ownerID string, at time.Time) (bool, error) {
	at = at.UTC().Truncate(time.Millisecond)
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "owner_id": ownerID},
		bson.M{"$set": bson.M{"last_activity_at": at, "updated_at": at}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// DeleteStale removes projects created before cutoff that never recorded
// any activity. Returns how many were removed.
func (s *Store) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"created_at":       bson.M{"$lt": cutoff},
		"last_activity_at": bson.M{"$exists": false},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByOwner returns how many projects of each kind the owner has.
func (s *Store) CountByOwner(ctx context.Context, ownerID string) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"owner_id": ownerID}}},
		{{Key: "$group", Value: bson.M{"_id": "$kind", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Kind string `bson:"_id"`
		N    int64  `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(models.AllProjectKinds()))
	for _, k := range models.AllProjectKinds() {
		out[k] = 0
	}
	for _, r := range rows {
		out[r.Kind] = r.N
	}
	return out, nil
}

// CountAll returns the number of project sessions across all owners.
func (s *Store) CountAll(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
