// internal/app/store/statements/store.go
package statements

// Terminology: Sessions
//   - SessionID / sessionID / session_id: the derived "<userId>_<expiry>" id
//     that groups statements from one login. Not a foreign key.

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/mysre-platform/mysre/internal/app/store/storeutil"
	"github.com/mysre-platform/mysre/internal/app/system/ids"
	"github.com/mysre-platform/mysre/internal/app/system/metrics"
	"github.com/mysre-platform/mysre/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultMaxAttempts bounds how often Append retries a sequence collision.
const DefaultMaxAttempts = 8

// ErrSequenceContention is returned when Append lost every race for the
// next sequence number.
var ErrSequenceContention = errors.New("statement sequence contention: retries exhausted")

// Store is the append-only statement log.
type Store struct {
	c           *mongo.Collection
	maxAttempts int
	metrics     *metrics.Metrics
	now         func() time.Time
}

// Options tune a Store. The zero value is usable.
type Options struct {
	MaxAttempts int
	Metrics     *metrics.Metrics
}

// New creates a statement Store.
func New(db *mongo.Database, opts Options) *Store {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	return &Store{
		c:           db.Collection("statements"),
		maxAttempts: opts.MaxAttempts,
		metrics:     opts.Metrics,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// NextSequence returns the highest sequence stored for the exact
// (userID, sessionID) pair plus one, or 1 when the pair has no statements.
func (s *Store) NextSequence(ctx context.Context, userID, sessionID string) (int64, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "sequence", Value: -1}}).
		SetProjection(bson.M{"sequence": 1})

	var last struct {
		Sequence int64 `bson:"sequence"`
	}
	err := s.c.FindOne(ctx, bson.M{"user_id": userID, "session_id": sessionID}, opts).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return last.Sequence + 1, nil
}

// Append assigns the next sequence number, the write timestamp and an id,
// then inserts st. The unique (user_id, session_id, sequence) index turns a
// lost race into a duplicate-key error, which is retried with a freshly
// computed sequence up to the configured number of attempts.
func (s *Store) Append(ctx context.Context, st models.Statement) (models.Statement, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		seq, err := s.NextSequence(ctx, st.UserID, st.SessionID)
		if err != nil {
			return models.Statement{}, err
		}

		st.Sequence = seq
		// Mongo keeps millisecond precision; match it so callers see
		// the value that was stored.
		st.Timestamp = s.now().Truncate(time.Millisecond)
		st.ID = ids.NewAt(st.Timestamp)

		_, err = s.c.InsertOne(ctx, st)
		if err == nil {
			return st, nil
		}
		if !wafflemongo.IsDup(err) {
			return models.Statement{}, err
		}
		s.metrics.SequenceConflict()
		if err := ctx.Err(); err != nil {
			return models.Statement{}, err
		}
	}
	return models.Statement{}, ErrSequenceContention
}

// EarliestForSession returns the statement with the smallest timestamp for
// the pair. Returns mongo.ErrNoDocuments if the session has none.
func (s *Store) EarliestForSession(ctx context.Context, userID, sessionID string) (models.Statement, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	var st models.Statement
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID, "session_id": sessionID}, opts).Decode(&st); err != nil {
		return models.Statement{}, err
	}
	return st, nil
}

// ListBySession returns a session's statements in sequence order.
func (s *Store) ListBySession(ctx context.Context, userID, sessionID string) ([]models.Statement, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}})
	return s.find(ctx, bson.M{"user_id": userID, "session_id": sessionID}, opts)
}

// ListByUser returns up to limit of the user's most recent statements,
// newest first.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int64) ([]models.Statement, error) {
	return s.find(ctx, bson.M{"user_id": userID}, storeutil.Newest(limit))
}

// ListRecent returns up to limit of the most recent statements across all
// users, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int64) ([]models.Statement, error) {
	return s.find(ctx, bson.M{}, storeutil.Newest(limit))
}

// CountAll returns the collection's estimated document count.
func (s *Store) CountAll(ctx context.Context) (int64, error) {
	return s.c.EstimatedDocumentCount(ctx)
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Statement, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Statement
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
