// Package testutil provides utilities for testing, including database setup and fixtures.
package testutil

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/mysre-platform/mysre/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultTestDBURI is used unless MYSRE_TEST_MONGO_URI is set.
	DefaultTestDBURI = "mongodb://localhost:27017"
	// TestDBName prefixes every per-test database.
	TestDBName = "mysre_test"
)

var (
	clientOnce sync.Once
	client     *mongo.Client
	clientErr  error
)

// TestDBURI returns the MongoDB URI tests connect to.
func TestDBURI() string {
	if uri := os.Getenv("MYSRE_TEST_MONGO_URI"); uri != "" {
		return uri
	}
	return DefaultTestDBURI
}

// getClient returns a MongoDB client shared by all tests in the process.
func getClient() (*mongo.Client, error) {
	clientOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Parallel packages share one server; keep the pool roomy.
		clientOpts := options.Client().
			ApplyURI(TestDBURI()).
			SetMaxPoolSize(200).
			SetMinPoolSize(10).
			SetMaxConnIdleTime(30 * time.Second).
			SetServerSelectionTimeout(10 * time.Second)

		client, clientErr = mongo.Connect(ctx, clientOpts)
		if clientErr != nil {
			return
		}
		clientErr = client.Ping(ctx, nil)
	})
	return client, clientErr
}

// SetupTestDB returns a fresh database for t with all production indexes
// in place, including the unique statement sequence index. The database is
// dropped when the test completes.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	client, err := getClient()
	if err != nil {
		t.Fatalf("failed to connect to test MongoDB at %s: %v", TestDBURI(), err)
	}

	db := client.Database(testDBName(t.Name()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Drop(ctx); err != nil {
		t.Fatalf("failed to drop test database: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("failed to create indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("warning: failed to drop test database on cleanup: %v", err)
		}
	})

	return db
}

// testDBName builds a valid database name from a test name. MongoDB caps
// names at 63 bytes; long names are truncated and suffixed with a hash of
// the full name so subtests sharing a long prefix stay distinct.
func testDBName(testName string) string {
	b := make([]byte, 0, len(testName))
	for i := 0; i < len(testName); i++ {
		c := testName[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			b = append(b, c)
		} else {
			b = append(b, '_')
		}
	}

	// "mysre_test_" + suffix <= 63
	const maxSuffix = 63 - len(TestDBName) - 1
	suffix := string(b)
	if len(suffix) > maxSuffix {
		h := fnv.New32a()
		_, _ = h.Write([]byte(testName))
		tag := fmt.Sprintf("_%08x", h.Sum32())
		suffix = suffix[:maxSuffix-len(tag)] + tag
	}
	return TestDBName + "_" + suffix
}

// TestContext returns a context with a reasonable timeout for test operations.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
