// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/mysre-platform/mysre/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// It is created in ConnectDB and passed to EnsureSchema, Startup,
// BuildHandler and Shutdown. Shutdown closes what lives here.
type DBDeps struct {
	// MongoDB client and database
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Metrics is shared by the stores, the background jobs and /metrics.
	Metrics *metrics.Metrics
}
