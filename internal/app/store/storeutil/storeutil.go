// internal/app/store/storeutil/storeutil.go
package storeutil

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultPageSize applies when a caller passes a non-positive limit.
const DefaultPageSize = 20

// Paginate returns *options.FindOptions with skip/limit given a 1-based page.
func Paginate(limit, page int64) *options.FindOptions {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	sk := (page - 1) * limit
	return options.Find().SetLimit(limit).SetSkip(sk)
}

// Newest sorts by timestamp descending with _id as the tie-breaker. ULIDs
// sort by creation time, so equal timestamps keep insertion order.
// A non-positive limit means no limit.
func Newest(limit int64) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return opts
}
