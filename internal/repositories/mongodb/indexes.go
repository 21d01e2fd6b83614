package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the draw path and statistics rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		collectionActivities: {
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		collectionDrawRecords: {
			{Keys: bson.D{{Key: "activityId", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		collectionDailyCounters: {
			{Keys: bson.D{{Key: "day", Value: 1}}},
		},
		collectionReconciliations: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "attempts", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "recordId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collectionPointTransactions: {
			{Keys: bson.D{{Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}
