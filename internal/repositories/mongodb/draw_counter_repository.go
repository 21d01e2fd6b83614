package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"github.com/ArowuTest/prizedraw-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ repositories.DrawCounter = (*DrawCounterRepository)(nil)

// DrawCounterRepository keeps one document per (user, activity, day)
type DrawCounterRepository struct {
	collection *mongo.Collection
}

// NewDrawCounterRepository creates a new DrawCounterRepository
func NewDrawCounterRepository(db *mongo.Database) *DrawCounterRepository {
	return &DrawCounterRepository{
		collection: db.Collection(collectionDailyCounters),
	}
}

// Reserve increments the counter when it is below limit.
// The document is created lazily by the upsert; a duplicate key on upsert means
// another request created it first, so the conditional update is tried once more.
func (r *DrawCounterRepository) Reserve(ctx context.Context, key models.CounterKey, limit int) (bool, error) {
	filter := bson.M{"_id": key.String()}
	if limit > 0 {
		filter["count"] = bson.M{"$lt": limit}
	}

	for attempt := 0; attempt < 2; attempt++ {
		now := time.Now()
		update := bson.M{
			"$inc": bson.M{"count": 1},
			"$set": bson.M{"updatedAt": now},
			"$setOnInsert": bson.M{
				"userId":     key.UserID,
				"activityId": key.ActivityID,
				"day":        key.Day,
				"createdAt":  now,
			},
		}
		_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		if err == nil {
			return true, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return false, err
		}
	}
	return false, nil
}

// Release decrements the counter, never below zero
func (r *DrawCounterRepository) Release(ctx context.Context, key models.CounterKey) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": key.String(), "count": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"count": -1}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	return err
}

// Count returns the counter value, zero when it does not exist yet
func (r *DrawCounterRepository) Count(ctx context.Context, key models.CounterKey) (int, error) {
	var counter models.DailyDrawCounter
	err := r.collection.FindOne(ctx, bson.M{"_id": key.String()}).Decode(&counter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.Count, nil
}
