package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"github.com/ArowuTest/prizedraw-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time checks
var (
	_ repositories.ActivityRepository = (*ActivityRepository)(nil)
	_ repositories.StockLedger        = (*ActivityRepository)(nil)
)

// ActivityRepository stores activities with their prizes embedded.
// Prize stock lives in the embedded array and is only changed through TryDecrement and Update.
type ActivityRepository struct {
	collection *mongo.Collection
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{
		collection: db.Collection(collectionActivities),
	}
}

// Create inserts a new activity
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID.IsZero() {
		activity.ID = primitive.NewObjectID()
	}
	for i := range activity.Prizes {
		if activity.Prizes[i].ID.IsZero() {
			activity.Prizes[i].ID = primitive.NewObjectID()
		}
	}
	activity.CreatedAt = time.Now()
	activity.UpdatedAt = activity.CreatedAt
	activity.Version = 0
	if activity.Prizes == nil {
		activity.Prizes = []models.Prize{}
	}

	_, err := r.collection.InsertOne(ctx, activity)
	return mapError(err)
}

// FindByID finds an activity by ID
func (r *ActivityRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Activity, error) {
	var activity models.Activity
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&activity)
	if err != nil {
		return nil, mapError(err)
	}
	return &activity, nil
}

// FindAll returns activities, newest first
func (r *ActivityRepository) FindAll(ctx context.Context, activeOnly bool) ([]*models.Activity, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find activities: %w", err)
	}
	defer cursor.Close(ctx)

	var activities []*models.Activity
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, fmt.Errorf("failed to decode activities: %w", err)
	}
	if activities == nil {
		activities = []*models.Activity{}
	}
	return activities, nil
}

// Update replaces the activity if its version is unchanged since it was read
func (r *ActivityRepository) Update(ctx context.Context, activity *models.Activity) error {
	expected := activity.Version
	for i := range activity.Prizes {
		if activity.Prizes[i].ID.IsZero() {
			activity.Prizes[i].ID = primitive.NewObjectID()
		}
	}
	activity.Version = expected + 1
	activity.UpdatedAt = time.Now()

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": activity.ID, "version": expected}, activity)
	if err != nil {
		activity.Version = expected
		return mapError(err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	activity.Version = expected
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": activity.ID})
	if err != nil {
		return err
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return repositories.ErrConflict
}

// TryDecrement decrements the prize's stock only if it is above zero
func (r *ActivityRepository) TryDecrement(ctx context.Context, activityID, prizeID primitive.ObjectID) (bool, error) {
	filter := bson.M{
		"_id": activityID,
		"prizes": bson.M{"$elemMatch": bson.M{
			"_id":      prizeID,
			"quantity": bson.M{"$gt": 0},
		}},
	}
	update := bson.M{
		"$inc": bson.M{
			"prizes.$.quantity": -1,
			"prizes.$.claimed":  1,
			"version":           1,
		},
	}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}

	unlimited, err := r.collection.CountDocuments(ctx, bson.M{
		"_id": activityID,
		"prizes": bson.M{"$elemMatch": bson.M{
			"_id":      prizeID,
			"quantity": models.UnlimitedQuantity,
		}},
	})
	if err != nil {
		return false, fmt.Errorf("failed to check unlimited stock: %w", err)
	}
	return unlimited > 0, nil
}
