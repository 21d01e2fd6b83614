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

var _ repositories.DrawRecordRepository = (*DrawRecordRepository)(nil)

// DrawRecordRepository is the append-only draw log
type DrawRecordRepository struct {
	collection *mongo.Collection
}

// NewDrawRecordRepository creates a new DrawRecordRepository
func NewDrawRecordRepository(db *mongo.Database) *DrawRecordRepository {
	return &DrawRecordRepository{
		collection: db.Collection(collectionDrawRecords),
	}
}

// Create inserts a record; the id is assigned by the caller so retries are idempotent
func (r *DrawRecordRepository) Create(ctx context.Context, record *models.DrawRecord) error {
	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, record)
	return mapError(err)
}

// FindByID finds a record by ID
func (r *DrawRecordRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.DrawRecord, error) {
	var record models.DrawRecord
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record); err != nil {
		return nil, mapError(err)
	}
	return &record, nil
}

// FindByUserID returns a page of a user's records, newest first
func (r *DrawRecordRepository) FindByUserID(ctx context.Context, userID string, page, limit int) ([]*models.DrawRecord, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find draw records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*models.DrawRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode draw records: %w", err)
	}
	if records == nil {
		records = []*models.DrawRecord{}
	}
	return records, nil
}

// UpdateStatus advances the status only if the record is still in from
func (r *DrawRecordRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.DrawStatus) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// ExpirePending moves stale pending records to expired
func (r *DrawRecordRepository) ExpirePending(ctx context.Context, createdBefore time.Time) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"status": models.DrawStatusPending, "createdAt": bson.M{"$lt": createdBefore}},
		bson.M{"$set": bson.M{"status": models.DrawStatusExpired, "updatedAt": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Stream iterates matching records oldest first without loading them all at once
func (r *DrawRecordRepository) Stream(ctx context.Context, filter models.RecordFilter, fn func(*models.DrawRecord) error) error {
	cursor, err := r.collection.Find(ctx, recordFilterToBSON(filter), options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return fmt.Errorf("failed to scan draw records: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var record models.DrawRecord
		if err := cursor.Decode(&record); err != nil {
			return fmt.Errorf("failed to decode draw record: %w", err)
		}
		if err := fn(&record); err != nil {
			return err
		}
	}
	return cursor.Err()
}

func recordFilterToBSON(f models.RecordFilter) bson.M {
	filter := bson.M{}
	if f.ActivityID != nil {
		filter["activityId"] = *f.ActivityID
	}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	dateFilter := bson.M{}
	if !f.From.IsZero() {
		dateFilter["$gte"] = f.From
	}
	if !f.To.IsZero() {
		dateFilter["$lt"] = f.To
	}
	if len(dateFilter) > 0 {
		filter["createdAt"] = dateFilter
	}
	return filter
}
