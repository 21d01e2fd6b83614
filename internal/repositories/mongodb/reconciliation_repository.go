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

var _ repositories.ReconciliationRepository = (*ReconciliationRepository)(nil)

// ReconciliationRepository stores draws awaiting repair
type ReconciliationRepository struct {
	collection *mongo.Collection
}

// NewReconciliationRepository creates a new ReconciliationRepository
func NewReconciliationRepository(db *mongo.Database) *ReconciliationRepository {
	return &ReconciliationRepository{
		collection: db.Collection(collectionReconciliations),
	}
}

func (r *ReconciliationRepository) Create(ctx context.Context, entry *models.Reconciliation) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	_, err := r.collection.InsertOne(ctx, entry)
	return mapError(err)
}

func (r *ReconciliationRepository) FindByStatus(ctx context.Context, status models.ReconciliationStatus, limit int) ([]*models.Reconciliation, error) {
	// Entries that keep failing sink behind fresh ones.
	opts := options.Find().SetSort(bson.D{{Key: "attempts", Value: 1}, {Key: "createdAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reconciliations: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*models.Reconciliation
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode reconciliations: %w", err)
	}
	if entries == nil {
		entries = []*models.Reconciliation{}
	}
	return entries, nil
}

func (r *ReconciliationRepository) MarkResolved(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set": bson.M{"status": models.ReconciliationResolved, "resolvedAt": now, "updatedAt": now},
			"$inc": bson.M{"attempts": 1},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *ReconciliationRepository) RecordFailure(ctx context.Context, id primitive.ObjectID, reason string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set": bson.M{"lastError": reason, "updatedAt": time.Now()},
			"$inc": bson.M{"attempts": 1},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *ReconciliationRepository) CountByStatus(ctx context.Context, status models.ReconciliationStatus) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"status": status})
}
