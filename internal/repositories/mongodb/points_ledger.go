package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"github.com/ArowuTest/prizedraw-backend/pkg/pointsledger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ pointsledger.Ledger = (*PointsLedger)(nil)

// PointsLedger is a Mongo-backed balance store, used when the deployment
// owns its own points balances instead of calling the external ledger.
type PointsLedger struct {
	accounts     *mongo.Collection
	transactions *mongo.Collection
}

// NewPointsLedger creates a new PointsLedger
func NewPointsLedger(db *mongo.Database) *PointsLedger {
	return &PointsLedger{
		accounts:     db.Collection(collectionPointsAccounts),
		transactions: db.Collection(collectionPointTransactions),
	}
}

// Debit removes amount from the balance if it is large enough.
// A reference already present in point_transactions is treated as applied.
func (l *PointsLedger) Debit(ctx context.Context, userID string, amount int64, reference string) error {
	if amount == 0 {
		return nil
	}

	tx := &models.PointTransaction{
		UserID:    userID,
		Amount:    -amount,
		Reference: reference,
		CreatedAt: time.Now(),
	}
	res, err := l.transactions.InsertOne(ctx, tx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to record point transaction: %w", err)
	}

	upd, err := l.accounts.UpdateOne(ctx,
		bson.M{"_id": userID, "balance": bson.M{"$gte": amount}},
		bson.M{"$inc": bson.M{"balance": -amount}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	if err == nil && upd.ModifiedCount == 1 {
		return nil
	}

	if _, delErr := l.transactions.DeleteOne(ctx, bson.M{"_id": res.InsertedID}); delErr != nil {
		return fmt.Errorf("failed to roll back point transaction %s: %w", reference, delErr)
	}
	if err != nil {
		return fmt.Errorf("failed to debit points: %w", err)
	}
	return pointsledger.ErrInsufficientFunds
}

// Credit adds amount to the user's balance, creating the account if needed
func (l *PointsLedger) Credit(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive")
	}
	_, err := l.accounts.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$inc": bson.M{"balance": amount}, "$set": bson.M{"updatedAt": time.Now()}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Balance returns the user's balance, zero if no account exists
func (l *PointsLedger) Balance(ctx context.Context, userID string) (int64, error) {
	var acct models.PointsAccount
	err := l.accounts.FindOne(ctx, bson.M{"_id": userID}).Decode(&acct)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}
