package mongodb

import (
	"errors"

	"github.com/ArowuTest/prizedraw-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	collectionActivities        = "activities"
	collectionDrawRecords       = "draw_records"
	collectionDailyCounters     = "daily_draw_counters"
	collectionReconciliations   = "reconciliations"
	collectionPointsAccounts    = "points_accounts"
	collectionPointTransactions = "point_transactions"
)

// mapError converts driver errors into repository sentinels
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repositories.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repositories.ErrDuplicate
	}
	return err
}
