package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when no document matches
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a document with the same id already exists
	ErrDuplicate = errors.New("duplicate document")
	// ErrConflict is returned when an optimistic version check fails
	ErrConflict = errors.New("concurrent modification")
)

// ActivityRepository defines the interface for activity data operations
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Activity, error)
	FindAll(ctx context.Context, activeOnly bool) ([]*models.Activity, error)
	// Update replaces the activity if its stored version still equals activity.Version.
	Update(ctx context.Context, activity *models.Activity) error
}

// StockLedger is the only writer of prize stock
type StockLedger interface {
	// TryDecrement removes one unit of stock if any remains, reporting whether it did.
	// Unlimited prizes always succeed without a write.
	TryDecrement(ctx context.Context, activityID, prizeID primitive.ObjectID) (bool, error)
}

// DrawCounter tracks per-user daily draw counts
type DrawCounter interface {
	// Reserve increments the counter if it is below limit (limit 0 = no cap), reporting whether it did.
	Reserve(ctx context.Context, key models.CounterKey, limit int) (bool, error)
	// Release returns a reserved slot that was never used by a committed draw.
	Release(ctx context.Context, key models.CounterKey) error
	Count(ctx context.Context, key models.CounterKey) (int, error)
}

// DrawRecordRepository defines the interface for the append-only draw log
type DrawRecordRepository interface {
	// Create inserts a record with a pre-assigned id; a repeated id returns ErrDuplicate.
	Create(ctx context.Context, record *models.DrawRecord) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.DrawRecord, error)
	FindByUserID(ctx context.Context, userID string, page, limit int) ([]*models.DrawRecord, error)
	// UpdateStatus moves a record from one status to another; ErrNotFound if it is not in from.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.DrawStatus) error
	ExpirePending(ctx context.Context, createdBefore time.Time) (int64, error)
	Stream(ctx context.Context, filter models.RecordFilter, fn func(*models.DrawRecord) error) error
}

// ReconciliationRepository stores draws awaiting out-of-band repair
type ReconciliationRepository interface {
	Create(ctx context.Context, entry *models.Reconciliation) error
	FindByStatus(ctx context.Context, status models.ReconciliationStatus, limit int) ([]*models.Reconciliation, error)
	MarkResolved(ctx context.Context, id primitive.ObjectID) error
	RecordFailure(ctx context.Context, id primitive.ObjectID, reason string) error
	CountByStatus(ctx context.Context, status models.ReconciliationStatus) (int64, error)
}
