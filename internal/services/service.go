package services

import (
	"context"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time checks that the concrete services satisfy the handler-facing interfaces
var (
	_ DrawService           = (*DrawEngine)(nil)
	_ StatisticsAggregator  = (*StatisticsService)(nil)
	_ ReconciliationSweeper = (*ReconciliationService)(nil)
)

// DrawService defines the interface for performing draws
type DrawService interface {
	// RequestDraw runs one draw for the user on the activity
	RequestDraw(ctx context.Context, userID string, activityID primitive.ObjectID) (*models.DrawRecord, error)
}

// StatisticsAggregator defines the interface for read-side rollups
type StatisticsAggregator interface {
	Compute(ctx context.Context, q models.StatisticsQuery) (*models.Statistics, error)
}

// ReconciliationSweeper defines the interface for repairing unrecorded draws
type ReconciliationSweeper interface {
	Sweep(ctx context.Context) (*SweepResult, error)
	List(ctx context.Context, status models.ReconciliationStatus, limit int) ([]*models.Reconciliation, error)
}
