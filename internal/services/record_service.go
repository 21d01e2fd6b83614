package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"github.com/ArowuTest/prizedraw-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RecordService manages the fulfillment status of draw records
type RecordService struct {
	records repositories.DrawRecordRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewRecordService creates a new RecordService
func NewRecordService(records repositories.DrawRecordRepository, logger *zap.Logger) *RecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordService{records: records, logger: logger, now: time.Now}
}

// ListMine returns a page of the user's draw records, newest first
func (s *RecordService) ListMine(ctx context.Context, userID string, page, limit int) ([]*models.DrawRecord, error) {
	records, err := s.records.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list draw records: %w", err)
	}
	return records, nil
}

// UpdateStatus advances a record's status. Only pending records move.
func (s *RecordService) UpdateStatus(ctx context.Context, id primitive.ObjectID, next models.DrawStatus) (*models.DrawRecord, error) {
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load draw record: %w", err)
	}

	if !next.Valid() || !record.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, record.Status, next)
	}

	if err := s.records.UpdateStatus(ctx, id, record.Status, next); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// another writer moved it first
			return nil, fmt.Errorf("%w: record is no longer %s", ErrInvalidStatusTransition, record.Status)
		}
		return nil, fmt.Errorf("failed to update draw record: %w", err)
	}

	s.logger.Info("Draw record status updated",
		zap.String("record_id", id.Hex()),
		zap.String("from", string(record.Status)),
		zap.String("to", string(next)),
	)
	record.Status = next
	record.UpdatedAt = s.now()
	return record, nil
}

// ExpireStale moves pending records older than window to expired
func (s *RecordService) ExpireStale(ctx context.Context, window time.Duration) (int64, error) {
	n, err := s.records.ExpirePending(ctx, s.now().Add(-window))
	if err != nil {
		return 0, fmt.Errorf("failed to expire pending records: %w", err)
	}
	if n > 0 {
		s.logger.Info("Expired unclaimed draw records", zap.Int64("count", n))
	}
	return n, nil
}
