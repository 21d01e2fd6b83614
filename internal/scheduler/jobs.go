package scheduler

import (
	"context"
	"time"

	"github.com/ArowuTest/prizedraw-backend/internal/services"
	"go.uber.org/zap"
)

// ReconcileJob runs the reconciliation sweep
type ReconcileJob struct {
	service *services.ReconciliationService
	logger  *zap.Logger
}

// NewReconcileJob creates a new ReconcileJob
func NewReconcileJob(service *services.ReconciliationService, logger *zap.Logger) *ReconcileJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileJob{service: service, logger: logger}
}

func (j *ReconcileJob) RunReconcile(ctx context.Context) error {
	result, err := j.service.Sweep(ctx)
	if err != nil {
		return err
	}
	if result.Scanned > 0 {
		j.logger.Info("reconciliation sweep finished",
			zap.Int("resolved", result.Resolved),
			zap.Int("failed", result.Failed),
			zap.Int64("pending", result.Pending),
		)
	}
	return nil
}

// ExpiryJob expires pending records older than the claim window
type ExpiryJob struct {
	service *services.RecordService
	window  time.Duration
}

// NewExpiryJob creates a new ExpiryJob
func NewExpiryJob(service *services.RecordService, window time.Duration) *ExpiryJob {
	return &ExpiryJob{service: service, window: window}
}

func (j *ExpiryJob) RunExpiry(ctx context.Context) error {
	_, err := j.service.ExpireStale(ctx, j.window)
	return err
}
