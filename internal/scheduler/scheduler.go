package scheduler

import (
	"context"
	"time"

	"github.com/ArowuTest/prizedraw-backend/internal/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = 2 * time.Minute

// ReconcileTask repairs debited but unrecorded draws
type ReconcileTask interface {
	RunReconcile(ctx context.Context) error
}

// ExpiryTask expires unclaimed pending draw records
type ExpiryTask interface {
	RunExpiry(ctx context.Context) error
}

// Deps are the jobs the scheduler runs; nil jobs are skipped
type Deps struct {
	Reconcile ReconcileTask
	Expiry    ExpiryTask
}

// NewScheduler registers the background jobs. The caller starts and stops it.
func NewScheduler(cfg config.SchedulerConfig, deps Deps, loc *time.Location, logger *zap.Logger) *cron.Cron {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(loc))

	if deps.Reconcile != nil {
		addFunc(c, cfg.ReconcileSpec, "reconciliation.sweep", logger, deps.Reconcile.RunReconcile)
	}
	if deps.Expiry != nil {
		addFunc(c, cfg.ExpireSpec, "draw_records.expire_pending", logger, deps.Expiry.RunExpiry)
	}

	return c
}

func addFunc(c *cron.Cron, spec string, name string, logger *zap.Logger, fn func(context.Context) error) {
	if c == nil || fn == nil || spec == "" {
		return
	}

	if _, err := c.AddFunc(spec, func() {
		defer recoverJobPanic(name, logger)
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			logger.Warn("scheduler job failed", zap.String("job", name), zap.Error(err))
			return
		}
		logger.Debug("scheduler job finished", zap.String("job", name), zap.Duration("cost", time.Since(start)))
	}); err != nil {
		logger.Error("register scheduler job failed",
			zap.String("job", name),
			zap.String("spec", spec),
			zap.Error(err),
		)
	}
}

func recoverJobPanic(jobName string, logger *zap.Logger) {
	if recovered := recover(); recovered != nil {
		logger.Error("scheduler job panic recovered",
			zap.String("job", jobName),
			zap.Any("panic", recovered),
		)
	}
}
