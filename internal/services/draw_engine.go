package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/prizedraw-backend/internal/metrics"
	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"github.com/ArowuTest/prizedraw-backend/internal/repositories"
	"github.com/ArowuTest/prizedraw-backend/internal/utils"
	"github.com/ArowuTest/prizedraw-backend/pkg/pointsledger"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// commitTimeout bounds the steps that run after the debit, detached from the request
const commitTimeout = 10 * time.Second

// DrawEngineConfig holds the tunables of the draw path
type DrawEngineConfig struct {
	// Location is the reference timezone for daily caps
	Location *time.Location
	// MaxStockRetries bounds re-selection after losing a stock race
	MaxStockRetries int
}

// DrawEngine runs one draw request end to end:
// eligibility, daily cap, debit, selection, stock commit, record append.
type DrawEngine struct {
	activities      repositories.ActivityRepository
	stock           repositories.StockLedger
	counter         repositories.DrawCounter
	records         repositories.DrawRecordRepository
	reconciliations repositories.ReconciliationRepository
	ledger          pointsledger.Ledger
	selector        *Selector
	cfg             DrawEngineConfig
	logger          *zap.Logger
	now             func() time.Time
}

// NewDrawEngine creates a new DrawEngine
func NewDrawEngine(
	activities repositories.ActivityRepository,
	stock repositories.StockLedger,
	counter repositories.DrawCounter,
	records repositories.DrawRecordRepository,
	reconciliations repositories.ReconciliationRepository,
	ledger pointsledger.Ledger,
	selector *Selector,
	cfg DrawEngineConfig,
	logger *zap.Logger,
) *DrawEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if selector == nil {
		selector = NewSelector(nil)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxStockRetries <= 0 {
		cfg.MaxStockRetries = 3
	}
	return &DrawEngine{
		activities:      activities,
		stock:           stock,
		counter:         counter,
		records:         records,
		reconciliations: reconciliations,
		ledger:          ledger,
		selector:        selector,
		cfg:             cfg,
		logger:          logger,
		now:             time.Now,
	}
}

// SetClock replaces the engine's time source
func (e *DrawEngine) SetClock(now func() time.Time) {
	e.now = now
}

// RequestDraw performs one draw for userID on activityID.
// Precondition failures return a typed error and leave no side effects.
// When the record cannot be stored after the debit, or the ledger never
// confirms the debit, the record is still returned together with
// ErrReconciliationPending.
func (e *DrawEngine) RequestDraw(ctx context.Context, userID string, activityID primitive.ObjectID) (*models.DrawRecord, error) {
	start := time.Now()
	defer func() { metrics.ObserveDrawDuration(time.Since(start)) }()

	log := e.logger.With(zap.String("user_id", userID), zap.String("activity_id", activityID.Hex()))

	activity, err := e.activities.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			metrics.RecordRejection("activity_not_found")
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}

	now := e.now()
	if err := checkOpen(activity, now); err != nil {
		metrics.RecordRejection("activity_inactive")
		return nil, err
	}

	key := models.CounterKey{UserID: userID, ActivityID: activityID, Day: utils.DayKey(now, e.cfg.Location)}
	reserved, err := e.counter.Reserve(ctx, key, activity.DailyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve daily draw: %w", err)
	}
	if !reserved {
		metrics.RecordRejection("daily_limit")
		return nil, ErrDailyLimitExceeded
	}

	// The record id doubles as the ledger reference so a replayed debit is recognised.
	record := newDrawRecord(primitive.NewObjectID(), userID, activity, key.Day, now)
	reference := record.ID.Hex()
	debitErr := e.ledger.Debit(ctx, userID, activity.CostPoints, reference)

	// Once the debit may have landed the draw no longer follows the caller's cancellation.
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()

	if debitErr != nil && !errors.Is(debitErr, pointsledger.ErrInsufficientFunds) {
		log.Warn("Debit outcome unknown, replaying", zap.String("record_id", reference), zap.Error(debitErr))
		debitErr = e.ledger.Debit(commitCtx, userID, activity.CostPoints, reference)
		if debitErr != nil && !errors.Is(debitErr, pointsledger.ErrInsufficientFunds) {
			// The slot stays taken until the sweep settles the debit.
			e.flagReconciliation(commitCtx, models.ReconciliationDebitUnconfirmed, record, debitErr, log)
			return record, fmt.Errorf("%w: record %s: debit unconfirmed: %v", ErrReconciliationPending, reference, debitErr)
		}
	}
	if debitErr != nil {
		if relErr := e.counter.Release(commitCtx, key); relErr != nil {
			log.Error("Failed to release daily draw slot", zap.Error(relErr))
		}
		metrics.RecordRejection("insufficient_points")
		return nil, ErrInsufficientPoints
	}

	// From here on the draw commits to some outcome.
	if prize := e.selectAndCommit(commitCtx, activity, log); prize != nil {
		record.Award(prize)
	}

	if err := e.records.Create(commitCtx, record); err != nil {
		e.flagReconciliation(commitCtx, models.ReconciliationRecordMissing, record, err, log)
		return record, fmt.Errorf("%w: record %s: %v", ErrReconciliationPending, reference, err)
	}

	metrics.RecordOutcome(record.IsWin())
	return record, nil
}

// newDrawRecord builds the no-win record of a draw; Award fills in a prize
func newDrawRecord(id primitive.ObjectID, userID string, activity *models.Activity, day string, now time.Time) *models.DrawRecord {
	return &models.DrawRecord{
		ID:          id,
		UserID:      userID,
		ActivityID:  activity.ID,
		PrizeName:   models.NoWinPrizeName,
		PrizeType:   models.PrizeTypeThanks,
		PointsSpent: activity.CostPoints,
		Status:      models.DrawStatusClaimed,
		DrawDay:     day,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func checkOpen(activity *models.Activity, now time.Time) error {
	if !activity.IsActive {
		return fmt.Errorf("%w: %s", ErrActivityInactive, ReasonDisabled)
	}
	if now.Before(activity.StartTime) {
		return fmt.Errorf("%w: %s", ErrActivityInactive, ReasonNotStarted)
	}
	if activity.EndTime != nil && now.After(*activity.EndTime) {
		return fmt.Errorf("%w: %s", ErrActivityInactive, ReasonEnded)
	}
	return nil
}

// selectAndCommit chooses a prize and takes one unit of its stock.
// A lost stock race, or a store that keeps failing, excludes the prize and
// selects again; nil means no win.
func (e *DrawEngine) selectAndCommit(ctx context.Context, activity *models.Activity, log *zap.Logger) *models.Prize {
	exclude := make(map[primitive.ObjectID]bool)

	for attempt := 0; attempt <= e.cfg.MaxStockRetries; attempt++ {
		prize := e.selector.Choose(activity.Prizes, exclude)
		if prize == nil || prize.IsUnlimited() {
			return prize
		}

		ok, err := e.stock.TryDecrement(ctx, activity.ID, prize.ID)
		if err != nil {
			// A store error is not a lost race; the same prize gets one more try.
			log.Warn("Stock decrement failed, retrying", zap.String("prize_id", prize.ID.Hex()), zap.Error(err))
			ok, err = e.stock.TryDecrement(ctx, activity.ID, prize.ID)
		}
		switch {
		case err != nil:
			log.Error("Stock decrement failed, skipping prize", zap.String("prize_id", prize.ID.Hex()), zap.Error(err))
			metrics.IncStockDecrementError()
		case ok:
			return prize
		default:
			metrics.IncStockRaceRetry()
		}
		exclude[prize.ID] = true
	}

	log.Warn("Falling back to no win", zap.Error(ErrStockRaceExhausted), zap.Int("excluded", len(exclude)))
	return nil
}

// flagReconciliation persists the snapshot of a draw that was, or may have been, debited but not stored
func (e *DrawEngine) flagReconciliation(ctx context.Context, kind models.ReconciliationKind, record *models.DrawRecord, cause error, log *zap.Logger) {
	metrics.IncReconciliationPending()

	entry := &models.Reconciliation{
		Kind:     kind,
		RecordID: record.ID,
		Record:   *record,
		Reason:   cause.Error(),
		Status:   models.ReconciliationPending,
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := e.reconciliations.Create(writeCtx, entry); err != nil {
		log.Error("Draw possibly debited but neither record nor reconciliation stored",
			zap.String("record_id", record.ID.Hex()),
			zap.String("kind", string(kind)),
			zap.Int64("points_spent", record.PointsSpent),
			zap.NamedError("record_error", cause),
			zap.Error(err),
		)
		return
	}
	log.Error("Draw not stored, reconciliation pending",
		zap.String("record_id", record.ID.Hex()),
		zap.String("reconciliation_id", entry.ID.Hex()),
		zap.String("kind", string(kind)),
		zap.Error(cause),
	)
}
