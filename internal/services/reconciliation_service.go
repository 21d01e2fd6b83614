package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/prizedraw-backend/internal/metrics"
	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"github.com/ArowuTest/prizedraw-backend/internal/repositories"
	"github.com/ArowuTest/prizedraw-backend/pkg/pointsledger"
	"go.uber.org/zap"
)

const sweepBatchSize = 100

// errNoLedger leaves unconfirmed debits for manual repair
var errNoLedger = errors.New("no points ledger configured to confirm the debit")

// SweepResult summarizes one reconciliation pass
type SweepResult struct {
	Scanned  int   `json:"scanned"`
	Resolved int   `json:"resolved"`
	Failed   int   `json:"failed"`
	Pending  int64 `json:"pending"`
}

// ReconciliationService repairs draws that were, or may have been, debited but not recorded
type ReconciliationService struct {
	entries repositories.ReconciliationRepository
	records repositories.DrawRecordRepository
	ledger  pointsledger.Ledger
	counter repositories.DrawCounter
	logger  *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService.
// ledger and counter are only needed to settle unconfirmed debits.
func NewReconciliationService(
	entries repositories.ReconciliationRepository,
	records repositories.DrawRecordRepository,
	ledger pointsledger.Ledger,
	counter repositories.DrawCounter,
	logger *zap.Logger,
) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{entries: entries, records: records, ledger: ledger, counter: counter, logger: logger}
}

// List returns reconciliation entries with the given status, least attempted first
func (s *ReconciliationService) List(ctx context.Context, status models.ReconciliationStatus, limit int) ([]*models.Reconciliation, error) {
	if status == "" {
		status = models.ReconciliationPending
	}
	return s.entries.FindByStatus(ctx, status, limit)
}

// Sweep re-inserts the record snapshot of each pending entry.
// A record that already exists counts as repaired. An unconfirmed debit is
// first replayed under its original reference: if the ledger declines it the
// draw never happened, its daily slot is returned and no record is written.
func (s *ReconciliationService) Sweep(ctx context.Context) (*SweepResult, error) {
	pending, err := s.entries.FindByStatus(ctx, models.ReconciliationPending, sweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending reconciliations: %w", err)
	}

	result := &SweepResult{Scanned: len(pending)}
	for _, entry := range pending {
		recorded, err := s.repair(ctx, entry)
		if err != nil {
			result.Failed++
			if ferr := s.entries.RecordFailure(ctx, entry.ID, err.Error()); ferr != nil {
				s.logger.Error("Failed to record reconciliation attempt", zap.String("reconciliation_id", entry.ID.Hex()), zap.Error(ferr))
			}
			s.logger.Warn("Reconciliation attempt failed",
				zap.String("reconciliation_id", entry.ID.Hex()),
				zap.String("record_id", entry.RecordID.Hex()),
				zap.String("kind", string(entry.Kind)),
				zap.Int("attempts", entry.Attempts+1),
				zap.Error(err),
			)
			continue
		}

		if err := s.entries.MarkResolved(ctx, entry.ID); err != nil {
			result.Failed++
			s.logger.Error("Failed to resolve reconciliation", zap.String("reconciliation_id", entry.ID.Hex()), zap.Error(err))
			continue
		}
		result.Resolved++
		s.logger.Info("Draw reconciled",
			zap.String("record_id", entry.RecordID.Hex()),
			zap.String("user_id", entry.Record.UserID),
			zap.Bool("recorded", recorded),
		)
	}

	count, err := s.entries.CountByStatus(ctx, models.ReconciliationPending)
	if err != nil {
		return result, fmt.Errorf("failed to count pending reconciliations: %w", err)
	}
	result.Pending = count
	metrics.SetReconciliationPending(count)
	return result, nil
}

// repair settles one entry, reporting whether a draw record now exists for it
func (s *ReconciliationService) repair(ctx context.Context, entry *models.Reconciliation) (bool, error) {
	record := entry.Record

	if entry.DebitUnconfirmed() {
		if s.ledger == nil {
			return false, errNoLedger
		}
		err := s.ledger.Debit(ctx, record.UserID, record.PointsSpent, entry.RecordID.Hex())
		if errors.Is(err, pointsledger.ErrInsufficientFunds) {
			if s.counter != nil {
				key := models.CounterKey{UserID: record.UserID, ActivityID: record.ActivityID, Day: record.DrawDay}
				if err := s.counter.Release(ctx, key); err != nil {
					return false, fmt.Errorf("failed to release daily draw slot: %w", err)
				}
			}
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("debit still unconfirmed: %w", err)
		}
	}

	if err := s.records.Create(ctx, &record); err != nil && !errors.Is(err, repositories.ErrDuplicate) {
		return false, err
	}
	return true, nil
}
