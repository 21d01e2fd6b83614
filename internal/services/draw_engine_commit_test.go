package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"github.com/ArowuTest/prizedraw-backend/internal/repositories"
	"github.com/ArowuTest/prizedraw-backend/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// cancelAfterDebit drops the caller right after the ledger took the points
type cancelAfterDebit struct {
	*memory.PointsLedger
	cancel context.CancelFunc
}

func (l *cancelAfterDebit) Debit(ctx context.Context, userID string, amount int64, reference string) error {
	err := l.PointsLedger.Debit(ctx, userID, amount, reference)
	l.cancel()
	return err
}

// ctxStock and ctxRecords fail once the context is done, as a database driver does
type ctxStock struct {
	repositories.StockLedger
}

func (s ctxStock) TryDecrement(ctx context.Context, activityID, prizeID primitive.ObjectID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.StockLedger.TryDecrement(ctx, activityID, prizeID)
}

type ctxRecords struct {
	*memory.DrawRecordRepository
}

func (r ctxRecords) Create(ctx context.Context, record *models.DrawRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.DrawRecordRepository.Create(ctx, record)
}

// lostResponseLedger loses the answer of its first calls
type lostResponseLedger struct {
	*memory.PointsLedger
	lost    atomic.Int64 // calls left whose answer is lost
	applies bool         // whether a lost call still reached the ledger
	calls   atomic.Int64
}

func (l *lostResponseLedger) Debit(ctx context.Context, userID string, amount int64, reference string) error {
	l.calls.Add(1)
	if l.lost.Add(-1) >= 0 {
		if l.applies {
			if err := l.PointsLedger.Debit(ctx, userID, amount, reference); err != nil {
				return err
			}
		}
		return context.DeadlineExceeded
	}
	return l.PointsLedger.Debit(ctx, userID, amount, reference)
}

// flakyStock fails its first call, then defers to the real stock
type flakyStock struct {
	repositories.StockLedger
	calls atomic.Int64
}

func (s *flakyStock) TryDecrement(ctx context.Context, activityID, prizeID primitive.ObjectID) (bool, error) {
	if s.calls.Add(1) == 1 {
		return false, errors.New("connection reset by peer")
	}
	return s.StockLedger.TryDecrement(ctx, activityID, prizeID)
}

type brokenStock struct {
	calls atomic.Int64
}

func (s *brokenStock) TryDecrement(ctx context.Context, activityID, prizeID primitive.ObjectID) (bool, error) {
	s.calls.Add(1)
	return false, errors.New("server selection timeout")
}

func watchActivity() *models.Activity {
	return &models.Activity{
		Name:       "watch week",
		CostPoints: 10,
		IsActive:   true,
		Prizes: []models.Prize{
			{Name: "Watch", Type: models.PrizeTypePhysical, Quantity: 5, Probability: 100},
		},
	}
}

func (f *engineFixture) pendingReconciliations(t *testing.T) []*models.Reconciliation {
	t.Helper()
	pending, err := f.reconciliations.FindByStatus(context.Background(), models.ReconciliationPending, 0)
	require.NoError(t, err)
	return pending
}

func TestDrawEngine_CallerGoneAfterDebitKeepsOutcome(t *testing.T) {
	f := newEngineFixture(t, NewSelector(fixedRand(0.5)))
	activity := f.createActivity(t, watchActivity())
	f.ledger.SetBalance("hana", 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.engine.ledger = &cancelAfterDebit{PointsLedger: f.ledger, cancel: cancel}
	f.engine.stock = ctxStock{f.activities}
	f.engine.records = ctxRecords{f.records}

	record, err := f.engine.RequestDraw(ctx, "hana", activity.ID)
	require.NoError(t, err)
	require.NotNil(t, record.PrizeID)
	assert.Equal(t, "Watch", record.PrizeName)
	assert.Equal(t, models.DrawStatusPending, record.Status)

	assert.Equal(t, int64(0), f.ledger.Balance("hana"))
	assert.Equal(t, 1, f.records.Len())
	assert.Empty(t, f.pendingReconciliations(t))

	stored, err := f.activities.FindByID(context.Background(), activity.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stored.Prizes[0].Quantity)
	assert.Equal(t, int64(1), stored.Prizes[0].Claimed)
}

func TestDrawEngine_LostDebitAnswerIsReplayed(t *testing.T) {
	f := newEngineFixture(t, NewSeededSelector(1))
	activity := f.createActivity(t, scenarioActivity())
	f.ledger.SetBalance("ivan", 100)

	ledger := &lostResponseLedger{PointsLedger: f.ledger, applies: true}
	ledger.lost.Store(1)
	f.engine.ledger = ledger

	record, err := f.engine.RequestDraw(context.Background(), "ivan", activity.ID)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, int64(2), ledger.calls.Load())
	assert.Equal(t, int64(90), f.ledger.Balance("ivan"))
	count, _ := f.ledger.Debits()
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 1, f.records.Len())
	assert.Equal(t, 1, f.dailyCount(t, "ivan", activity.ID))
	assert.Empty(t, f.pendingReconciliations(t))
}

func TestDrawEngine_UnconfirmedDebitIsFlaggedAndSettled(t *testing.T) {
	f := newEngineFixture(t, NewSeededSelector(1))
	activity := f.createActivity(t, scenarioActivity())
	f.ledger.SetBalance("jade", 100)

	ledger := &lostResponseLedger{PointsLedger: f.ledger, applies: true}
	ledger.lost.Store(2)
	f.engine.ledger = ledger

	record, err := f.engine.RequestDraw(context.Background(), "jade", activity.ID)
	require.ErrorIs(t, err, ErrReconciliationPending)
	require.NotNil(t, record)

	// the points are gone, so the slot stays taken and the draw is flagged
	assert.Equal(t, int64(90), f.ledger.Balance("jade"))
	assert.Equal(t, 0, f.records.Len())
	assert.Equal(t, 1, f.dailyCount(t, "jade", activity.ID))

	pending := f.pendingReconciliations(t)
	require.Len(t, pending, 1)
	assert.Equal(t, models.ReconciliationDebitUnconfirmed, pending[0].Kind)
	assert.Equal(t, record.ID, pending[0].RecordID)
	assert.Equal(t, int64(10), pending[0].Record.PointsSpent)

	svc := NewReconciliationService(f.reconciliations, f.records, f.ledger, f.counter, nil)
	result, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Resolved)
	assert.Equal(t, int64(0), result.Pending)

	stored, err := f.records.FindByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NoWinPrizeName, stored.PrizeName)
	assert.Equal(t, int64(10), stored.PointsSpent)

	// the replayed debit was recognised, not charged twice
	assert.Equal(t, int64(90), f.ledger.Balance("jade"))
	count, _ := f.ledger.Debits()
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 1, f.dailyCount(t, "jade", activity.ID))
}

func TestDrawEngine_UnconfirmedDebitThatNeverLandedReturnsSlot(t *testing.T) {
	f := newEngineFixture(t, NewSeededSelector(1))
	activity := f.createActivity(t, scenarioActivity())
	f.ledger.SetBalance("kai", 5)

	ledger := &lostResponseLedger{PointsLedger: f.ledger}
	ledger.lost.Store(2)
	f.engine.ledger = ledger

	_, err := f.engine.RequestDraw(context.Background(), "kai", activity.ID)
	require.ErrorIs(t, err, ErrReconciliationPending)
	assert.Equal(t, 1, f.dailyCount(t, "kai", activity.ID))

	svc := NewReconciliationService(f.reconciliations, f.records, f.ledger, f.counter, nil)
	result, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Resolved)

	assert.Equal(t, 0, f.records.Len())
	assert.Equal(t, 0, f.dailyCount(t, "kai", activity.ID))
	assert.Equal(t, int64(5), f.ledger.Balance("kai"))
	assert.Empty(t, f.pendingReconciliations(t))
}

func TestReconciliationService_UnconfirmedDebitWithoutLedgerStaysPending(t *testing.T) {
	f := newEngineFixture(t, NewSeededSelector(1))
	activity := f.createActivity(t, scenarioActivity())
	f.ledger.SetBalance("lena", 100)

	ledger := &lostResponseLedger{PointsLedger: f.ledger, applies: true}
	ledger.lost.Store(2)
	f.engine.ledger = ledger

	_, err := f.engine.RequestDraw(context.Background(), "lena", activity.ID)
	require.ErrorIs(t, err, ErrReconciliationPending)

	svc := NewReconciliationService(f.reconciliations, f.records, nil, nil, nil)
	result, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, int64(1), result.Pending)
	assert.Equal(t, 0, f.records.Len())

	pending := f.pendingReconciliations(t)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Contains(t, pending[0].LastError, "no points ledger")
}

func TestDrawEngine_StockErrorRetriesSamePrize(t *testing.T) {
	f := newEngineFixture(t, NewSelector(fixedRand(0.5)))
	activity := f.createActivity(t, watchActivity())
	f.ledger.SetBalance("milo", 10)
	stock := &flakyStock{StockLedger: f.activities}
	f.engine.stock = stock

	record, err := f.engine.RequestDraw(context.Background(), "milo", activity.ID)
	require.NoError(t, err)
	assert.Equal(t, "Watch", record.PrizeName)
	assert.Equal(t, int64(2), stock.calls.Load())

	stored, err := f.activities.FindByID(context.Background(), activity.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stored.Prizes[0].Quantity)
}

func TestDrawEngine_StockOutageFallsBackToNoWin(t *testing.T) {
	f := newEngineFixture(t, NewSelector(fixedRand(0.1)))
	stock := &brokenStock{}
	f.engine.stock = stock

	activity := f.createActivity(t, &models.Activity{
		Name:       "outage",
		CostPoints: 10,
		IsActive:   true,
		Prizes: []models.Prize{
			{Name: "Watch", Type: models.PrizeTypePhysical, Quantity: 1, Probability: 50},
			{Name: "Mug", Type: models.PrizeTypePhysical, Quantity: 1, Probability: 50},
		},
	})
	f.ledger.SetBalance("nia", 10)

	record, err := f.engine.RequestDraw(context.Background(), "nia", activity.ID)
	require.NoError(t, err)
	assert.False(t, record.IsWin())
	// each prize is tried twice before it is skipped
	assert.Equal(t, int64(4), stock.calls.Load())
	assert.Equal(t, 1, f.records.Len())
}
