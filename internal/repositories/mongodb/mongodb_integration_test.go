//go:build integration

package mongodb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"github.com/ArowuTest/prizedraw-backend/internal/repositories"
	"github.com/ArowuTest/prizedraw-backend/pkg/pointsledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func startMongoForTest(t *testing.T) *mongo.Database {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping test because docker/testcontainers is unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(fmt.Sprintf("mongodb://%s:%s", host, port.Port())))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Disconnect(context.Background())
	})

	db := client.Database("prizedraw_test")
	require.NoError(t, EnsureIndexes(ctx, db))
	return db
}

func TestActivityRepository_TryDecrementConcurrent(t *testing.T) {
	db := startMongoForTest(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	activity := &models.Activity{
		Name:      "spring",
		StartTime: time.Now().Add(-time.Hour),
		IsActive:  true,
		Prizes: []models.Prize{
			{Name: "100pts", Type: models.PrizeTypePoints, Value: 100, Quantity: 10, Probability: 20},
			{Name: "thanks", Type: models.PrizeTypeThanks, Quantity: models.UnlimitedQuantity, Probability: 80},
		},
	}
	require.NoError(t, repo.Create(ctx, activity))
	prizeID := activity.Prizes[0].ID

	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.TryDecrement(ctx, activity.ID, prizeID)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), wins.Load())
	stored, err := repo.FindByID(ctx, activity.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.FindPrize(prizeID).Quantity)
	assert.Equal(t, int64(10), stored.FindPrize(prizeID).Claimed)

	ok, err := repo.TryDecrement(ctx, activity.ID, activity.Prizes[1].ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestActivityRepository_UpdateConflict(t *testing.T) {
	db := startMongoForTest(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	activity := &models.Activity{Name: "a", StartTime: time.Now(), Prizes: []models.Prize{
		{Name: "coupon", Type: models.PrizeTypeCoupon, Quantity: 3, Probability: 5},
	}}
	require.NoError(t, repo.Create(ctx, activity))

	stale, err := repo.FindByID(ctx, activity.ID)
	require.NoError(t, err)

	ok, err := repo.TryDecrement(ctx, activity.ID, activity.Prizes[0].ID)
	require.NoError(t, err)
	require.True(t, ok)

	stale.Name = "renamed"
	assert.ErrorIs(t, repo.Update(ctx, stale), repositories.ErrConflict)

	stale.ID = primitive.NewObjectID()
	assert.ErrorIs(t, repo.Update(ctx, stale), repositories.ErrNotFound)
}

func TestDrawCounterRepository_ReserveConcurrent(t *testing.T) {
	db := startMongoForTest(t)
	counter := NewDrawCounterRepository(db)
	ctx := context.Background()
	key := models.CounterKey{UserID: "u1", ActivityID: primitive.NewObjectID(), Day: "2024-05-01"}

	var reserved atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := counter.Reserve(ctx, key, 3)
			assert.NoError(t, err)
			if ok {
				reserved.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(3), reserved.Load())
	n, err := counter.Count(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, counter.Release(ctx, key))
	n, err = counter.Count(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDrawRecordRepository_Lifecycle(t *testing.T) {
	db := startMongoForTest(t)
	repo := NewDrawRecordRepository(db)
	ctx := context.Background()

	activityID := primitive.NewObjectID()
	old := &models.DrawRecord{
		ID: primitive.NewObjectID(), UserID: "u1", ActivityID: activityID,
		PrizeType: models.PrizeTypePhysical, Status: models.DrawStatusPending,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}
	fresh := &models.DrawRecord{
		ID: primitive.NewObjectID(), UserID: "u1", ActivityID: activityID,
		PrizeType: models.PrizeTypeCoupon, Status: models.DrawStatusPending,
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, fresh))
	assert.ErrorIs(t, repo.Create(ctx, fresh), repositories.ErrDuplicate)

	page, err := repo.FindByUserID(ctx, "u1", 1, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, fresh.ID, page[0].ID)

	n, err := repo.ExpirePending(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.UpdateStatus(ctx, fresh.ID, models.DrawStatusPending, models.DrawStatusClaimed))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, fresh.ID, models.DrawStatusPending, models.DrawStatusCancelled), repositories.ErrNotFound)

	var seen int
	err = repo.Stream(ctx, models.RecordFilter{ActivityID: &activityID, From: time.Now().Add(-time.Hour)}, func(r *models.DrawRecord) error {
		seen++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
}

func TestPointsLedger_DebitIdempotent(t *testing.T) {
	db := startMongoForTest(t)
	ledger := NewPointsLedger(db)
	ctx := context.Background()

	require.NoError(t, ledger.Credit(ctx, "u1", 25))
	require.NoError(t, ledger.Debit(ctx, "u1", 10, "ref-1"))
	require.NoError(t, ledger.Debit(ctx, "u1", 10, "ref-1"))
	assert.ErrorIs(t, ledger.Debit(ctx, "u1", 20, "ref-2"), pointsledger.ErrInsufficientFunds)

	balance, err := ledger.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), balance)

	// a declined debit leaves no transaction behind, so the reference can be reused
	require.NoError(t, ledger.Credit(ctx, "u1", 10))
	require.NoError(t, ledger.Debit(ctx, "u1", 20, "ref-2"))
	balance, err = ledger.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)
}

func TestReconciliationRepository_Lifecycle(t *testing.T) {
	db := startMongoForTest(t)
	repo := NewReconciliationRepository(db)
	ctx := context.Background()

	entry := &models.Reconciliation{RecordID: primitive.NewObjectID(), Reason: "insert failed", Status: models.ReconciliationPending}
	require.NoError(t, repo.Create(ctx, entry))
	require.NoError(t, repo.RecordFailure(ctx, entry.ID, "still down"))

	pending, err := repo.FindByStatus(ctx, models.ReconciliationPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)

	require.NoError(t, repo.MarkResolved(ctx, entry.ID))
	n, err := repo.CountByStatus(ctx, models.ReconciliationPending)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
