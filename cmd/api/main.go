package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ArowuTest/prizedraw-backend/api/routes"
	"github.com/ArowuTest/prizedraw-backend/internal/config"
	"github.com/ArowuTest/prizedraw-backend/internal/handlers"
	"github.com/ArowuTest/prizedraw-backend/internal/repositories"
	"github.com/ArowuTest/prizedraw-backend/internal/repositories/memory"
	mongorepo "github.com/ArowuTest/prizedraw-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/prizedraw-backend/internal/scheduler"
	"github.com/ArowuTest/prizedraw-backend/internal/services"
	"github.com/ArowuTest/prizedraw-backend/pkg/logger"
	mongodb "github.com/ArowuTest/prizedraw-backend/pkg/mongodb"
	"github.com/ArowuTest/prizedraw-backend/pkg/pointsledger"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// storage is the set of repositories the services run on
type storage struct {
	activities      repositories.ActivityRepository
	stock           repositories.StockLedger
	counter         repositories.DrawCounter
	records         repositories.DrawRecordRepository
	reconciliations repositories.ReconciliationRepository
	ledger          pointsledger.Ledger
	close           func(context.Context) error
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	loc, err := cfg.Draw.Location()
	if err != nil {
		return err
	}

	store, err := openStorage(cfg, zl)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.close(context.Background()); err != nil {
			zl.Error("Error closing storage", zap.Error(err))
		}
	}()

	// Initialize Services
	engine := services.NewDrawEngine(
		store.activities, store.stock, store.counter, store.records, store.reconciliations, store.ledger,
		services.NewSelector(nil),
		services.DrawEngineConfig{Location: loc, MaxStockRetries: cfg.Draw.MaxStockRetries},
		zl.Named("draw"),
	)
	activityService := services.NewActivityService(store.activities, cfg.Draw.ActivityCacheSize, cfg.Draw.ActivityCacheTTL, zl.Named("activity"))
	recordService := services.NewRecordService(store.records, zl.Named("records"))
	statisticsService := services.NewStatisticsService(store.records, zl.Named("statistics"))
	reconciliationService := services.NewReconciliationService(store.reconciliations, store.records, store.ledger, store.counter, zl.Named("reconciliation"))

	// Initialize Handlers
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.SetupRouter(cfg, routes.Handlers{
		Draw:       handlers.NewDrawHandler(engine, recordService),
		Activity:   handlers.NewActivityHandler(activityService),
		Statistics: handlers.NewStatisticsHandler(statisticsService, loc),
		Admin:      handlers.NewAdminHandler(activityService, recordService, reconciliationService),
	}, zl.Named("http"))

	cron := scheduler.NewScheduler(cfg.Scheduler, scheduler.Deps{
		Reconcile: scheduler.NewReconcileJob(reconciliationService, zl.Named("reconciliation")),
		Expiry:    scheduler.NewExpiryJob(recordService, cfg.Scheduler.ClaimWindow),
	}, loc, zl.Named("scheduler"))
	cron.Start()
	defer func() { <-cron.Stop().Done() }()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("Server starting", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver), zap.String("ledger", cfg.Ledger.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}
	zl.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	zl.Info("Server exiting")
	return nil
}

func openStorage(cfg *config.Config, zl *zap.Logger) (*storage, error) {
	var store storage

	switch cfg.Storage.Driver {
	case "memory":
		activities := memory.NewActivityRepository()
		store = storage{
			activities:      activities,
			stock:           activities,
			counter:         memory.NewDrawCounter(),
			records:         memory.NewDrawRecordRepository(),
			reconciliations: memory.NewReconciliationRepository(),
			close:           func(context.Context) error { return nil },
		}
		zl.Warn("Using in-memory storage; data is lost on restart")

	default:
		client, err := mongodb.NewClient(cfg.MongoDB.URI, cfg.MongoDB.ConnectTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		db := client.Database(cfg.MongoDB.Database)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoDB.ConnectTimeout)
		defer cancel()
		if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}

		activities := mongorepo.NewActivityRepository(db)
		store = storage{
			activities:      activities,
			stock:           activities,
			counter:         mongorepo.NewDrawCounterRepository(db),
			records:         mongorepo.NewDrawRecordRepository(db),
			reconciliations: mongorepo.NewReconciliationRepository(db),
			close:           client.Disconnect,
		}
		if cfg.Ledger.Driver == "mongodb" {
			store.ledger = mongorepo.NewPointsLedger(db)
		}
	}

	switch cfg.Ledger.Driver {
	case "memory":
		store.ledger = memory.NewPointsLedger()
		zl.Warn("Using in-memory points ledger; balances start at zero")
	case "http":
		store.ledger = pointsledger.NewClient(cfg.Ledger.BaseURL, cfg.Ledger.APIKey, cfg.Ledger.Timeout, cfg.Ledger.MockAPI)
	}
	return &store, nil
}
