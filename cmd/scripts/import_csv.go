package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/ArowuTest/prizedraw-backend/internal/config"
	mongorepo "github.com/ArowuTest/prizedraw-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/prizedraw-backend/internal/services"
	"github.com/ArowuTest/prizedraw-backend/internal/utils"
	"github.com/ArowuTest/prizedraw-backend/pkg/logger"
	"github.com/ArowuTest/prizedraw-backend/pkg/mongodb"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Appends prizes from a CSV file to an existing activity.
//
//	go run ./cmd/scripts <activityID> <prizes.csv>
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	if len(os.Args) < 3 {
		log.Fatal("usage: import_csv <activityID> <prizes.csv>")
	}
	activityID, err := primitive.ObjectIDFromHex(os.Args[1])
	if err != nil {
		log.Fatalf("Invalid activity ID %q: %v", os.Args[1], err)
	}
	csvFilePath := os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	zl, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	file, err := os.Open(csvFilePath)
	if err != nil {
		zl.Fatal("Failed to open CSV file", zap.String("path", csvFilePath), zap.Error(err))
	}
	defer file.Close()

	result, err := utils.ParsePrizeCSV(file)
	if err != nil {
		zl.Fatal("Failed to parse CSV file", zap.Error(err))
	}
	for _, rowErr := range result.Errors {
		zl.Warn("Skipped row", zap.String("reason", rowErr))
	}
	if len(result.Prizes) == 0 {
		zl.Fatal("No valid prize rows found", zap.Int("rows", result.TotalRows))
	}

	client, err := mongodb.NewClient(cfg.MongoDB.URI, cfg.MongoDB.ConnectTimeout)
	if err != nil {
		zl.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer client.Disconnect(context.Background())

	repo := mongorepo.NewActivityRepository(client.Database(cfg.MongoDB.Database))
	activityService := services.NewActivityService(repo, 0, 0, zl)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	activity, err := activityService.AppendPrizes(ctx, activityID, result.Prizes)
	if err != nil {
		zl.Fatal("Failed to import prizes", zap.Error(err))
	}

	zl.Info("Import completed",
		zap.String("activity", activity.ID.Hex()),
		zap.Int("imported", len(result.Prizes)),
		zap.Int("skipped", len(result.Errors)),
		zap.Int("totalPrizes", len(activity.Prizes)),
	)
}
