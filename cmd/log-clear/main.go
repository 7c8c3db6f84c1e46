package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/claimlens/sync-api/internal/config"
	"github.com/claimlens/sync-api/internal/database"
	"github.com/claimlens/sync-api/internal/model"
	"github.com/claimlens/sync-api/internal/txlog"
)

func main() {
	// Parse command line flags
	contentID := flag.Int64("content-id", 0, "Content record whose transaction log should be cleared")
	dryRun := flag.Bool("dry-run", false, "Show what would be deleted without actually deleting")
	flag.Parse()

	if *contentID == 0 {
		log.Fatal("-content-id is required")
	}

	startTime := time.Now()
	log.Printf("Starting log clear for content %d...", *contentID)

	// Load configuration
	cfg := config.Load()

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()

	var record model.ContentRecord
	if err := db.WithContext(ctx).First(&record, *contentID).Error; err != nil {
		log.Fatalf("Content %d not found: %v", *contentID, err)
	}

	var total int64
	if err := db.WithContext(ctx).Model(&model.TransactionLogEntry{}).
		Where("content_id = ?", *contentID).Count(&total).Error; err != nil {
		log.Fatalf("Failed to count log entries: %v", err)
	}

	if *dryRun {
		log.Printf("[DRY RUN] Would delete %d log entries for content %d (status %s)", total, record.ID, record.Status)
		log.Println("[DRY RUN] No changes made")
		return
	}

	logger := txlog.New(db, cfg.Environment)
	deleted, err := logger.ClearContent(ctx, *contentID)
	if err != nil {
		log.Fatalf("Failed to clear log: %v", err)
	}

	elapsed := time.Since(startTime)
	log.Printf("Log clear complete. Deleted %d entries in %v", deleted, elapsed)
}
