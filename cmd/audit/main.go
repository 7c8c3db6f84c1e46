package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/claimlens/sync-api/internal/config"
	"github.com/claimlens/sync-api/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Issue struct {
	ContentID int64  `json:"contentId"`
	Type      string `json:"type"`
	Details   string `json:"details"`
}

func main() {
	workers := flag.Int("workers", 10, "Number of parallel workers")
	fix := flag.Bool("fix", false, "Recompute and persist drifted flag counts")
	outputFile := flag.String("output", "audit_results.json", "Output file for results")
	flag.Parse()

	cfg := config.Load()
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	startTime := time.Now()

	// Duplicate remote flag ids should be impossible under the unique
	// index; report any that predate it.
	type dup struct {
		RemoteFlagID string
		N            int64
	}
	var dups []dup
	db.Model(&model.FlagRecord{}).
		Select("remote_flag_id, count(*) as n").
		Group("remote_flag_id").Having("count(*) > 1").Scan(&dups)

	var issues []Issue
	var issuesMu sync.Mutex
	for _, d := range dups {
		issues = append(issues, Issue{
			Type:    "duplicate_remote_flag_id",
			Details: fmt.Sprintf("remote flag id %s appears %d times", d.RemoteFlagID, d.N),
		})
	}

	var records []model.ContentRecord
	if err := db.Select("id", "flag_count", "status").Find(&records).Error; err != nil {
		log.Fatalf("Failed to load content records: %v", err)
	}
	log.Printf("Auditing %d content records with %d workers", len(records), *workers)

	var checked, drifted, fixed int64
	recordChan := make(chan model.ContentRecord, *workers*2)

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range recordChan {
				var active int64
				db.Model(&model.FlagRecord{}).
					Where("content_id = ? AND ignored_at IS NULL AND (expired_at IS NULL OR expired_at > NOW())", record.ID).
					Count(&active)
				atomic.AddInt64(&checked, 1)

				if int(active) == record.FlagCount {
					continue
				}
				atomic.AddInt64(&drifted, 1)
				issuesMu.Lock()
				issues = append(issues, Issue{
					ContentID: record.ID,
					Type:      "flag_count_drift",
					Details:   fmt.Sprintf("cached %d, active %d", record.FlagCount, active),
				})
				issuesMu.Unlock()

				if *fix {
					if err := db.Model(&model.ContentRecord{}).Where("id = ?", record.ID).
						Update("flag_count", active).Error; err != nil {
						log.Printf("Failed to fix content %d: %v", record.ID, err)
						continue
					}
					atomic.AddInt64(&fixed, 1)
				}
			}
		}()
	}

	for _, record := range records {
		recordChan <- record
	}
	close(recordChan)
	wg.Wait()

	report, _ := json.MarshalIndent(map[string]interface{}{
		"checked": checked,
		"drifted": drifted,
		"fixed":   fixed,
		"issues":  issues,
	}, "", "  ")
	if err := os.WriteFile(*outputFile, report, 0o644); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}

	log.Printf("Audit complete in %v: %d checked, %d drifted, %d fixed, %d issues -> %s",
		time.Since(startTime), checked, drifted, fixed, len(issues), *outputFile)
}
