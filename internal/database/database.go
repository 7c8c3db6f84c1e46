package database

import (
	"github.com/claimlens/sync-api/internal/config"
	"github.com/claimlens/sync-api/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.ContentRecord{},
		&model.FlagRecord{},
		&model.TransactionLogEntry{},
		&model.BatchOutcome{},
	)
	if err != nil {
		return err
	}

	// The remote flag id is unique across the whole table, not per content;
	// this constraint is the only concurrency guard reconciliation relies on.
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_flags_remote_flag_id ON flag_records(remote_flag_id)")
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_content_entry_site ON content_records(entry_id, site_id)")

	return nil
}
