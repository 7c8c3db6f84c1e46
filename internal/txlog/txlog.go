// Package txlog appends audit rows for every submission attempt and every
// webhook delivery, accepted or discarded. Entries are never edited; the
// only deletion path is ClearContent, used by operators to reset one
// content item's history.
package txlog

import (
	"context"
	"log"

	"github.com/claimlens/sync-api/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Logger struct {
	db *gorm.DB
	// Debug payloads are stored only outside production to bound growth.
	keepPayloads bool
}

func New(db *gorm.DB, environment string) *Logger {
	return &Logger{db: db, keepPayloads: environment != "production"}
}

type Entry struct {
	ContentID int64
	Status    string
	Message   string
	Event     string
	Payload   []byte
}

// Record appends one entry. Failures are logged, not returned: a log write
// must never abort the operation it describes.
func (l *Logger) Record(ctx context.Context, entry Entry) {
	row := model.TransactionLogEntry{
		ContentID: entry.ContentID,
		Status:    entry.Status,
		Message:   entry.Message,
		Event:     entry.Event,
	}
	if l.keepPayloads && len(entry.Payload) > 0 {
		row.Payload = datatypes.JSON(entry.Payload)
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		log.Printf("[TxLog] Failed to record %s for content %d: %v", entry.Event, entry.ContentID, err)
	}
}

func (l *Logger) List(ctx context.Context, contentID int64, offset, limit int) ([]model.TransactionLogEntry, int64, error) {
	var total int64
	if err := l.db.WithContext(ctx).Model(&model.TransactionLogEntry{}).
		Where("content_id = ?", contentID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []model.TransactionLogEntry
	err := l.db.WithContext(ctx).Where("content_id = ?", contentID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ClearContent deletes every entry for one content item and returns the
// number of rows removed.
func (l *Logger) ClearContent(ctx context.Context, contentID int64) (int64, error) {
	result := l.db.WithContext(ctx).Where("content_id = ?", contentID).Delete(&model.TransactionLogEntry{})
	return result.RowsAffected, result.Error
}
