package model

import (
	"time"

	"github.com/lib/pq"
)

// BatchOutcome records the result of one batch task inside a bulk
// operation. Batches are independent, so there is exactly one row per
// chunk regardless of how siblings fared.
type BatchOutcome struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	OperationID  string         `gorm:"not null;size:36;index" json:"operationId"`
	ChunkIndex   int            `gorm:"not null" json:"chunkIndex"`
	SuccessCount int            `gorm:"not null;default:0" json:"successCount"`
	ErrorCount   int            `gorm:"not null;default:0" json:"errorCount"`
	Errors       pq.StringArray `gorm:"type:text[]" json:"errors"`
	CreatedAt    time.Time      `json:"createdAt"`
}

func (BatchOutcome) TableName() string {
	return "batch_outcomes"
}
