package model

import (
	"time"

	"gorm.io/datatypes"
)

// TransactionLogEntry is one append-only audit row: a submission attempt or
// a webhook delivery, accepted or discarded. Rows are never updated; the
// only sanctioned deletion is the per-content bulk clear.
type TransactionLogEntry struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ContentID int64          `gorm:"not null;index" json:"contentId"`
	Status    string         `gorm:"not null;size:40" json:"status"`
	Message   string         `gorm:"type:text" json:"message"`
	Event     string         `gorm:"not null;size:80" json:"event"`
	Payload   datatypes.JSON `json:"payload,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"createdAt"`
}

func (TransactionLogEntry) TableName() string {
	return "transaction_log_entries"
}

// Event constants
const (
	EventSubmission       = "submission"
	EventSubmissionError  = "submission_error"
	EventWebhookAccepted  = "webhook_accepted"
	EventWebhookDiscarded = "webhook_discarded"
	EventWebhookFailed    = "webhook_failed"
	EventFlagIgnore       = "flag_ignore"
	EventFlagReschedule   = "flag_reschedule"
)
