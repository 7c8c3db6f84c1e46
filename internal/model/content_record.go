package model

import "time"

// ContentRecord tracks one unit of source content submitted for remote
// analysis. Unique per (entry, site). RemoteID stays nil until the first
// successful submission; WebhookVersion only ever increases and is written
// by the webhook processor or the submission path, never by handlers.
type ContentRecord struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	EntryID        int64      `gorm:"not null;index:idx_content_entry_site,unique,priority:1" json:"entryId"`
	SiteID         int64      `gorm:"not null;index:idx_content_entry_site,unique,priority:2" json:"siteId"`
	RemoteID       *string    `gorm:"size:64;index" json:"remoteId,omitempty"`
	Status         string     `gorm:"not null;size:40;default:'unsent';index" json:"status"`
	FlagCount      int        `gorm:"not null;default:0" json:"flagCount"`
	WebhookVersion int64      `gorm:"not null;default:0" json:"webhookVersion"`
	AnalyzedAt     *time.Time `json:"analyzedAt,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`

	Flags []FlagRecord `gorm:"foreignKey:ContentID;constraint:OnDelete:CASCADE" json:"flags,omitempty"`
}

func (ContentRecord) TableName() string {
	return "content_records"
}
