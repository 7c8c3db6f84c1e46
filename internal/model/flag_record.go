package model

import "time"

// FlagRecord is one remote-reported issue attached to a content record.
// RemoteFlagID is unique across the whole table, not per content: the
// remote service may reassign a flag to different content between
// analyses, and reconciliation re-parents the row when that happens.
type FlagRecord struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ContentID      int64      `gorm:"not null;index" json:"contentId"`
	RemoteFlagID   string     `gorm:"not null;size:64;uniqueIndex:idx_flags_remote_flag_id" json:"remoteFlagId"`
	Category       string     `gorm:"not null;size:80" json:"category"`
	Reason         string     `gorm:"type:text" json:"reason"`
	Snippet        string     `gorm:"type:text" json:"snippet"`
	LastAnalyzedAt *time.Time `json:"lastAnalyzedAt,omitempty"`
	ExpiredAt      *time.Time `json:"expiredAt,omitempty"`
	IgnoredAt      *time.Time `json:"ignoredAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (FlagRecord) TableName() string {
	return "flag_records"
}

// Active reports whether the flag still counts against its content:
// not ignored, and not past its expiration.
func (f *FlagRecord) Active(now time.Time) bool {
	if f.IgnoredAt != nil {
		return false
	}
	if f.ExpiredAt != nil && !f.ExpiredAt.After(now) {
		return false
	}
	return true
}
