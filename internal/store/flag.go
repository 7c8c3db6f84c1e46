package store

import (
	"context"
	"time"

	"github.com/claimlens/sync-api/internal/model"
	"gorm.io/gorm"
)

type FlagStore struct {
	db *gorm.DB
}

func NewFlagStore(db *gorm.DB) *FlagStore {
	return &FlagStore{db: db}
}

func (s *FlagStore) GetByRemoteID(ctx context.Context, remoteFlagID string) (*model.FlagRecord, error) {
	var flag model.FlagRecord
	err := s.db.WithContext(ctx).Where("remote_flag_id = ?", remoteFlagID).First(&flag).Error
	if err != nil {
		return nil, translate(err)
	}
	return &flag, nil
}

// FindByRemoteIDs looks up flags globally by remote flag id. The result may
// contain flags owned by other content records; reconciliation relies on
// that to detect remote reassignment.
func (s *FlagStore) FindByRemoteIDs(ctx context.Context, remoteFlagIDs []string) ([]model.FlagRecord, error) {
	if len(remoteFlagIDs) == 0 {
		return nil, nil
	}
	var flags []model.FlagRecord
	err := s.db.WithContext(ctx).Where("remote_flag_id IN ?", remoteFlagIDs).Find(&flags).Error
	if err != nil {
		return nil, translate(err)
	}
	return flags, nil
}

func (s *FlagStore) FindByContent(ctx context.Context, contentID int64) ([]model.FlagRecord, error) {
	var flags []model.FlagRecord
	err := s.db.WithContext(ctx).Where("content_id = ?", contentID).Find(&flags).Error
	if err != nil {
		return nil, translate(err)
	}
	return flags, nil
}

func (s *FlagStore) Create(ctx context.Context, flag *model.FlagRecord) error {
	return translate(s.db.WithContext(ctx).Create(flag).Error)
}

func (s *FlagStore) Update(ctx context.Context, flag *model.FlagRecord) error {
	return translate(s.db.WithContext(ctx).Save(flag).Error)
}

func (s *FlagStore) Delete(ctx context.Context, id int64) error {
	return translate(s.db.WithContext(ctx).Delete(&model.FlagRecord{}, id).Error)
}

// CountActive counts flags that are neither ignored nor expired.
func (s *FlagStore) CountActive(ctx context.Context, contentID int64) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.FlagRecord{}).
		Where("content_id = ? AND ignored_at IS NULL AND (expired_at IS NULL OR expired_at > ?)", contentID, time.Now()).
		Count(&n).Error
	return n, translate(err)
}
