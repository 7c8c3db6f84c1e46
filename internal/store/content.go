// Package store holds the gorm-backed persistence for content records,
// flag records and batch outcomes. Domain components consume these through
// narrow interfaces declared on their side, so tests can swap in fakes.
package store

import (
	"context"
	"errors"

	"github.com/claimlens/sync-api/internal/model"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("store: duplicate key")

type ContentStore struct {
	db *gorm.DB
}

func NewContentStore(db *gorm.DB) *ContentStore {
	return &ContentStore{db: db}
}

func (s *ContentStore) Get(ctx context.Context, id int64) (*model.ContentRecord, error) {
	var record model.ContentRecord
	if err := s.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

func (s *ContentStore) GetByEntrySite(ctx context.Context, entryID, siteID int64) (*model.ContentRecord, error) {
	var record model.ContentRecord
	err := s.db.WithContext(ctx).Where("entry_id = ? AND site_id = ?", entryID, siteID).First(&record).Error
	if err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

// GetOrCreate returns the record for (entry, site), creating it in the
// unsent state on first use. A lost creation race falls back to the row
// the winner inserted.
func (s *ContentStore) GetOrCreate(ctx context.Context, entryID, siteID int64) (*model.ContentRecord, error) {
	record, err := s.GetByEntrySite(ctx, entryID, siteID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	fresh := &model.ContentRecord{EntryID: entryID, SiteID: siteID, Status: "unsent"}
	if err := s.db.WithContext(ctx).Create(fresh).Error; err != nil {
		if errors.Is(translate(err), ErrDuplicate) {
			return s.GetByEntrySite(ctx, entryID, siteID)
		}
		return nil, translate(err)
	}
	return fresh, nil
}

func (s *ContentStore) Save(ctx context.Context, record *model.ContentRecord) error {
	return translate(s.db.WithContext(ctx).Save(record).Error)
}

// UpdateFields applies a partial update to one record.
func (s *ContentStore) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return translate(s.db.WithContext(ctx).Model(&model.ContentRecord{}).Where("id = ?", id).Updates(fields).Error)
}

func (s *ContentStore) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&model.ContentRecord{}).
		Select("status, count(*) as n").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
