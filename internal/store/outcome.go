package store

import (
	"context"

	"github.com/claimlens/sync-api/internal/model"
	"gorm.io/gorm"
)

type OutcomeStore struct {
	db *gorm.DB
}

func NewOutcomeStore(db *gorm.DB) *OutcomeStore {
	return &OutcomeStore{db: db}
}

func (s *OutcomeStore) Record(ctx context.Context, outcome *model.BatchOutcome) error {
	return translate(s.db.WithContext(ctx).Create(outcome).Error)
}

func (s *OutcomeStore) FindByOperation(ctx context.Context, operationID string) ([]model.BatchOutcome, error) {
	var outcomes []model.BatchOutcome
	err := s.db.WithContext(ctx).Where("operation_id = ?", operationID).
		Order("chunk_index ASC").Find(&outcomes).Error
	if err != nil {
		return nil, translate(err)
	}
	return outcomes, nil
}
