package db

import (
	"context"
	"errors"
	"time"

	"trustmark/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IdempotencyRepository struct {
	db *gorm.DB
}

func NewIdempotencyRepository(db *gorm.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if key == "" {
		return nil, errors.New("idem_key is required")
	}

	var model IdempotencyKeyModel
	err := r.db.WithContext(ctx).Where("idem_key = ?", key).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	record := domain.IdempotencyRecord{
		IdemKey:   model.IdemKey,
		CreatedAt: model.CreatedAt,
	}
	if model.ProofID != nil {
		record.ProofID = *model.ProofID
	}
	if model.ResponseJSON != nil {
		record.ResponseJSON = *model.ResponseJSON
	}
	return &record, nil
}

// SaveResult caches the response for a key. The first write wins; a retried
// request that raced its duplicate keeps the original cached response.
func (r *IdempotencyRepository) SaveResult(ctx context.Context, key, proofID, responseJSON string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if key == "" || responseJSON == "" {
		return errors.New("idem_key and response_json are required")
	}

	model := IdempotencyKeyModel{
		IdemKey:      key,
		ProofID:      optional(proofID),
		ResponseJSON: optional(responseJSON),
		CreatedAt:    time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error
}
