package db

import (
	"context"
	"errors"
	"time"

	"trustmark/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

func (r *AssetRepository) GetBySHA256(ctx context.Context, sha256 string) (*domain.Asset, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if sha256 == "" {
		return nil, errors.New("sha256 is required")
	}

	var model AssetModel
	err := r.db.WithContext(ctx).Where("sha256 = ?", sha256).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return assetFromModel(model), nil
}

func (r *AssetRepository) GetByID(ctx context.Context, assetID string) (*domain.Asset, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if assetID == "" {
		return nil, errors.New("asset_id is required")
	}

	var model AssetModel
	err := r.db.WithContext(ctx).Where("asset_id = ?", assetID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return assetFromModel(model), nil
}

// Insert creates the asset row for a new content hash. A concurrent create
// for the same hash is resolved by the unique index: the loser's insert
// affects no rows and the winner's asset id is re-read and returned.
func (r *AssetRepository) Insert(ctx context.Context, asset domain.Asset) (string, error) {
	if r.db == nil {
		return "", errDBUnavailable
	}
	if asset.AssetID == "" || asset.SHA256 == "" {
		return "", errors.New("asset_id and sha256 are required")
	}

	createdAt := asset.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	model := AssetModel{
		AssetID:     asset.AssetID,
		SHA256:      asset.SHA256,
		MediaType:   asset.MediaType,
		SizeBytes:   asset.SizeBytes,
		DurationSec: asset.DurationSec,
		Width:       asset.Width,
		Height:      asset.Height,
		CreatedAt:   createdAt,
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected > 0 {
		return asset.AssetID, nil
	}

	var existing AssetModel
	err := r.db.WithContext(ctx).
		Select("asset_id").
		Where("sha256 = ?", asset.SHA256).
		First(&existing).Error
	if err != nil {
		return "", err
	}
	return existing.AssetID, nil
}

func assetFromModel(model AssetModel) *domain.Asset {
	return &domain.Asset{
		AssetID:     model.AssetID,
		SHA256:      model.SHA256,
		MediaType:   model.MediaType,
		SizeBytes:   model.SizeBytes,
		DurationSec: model.DurationSec,
		Width:       model.Width,
		Height:      model.Height,
		CreatedAt:   model.CreatedAt,
	}
}
