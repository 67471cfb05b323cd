package db

import (
	"context"
	"errors"
	"time"

	"trustmark/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LinkIndexRepository struct {
	db *gorm.DB
}

func NewLinkIndexRepository(db *gorm.DB) *LinkIndexRepository {
	return &LinkIndexRepository{db: db}
}

func (r *LinkIndexRepository) GetProofID(ctx context.Context, platform domain.Platform, canonicalID string) (string, error) {
	if r.db == nil {
		return "", errDBUnavailable
	}
	if platform == "" || canonicalID == "" {
		return "", errors.New("platform and canonical_id are required")
	}

	var model LinkIndexModel
	err := r.db.WithContext(ctx).
		Select("proof_id").
		Where("platform = ? AND canonical_id = ?", string(platform), canonicalID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return model.ProofID, nil
}

// Insert claims a canonical identity for a proof. First writer wins: on a
// conflicting concurrent insert the row is left untouched and the current
// owner's proof id is re-read and returned, so callers always learn which
// proof owns the identity after the call.
func (r *LinkIndexRepository) Insert(ctx context.Context, link domain.LinkIndex) (string, error) {
	if r.db == nil {
		return "", errDBUnavailable
	}
	if link.Platform == "" || link.CanonicalID == "" || link.ProofID == "" {
		return "", errors.New("platform, canonical_id and proof_id are required")
	}

	createdAt := link.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	model := LinkIndexModel{
		Platform:    string(link.Platform),
		CanonicalID: link.CanonicalID,
		ProofID:     link.ProofID,
		CreatedAt:   createdAt,
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected > 0 {
		return link.ProofID, nil
	}

	var existing LinkIndexModel
	err := r.db.WithContext(ctx).
		Select("proof_id").
		Where("platform = ? AND canonical_id = ?", string(link.Platform), link.CanonicalID).
		First(&existing).Error
	if err != nil {
		return "", err
	}
	return existing.ProofID, nil
}
