package db

import (
	"context"
	"errors"
	"time"

	"trustmark/internal/domain"

	"gorm.io/gorm"
)

type ProofRepository struct {
	db *gorm.DB
}

func NewProofRepository(db *gorm.DB) *ProofRepository {
	return &ProofRepository{db: db}
}

func (r *ProofRepository) Insert(ctx context.Context, proof domain.Proof) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if proof.ID == "" || proof.TrustmarkID == "" {
		return errors.New("id and trustmark_id are required")
	}
	if proof.OriginStatus == "" || proof.PolicyResult == "" {
		return errors.New("origin_status and policy_result are required")
	}

	now := time.Now().UTC()
	createdAt := proof.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := proof.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	model := ProofModel{
		ID:           proof.ID,
		TrustmarkID:  proof.TrustmarkID,
		AssetID:      optional(proof.AssetID),
		C2PAPresent:  proof.C2PAPresent,
		C2PARawJSON:  optional(proof.C2PARawJSON),
		OriginStatus: proof.OriginStatus,
		PolicyResult: proof.PolicyResult,
		PolicyJSON:   optional(proof.PolicyJSON),
		ReceiptID:    optional(proof.ReceiptID),
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// UpdateReceiptID backfills receipt_id once, right after receipt creation.
// No other proof column is ever updated.
func (r *ProofRepository) UpdateReceiptID(ctx context.Context, proofID, receiptID string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if proofID == "" || receiptID == "" {
		return errors.New("proof_id and receipt_id are required")
	}

	result := r.db.WithContext(ctx).
		Model(&ProofModel{}).
		Where("id = ?", proofID).
		Updates(map[string]any{
			"receipt_id": receiptID,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProofRepository) GetByID(ctx context.Context, id string) (*domain.Proof, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if id == "" {
		return nil, errors.New("id is required")
	}

	var model ProofModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return proofFromModel(model), nil
}

func (r *ProofRepository) GetByTrustmarkID(ctx context.Context, trustmarkID string) (*domain.Proof, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if trustmarkID == "" {
		return nil, errors.New("trustmark_id is required")
	}

	var model ProofModel
	err := r.db.WithContext(ctx).Where("trustmark_id = ?", trustmarkID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return proofFromModel(model), nil
}

func proofFromModel(model ProofModel) *domain.Proof {
	proof := domain.Proof{
		ID:           model.ID,
		TrustmarkID:  model.TrustmarkID,
		C2PAPresent:  model.C2PAPresent,
		OriginStatus: model.OriginStatus,
		PolicyResult: model.PolicyResult,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
	if model.AssetID != nil {
		proof.AssetID = *model.AssetID
	}
	if model.C2PARawJSON != nil {
		proof.C2PARawJSON = *model.C2PARawJSON
	}
	if model.PolicyJSON != nil {
		proof.PolicyJSON = *model.PolicyJSON
	}
	if model.ReceiptID != nil {
		proof.ReceiptID = *model.ReceiptID
	}
	return &proof
}
