package db

import (
	"context"
	"errors"
	"time"

	"trustmark/internal/domain"

	"gorm.io/gorm"
)

type ReceiptRepository struct {
	db *gorm.DB
}

func NewReceiptRepository(db *gorm.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// Insert writes the immutable receipt row. There is no update path: a
// receipt is never modified after creation.
func (r *ReceiptRepository) Insert(ctx context.Context, receipt domain.Receipt) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if receipt.ID == "" || receipt.ProofID == "" {
		return errors.New("id and proof_id are required")
	}
	if receipt.JSON == "" || receipt.Signature == "" || receipt.SignerPubKey == "" {
		return errors.New("receipt json, signature and signer_pub_key are required")
	}

	createdAt := receipt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	model := ReceiptModel{
		ID:           receipt.ID,
		ProofID:      receipt.ProofID,
		JSON:         receipt.JSON,
		ReceiptHash:  receipt.ReceiptHash,
		Signature:    receipt.Signature,
		SignerPubKey: receipt.SignerPubKey,
		PDFPath:      optional(receipt.PDFPath),
		CreatedAt:    createdAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *ReceiptRepository) GetByProofID(ctx context.Context, proofID string) (*domain.Receipt, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if proofID == "" {
		return nil, errors.New("proof_id is required")
	}

	var model ReceiptModel
	err := r.db.WithContext(ctx).Where("proof_id = ?", proofID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	receipt := domain.Receipt{
		ID:           model.ID,
		ProofID:      model.ProofID,
		JSON:         model.JSON,
		ReceiptHash:  model.ReceiptHash,
		Signature:    model.Signature,
		SignerPubKey: model.SignerPubKey,
		CreatedAt:    model.CreatedAt,
	}
	if model.PDFPath != nil {
		receipt.PDFPath = *model.PDFPath
	}
	return &receipt, nil
}
