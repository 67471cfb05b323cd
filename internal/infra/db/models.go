package db

import "time"

type AssetModel struct {
	AssetID     string    `gorm:"type:uuid;primaryKey"`
	SHA256      string    `gorm:"uniqueIndex;not null"`
	MediaType   string    `gorm:""`
	SizeBytes   int64     `gorm:""`
	DurationSec *float64  `gorm:""`
	Width       *int      `gorm:""`
	Height      *int      `gorm:""`
	CreatedAt   time.Time `gorm:"not null"`
}

func (AssetModel) TableName() string { return "assets" }

type ProofModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	TrustmarkID  string    `gorm:"uniqueIndex;not null"`
	AssetID      *string   `gorm:"type:uuid;index"`
	C2PAPresent  bool      `gorm:"not null"`
	C2PARawJSON  *string   `gorm:"type:jsonb"`
	OriginStatus string    `gorm:"not null"`
	PolicyResult string    `gorm:"not null"`
	PolicyJSON   *string   `gorm:"type:jsonb"`
	ReceiptID    *string   `gorm:"type:uuid"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (ProofModel) TableName() string { return "proofs" }

type ReceiptModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	ProofID      string    `gorm:"type:uuid;uniqueIndex;not null"`
	JSON         string    `gorm:"column:receipt_json;type:jsonb;not null"`
	ReceiptHash  string    `gorm:"index;not null"`
	Signature    string    `gorm:"not null"`
	SignerPubKey string    `gorm:"not null"`
	PDFPath      *string   `gorm:""`
	CreatedAt    time.Time `gorm:"not null"`
}

func (ReceiptModel) TableName() string { return "receipts" }

// LinkIndexModel enforces one proof per canonical identity at the schema
// level; the composite primary key is what makes Insert first-writer-wins.
type LinkIndexModel struct {
	Platform    string    `gorm:"primaryKey"`
	CanonicalID string    `gorm:"primaryKey"`
	ProofID     string    `gorm:"type:uuid;not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (LinkIndexModel) TableName() string { return "link_index" }

type IdempotencyKeyModel struct {
	IdemKey      string    `gorm:"primaryKey"`
	ProofID      *string   `gorm:"type:uuid"`
	ResponseJSON *string   `gorm:"type:jsonb"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (IdempotencyKeyModel) TableName() string { return "idempotency_keys" }
