package domain

import "time"

// Asset is one row per distinct content hash. Immutable once created.
type Asset struct {
	AssetID     string    `json:"asset_id"`
	SHA256      string    `json:"sha256"`
	MediaType   string    `json:"media_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes,omitempty"`
	DurationSec *float64  `json:"duration_sec,omitempty"`
	Width       *int      `json:"width,omitempty"`
	Height      *int      `json:"height,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Proof is the persisted outcome of one successful verification run.
// TrustmarkID is the short public identifier; ID is internal.
type Proof struct {
	ID           string    `json:"id"`
	TrustmarkID  string    `json:"trustmark_id"`
	AssetID      string    `json:"asset_id,omitempty"`
	C2PAPresent  bool      `json:"c2pa_present"`
	C2PARawJSON  string    `json:"c2pa_raw_json,omitempty"`
	OriginStatus string    `json:"origin_status"`
	PolicyResult string    `json:"policy_result"`
	PolicyJSON   string    `json:"policy_json,omitempty"`
	MetadataID   string    `json:"metadata_id,omitempty"`
	ReceiptID    string    `json:"receipt_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Receipt is the signed, immutable record created once per Proof.
type Receipt struct {
	ID           string    `json:"id"`
	ProofID      string    `json:"proof_id"`
	JSON         string    `json:"json"`
	ReceiptHash  string    `json:"receipt_hash"`
	Signature    string    `json:"signature"`
	SignerPubKey string    `json:"signer_pub_key"`
	PDFPath      string    `json:"pdf_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// LinkIndex maps a canonical identity to the first Proof created for it.
// At most one row per (platform, canonical_id); first writer wins.
type LinkIndex struct {
	Platform    Platform  `json:"platform"`
	CanonicalID string    `json:"canonical_id"`
	ProofID     string    `json:"proof_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// IdempotencyRecord caches the full response for a client-supplied key so a
// retried request replays byte-identical output.
type IdempotencyRecord struct {
	IdemKey      string    `json:"idem_key"`
	ProofID      string    `json:"proof_id,omitempty"`
	ResponseJSON string    `json:"response_json,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// URLReceiptPayload is the canonical receipt body for URL-sourced proofs.
// Field set and naming are part of the public contract; the signer operates
// on the canonical serialization of this struct.
type URLReceiptPayload struct {
	ProofID      string `json:"proofId"`
	TrustmarkID  string `json:"trustmarkId"`
	URL          string `json:"url"`
	Platform     string `json:"platform"`
	CanonicalID  string `json:"canonicalId"`
	C2PAPresent  bool   `json:"c2paPresent"`
	OriginStatus string `json:"originStatus"`
	PolicyResult string `json:"policyResult"`
	Timestamp    string `json:"timestamp"`
}

// FileReceiptPayload is the canonical receipt body for uploaded files.
type FileReceiptPayload struct {
	ProofID     string `json:"proofId"`
	TrustmarkID string `json:"trustmarkId"`
	AssetID     string `json:"assetId"`
	SHA256      string `json:"sha256"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
	Timestamp   string `json:"timestamp"`
}
