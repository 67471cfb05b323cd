// Package receipt verifies TrustMark receipts offline. Anyone holding a
// receipt's JSON, signature, and signer public key can check it without
// talking to the service that issued it.
package receipt

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"trustmark/internal/infra/crypto"
)

type Receipt struct {
	// JSON is the receipt body as served by the verification endpoint.
	JSON []byte
	// ReceiptHash is optional; when present it is checked against the
	// canonical body.
	ReceiptHash  string
	Signature    string
	SignerPubKey string
}

type VerifyResult struct {
	SignatureValid bool
	// HashValid is nil when the receipt carried no hash to check.
	HashValid *bool
}

// Verify canonicalizes the receipt body and checks the Ed25519 signature
// over it, plus the receipt hash when one is present. A receipt whose body
// was re-encoded (whitespace, key order) still verifies; a receipt whose
// content changed does not.
func Verify(r Receipt) (VerifyResult, error) {
	if len(r.JSON) == 0 {
		return VerifyResult{}, errors.New("receipt json is required")
	}
	if r.Signature == "" || r.SignerPubKey == "" {
		return VerifyResult{}, errors.New("signature and signer public key are required")
	}

	canonical, err := crypto.Canonicalize(r.JSON)
	if err != nil {
		return VerifyResult{}, err
	}

	sig, err := base64.StdEncoding.DecodeString(r.Signature)
	if err != nil {
		return VerifyResult{}, errors.New("signature is not valid base64")
	}
	pub, err := base64.StdEncoding.DecodeString(r.SignerPubKey)
	if err != nil {
		return VerifyResult{}, errors.New("signer public key is not valid base64")
	}
	if len(pub) != ed25519.PublicKeySize {
		return VerifyResult{}, errors.New("signer public key has wrong length")
	}

	result := VerifyResult{
		SignatureValid: ed25519.Verify(ed25519.PublicKey(pub), canonical, sig),
	}
	if r.ReceiptHash != "" {
		sum := sha256.Sum256(canonical)
		ok := hex.EncodeToString(sum[:]) == r.ReceiptHash
		result.HashValid = &ok
	}
	return result, nil
}
