package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Signer signs receipt payloads with a file-backed Ed25519 key. The key is
// generated on first use and persisted, so receipts stay verifiable across
// restarts of the same instance.
type Signer struct {
	keyPath string

	mu   sync.Mutex
	priv ed25519.PrivateKey
}

func NewSigner(keyPath string) *Signer {
	return &Signer{keyPath: keyPath}
}

// Sign canonicalizes payload, signs the canonical bytes, and returns them
// alongside the base64 signature and base64 public key. Callers persist the
// returned canonical bytes verbatim; the signature covers exactly those.
func (s *Signer) Sign(payload any) ([]byte, string, string, error) {
	priv, err := s.key()
	if err != nil {
		return nil, "", "", err
	}
	canonical, err := Canonicalize(payload)
	if err != nil {
		return nil, "", "", fmt.Errorf("canonicalize payload: %w", err)
	}
	sig := ed25519.Sign(priv, canonical)
	pub := priv.Public().(ed25519.PublicKey)
	return canonical, base64.StdEncoding.EncodeToString(sig), base64.StdEncoding.EncodeToString(pub), nil
}

func (s *Signer) Verify(payload any, signature, publicKey string) (bool, error) {
	canonical, err := Canonicalize(payload)
	if err != nil {
		return false, fmt.Errorf("canonicalize payload: %w", err)
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	pub, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return false, fmt.Errorf("decode public key: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, errors.New("public key has wrong length")
	}
	return ed25519.Verify(ed25519.PublicKey(pub), canonical, sig), nil
}

func (s *Signer) key() (ed25519.PrivateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.priv != nil {
		return s.priv, nil
	}
	if s.keyPath == "" {
		return nil, errors.New("signing key path is not configured")
	}

	raw, err := os.ReadFile(s.keyPath)
	if err == nil {
		if len(raw) != ed25519.SeedSize {
			return nil, fmt.Errorf("signing key %s: expected %d byte seed, got %d", s.keyPath, ed25519.SeedSize, len(raw))
		}
		s.priv = ed25519.NewKeyFromSeed(raw)
		return s.priv, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read signing key: %w", err)
	}

	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	if dir := filepath.Dir(s.keyPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create key dir: %w", err)
		}
	}
	if err := os.WriteFile(s.keyPath, seed, 0o600); err != nil {
		return nil, fmt.Errorf("persist signing key: %w", err)
	}
	s.priv = ed25519.NewKeyFromSeed(seed)
	return s.priv, nil
}
