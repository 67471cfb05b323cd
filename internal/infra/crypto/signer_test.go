package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"trustmark/internal/domain"
)

func TestCanonicalizeSortsKeysAndStripsWhitespace(t *testing.T) {
	got, err := Canonicalize([]byte(`{ "b": 1, "a": { "y": true, "x": null } }`))
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"a":{"x":null,"y":true},"b":1}`
	if string(got) != want {
		t.Fatalf("canonical = %s, want %s", got, want)
	}
}

func TestCanonicalizeStructUsesJSONTags(t *testing.T) {
	payload := domain.URLReceiptPayload{
		ProofID:     "p1",
		TrustmarkID: "tm1",
		URL:         "https://example.com",
		Platform:    "generic",
	}
	got, err := Canonicalize(payload)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	// Keys come out sorted regardless of struct field order.
	want := `{"c2paPresent":false,"canonicalId":"","originStatus":"","platform":"generic","policyResult":"","proofId":"p1","timestamp":"","trustmarkId":"tm1","url":"https://example.com"}`
	if string(got) != want {
		t.Fatalf("canonical = %s", got)
	}
}

func TestCanonicalizeRejectsTrailingData(t *testing.T) {
	if _, err := Canonicalize([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestCanonicalizeEquivalentDocumentsMatch(t *testing.T) {
	a, err := Canonicalize([]byte(`{"n": 1.0, "s": "x"}`))
	if err != nil {
		t.Fatalf("canonicalize a: %v", err)
	}
	b, err := Canonicalize([]byte("{\"s\":\"x\",\n\"n\":1}"))
	if err != nil {
		t.Fatalf("canonicalize b: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("equivalent documents canonicalize differently: %s vs %s", a, b)
	}
}

func TestSignerGeneratesAndPersistsKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "signing.key")
	signer := NewSigner(keyPath)

	payload := map[string]any{"proofId": "p1"}
	canonical, sig, pub, err := signer.Sign(payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(canonical) == 0 || sig == "" || pub == "" {
		t.Fatal("sign returned empty output")
	}
	if _, err := os.Stat(keyPath); err != nil {
		t.Fatalf("key file not persisted: %v", err)
	}

	ok, err := signer.Verify(payload, sig, pub)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("signature did not verify")
	}
}

func TestSignerReloadsSameKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "signing.key")
	payload := map[string]any{"proofId": "p1"}

	_, sig, pub, err := NewSigner(keyPath).Sign(payload)
	if err != nil {
		t.Fatalf("first sign: %v", err)
	}

	// A fresh instance over the same file must produce signatures the old
	// public key verifies.
	reloaded := NewSigner(keyPath)
	_, sig2, pub2, err := reloaded.Sign(payload)
	if err != nil {
		t.Fatalf("second sign: %v", err)
	}
	if pub2 != pub {
		t.Fatal("public key changed across restarts")
	}
	if ok, _ := reloaded.Verify(payload, sig, pub); !ok {
		t.Fatal("old signature no longer verifies")
	}
	if ok, _ := reloaded.Verify(payload, sig2, pub); !ok {
		t.Fatal("new signature does not verify")
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	signer := NewSigner(filepath.Join(t.TempDir(), "signing.key"))
	_, sig, pub, err := signer.Sign(map[string]any{"proofId": "p1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ok, err := signer.Verify(map[string]any{"proofId": "p2"}, sig, pub)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("tampered payload verified")
	}
}

func TestSignerRejectsCorruptKeyFile(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "signing.key")
	if err := os.WriteFile(keyPath, []byte("short"), 0o600); err != nil {
		t.Fatalf("write corrupt key: %v", err)
	}
	if _, _, _, err := NewSigner(keyPath).Sign(map[string]any{}); err == nil {
		t.Fatal("expected error for corrupt key file")
	}
}
