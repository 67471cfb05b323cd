package c2pa

import (
	"testing"

	"trustmark/internal/domain"
)

func TestParseLocalMalformedJSON(t *testing.T) {
	raw := "{not json"
	result := ParseLocal(raw)
	if result.Status != domain.ManifestError {
		t.Errorf("status = %q, want error", result.Status)
	}
	if result.ManifestFound {
		t.Error("manifest_found = true for malformed input")
	}
	if result.RawJSON != raw {
		t.Error("raw input not preserved")
	}
	if result.Notes == "" {
		t.Error("notes empty, want parse failure description")
	}
}

func TestParseLocalEmptyManifests(t *testing.T) {
	result := ParseLocal(`{"manifests":[]}`)
	if result.Status != domain.ManifestNotFound {
		t.Errorf("status = %q, want not_found", result.Status)
	}
	if result.ManifestFound {
		t.Error("manifest_found = true for empty manifests array")
	}
}

func TestParseLocalNoManifestsKey(t *testing.T) {
	result := ParseLocal(`{"something_else":1}`)
	if result.Status != domain.ManifestNotFound {
		t.Errorf("status = %q, want not_found", result.Status)
	}
}

func TestParseLocalWellFormed(t *testing.T) {
	raw := `{
		"manifests": [{
			"claims": [{"generator": "Adobe Firefly 1.2", "timestamp": "2024-03-01T12:00:00Z"}],
			"signing": {"issuer": "Adobe Inc."},
			"assertions": [
				{"label": "c2pa.actions", "data": {"actions": [{"action": "c2pa.created"}]}},
				{"label": "stds.schema-org.CreativeWork", "data": "credit"}
			]
		}]
	}`
	result := ParseLocal(raw)
	if result.Status != domain.ManifestVerified || !result.ManifestFound {
		t.Fatalf("status = %q, manifest_found = %v", result.Status, result.ManifestFound)
	}
	if result.ClaimGenerator != "Adobe Firefly 1.2" {
		t.Errorf("claim_generator = %q", result.ClaimGenerator)
	}
	if result.SigningIssuer != "Adobe Inc." {
		t.Errorf("signing_issuer = %q", result.SigningIssuer)
	}
	if result.ClaimTimestamp == nil {
		t.Error("claim_timestamp not parsed")
	}
	if len(result.Assertions) != 2 {
		t.Fatalf("assertions = %d, want 2", len(result.Assertions))
	}
	if result.Assertions[0].Label != "c2pa.actions" {
		t.Errorf("assertion label = %q", result.Assertions[0].Label)
	}
}

func TestParseLocalUnparsableTimestamp(t *testing.T) {
	raw := `{"manifests":[{"claims":[{"generator":"g","timestamp":"yesterday-ish"}]}]}`
	result := ParseLocal(raw)
	if !result.ManifestFound {
		t.Fatal("manifest not found")
	}
	if result.ClaimTimestamp != nil {
		t.Error("unparsable timestamp should stay nil")
	}
	if result.ClaimGenerator != "g" {
		t.Errorf("claim_generator = %q, parse should not fail on bad timestamp", result.ClaimGenerator)
	}
}

func TestParseHostedVerified(t *testing.T) {
	raw := `{
		"verified": true,
		"signing": {"issuer": "TikTok Inc."},
		"claims": [{"generator": "TikTok-C2PA-Client", "timestamp": "2024-06-01T00:00:00Z", "label": "c2pa.claim", "value": {"v": 1}}]
	}`
	result := ParseHosted(raw)
	if result.Status != domain.ManifestVerified || !result.ManifestFound {
		t.Fatalf("status = %q, manifest_found = %v", result.Status, result.ManifestFound)
	}
	if result.SigningIssuer != "TikTok Inc." {
		t.Errorf("signing_issuer = %q", result.SigningIssuer)
	}
	if result.ClaimGenerator != "TikTok-C2PA-Client" {
		t.Errorf("claim_generator = %q", result.ClaimGenerator)
	}
	if len(result.Assertions) != 1 || result.Assertions[0].Label != "c2pa.claim" {
		t.Errorf("assertions = %+v", result.Assertions)
	}
}

func TestParseHostedNotVerified(t *testing.T) {
	result := ParseHosted(`{"verified": false}`)
	if result.Status != domain.ManifestNotFound || result.ManifestFound {
		t.Errorf("status = %q, manifest_found = %v, want not_found/false", result.Status, result.ManifestFound)
	}
}

func TestParseHostedMalformed(t *testing.T) {
	result := ParseHosted(`<!doctype html><html>`)
	if result.Status != domain.ManifestError {
		t.Errorf("status = %q, want error", result.Status)
	}
}
