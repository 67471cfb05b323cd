// Package c2pa normalizes manifest JSON from the local inspection tool and
// the hosted verification service into one result shape. Each source gets its
// own decoder so a shape change in either stays contained to one adapter.
package c2pa

import (
	"encoding/json"
	"time"

	"trustmark/internal/domain"
)

type localDocument struct {
	Manifests []localManifest `json:"manifests"`
}

type localManifest struct {
	Claims []localClaim `json:"claims"`
	Signing struct {
		Issuer string `json:"issuer"`
	} `json:"signing"`
	Assertions []localAssertion `json:"assertions"`
}

type localClaim struct {
	Generator string `json:"generator"`
	Timestamp string `json:"timestamp"`
}

type localAssertion struct {
	Label string          `json:"label"`
	Data  json.RawMessage `json:"data"`
}

// ParseLocal decodes output of the local manifest tool. It never fails:
// malformed JSON yields status=error with the raw input preserved for audit,
// and a present-but-empty manifests array is not_found, not an error.
func ParseLocal(raw string) domain.ManifestCheckResult {
	var doc localDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return domain.ManifestCheckResult{
			Status:  domain.ManifestError,
			RawJSON: raw,
			Notes:   "local tool output is not valid JSON: " + err.Error(),
		}
	}
	if len(doc.Manifests) == 0 {
		return domain.ManifestCheckResult{
			Status:  domain.ManifestNotFound,
			RawJSON: raw,
			Notes:   "no manifests present in local tool output",
		}
	}

	first := doc.Manifests[0]
	result := domain.ManifestCheckResult{
		ManifestFound: true,
		Status:        domain.ManifestVerified,
		SigningIssuer: first.Signing.Issuer,
		RawJSON:       raw,
	}
	if len(first.Claims) > 0 {
		result.ClaimGenerator = first.Claims[0].Generator
		result.ClaimTimestamp = parseTimestamp(first.Claims[0].Timestamp)
	}
	for _, a := range first.Assertions {
		if a.Label == "" {
			continue
		}
		result.Assertions = append(result.Assertions, domain.Assertion{
			Label: a.Label,
			Value: string(a.Data),
		})
	}
	return result
}

// parseTimestamp is best effort; an unparsable timestamp stays nil rather
// than failing the whole parse.
func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
