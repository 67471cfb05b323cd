package c2pa

import (
	"encoding/json"

	"trustmark/internal/domain"
)

type hostedDocument struct {
	Verified bool `json:"verified"`
	Signing  struct {
		Issuer string `json:"issuer"`
	} `json:"signing"`
	Claims []hostedClaim `json:"claims"`
}

type hostedClaim struct {
	Generator string          `json:"generator"`
	Timestamp string          `json:"timestamp"`
	Label     string          `json:"label"`
	Value     json.RawMessage `json:"value"`
}

// ParseHosted decodes a hosted verifier response body. Same failure policy as
// ParseLocal: never an error value, malformed input becomes status=error.
func ParseHosted(raw string) domain.ManifestCheckResult {
	var doc hostedDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return domain.ManifestCheckResult{
			Status:  domain.ManifestError,
			RawJSON: raw,
			Notes:   "hosted verifier response is not valid JSON: " + err.Error(),
		}
	}
	if !doc.Verified || len(doc.Claims) == 0 {
		return domain.ManifestCheckResult{
			Status:  domain.ManifestNotFound,
			RawJSON: raw,
			Notes:   "hosted verifier reported no manifest",
		}
	}

	result := domain.ManifestCheckResult{
		ManifestFound:  true,
		Status:         domain.ManifestVerified,
		ClaimGenerator: doc.Claims[0].Generator,
		ClaimTimestamp: parseTimestamp(doc.Claims[0].Timestamp),
		SigningIssuer:  doc.Signing.Issuer,
		RawJSON:        raw,
		Notes:          "hosted verifier - manifest verified",
	}
	for _, c := range doc.Claims {
		if c.Label == "" {
			continue
		}
		result.Assertions = append(result.Assertions, domain.Assertion{
			Label: c.Label,
			Value: string(c.Value),
		})
	}
	return result
}
