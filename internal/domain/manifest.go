package domain

import "time"

// ManifestStatus is the normalized outcome of a manifest check.
type ManifestStatus string

const (
	ManifestVerified ManifestStatus = "verified"
	ManifestNotFound ManifestStatus = "not_found"
	ManifestInvalid  ManifestStatus = "invalid"
	ManifestError    ManifestStatus = "error"
)

// ManifestSource names which decoder produced a ManifestCheckResult.
type ManifestSource string

const (
	SourceLocalTool     ManifestSource = "local_tool"
	SourceHostedService ManifestSource = "hosted_service"
)

type Assertion struct {
	Label string `json:"label"`
	Value string `json:"value,omitempty"`
}

// ManifestCheckResult is the normalized shape both the hosted service and the
// local tool decoders produce. It is never persisted on its own; the proof
// creation flow folds it into a Proof row.
type ManifestCheckResult struct {
	ManifestFound  bool           `json:"manifest_found"`
	Status         ManifestStatus `json:"status"`
	ClaimGenerator string         `json:"claim_generator,omitempty"`
	ClaimTimestamp *time.Time     `json:"claim_timestamp,omitempty"`
	Assertions     []Assertion    `json:"assertions,omitempty"`
	SigningIssuer  string         `json:"signing_issuer,omitempty"`
	RawJSON        string         `json:"raw_json,omitempty"`
	MediaSHA256    string         `json:"media_sha256,omitempty"`
	Notes          string         `json:"notes,omitempty"`
}
