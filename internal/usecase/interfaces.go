package usecase

import (
	"context"

	"trustmark/internal/domain"
)

// HostedVerifier is the fast-path check against the hosted verification
// service. ok=false means "fast path unavailable, fall back" and is never an
// error: network failures, timeouts, non-2xx responses, and malformed JSON
// all collapse to (false, nil). A successful response that reports "no
// manifest" is still ok=true.
type HostedVerifier interface {
	TryVerify(ctx context.Context, url string) (ok bool, result *domain.ManifestCheckResult)
}

// MediaDownloader fetches a URL into a local temp file. The caller owns
// deleting the returned file.
type MediaDownloader interface {
	Download(ctx context.Context, url string) (string, error)
}

// ManifestTool runs the local manifest inspection tool against a file and
// returns its raw JSON output.
type ManifestTool interface {
	Inspect(ctx context.Context, path string) (string, error)
}

// Hasher computes the hex-encoded SHA-256 of a local file.
type Hasher interface {
	SHA256(ctx context.Context, path string) (string, error)
}

// MediaProbe extracts container metadata from a media file. Best effort:
// any failure yields nil, never an error.
type MediaProbe interface {
	Extract(ctx context.Context, path string) *MediaMetadata
}

type MediaMetadata struct {
	DurationSec float64
	Width       int
	Height      int
	Codec       string
	BitRate     int64
	FrameRate   float64
}

// StatusTracker is the in-memory progress ledger for verification runs.
// One writer per run, many readers.
type StatusTracker interface {
	Start(url string) string
	Update(runID string, status domain.VerificationStatus)
	Get(runID string) (domain.VerificationStatus, bool)
	Complete(runID string, result *domain.ManifestCheckResult)
	Fail(runID, message string)
}

// ReceiptSigner signs the canonical serialization of a receipt payload and
// verifies such signatures. Sign returns the canonical bytes it signed so
// callers persist exactly what the signature covers.
type ReceiptSigner interface {
	Sign(payload any) (canonical []byte, signature string, publicKey string, err error)
	Verify(payload any, signature string, publicKey string) (bool, error)
}

// PolicyEngine evaluates a verification outcome into a policy verdict.
type PolicyEngine interface {
	Evaluate(ctx context.Context, result domain.ManifestCheckResult) (PolicyEvaluation, error)
}

type PolicyEvaluation struct {
	Result      string
	DetailsJSON string
}

// AssetStore dedups content by hash. Insert tolerates unique-constraint
// races: the loser re-reads and returns the winner's asset id.
type AssetStore interface {
	GetBySHA256(ctx context.Context, sha256 string) (*domain.Asset, error)
	GetByID(ctx context.Context, assetID string) (*domain.Asset, error)
	Insert(ctx context.Context, asset domain.Asset) (string, error)
}

type ProofStore interface {
	Insert(ctx context.Context, proof domain.Proof) error
	UpdateReceiptID(ctx context.Context, proofID, receiptID string) error
	GetByID(ctx context.Context, id string) (*domain.Proof, error)
	GetByTrustmarkID(ctx context.Context, trustmarkID string) (*domain.Proof, error)
}

type ReceiptStore interface {
	Insert(ctx context.Context, receipt domain.Receipt) error
	GetByProofID(ctx context.Context, proofID string) (*domain.Receipt, error)
}

// LinkIndexStore maps canonical identities to the first proof created for
// them. Insert is first-writer-wins: it returns the proof id that owns the
// identity after the call, which is not necessarily the one passed in.
type LinkIndexStore interface {
	GetProofID(ctx context.Context, platform domain.Platform, canonicalID string) (string, error)
	Insert(ctx context.Context, link domain.LinkIndex) (string, error)
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
	SaveResult(ctx context.Context, key, proofID, responseJSON string) error
}
