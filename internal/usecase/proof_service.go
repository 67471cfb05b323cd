package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"trustmark/internal/c2pa"
	"trustmark/internal/domain"
)

// URLVerifier is the slice of the orchestrator the proof flow depends on.
type URLVerifier interface {
	VerifyFromURL(ctx context.Context, url string) (domain.ManifestCheckResult, error)
}

// ProofService owns proof creation and lookup: both dedup layers, the
// idempotency cache, receipt signing, and the public verification view.
type ProofService struct {
	Verifier    URLVerifier
	Downloader  MediaDownloader
	Tool        ManifestTool
	Hasher      Hasher
	Probe       MediaProbe
	Policy      PolicyEngine
	Signer      ReceiptSigner
	Assets      AssetStore
	Proofs      ProofStore
	Receipts    ReceiptStore
	Links       LinkIndexStore
	Idempotency IdempotencyStore
	TempDir     string
	Logger      *slog.Logger

	now func() time.Time
}

func NewProofService(deps ProofService) *ProofService {
	s := deps
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.TempDir == "" {
		s.TempDir = os.TempDir()
	}
	return &s
}

type CreateProofResponse struct {
	ProofID     string `json:"proof_id"`
	TrustmarkID string `json:"trustmark_id"`
	VerifyURL   string `json:"verify_url"`
	Deduped     bool   `json:"deduped"`
}

type CreateFileProofResponse struct {
	ProofID     string      `json:"proof_id"`
	TrustmarkID string      `json:"trustmark_id"`
	VerifyURL   string      `json:"verify_url"`
	AssetID     string      `json:"asset_id"`
	AssetReused bool        `json:"asset_reused"`
	C2PAPresent bool        `json:"c2pa_present"`
	Origin      *OriginView `json:"origin,omitempty"`
}

type OriginView struct {
	C2PA           bool   `json:"c2pa"`
	Status         string `json:"status"`
	ClaimGenerator string `json:"claimGenerator,omitempty"`
	Issuer         string `json:"issuer,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
	SHA256         string `json:"sha256,omitempty"`
}

type PolicyView struct {
	Result  string `json:"result"`
	Details any    `json:"details"`
}

type ReceiptView struct {
	PDFURL       string          `json:"pdfUrl,omitempty"`
	JSON         json.RawMessage `json:"json,omitempty"`
	Signature    string          `json:"signature,omitempty"`
	SignerPubKey string          `json:"signerPubKey,omitempty"`
}

type PublicProofView struct {
	TrustmarkID string      `json:"trustmarkId"`
	Origin      OriginView  `json:"origin"`
	Policy      PolicyView  `json:"policy"`
	Receipt     ReceiptView `json:"receipt"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// CreateFromURL runs the full URL proof flow. idemKey may be empty; when set,
// the cached response for a previously seen key is replayed verbatim before
// anything else happens, canonicalization included.
func (s *ProofService) CreateFromURL(ctx context.Context, rawURL, idemKey string) (*CreateProofResponse, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}

	if idemKey != "" {
		if cached, err := s.replayIdempotent(ctx, idemKey); err != nil {
			return nil, err
		} else if cached != nil {
			s.Logger.Info("replayed idempotent response", "idem_key", idemKey)
			return cached, nil
		}
	}

	identity, err := Canonicalize(rawURL)
	if err != nil {
		return nil, err
	}

	// Identity-level dedup before any work: a known canonical identity whose
	// proof still exists short-circuits the whole pipeline.
	if existingID, err := s.Links.GetProofID(ctx, identity.Platform, identity.CanonicalID); err == nil {
		proof, getErr := s.Proofs.GetByID(ctx, existingID)
		if getErr == nil && proof != nil {
			s.Logger.Info("url already verified, returning existing proof",
				"canonical_id", identity.CanonicalID, "proof_id", proof.ID)
			resp := &CreateProofResponse{
				ProofID:     proof.ID,
				TrustmarkID: proof.TrustmarkID,
				VerifyURL:   "/t/" + proof.TrustmarkID,
				Deduped:     true,
			}
			s.cacheIdempotent(ctx, idemKey, proof.ID, resp)
			return resp, nil
		}
		if getErr != nil && !errors.Is(getErr, domain.ErrNotFound) {
			return nil, getErr
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	proofID := uuid.New().String()
	trustmarkID := newTrustmarkID()

	mediaPath, err := s.Downloader.Download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.Remove(mediaPath); rmErr != nil && !os.IsNotExist(rmErr) {
			s.Logger.Warn("failed to remove downloaded media", "path", mediaPath, "error", rmErr)
		}
	}()

	var sizeBytes int64
	if info, statErr := os.Stat(mediaPath); statErr == nil {
		sizeBytes = info.Size()
	}
	sha, err := s.Hasher.SHA256(ctx, mediaPath)
	if err != nil {
		return nil, fmt.Errorf("hash downloaded media: %w", err)
	}

	assetID, _, err := s.resolveAsset(ctx, sha, "video/mp4", sizeBytes, mediaPath)
	if err != nil {
		return nil, err
	}

	result, err := s.Verifier.VerifyFromURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	proof, err := s.persistProof(ctx, proofID, trustmarkID, assetID, result)
	if err != nil {
		return nil, err
	}

	payload := domain.URLReceiptPayload{
		ProofID:      proof.ID,
		TrustmarkID:  proof.TrustmarkID,
		URL:          rawURL,
		Platform:     string(identity.Platform),
		CanonicalID:  identity.CanonicalID,
		C2PAPresent:  proof.C2PAPresent,
		OriginStatus: proof.OriginStatus,
		PolicyResult: proof.PolicyResult,
		Timestamp:    s.now().UTC().Format(time.RFC3339),
	}
	if err := s.issueReceipt(ctx, proof.ID, payload); err != nil {
		return nil, err
	}

	winner, err := s.Links.Insert(ctx, domain.LinkIndex{
		Platform:    identity.Platform,
		CanonicalID: identity.CanonicalID,
		ProofID:     proof.ID,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if winner != proof.ID {
		// Lost the identity race to a concurrent request; the index keeps
		// the first writer. This proof and its receipt remain valid.
		s.Logger.Info("link index race lost", "canonical_id", identity.CanonicalID,
			"winner", winner, "proof_id", proof.ID)
	}

	resp := &CreateProofResponse{
		ProofID:     proof.ID,
		TrustmarkID: proof.TrustmarkID,
		VerifyURL:   "/t/" + proof.TrustmarkID,
	}
	s.cacheIdempotent(ctx, idemKey, proof.ID, resp)
	return resp, nil
}

// CreateFromFile runs the upload proof flow: spool to a temp file, hash,
// reuse or create the asset, inspect the file locally, persist and sign.
func (s *ProofService) CreateFromFile(ctx context.Context, content io.Reader, fileName, contentType string) (*CreateFileProofResponse, error) {
	if content == nil {
		return nil, fmt.Errorf("%w: file is required", domain.ErrInvalidInput)
	}

	tmp, err := os.CreateTemp(s.TempDir, "upload-*")
	if err != nil {
		return nil, fmt.Errorf("spool upload: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			s.Logger.Warn("failed to remove spooled upload", "path", tmpPath, "error", rmErr)
		}
	}()
	sizeBytes, err := io.Copy(tmp, content)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("spool upload: %w", err)
	}

	sha, err := s.Hasher.SHA256(ctx, tmpPath)
	if err != nil {
		return nil, fmt.Errorf("hash upload: %w", err)
	}

	assetID, reused, err := s.resolveAsset(ctx, sha, contentType, sizeBytes, tmpPath)
	if err != nil {
		return nil, err
	}

	var result domain.ManifestCheckResult
	rawJSON, toolErr := s.Tool.Inspect(ctx, tmpPath)
	if toolErr != nil {
		s.Logger.Warn("local manifest tool failed for upload", "file", fileName, "error", toolErr)
		result = domain.ManifestCheckResult{
			Status:      domain.ManifestNotFound,
			MediaSHA256: sha,
			Notes:       "Local manifest tool failed (" + toolErr.Error() + "); using SHA-256 fingerprint",
		}
	} else {
		result = c2pa.ParseLocal(rawJSON)
		if !result.ManifestFound {
			result.MediaSHA256 = sha
		}
	}

	proofID := uuid.New().String()
	trustmarkID := newTrustmarkID()
	proof, err := s.persistProof(ctx, proofID, trustmarkID, assetID, result)
	if err != nil {
		return nil, err
	}

	payload := domain.FileReceiptPayload{
		ProofID:     proof.ID,
		TrustmarkID: proof.TrustmarkID,
		AssetID:     assetID,
		SHA256:      sha,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
		Timestamp:   s.now().UTC().Format(time.RFC3339),
	}
	if err := s.issueReceipt(ctx, proof.ID, payload); err != nil {
		return nil, err
	}

	resp := &CreateFileProofResponse{
		ProofID:     proof.ID,
		TrustmarkID: proof.TrustmarkID,
		VerifyURL:   "/t/" + proof.TrustmarkID,
		AssetID:     assetID,
		AssetReused: reused,
		C2PAPresent: proof.C2PAPresent,
	}
	if result.ManifestFound {
		resp.Origin = &OriginView{
			C2PA:           true,
			Status:         string(result.Status),
			ClaimGenerator: result.ClaimGenerator,
			Issuer:         result.SigningIssuer,
			Timestamp:      formatTimestamp(result.ClaimTimestamp),
			SHA256:         sha,
		}
	}
	return resp, nil
}

// VerifyByTrustmark assembles the public verification view for a trustmark.
func (s *ProofService) VerifyByTrustmark(ctx context.Context, trustmarkID string) (*PublicProofView, error) {
	proof, err := s.Proofs.GetByTrustmarkID(ctx, trustmarkID)
	if err != nil {
		return nil, err
	}

	view := &PublicProofView{
		TrustmarkID: proof.TrustmarkID,
		Origin: OriginView{
			C2PA:           proof.C2PAPresent,
			Status:         proof.OriginStatus,
			ClaimGenerator: extractManifestField(proof.C2PARawJSON, "generator"),
			Issuer:         gjson.Get(proof.C2PARawJSON, "manifests.0.signing.issuer").String(),
			Timestamp:      extractManifestField(proof.C2PARawJSON, "timestamp"),
		},
		Policy:    PolicyView{Result: proof.PolicyResult},
		CreatedAt: proof.CreatedAt,
	}
	if view.Origin.Issuer == "" {
		view.Origin.Issuer = gjson.Get(proof.C2PARawJSON, "signing.issuer").String()
	}
	if proof.PolicyJSON != "" {
		var details any
		if err := json.Unmarshal([]byte(proof.PolicyJSON), &details); err == nil {
			view.Policy.Details = details
		}
	}

	if proof.AssetID != "" {
		// Asset enrichment is best effort for the public view.
		if asset, assetErr := s.Assets.GetByID(ctx, proof.AssetID); assetErr == nil && asset != nil {
			view.Origin.SHA256 = asset.SHA256
		}
	}

	receipt, err := s.Receipts.GetByProofID(ctx, proof.ID)
	if err == nil && receipt != nil {
		view.Receipt = ReceiptView{
			JSON:         json.RawMessage(receipt.JSON),
			Signature:    receipt.Signature,
			SignerPubKey: receipt.SignerPubKey,
		}
		if receipt.PDFPath != "" {
			view.Receipt.PDFURL = "/receipts/" + receipt.PDFPath
		}
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return view, nil
}

// BadgeProof resolves a trustmark to the fields badge rendering needs.
func (s *ProofService) BadgeProof(ctx context.Context, trustmarkID string) (*domain.Proof, error) {
	return s.Proofs.GetByTrustmarkID(ctx, trustmarkID)
}

func (s *ProofService) replayIdempotent(ctx context.Context, idemKey string) (*CreateProofResponse, error) {
	rec, err := s.Idempotency.Get(ctx, idemKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.ResponseJSON == "" {
		return nil, nil
	}
	var resp CreateProofResponse
	if err := json.Unmarshal([]byte(rec.ResponseJSON), &resp); err != nil {
		return nil, fmt.Errorf("decode cached idempotent response: %w", err)
	}
	return &resp, nil
}

func (s *ProofService) cacheIdempotent(ctx context.Context, idemKey, proofID string, resp *CreateProofResponse) {
	if idemKey == "" {
		return
	}
	body, err := json.Marshal(resp)
	if err == nil {
		err = s.Idempotency.SaveResult(ctx, idemKey, proofID, string(body))
	}
	if err != nil {
		// The proof exists either way; a retried request just reruns the
		// dedup path instead of hitting the cache.
		s.Logger.Warn("failed to cache idempotent response", "idem_key", idemKey, "error", err)
	}
}

// resolveAsset implements content-level dedup: reuse the asset for a known
// hash, create it otherwise. The store's Insert resolves concurrent creates
// for the same hash to a single winner.
func (s *ProofService) resolveAsset(ctx context.Context, sha, mediaType string, sizeBytes int64, mediaPath string) (string, bool, error) {
	existing, err := s.Assets.GetBySHA256(ctx, sha)
	if err == nil && existing != nil {
		s.Logger.Info("reusing existing asset", "asset_id", existing.AssetID, "sha256", sha)
		return existing.AssetID, true, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", false, err
	}

	asset := domain.Asset{
		AssetID:   uuid.New().String(),
		SHA256:    sha,
		MediaType: mediaType,
		SizeBytes: sizeBytes,
		CreatedAt: s.now().UTC(),
	}
	if s.Probe != nil {
		if meta := s.Probe.Extract(ctx, mediaPath); meta != nil {
			if meta.DurationSec > 0 {
				d := meta.DurationSec
				asset.DurationSec = &d
			}
			if meta.Width > 0 {
				w := meta.Width
				asset.Width = &w
			}
			if meta.Height > 0 {
				h := meta.Height
				asset.Height = &h
			}
		}
	}
	assetID, err := s.Assets.Insert(ctx, asset)
	if err != nil {
		return "", false, err
	}
	return assetID, false, nil
}

func (s *ProofService) persistProof(ctx context.Context, proofID, trustmarkID, assetID string, result domain.ManifestCheckResult) (*domain.Proof, error) {
	eval, err := s.Policy.Evaluate(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("policy evaluation: %w", err)
	}

	rawJSON := result.RawJSON
	if result.ManifestFound && rawJSON == "" {
		// A proof claiming c2pa_present must carry the evidence.
		encoded, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			return nil, marshalErr
		}
		rawJSON = string(encoded)
	}

	now := s.now().UTC()
	proof := domain.Proof{
		ID:           proofID,
		TrustmarkID:  trustmarkID,
		AssetID:      assetID,
		C2PAPresent:  result.ManifestFound,
		C2PARawJSON:  rawJSON,
		OriginStatus: string(result.Status),
		PolicyResult: eval.Result,
		PolicyJSON:   eval.DetailsJSON,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Proofs.Insert(ctx, proof); err != nil {
		return nil, err
	}
	return &proof, nil
}

// issueReceipt signs the payload's canonical serialization, persists the
// receipt, and backfills receipt_id onto the proof. That backfill is the
// only post-creation mutation a Proof ever receives.
func (s *ProofService) issueReceipt(ctx context.Context, proofID string, payload any) error {
	canonical, signature, publicKey, err := s.Signer.Sign(payload)
	if err != nil {
		return &domain.SignatureError{Err: err}
	}
	sum := sha256.Sum256(canonical)

	receipt := domain.Receipt{
		ID:           uuid.New().String(),
		ProofID:      proofID,
		JSON:         string(canonical),
		ReceiptHash:  hex.EncodeToString(sum[:]),
		Signature:    signature,
		SignerPubKey: publicKey,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.Receipts.Insert(ctx, receipt); err != nil {
		return err
	}
	return s.Proofs.UpdateReceiptID(ctx, proofID, receipt.ID)
}

// newTrustmarkID returns the short public identifier: the first 8 hex chars
// of a fresh UUID, matching the verify-page URL format /t/{id}.
func newTrustmarkID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

func extractManifestField(rawJSON, field string) string {
	if rawJSON == "" {
		return ""
	}
	// Local tool and hosted service store different shapes; probe both.
	if v := gjson.Get(rawJSON, "manifests.0.claims.0."+field); v.Exists() {
		return v.String()
	}
	return gjson.Get(rawJSON, "claims.0."+field).String()
}

func formatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
