package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"trustmark/internal/domain"
)

type fakeVerifier struct {
	result domain.ManifestCheckResult
	err    error
	calls  int
}

func (f *fakeVerifier) VerifyFromURL(_ context.Context, _ string) (domain.ManifestCheckResult, error) {
	f.calls++
	return f.result, f.err
}

type memAssets struct {
	bySHA map[string]*domain.Asset
	byID  map[string]*domain.Asset
}

func newMemAssets() *memAssets {
	return &memAssets{bySHA: map[string]*domain.Asset{}, byID: map[string]*domain.Asset{}}
}

func (m *memAssets) GetBySHA256(_ context.Context, sha string) (*domain.Asset, error) {
	if a, ok := m.bySHA[sha]; ok {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memAssets) GetByID(_ context.Context, id string) (*domain.Asset, error) {
	if a, ok := m.byID[id]; ok {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memAssets) Insert(_ context.Context, asset domain.Asset) (string, error) {
	if existing, ok := m.bySHA[asset.SHA256]; ok {
		return existing.AssetID, nil
	}
	a := asset
	m.bySHA[a.SHA256] = &a
	m.byID[a.AssetID] = &a
	return a.AssetID, nil
}

type memProofs struct {
	byID      map[string]*domain.Proof
	byTM      map[string]*domain.Proof
	inserted  int
	receiptID map[string]string
}

func newMemProofs() *memProofs {
	return &memProofs{byID: map[string]*domain.Proof{}, byTM: map[string]*domain.Proof{}, receiptID: map[string]string{}}
}

func (m *memProofs) Insert(_ context.Context, proof domain.Proof) error {
	m.inserted++
	p := proof
	m.byID[p.ID] = &p
	m.byTM[p.TrustmarkID] = &p
	return nil
}

func (m *memProofs) UpdateReceiptID(_ context.Context, proofID, receiptID string) error {
	p, ok := m.byID[proofID]
	if !ok {
		return domain.ErrNotFound
	}
	p.ReceiptID = receiptID
	m.receiptID[proofID] = receiptID
	return nil
}

func (m *memProofs) GetByID(_ context.Context, id string) (*domain.Proof, error) {
	if p, ok := m.byID[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memProofs) GetByTrustmarkID(_ context.Context, tm string) (*domain.Proof, error) {
	if p, ok := m.byTM[tm]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

type memReceipts struct {
	byProof map[string]*domain.Receipt
}

func newMemReceipts() *memReceipts {
	return &memReceipts{byProof: map[string]*domain.Receipt{}}
}

func (m *memReceipts) Insert(_ context.Context, r domain.Receipt) error {
	rc := r
	m.byProof[rc.ProofID] = &rc
	return nil
}

func (m *memReceipts) GetByProofID(_ context.Context, proofID string) (*domain.Receipt, error) {
	if r, ok := m.byProof[proofID]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

type memLinks struct {
	rows map[string]string
}

func newMemLinks() *memLinks { return &memLinks{rows: map[string]string{}} }

func linkKey(p domain.Platform, id string) string { return string(p) + "|" + id }

func (m *memLinks) GetProofID(_ context.Context, platform domain.Platform, canonicalID string) (string, error) {
	if id, ok := m.rows[linkKey(platform, canonicalID)]; ok {
		return id, nil
	}
	return "", domain.ErrNotFound
}

func (m *memLinks) Insert(_ context.Context, link domain.LinkIndex) (string, error) {
	key := linkKey(link.Platform, link.CanonicalID)
	if winner, ok := m.rows[key]; ok {
		return winner, nil
	}
	m.rows[key] = link.ProofID
	return link.ProofID, nil
}

type memIdem struct {
	rows map[string]*domain.IdempotencyRecord
}

func newMemIdem() *memIdem { return &memIdem{rows: map[string]*domain.IdempotencyRecord{}} }

func (m *memIdem) Get(_ context.Context, key string) (*domain.IdempotencyRecord, error) {
	if r, ok := m.rows[key]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memIdem) SaveResult(_ context.Context, key, proofID, responseJSON string) error {
	m.rows[key] = &domain.IdempotencyRecord{IdemKey: key, ProofID: proofID, ResponseJSON: responseJSON, CreatedAt: time.Now()}
	return nil
}

type stubPolicy struct {
	eval PolicyEvaluation
}

func (s *stubPolicy) Evaluate(_ context.Context, _ domain.ManifestCheckResult) (PolicyEvaluation, error) {
	if s.eval.Result == "" {
		return PolicyEvaluation{Result: "pass", DetailsJSON: `{"rules":[]}`}, nil
	}
	return s.eval, nil
}

type stubSigner struct {
	calls int
}

func (s *stubSigner) Sign(payload any) ([]byte, string, string, error) {
	s.calls++
	canonical, err := json.Marshal(payload)
	if err != nil {
		return nil, "", "", err
	}
	return canonical, "sig-" + fmt.Sprint(s.calls), "pubkey-1", nil
}

func (s *stubSigner) Verify(_ any, _ string, _ string) (bool, error) { return true, nil }

type serviceHarness struct {
	svc      *ProofService
	verifier *fakeVerifier
	dl       *fakeDownloader
	tool     *fakeTool
	hasher   *fakeHasher
	assets   *memAssets
	proofs   *memProofs
	receipts *memReceipts
	links    *memLinks
	idem     *memIdem
	signer   *stubSigner
}

func newServiceHarness(t *testing.T) *serviceHarness {
	h := &serviceHarness{
		verifier: &fakeVerifier{result: domain.ManifestCheckResult{Status: domain.ManifestNotFound, MediaSHA256: "abc123"}},
		dl:       &fakeDownloader{t: t},
		tool:     &fakeTool{json: `{"manifests":[]}`},
		hasher:   &fakeHasher{sha: "abc123"},
		assets:   newMemAssets(),
		proofs:   newMemProofs(),
		receipts: newMemReceipts(),
		links:    newMemLinks(),
		idem:     newMemIdem(),
		signer:   &stubSigner{},
	}
	h.svc = NewProofService(ProofService{
		Verifier:    h.verifier,
		Downloader:  h.dl,
		Tool:        h.tool,
		Hasher:      h.hasher,
		Policy:      &stubPolicy{},
		Signer:      h.signer,
		Assets:      h.assets,
		Proofs:      h.proofs,
		Receipts:    h.receipts,
		Links:       h.links,
		Idempotency: h.idem,
		TempDir:     t.TempDir(),
	})
	return h
}

func TestCreateFromURLFullFlow(t *testing.T) {
	h := newServiceHarness(t)
	resp, err := h.svc.CreateFromURL(context.Background(), "https://youtu.be/abc12345678", "")
	if err != nil {
		t.Fatalf("CreateFromURL: %v", err)
	}
	if resp.Deduped {
		t.Error("first proof marked deduped")
	}
	if resp.TrustmarkID == "" || len(resp.TrustmarkID) != 8 {
		t.Errorf("trustmark_id = %q, want 8 chars", resp.TrustmarkID)
	}
	if resp.VerifyURL != "/t/"+resp.TrustmarkID {
		t.Errorf("verify_url = %q", resp.VerifyURL)
	}

	proof, err := h.proofs.GetByID(context.Background(), resp.ProofID)
	if err != nil {
		t.Fatalf("proof not persisted: %v", err)
	}
	if proof.ReceiptID == "" {
		t.Error("receipt_id not backfilled onto proof")
	}
	if proof.OriginStatus != string(domain.ManifestNotFound) {
		t.Errorf("origin_status = %q", proof.OriginStatus)
	}
	if proof.PolicyResult != "pass" {
		t.Errorf("policy_result = %q", proof.PolicyResult)
	}

	receipt, err := h.receipts.GetByProofID(context.Background(), resp.ProofID)
	if err != nil {
		t.Fatalf("receipt not persisted: %v", err)
	}
	sum := sha256.Sum256([]byte(receipt.JSON))
	if receipt.ReceiptHash != hex.EncodeToString(sum[:]) {
		t.Error("receipt_hash is not the sha256 of the stored canonical json")
	}
	var payload domain.URLReceiptPayload
	if err := json.Unmarshal([]byte(receipt.JSON), &payload); err != nil {
		t.Fatalf("receipt json: %v", err)
	}
	if payload.Platform != "youtube" || payload.CanonicalID != "yt:abc12345678" {
		t.Errorf("payload identity = %s/%s", payload.Platform, payload.CanonicalID)
	}
	if payload.ProofID != resp.ProofID {
		t.Error("payload proof id mismatch")
	}

	if winner, _ := h.links.GetProofID(context.Background(), domain.PlatformYouTube, "yt:abc12345678"); winner != resp.ProofID {
		t.Errorf("link index owner = %q, want %q", winner, resp.ProofID)
	}
}

func TestCreateFromURLDedupByCanonicalIdentity(t *testing.T) {
	h := newServiceHarness(t)
	first, err := h.svc.CreateFromURL(context.Background(), "https://www.youtube.com/watch?v=abc12345678", "")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	downloadsBefore := h.dl.calls

	// Same video through the short-link form must hit the index, not the
	// pipeline.
	second, err := h.svc.CreateFromURL(context.Background(), "https://youtu.be/abc12345678?t=30", "")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if !second.Deduped {
		t.Error("second request not marked deduped")
	}
	if second.ProofID != first.ProofID || second.TrustmarkID != first.TrustmarkID {
		t.Error("dedup returned a different proof")
	}
	if h.dl.calls != downloadsBefore {
		t.Error("dedup path downloaded media")
	}
	if h.proofs.inserted != 1 {
		t.Errorf("proofs inserted = %d, want 1", h.proofs.inserted)
	}
}

func TestCreateFromURLIdempotencyReplay(t *testing.T) {
	h := newServiceHarness(t)
	first, err := h.svc.CreateFromURL(context.Background(), "https://example.com/clip.mp4", "idem-1")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	verifierCalls := h.verifier.calls

	second, err := h.svc.CreateFromURL(context.Background(), "https://example.com/other.mp4", "idem-1")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	// The key wins over the URL: a reused key replays the cached response
	// even for a different URL.
	if second.ProofID != first.ProofID {
		t.Error("replay returned a different proof")
	}
	if h.verifier.calls != verifierCalls {
		t.Error("replay ran the pipeline")
	}
}

func TestCreateFromURLAssetReuse(t *testing.T) {
	h := newServiceHarness(t)
	first, err := h.svc.CreateFromURL(context.Background(), "https://example.com/a.mp4", "")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	// Different URL, identical bytes: same asset, new proof.
	second, err := h.svc.CreateFromURL(context.Background(), "https://example.com/b.mp4", "")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.Deduped {
		t.Error("distinct identity wrongly deduped")
	}
	p1, _ := h.proofs.GetByID(context.Background(), first.ProofID)
	p2, _ := h.proofs.GetByID(context.Background(), second.ProofID)
	if p1.AssetID != p2.AssetID {
		t.Errorf("asset ids differ: %q vs %q", p1.AssetID, p2.AssetID)
	}
	if len(h.assets.byID) != 1 {
		t.Errorf("assets created = %d, want 1", len(h.assets.byID))
	}
}

func TestCreateFromURLLinkRaceKeepsOwnReceipt(t *testing.T) {
	h := newServiceHarness(t)
	// Another request owns the identity already but its proof row is visible
	// only through the index, simulating a lost insert race.
	h.links.rows[linkKey(domain.PlatformGeneric, "https://example.com/a.mp4")] = "winner-proof"

	resp, err := h.svc.CreateFromURL(context.Background(), "https://example.com/a.mp4", "")
	if err != nil {
		t.Fatalf("CreateFromURL: %v", err)
	}
	// GetProofID finds the winner but GetByID misses, so the pipeline runs;
	// the index still refuses the second writer.
	if resp.Deduped {
		t.Error("race loser marked deduped")
	}
	if resp.ProofID == "winner-proof" {
		t.Error("race loser returned the winner's proof id")
	}
	if _, err := h.receipts.GetByProofID(context.Background(), resp.ProofID); err != nil {
		t.Errorf("race loser has no receipt: %v", err)
	}
	if h.links.rows[linkKey(domain.PlatformGeneric, "https://example.com/a.mp4")] != "winner-proof" {
		t.Error("index owner changed after lost race")
	}
}

func TestCreateFromURLManifestEvidenceGuard(t *testing.T) {
	h := newServiceHarness(t)
	// A found manifest with no raw JSON must not persist as evidence-free.
	h.verifier.result = domain.ManifestCheckResult{
		ManifestFound:  true,
		Status:         domain.ManifestVerified,
		ClaimGenerator: "gen",
	}
	resp, err := h.svc.CreateFromURL(context.Background(), "https://example.com/a.mp4", "")
	if err != nil {
		t.Fatalf("CreateFromURL: %v", err)
	}
	proof, _ := h.proofs.GetByID(context.Background(), resp.ProofID)
	if !proof.C2PAPresent {
		t.Fatal("c2pa_present = false")
	}
	if proof.C2PARawJSON == "" {
		t.Error("c2pa_present proof persisted without raw manifest json")
	}
}

func TestCreateFromURLEmptyURL(t *testing.T) {
	h := newServiceHarness(t)
	if _, err := h.svc.CreateFromURL(context.Background(), "   ", ""); err == nil {
		t.Fatal("want error for blank url")
	}
}

func TestCreateFromFileNewAsset(t *testing.T) {
	h := newServiceHarness(t)
	h.tool.json = `{"manifests":[{"claims":[{"generator":"Adobe Firefly","timestamp":"2024-03-01T12:00:00Z"}],"signing":{"issuer":"Adobe Inc."}}]}`

	resp, err := h.svc.CreateFromFile(context.Background(), strings.NewReader("file bytes"), "clip.mp4", "video/mp4")
	if err != nil {
		t.Fatalf("CreateFromFile: %v", err)
	}
	if resp.AssetReused {
		t.Error("fresh upload marked asset_reused")
	}
	if !resp.C2PAPresent {
		t.Error("manifest not detected")
	}
	if resp.Origin == nil || resp.Origin.ClaimGenerator != "Adobe Firefly" {
		t.Errorf("origin = %+v", resp.Origin)
	}
	if resp.Origin.Issuer != "Adobe Inc." {
		t.Errorf("issuer = %q", resp.Origin.Issuer)
	}

	receipt, err := h.receipts.GetByProofID(context.Background(), resp.ProofID)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	var payload domain.FileReceiptPayload
	if err := json.Unmarshal([]byte(receipt.JSON), &payload); err != nil {
		t.Fatalf("receipt json: %v", err)
	}
	if payload.FileName != "clip.mp4" || payload.SHA256 != "abc123" {
		t.Errorf("payload = %+v", payload)
	}
	if payload.SizeBytes != int64(len("file bytes")) {
		t.Errorf("size_bytes = %d", payload.SizeBytes)
	}
}

func TestCreateFromFileReusesAsset(t *testing.T) {
	h := newServiceHarness(t)
	first, err := h.svc.CreateFromFile(context.Background(), strings.NewReader("same bytes"), "a.mp4", "video/mp4")
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	second, err := h.svc.CreateFromFile(context.Background(), strings.NewReader("same bytes"), "b.mp4", "video/mp4")
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if !second.AssetReused {
		t.Error("identical content not marked asset_reused")
	}
	if second.AssetID != first.AssetID {
		t.Error("asset ids differ for identical content")
	}
	if second.ProofID == first.ProofID {
		t.Error("uploads share a proof; each upload gets its own")
	}
}

func TestCreateFromFileToolFailureFallsBackToHash(t *testing.T) {
	h := newServiceHarness(t)
	h.tool.err = &domain.ToolError{Tool: "c2patool", ExitCode: 1, Stderr: "boom"}

	resp, err := h.svc.CreateFromFile(context.Background(), strings.NewReader("bytes"), "a.mp4", "video/mp4")
	if err != nil {
		t.Fatalf("CreateFromFile: %v", err)
	}
	if resp.C2PAPresent {
		t.Error("tool failure reported a manifest")
	}
	proof, _ := h.proofs.GetByID(context.Background(), resp.ProofID)
	if proof.OriginStatus != string(domain.ManifestNotFound) {
		t.Errorf("origin_status = %q", proof.OriginStatus)
	}
}

func TestCreateFromFileCleansUpSpool(t *testing.T) {
	h := newServiceHarness(t)
	if _, err := h.svc.CreateFromFile(context.Background(), strings.NewReader("bytes"), "a.mp4", "video/mp4"); err != nil {
		t.Fatalf("CreateFromFile: %v", err)
	}
	entries, err := os.ReadDir(h.svc.TempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir not empty after upload: %v", entries)
	}
}

func TestVerifyByTrustmarkPublicView(t *testing.T) {
	h := newServiceHarness(t)
	h.verifier.result = domain.ManifestCheckResult{
		ManifestFound:  true,
		Status:         domain.ManifestVerified,
		ClaimGenerator: "gen",
		RawJSON:        `{"manifests":[{"claims":[{"generator":"Adobe Firefly","timestamp":"2024-03-01T12:00:00Z"}],"signing":{"issuer":"Adobe Inc."}}]}`,
	}
	resp, err := h.svc.CreateFromURL(context.Background(), "https://example.com/a.mp4", "")
	if err != nil {
		t.Fatalf("CreateFromURL: %v", err)
	}

	view, err := h.svc.VerifyByTrustmark(context.Background(), resp.TrustmarkID)
	if err != nil {
		t.Fatalf("VerifyByTrustmark: %v", err)
	}
	if view.TrustmarkID != resp.TrustmarkID {
		t.Errorf("trustmark_id = %q", view.TrustmarkID)
	}
	if !view.Origin.C2PA || view.Origin.Status != string(domain.ManifestVerified) {
		t.Errorf("origin = %+v", view.Origin)
	}
	if view.Origin.ClaimGenerator != "Adobe Firefly" {
		t.Errorf("claim_generator = %q", view.Origin.ClaimGenerator)
	}
	if view.Origin.Issuer != "Adobe Inc." {
		t.Errorf("issuer = %q", view.Origin.Issuer)
	}
	if view.Policy.Result != "pass" {
		t.Errorf("policy result = %q", view.Policy.Result)
	}
	if view.Receipt.Signature == "" || view.Receipt.SignerPubKey != "pubkey-1" {
		t.Errorf("receipt view = %+v", view.Receipt)
	}
	if len(view.Receipt.JSON) == 0 {
		t.Error("receipt json missing from public view")
	}
}

func TestVerifyByTrustmarkUnknown(t *testing.T) {
	h := newServiceHarness(t)
	if _, err := h.svc.VerifyByTrustmark(context.Background(), "nope1234"); err == nil {
		t.Fatal("want error for unknown trustmark")
	}
}
