package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"trustmark/internal/c2pa"
	"trustmark/internal/domain"
)

// Step labels recorded in the status ledger, in pipeline order.
const (
	stepLabelPlatform = "Platform Detection"
	stepLabelHosted   = "Hosted Verification"
	stepLabelDownload = "Media Download"
	stepLabelLocal    = "Local Verification"
	stepLabelHash     = "Hash Computation"
)

// MediaVerifier runs the provenance pipeline for one URL: hosted fast path,
// then local download + manifest inspection, then hash fallback. Stages
// execute strictly in that order; each depends on the previous stage's
// artifact.
type MediaVerifier struct {
	Hosted     HostedVerifier
	Downloader MediaDownloader
	Tool       ManifestTool
	Hasher     Hasher
	Tracker    StatusTracker
	MockMode   bool
	Logger     *slog.Logger

	// sleep is swapped out in tests of the simulated run.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewMediaVerifier(hosted HostedVerifier, dl MediaDownloader, tool ManifestTool, hasher Hasher, tracker StatusTracker, mockMode bool, logger *slog.Logger) *MediaVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaVerifier{
		Hosted:     hosted,
		Downloader: dl,
		Tool:       tool,
		Hasher:     hasher,
		Tracker:    tracker,
		MockMode:   mockMode,
		Logger:     logger,
		sleep:      sleepCtx,
	}
}

// VerifyFromURL is the single pipeline entry point. A run that validly
// concludes "no manifest present" is a success; only outright failures
// (download abort, unexpected errors) return a non-nil error, and those are
// recorded in the status ledger before they propagate.
func (v *MediaVerifier) VerifyFromURL(ctx context.Context, rawURL string) (domain.ManifestCheckResult, error) {
	runID := v.Tracker.Start(rawURL)
	result, err := v.run(ctx, runID, rawURL)
	if err != nil {
		v.Tracker.Fail(runID, err.Error())
		return domain.ManifestCheckResult{}, err
	}
	v.Tracker.Complete(runID, &result)
	return result, nil
}

// Status returns the live snapshot for a run id, ErrNotFound for unknown or
// expired ids.
func (v *MediaVerifier) Status(runID string) (domain.VerificationStatus, error) {
	status, ok := v.Tracker.Get(runID)
	if !ok {
		return domain.VerificationStatus{}, fmt.Errorf("%w: run %s", domain.ErrNotFound, runID)
	}
	return status, nil
}

func (v *MediaVerifier) run(ctx context.Context, runID, rawURL string) (domain.ManifestCheckResult, error) {
	identity, err := Canonicalize(rawURL)
	if err != nil {
		return domain.ManifestCheckResult{}, err
	}

	steps := map[string]bool{stepLabelPlatform: true}
	v.Tracker.Update(runID, domain.VerificationStatus{
		CurrentStep:    domain.StepPlatformDetected,
		Message:        fmt.Sprintf("Detected platform: %s", identity.Platform),
		CompletedSteps: copySteps(steps),
	})
	v.Logger.Info("verification started", "url", rawURL, "platform", identity.Platform, "run_id", runID)

	if v.MockMode {
		return v.simulate(ctx, runID, rawURL, identity.Platform, steps)
	}

	// Hosted check always precedes local download. This ordering is a hard
	// requirement: the hosted service answering spares the full media fetch.
	steps[stepLabelHosted] = true
	v.Tracker.Update(runID, domain.VerificationStatus{
		CurrentStep:    domain.StepHostedAttempted,
		Message:        "Attempting hosted verification...",
		CompletedSteps: copySteps(steps),
	})
	if ok, hosted := v.Hosted.TryVerify(ctx, rawURL); ok && hosted != nil && hosted.ManifestFound {
		v.Logger.Info("manifest found via hosted verifier", "url", rawURL, "run_id", runID)
		return *hosted, nil
	}
	v.Logger.Info("hosted fast path had no manifest, falling back to local verification", "url", rawURL, "run_id", runID)

	steps[stepLabelDownload] = true
	v.Tracker.Update(runID, domain.VerificationStatus{
		CurrentStep:    domain.StepMediaDownloaded,
		Message:        "Downloading media for local verification...",
		CompletedSteps: copySteps(steps),
	})
	mediaPath, err := v.Downloader.Download(ctx, rawURL)
	if err != nil {
		return domain.ManifestCheckResult{}, err
	}
	defer func() {
		// Cleanup runs on every exit path. A failed delete is logged, never
		// allowed to mask the run's real result or error.
		if rmErr := os.Remove(mediaPath); rmErr != nil && !os.IsNotExist(rmErr) {
			v.Logger.Warn("failed to remove downloaded media", "path", mediaPath, "error", rmErr)
		}
	}()

	var sizeBytes int64
	if info, statErr := os.Stat(mediaPath); statErr == nil {
		sizeBytes = info.Size()
	}
	v.Tracker.Update(runID, domain.VerificationStatus{
		CurrentStep:    domain.StepMediaDownloaded,
		Message:        fmt.Sprintf("Media downloaded (%d bytes)", sizeBytes),
		CompletedSteps: copySteps(steps),
		MediaPath:      mediaPath,
		FileSizeBytes:  sizeBytes,
	})

	steps[stepLabelLocal] = true
	v.Tracker.Update(runID, domain.VerificationStatus{
		CurrentStep:    domain.StepLocalChecked,
		Message:        "Running local manifest inspection...",
		CompletedSteps: copySteps(steps),
		MediaPath:      mediaPath,
		FileSizeBytes:  sizeBytes,
	})

	rawJSON, toolErr := v.Tool.Inspect(ctx, mediaPath)
	if toolErr == nil {
		parsed := c2pa.ParseLocal(rawJSON)
		if parsed.ManifestFound {
			v.Logger.Info("manifest found via local inspection", "url", rawURL, "run_id", runID)
			return parsed, nil
		}
	} else {
		v.Logger.Warn("local manifest tool failed, proceeding to hash fallback", "url", rawURL, "error", toolErr)
	}

	steps[stepLabelHash] = true
	v.Tracker.Update(runID, domain.VerificationStatus{
		CurrentStep:    domain.StepHashComputed,
		Message:        "Computing content hash as provenance fallback...",
		CompletedSteps: copySteps(steps),
		MediaPath:      mediaPath,
		FileSizeBytes:  sizeBytes,
	})
	sha, err := v.Hasher.SHA256(ctx, mediaPath)
	if err != nil {
		return domain.ManifestCheckResult{}, fmt.Errorf("hash fallback: %w", err)
	}

	fallback := domain.ManifestCheckResult{
		Status:      domain.ManifestNotFound,
		MediaSHA256: sha,
		Notes:       "No C2PA manifest detected; using SHA-256 fingerprint",
	}
	if toolErr != nil {
		// A tool that could not run is reported distinctly from a tool that
		// ran and found nothing, though both end in the hash fallback.
		fallback.Notes = "Local manifest tool failed (" + toolErr.Error() + "); using SHA-256 fingerprint"
	} else {
		fallback.RawJSON = rawJSON
	}
	v.Logger.Info("no manifest found, recorded hash fallback", "url", rawURL, "sha256", sha, "run_id", runID)
	return fallback, nil
}

// simulate walks the full step sequence without touching the network or any
// external tool, so the UI and tests can run with nothing installed. The
// shape of the returned result matches a real run.
func (v *MediaVerifier) simulate(ctx context.Context, runID, rawURL string, platform domain.Platform, steps map[string]bool) (domain.ManifestCheckResult, error) {
	labels := []struct {
		label   string
		message string
	}{
		{stepLabelHosted, "Attempting hosted verification..."},
		{stepLabelDownload, "Downloading media for local verification..."},
		{stepLabelLocal, "Running local manifest inspection..."},
		{stepLabelHash, "Computing content hash as provenance fallback..."},
	}
	for _, s := range labels {
		steps[s.label] = true
		v.Tracker.Update(runID, domain.VerificationStatus{
			CurrentStep:    domain.StepCompleted,
			Message:        s.message,
			CompletedSteps: copySteps(steps),
		})
		if err := v.sleep(ctx, 250*time.Millisecond); err != nil {
			return domain.ManifestCheckResult{}, err
		}
	}

	// Deterministic demo outcome: TikTok content carries a manifest, the
	// rest falls back to a fingerprint.
	if platform == domain.PlatformTikTok {
		now := time.Now().UTC().Add(-24 * time.Hour)
		return domain.ManifestCheckResult{
			ManifestFound:  true,
			Status:         domain.ManifestVerified,
			ClaimGenerator: "TikTok-C2PA-Client",
			ClaimTimestamp: &now,
			SigningIssuer:  "TikTok Inc.",
			Assertions: []domain.Assertion{
				{Label: "c2pa.claim.generator", Value: "TikTok-C2PA-Client"},
			},
			RawJSON: `{"mock":"simulated_result"}`,
			Notes:   "Simulated verification result",
		}, nil
	}
	return domain.ManifestCheckResult{
		Status:      domain.ManifestNotFound,
		MediaSHA256: fmt.Sprintf("mock-%x", fnvHash(rawURL)),
		RawJSON:     `{"mock":"simulated_result"}`,
		Notes:       "Simulated verification result",
	}, nil
}

func copySteps(steps map[string]bool) map[string]bool {
	out := make(map[string]bool, len(steps))
	for k, v := range steps {
		out[k] = v
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func fnvHash(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
