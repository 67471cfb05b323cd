package tracker

import (
	"testing"
	"time"

	"trustmark/internal/domain"
)

func TestTrackerLifecycle(t *testing.T) {
	tr := New(time.Minute)
	defer tr.Close()

	runID := tr.Start("https://example.com/v")
	if runID == "" {
		t.Fatal("empty run id")
	}

	status, ok := tr.Get(runID)
	if !ok {
		t.Fatal("run not found after Start")
	}
	if status.CurrentStep != domain.StepStarting {
		t.Errorf("current_step = %q", status.CurrentStep)
	}

	tr.Update(runID, domain.VerificationStatus{
		CurrentStep:    domain.StepMediaDownloaded,
		Message:        "Media downloaded",
		CompletedSteps: map[string]bool{"Media Download": true},
	})
	status, _ = tr.Get(runID)
	if status.CurrentStep != domain.StepMediaDownloaded {
		t.Errorf("current_step = %q after update", status.CurrentStep)
	}

	result := &domain.ManifestCheckResult{Status: domain.ManifestVerified, ManifestFound: true}
	tr.Complete(runID, result)
	status, _ = tr.Get(runID)
	if !status.IsCompleted || status.Result == nil || !status.Result.ManifestFound {
		t.Errorf("status after complete = %+v", status)
	}
}

func TestTrackerFail(t *testing.T) {
	tr := New(time.Minute)
	defer tr.Close()

	runID := tr.Start("https://example.com/v")
	tr.Fail(runID, "download failed: exit 1")

	status, ok := tr.Get(runID)
	if !ok {
		t.Fatal("run not found after Fail")
	}
	if !status.HasError || status.ErrorMessage != "download failed: exit 1" {
		t.Errorf("status = %+v", status)
	}
	if status.CurrentStep != domain.StepError {
		t.Errorf("current_step = %q", status.CurrentStep)
	}
}

func TestTrackerUnknownRun(t *testing.T) {
	tr := New(time.Minute)
	defer tr.Close()

	if _, ok := tr.Get("missing"); ok {
		t.Fatal("unknown run reported found")
	}
	// Updates to unknown runs are dropped, not panics.
	tr.Update("missing", domain.VerificationStatus{})
	tr.Complete("missing", nil)
	tr.Fail("missing", "x")
}

func TestTrackerExpiry(t *testing.T) {
	tr := New(time.Minute)
	defer tr.Close()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	runID := tr.Start("https://example.com/v")
	if _, ok := tr.Get(runID); !ok {
		t.Fatal("run not found before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := tr.Get(runID); ok {
		t.Fatal("expired run still visible")
	}

	tr.reap()
	tr.mu.RLock()
	remaining := len(tr.entries)
	tr.mu.RUnlock()
	if remaining != 0 {
		t.Errorf("entries after reap = %d, want 0", remaining)
	}
}

func TestTrackerDistinctRuns(t *testing.T) {
	tr := New(time.Minute)
	defer tr.Close()

	a := tr.Start("https://example.com/a")
	b := tr.Start("https://example.com/b")
	if a == b {
		t.Fatal("run ids collided")
	}
	tr.Fail(a, "boom")
	if status, _ := tr.Get(b); status.HasError {
		t.Error("failure leaked across runs")
	}
}
