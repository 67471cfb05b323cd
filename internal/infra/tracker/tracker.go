package tracker

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"trustmark/internal/domain"
)

type entry struct {
	status    domain.VerificationStatus
	expiresAt time.Time
}

// Tracker keeps live verification status snapshots in memory. Entries expire
// ttl after their last update; a background reaper removes them so abandoned
// runs do not accumulate.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	stopped sync.Once
}

func New(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	t := &Tracker{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go t.reapLoop()
	return t
}

func (t *Tracker) Close() {
	t.stopped.Do(func() { close(t.stop) })
}

func (t *Tracker) Start(url string) string {
	runID := uuid.New().String()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[runID] = &entry{
		status: domain.VerificationStatus{
			CurrentStep:    domain.StepStarting,
			Message:        "Verification started",
			CompletedSteps: map[string]bool{},
		},
		expiresAt: t.now().Add(t.ttl),
	}
	return runID
}

func (t *Tracker) Update(runID string, status domain.VerificationStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[runID]
	if !ok {
		return
	}
	e.status = status
	e.expiresAt = t.now().Add(t.ttl)
}

func (t *Tracker) Get(runID string) (domain.VerificationStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[runID]
	if !ok || t.now().After(e.expiresAt) {
		return domain.VerificationStatus{}, false
	}
	return e.status, true
}

func (t *Tracker) Complete(runID string, result *domain.ManifestCheckResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[runID]
	if !ok {
		return
	}
	e.status.CurrentStep = domain.StepCompleted
	e.status.Message = "Verification completed"
	e.status.IsCompleted = true
	e.status.Result = result
	e.expiresAt = t.now().Add(t.ttl)
}

func (t *Tracker) Fail(runID, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[runID]
	if !ok {
		return
	}
	e.status.CurrentStep = domain.StepError
	e.status.Message = "Verification failed"
	e.status.IsCompleted = true
	e.status.HasError = true
	e.status.ErrorMessage = message
	e.expiresAt = t.now().Add(t.ttl)
}

func (t *Tracker) reapLoop() {
	interval := t.ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.reap()
		}
	}
}

func (t *Tracker) reap() {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	for runID, e := range t.entries {
		if now.After(e.expiresAt) {
			delete(t.entries, runID)
		}
	}
}
