package usecase

import (
	"log/slog"
	"sync"
	"time"

	"adpilot/internal/domain"
)

type failedAttempt struct {
	at     time.Time
	reason string
}

type lockoutRecord struct {
	failures    []failedAttempt
	lockedUntil time.Time
}

// LockoutTracker records failed authorization attempts per identity and
// computes temporary lockouts. A failure older than the rolling window is
// excluded from the count; once failures within the window reach the
// threshold, the identity is locked for the configured duration.
// Safe for concurrent use.
type LockoutTracker struct {
	mu        sync.Mutex
	records   map[domain.Identity]*lockoutRecord
	lastSweep time.Time

	threshold int
	window    time.Duration
	duration  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	// onLockout, if set, is invoked once each time a new lockout is applied.
	onLockout func(identity domain.Identity, until time.Time)
}

// NewLockoutTracker creates a tracker with the given threshold, rolling
// failure window and lockout duration.
func NewLockoutTracker(threshold int, window, duration time.Duration, logger *slog.Logger) *LockoutTracker {
	return &LockoutTracker{
		records:   make(map[domain.Identity]*lockoutRecord),
		threshold: threshold,
		window:    window,
		duration:  duration,
		logger:    logger,
		now:       time.Now,
	}
}

// SetOnLockout registers a hook invoked when a new lockout is applied.
func (t *LockoutTracker) SetOnLockout(fn func(identity domain.Identity, until time.Time)) {
	t.onLockout = fn
}

// RecordFailure appends a failure for the identity and applies a lockout if
// the in-window failure count reaches the threshold. Applying a lockout is a
// warning-level event, not an error.
func (t *LockoutTracker) RecordFailure(identity domain.Identity, reason string) {
	now := t.now()

	t.mu.Lock()
	rec, ok := t.records[identity]
	if !ok {
		rec = &lockoutRecord{}
		t.records[identity] = rec
	}
	// Prune in place so a hammered identity's slice stays bounded by the
	// in-window failure count instead of growing with every attempt.
	cutoff := now.Add(-t.window)
	kept := rec.failures[:0]
	for _, f := range rec.failures {
		if f.at.After(cutoff) {
			kept = append(kept, f)
		}
	}
	rec.failures = append(kept, failedAttempt{at: now, reason: reason})
	recent := len(rec.failures)

	var lockedUntil time.Time
	if recent >= t.threshold && !rec.lockedUntil.After(now) {
		rec.lockedUntil = now.Add(t.duration)
		lockedUntil = rec.lockedUntil
	}
	t.sweepLocked(now)
	t.mu.Unlock()

	if !lockedUntil.IsZero() {
		t.logger.Warn("identity locked out",
			"identity", identity,
			"failures", recent,
			"until", lockedUntil,
		)
		if t.onLockout != nil {
			t.onLockout(identity, lockedUntil)
		}
	}
}

// sweepLocked evicts records with no in-window failures and no active lock.
// Runs at most once per window length, so identities that fail once and
// never return do not pin map entries forever. Caller holds t.mu.
func (t *LockoutTracker) sweepLocked(now time.Time) {
	if now.Sub(t.lastSweep) < t.window {
		return
	}
	t.lastSweep = now

	cutoff := now.Add(-t.window)
	for id, rec := range t.records {
		if rec.lockedUntil.After(now) {
			continue
		}
		stale := true
		for _, f := range rec.failures {
			if f.at.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			delete(t.records, id)
		}
	}
}

// IsLocked reports whether the identity is currently locked out and, if so,
// until when. Purely reads state; never mutates.
func (t *LockoutTracker) IsLocked(identity domain.Identity) (bool, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[identity]
	if !ok {
		return false, time.Time{}
	}
	if rec.lockedUntil.After(t.now()) {
		return true, rec.lockedUntil
	}
	return false, time.Time{}
}

// Clear removes the identity's record entirely so prior failures do not
// carry over after a successful authorization.
func (t *LockoutTracker) Clear(identity domain.Identity) {
	t.mu.Lock()
	delete(t.records, identity)
	t.mu.Unlock()
}
