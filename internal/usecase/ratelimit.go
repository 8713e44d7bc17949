package usecase

import (
	"fmt"
	"sync"
	"time"

	"adpilot/internal/domain"
)

// Ceiling is a per-minute / per-hour request ceiling pair for one role.
type Ceiling struct {
	PerMinute int
	PerHour   int
}

// defaultCeiling applies to unknown roles: deliberately strict.
var defaultCeiling = Ceiling{PerMinute: 1, PerHour: 10}

// RateLimiter enforces per-minute and per-hour ceilings by role using two
// sliding windows derived from one timestamped event list per identity.
// Events older than one hour are pruned on each check, so a warm identity's
// list length stays bounded by its hourly quota.
//
// Record must only be called after a successful WithinLimits check inside
// the gate's per-identity critical section; events are counted only for
// allowed requests.
type RateLimiter struct {
	mu       sync.Mutex
	events   map[domain.Identity][]time.Time
	ceilings map[domain.Role]Ceiling
	now      func() time.Time
}

// NewRateLimiter creates a limiter with the given role ceilings.
func NewRateLimiter(ceilings map[domain.Role]Ceiling) *RateLimiter {
	if ceilings == nil {
		ceilings = make(map[domain.Role]Ceiling)
	}
	return &RateLimiter{
		events:   make(map[domain.Identity][]time.Time),
		ceilings: ceilings,
		now:      time.Now,
	}
}

// CeilingFor returns the ceiling for the role, falling back to the strict
// default for unknown roles.
func (l *RateLimiter) CeilingFor(role domain.Role) Ceiling {
	if c, ok := l.ceilings[role]; ok {
		return c
	}
	return defaultCeiling
}

// WithinLimits prunes events older than one hour, then checks the identity's
// event counts against the role's ceilings. The returned message names the
// exceeded window.
func (l *RateLimiter) WithinLimits(identity domain.Identity, role domain.Role) (bool, string) {
	ceiling := l.CeilingFor(role)
	now := l.now()
	hourAgo := now.Add(-time.Hour)
	minuteAgo := now.Add(-time.Minute)

	l.mu.Lock()
	defer l.mu.Unlock()

	events := l.events[identity]

	// Prune in place: everything older than one hour is dead weight for
	// both windows.
	kept := events[:0]
	for _, at := range events {
		if at.After(hourAgo) {
			kept = append(kept, at)
		}
	}
	l.events[identity] = kept

	hourCount := len(kept)
	if hourCount >= ceiling.PerHour {
		return false, fmt.Sprintf("hourly limit exceeded (%d/hour)", ceiling.PerHour)
	}

	minuteCount := 0
	for _, at := range kept {
		if at.After(minuteAgo) {
			minuteCount++
		}
	}
	if minuteCount >= ceiling.PerMinute {
		return false, fmt.Sprintf("minute limit exceeded (%d/min)", ceiling.PerMinute)
	}

	return true, "within limits"
}

// Record appends one event for the identity.
func (l *RateLimiter) Record(identity domain.Identity) {
	now := l.now()
	l.mu.Lock()
	l.events[identity] = append(l.events[identity], now)
	l.mu.Unlock()
}
