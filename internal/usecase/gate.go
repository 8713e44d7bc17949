package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"adpilot/internal/domain"
)

// identityLocks serializes the check-then-record sequence per identity so
// two concurrent requests from the same caller cannot both pass a rate check
// that only one should pass. Requests from different identities never
// contend. Entries are refcounted and evicted once the last holder releases,
// so the map does not accumulate one mutex per identity ever seen.
type identityLocks struct {
	mu    sync.Mutex
	locks map[domain.Identity]*identityLock
}

type identityLock struct {
	mu   sync.Mutex
	refs int
}

func newIdentityLocks() *identityLocks {
	return &identityLocks{locks: make(map[domain.Identity]*identityLock)}
}

// acquire locks the identity's mutex and returns the release function.
func (l *identityLocks) acquire(identity domain.Identity) func() {
	l.mu.Lock()
	e, ok := l.locks[identity]
	if !ok {
		e = &identityLock{}
		l.locks[identity] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, identity)
		}
		l.mu.Unlock()
	}
}

// Gate is the authorization decision state machine: normalize identity,
// check lockout, check directory membership, check permission for the
// requested action, check rate limits, then emit ALLOW or DENY with a
// human-readable reason. Every decision is audited.
type Gate struct {
	directory domain.Directory
	lockouts  *LockoutTracker
	limiter   *RateLimiter
	audit     *AuditLog
	bus       domain.EventBus // optional
	logger    *slog.Logger
	locks     *identityLocks
}

// NewGate wires the authorization gate.
func NewGate(directory domain.Directory, lockouts *LockoutTracker, limiter *RateLimiter, audit *AuditLog, bus domain.EventBus, logger *slog.Logger) *Gate {
	return &Gate{
		directory: directory,
		lockouts:  lockouts,
		limiter:   limiter,
		audit:     audit,
		bus:       bus,
		logger:    logger,
		locks:     newIdentityLocks(),
	}
}

// Authorize runs the decision sequence for one request, short-circuiting on
// the first failing step. Identity-keyed state (lockout, rate window) is
// only touched inside the per-identity critical section, and is released
// before the caller enters any downstream phase.
func (g *Gate) Authorize(ctx context.Context, identityRaw, actionDescription string) domain.AuthorizationDecision {
	identity := domain.NormalizeIdentity(identityRaw)
	if identity == "" {
		g.record(ctx, "unknown", actionDescription, domain.AuditDenied, "no identity provided")
		return domain.AuthorizationDecision{
			Result:       domain.AuthDeny,
			DeniedReason: "identity required",
		}
	}

	release := g.locks.acquire(identity)
	defer release()

	// Lockout check. Failure bookkeeping is untouched here: an attempt
	// during an active lockout neither extends nor resets it.
	if locked, until := g.lockouts.IsLocked(identity); locked {
		g.record(ctx, identity, actionDescription, domain.AuditBlocked,
			fmt.Sprintf("account locked until %s", until.UTC().Format(time.RFC3339)))
		return domain.AuthorizationDecision{
			Result:       domain.AuthDeny,
			DeniedReason: fmt.Sprintf("locked until %s", until.UTC().Format("15:04")),
			Blocked:      true,
		}
	}

	// Directory membership. An unknown identity is an authentication
	// failure and feeds the lockout tracker.
	principal, ok := g.directory.Lookup(identity)
	if !ok {
		g.lockouts.RecordFailure(identity, "unauthorized identity")
		g.record(ctx, identity, actionDescription, domain.AuditDenied, "unauthorized identity")
		return domain.AuthorizationDecision{
			Result:       domain.AuthDeny,
			DeniedReason: "unauthorized identity",
		}
	}

	// Permission check. A legitimate but under-permissioned caller is not
	// an authentication failure, so this never feeds the lockout tracker.
	required := RequiredPermission(actionDescription)
	if !principal.HasPermission(required) {
		g.record(ctx, identity, actionDescription, domain.AuditDenied,
			fmt.Sprintf("missing permission: %s", required))
		return domain.AuthorizationDecision{
			Result:       domain.AuthDeny,
			DeniedReason: fmt.Sprintf("missing permission: %s", required),
		}
	}

	// Rate limits.
	if ok, msg := g.limiter.WithinLimits(identity, principal.Role); !ok {
		g.record(ctx, identity, actionDescription, domain.AuditDenied,
			"rate limit exceeded: "+msg)
		return domain.AuthorizationDecision{
			Result:       domain.AuthDeny,
			DeniedReason: "rate limit exceeded: " + msg,
		}
	}

	// Success: clear failure history, then count the allowed request.
	g.lockouts.Clear(identity)
	g.limiter.Record(identity)
	g.record(ctx, identity, actionDescription, domain.AuditAllowed,
		fmt.Sprintf("access granted with role: %s", principal.Role))

	return domain.AuthorizationDecision{
		Result:    domain.AuthAllow,
		Principal: principal,
	}
}

// RecordScopeDenial audits a campaign-scope denial decided after the gate
// allowed the request. The router owns scope policy; the gate owns the
// trail, so the trail's final word for the request is denied and the
// medium-severity alert fires like any other denial.
func (g *Gate) RecordScopeDenial(ctx context.Context, identityRaw, actionDescription string) {
	identity := domain.NormalizeIdentity(identityRaw)
	g.record(ctx, identity, actionDescription, domain.AuditDenied, "campaign not in allowed scope")
}

// record writes the audit entry for one decision and publishes the matching
// event. The audit write always reflects the final decision for the step.
func (g *Gate) record(ctx context.Context, identity domain.Identity, action string, result domain.AuditResult, detail string) {
	g.audit.Log(ctx, domain.AuditEntry{
		Identity: identity,
		Action:   action,
		Result:   result,
		Detail:   detail,
	})

	if g.bus == nil {
		return
	}
	eventType := domain.EventAuthAllowed
	switch result {
	case domain.AuditDenied:
		eventType = domain.EventAuthDenied
	case domain.AuditBlocked:
		eventType = domain.EventAuthBlocked
	}
	g.bus.Publish(ctx, domain.Event{
		Type:     eventType,
		Identity: identity,
		Detail:   map[string]string{"detail": detail},
		At:       time.Now().UTC(),
	})
}
