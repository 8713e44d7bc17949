package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"adpilot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock is a manually advanced time source for window-sensitive tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// stubDirectory is a mutable in-memory directory.
type stubDirectory struct {
	mu         sync.Mutex
	principals map[domain.Identity]domain.Principal
}

func newStubDirectory(principals ...domain.Principal) *stubDirectory {
	d := &stubDirectory{principals: make(map[domain.Identity]domain.Principal)}
	for _, p := range principals {
		d.principals[p.Identity] = p
	}
	return d
}

func (d *stubDirectory) Lookup(identity domain.Identity) (domain.Principal, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.principals[identity]
	return p, ok
}

func (d *stubDirectory) add(p domain.Principal) {
	d.mu.Lock()
	d.principals[p.Identity] = p
	d.mu.Unlock()
}

func (d *stubDirectory) remove(identity domain.Identity) {
	d.mu.Lock()
	delete(d.principals, identity)
	d.mu.Unlock()
}

type stubClassifier struct {
	cls domain.Classification
	err error
}

func (c *stubClassifier) Classify(_ context.Context, _ string) (domain.Classification, error) {
	return c.cls, c.err
}

// stubCapability counts invocations so tests can assert a denied request
// never reaches a handler.
type stubCapability struct {
	target  domain.CapabilityTarget
	payload string
	err     error
	calls   atomic.Int32
}

func (c *stubCapability) Target() domain.CapabilityTarget { return c.target }

func (c *stubCapability) Invoke(_ context.Context, _ string, _ domain.Principal, _ domain.Entities) domain.CapabilityResult {
	c.calls.Add(1)
	return domain.CapabilityResult{Target: c.target, Payload: c.payload, Err: c.err}
}

// stubTransport replays a scripted sequence of responses, repeating the last
// step when the script runs out.
type stubTransport struct {
	mu    sync.Mutex
	steps []transportStep
	calls int
}

type transportStep struct {
	resp domain.TransportResponse
	err  error
}

func (t *stubTransport) Send(_ context.Context, _, _ string) (domain.TransportResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.calls
	t.calls++
	if i >= len(t.steps) {
		i = len(t.steps) - 1
	}
	step := t.steps[i]
	return step.resp, step.err
}

func (t *stubTransport) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

type stubSink struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	err     error
}

func (s *stubSink) Append(_ context.Context, entry domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubSink) Close() error { return nil }

func (s *stubSink) appended() []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

type stubAlerter struct {
	name   string
	err    error
	mu     sync.Mutex
	alerts []domain.Alert
}

func (a *stubAlerter) Name() string { return a.name }

func (a *stubAlerter) Notify(_ context.Context, alert domain.Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.alerts = append(a.alerts, alert)
	return nil
}

func (a *stubAlerter) received() []domain.Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Alert, len(a.alerts))
	copy(out, a.alerts)
	return out
}

func viewerPrincipal(identity domain.Identity) domain.Principal {
	return domain.Principal{
		Identity:         identity,
		Name:             "Test Viewer",
		Role:             domain.RoleViewer,
		Permissions:      []domain.Permission{domain.PermRead},
		AllowedCampaigns: []string{"camp_001"},
		CampaignAccess:   domain.CampaignAccessRestricted,
	}
}

func adminPrincipal(identity domain.Identity) domain.Principal {
	return domain.Principal{
		Identity:         identity,
		Name:             "Test Admin",
		Role:             domain.RoleAdmin,
		Permissions:      []domain.Permission{domain.PermWildcard},
		AllowedCampaigns: []string{domain.CampaignWildcard},
		CampaignAccess:   domain.CampaignAccessAll,
	}
}
