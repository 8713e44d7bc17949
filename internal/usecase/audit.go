package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"adpilot/internal/domain"
)

// alertTimeout bounds one alerter dispatch so a slow notification channel
// cannot leak goroutines indefinitely.
const alertTimeout = 10 * time.Second

// AuditLog keeps the append-only in-memory decision trail, mirrors entries
// to a durable sink when configured, and raises security alerts. A sink
// write failure is logged, never propagated: audit storage trouble must not
// fail the caller's request.
type AuditLog struct {
	mu      sync.Mutex
	entries []domain.AuditEntry

	sink     domain.AuditSink // optional
	alerters []domain.Alerter
	bus      domain.EventBus // optional
	logger   *slog.Logger

	wg sync.WaitGroup // tracks in-flight alert dispatches
}

// NewAuditLog creates an audit log. sink and bus may be nil; alerters may
// be empty.
func NewAuditLog(sink domain.AuditSink, alerters []domain.Alerter, bus domain.EventBus, logger *slog.Logger) *AuditLog {
	return &AuditLog{
		sink:     sink,
		alerters: alerters,
		bus:      bus,
		logger:   logger,
	}
}

// Log appends one decision to the trail. Denied results raise a
// medium-severity alert, blocked results a high-severity one; alert dispatch
// is fire-and-forget.
func (l *AuditLog) Log(ctx context.Context, entry domain.AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.ID == "" {
		entry.ID = ulid.Make().String()
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	if l.sink != nil {
		if err := l.sink.Append(ctx, entry); err != nil {
			l.logger.Error("audit sink append failed",
				"error", err,
				"entry_id", entry.ID,
			)
		}
	}

	switch entry.Result {
	case domain.AuditDenied:
		l.raise(entry, domain.AlertMedium, "denied access attempt from "+string(entry.Identity))
	case domain.AuditBlocked:
		l.raise(entry, domain.AlertHigh, "unauthorized access attempt from "+string(entry.Identity))
	}
}

func (l *AuditLog) raise(entry domain.AuditEntry, severity domain.AlertSeverity, message string) {
	alert := domain.Alert{
		Severity: severity,
		Identity: entry.Identity,
		Message:  message,
		At:       entry.Timestamp,
	}

	if l.bus != nil {
		l.bus.Publish(context.Background(), domain.Event{
			Type:     domain.EventAlertRaised,
			Identity: entry.Identity,
			Detail:   map[string]string{"severity": string(severity), "message": message},
			At:       entry.Timestamp,
		})
	}

	for _, a := range l.alerters {
		a := a
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
			defer cancel()
			if err := a.Notify(ctx, alert); err != nil {
				l.logger.Warn("alert dispatch failed",
					"channel", a.Name(),
					"severity", severity,
					"error", err,
				)
			}
		}()
	}
}

// Entries returns a copy of the in-memory trail in append order.
func (l *AuditLog) Entries() []domain.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Wait blocks until all in-flight alert dispatches complete. Intended for
// shutdown and tests.
func (l *AuditLog) Wait() {
	l.wg.Wait()
}
