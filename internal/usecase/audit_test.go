package usecase

import (
	"context"
	"errors"
	"testing"

	"adpilot/internal/domain"
)

func TestAuditLogAppendsInOrder(t *testing.T) {
	log := NewAuditLog(nil, nil, nil, discardLogger())

	actions := []string{"first", "second", "third"}
	for _, a := range actions {
		log.Log(context.Background(), domain.AuditEntry{
			Identity: "+15551234567",
			Action:   a,
			Result:   domain.AuditAllowed,
		})
	}

	entries := log.Entries()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, e := range entries {
		if e.Action != actions[i] {
			t.Fatalf("entry %d action = %q, want %q", i, e.Action, actions[i])
		}
		if e.ID == "" {
			t.Fatalf("entry %d has no ID", i)
		}
		if e.Timestamp.IsZero() {
			t.Fatalf("entry %d has no timestamp", i)
		}
	}
}

func TestAuditLogMirrorsToSink(t *testing.T) {
	sink := &stubSink{}
	log := NewAuditLog(sink, nil, nil, discardLogger())

	log.Log(context.Background(), domain.AuditEntry{
		Identity: "+15551234567",
		Action:   "view stats",
		Result:   domain.AuditAllowed,
	})

	appended := sink.appended()
	if len(appended) != 1 {
		t.Fatalf("sink got %d entries, want 1", len(appended))
	}
	if appended[0].Action != "view stats" {
		t.Fatalf("sink entry action = %q", appended[0].Action)
	}
}

func TestAuditLogSinkFailureDoesNotDropEntry(t *testing.T) {
	sink := &stubSink{err: errors.New("disk full")}
	log := NewAuditLog(sink, nil, nil, discardLogger())

	log.Log(context.Background(), domain.AuditEntry{
		Identity: "+15551234567",
		Action:   "view stats",
		Result:   domain.AuditAllowed,
	})

	if len(log.Entries()) != 1 {
		t.Fatal("in-memory trail lost the entry on sink failure")
	}
}

func TestDeniedRaisesMediumAlert(t *testing.T) {
	alerter := &stubAlerter{name: "test"}
	log := NewAuditLog(nil, []domain.Alerter{alerter}, nil, discardLogger())

	log.Log(context.Background(), domain.AuditEntry{
		Identity: "+15551234567",
		Action:   "delete campaign",
		Result:   domain.AuditDenied,
		Detail:   "missing permission: delete",
	})
	log.Wait()

	alerts := alerter.received()
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	if alerts[0].Severity != domain.AlertMedium {
		t.Fatalf("severity = %q, want medium", alerts[0].Severity)
	}
}

func TestBlockedRaisesHighAlert(t *testing.T) {
	alerter := &stubAlerter{name: "test"}
	log := NewAuditLog(nil, []domain.Alerter{alerter}, nil, discardLogger())

	log.Log(context.Background(), domain.AuditEntry{
		Identity: "+15551234567",
		Action:   "view stats",
		Result:   domain.AuditBlocked,
	})
	log.Wait()

	alerts := alerter.received()
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	if alerts[0].Severity != domain.AlertHigh {
		t.Fatalf("severity = %q, want high", alerts[0].Severity)
	}
}

func TestAllowedRaisesNoAlert(t *testing.T) {
	alerter := &stubAlerter{name: "test"}
	log := NewAuditLog(nil, []domain.Alerter{alerter}, nil, discardLogger())

	log.Log(context.Background(), domain.AuditEntry{
		Identity: "+15551234567",
		Action:   "view stats",
		Result:   domain.AuditAllowed,
	})
	log.Wait()

	if n := len(alerter.received()); n != 0 {
		t.Fatalf("allowed decision raised %d alerts", n)
	}
}

func TestAlerterFailureIsSwallowed(t *testing.T) {
	failing := &stubAlerter{name: "broken", err: errors.New("webhook down")}
	working := &stubAlerter{name: "ok"}
	log := NewAuditLog(nil, []domain.Alerter{failing, working}, nil, discardLogger())

	log.Log(context.Background(), domain.AuditEntry{
		Identity: "+15551234567",
		Action:   "view stats",
		Result:   domain.AuditDenied,
	})
	log.Wait()

	if n := len(working.received()); n != 1 {
		t.Fatalf("working alerter got %d alerts, want 1", n)
	}
	if len(log.Entries()) != 1 {
		t.Fatal("alert failure disturbed the audit trail")
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	log := NewAuditLog(nil, nil, nil, discardLogger())
	log.Log(context.Background(), domain.AuditEntry{
		Identity: "+15551234567",
		Action:   "view stats",
		Result:   domain.AuditAllowed,
	})

	got := log.Entries()
	got[0].Action = "tampered"

	if log.Entries()[0].Action != "view stats" {
		t.Fatal("mutating the returned slice changed the trail")
	}
}
