package usecase

import (
	"context"
	"errors"
	"testing"

	"adpilot/internal/domain"
)

func TestRouteConfidentMetricsIntent(t *testing.T) {
	r := NewIntentRouter(&stubClassifier{cls: domain.Classification{
		Intents:    []domain.CapabilityTarget{domain.TargetAdvertisingMetrics},
		Confidence: 0.9,
	}}, domain.TargetAdvertisingMetrics, discardLogger())

	got, err := r.Route(context.Background(), "how is camp_001 doing", adminPrincipal("+15551234567"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Fallback {
		t.Fatal("confident classification marked as fallback")
	}
	if len(got.Targets) != 1 || got.Targets[0] != domain.TargetAdvertisingMetrics {
		t.Fatalf("targets = %v", got.Targets)
	}
}

func TestRouteMultipleIntentsPreserveOrder(t *testing.T) {
	r := NewIntentRouter(&stubClassifier{cls: domain.Classification{
		Intents:    []domain.CapabilityTarget{domain.TargetCRMOperations, domain.TargetAdvertisingMetrics},
		Confidence: 0.8,
	}}, domain.TargetAdvertisingMetrics, discardLogger())

	got, err := r.Route(context.Background(), "update Mike and show roas", adminPrincipal("+15551234567"))
	if err != nil {
		t.Fatal(err)
	}
	want := []domain.CapabilityTarget{domain.TargetCRMOperations, domain.TargetAdvertisingMetrics}
	if len(got.Targets) != 2 || got.Targets[0] != want[0] || got.Targets[1] != want[1] {
		t.Fatalf("targets = %v, want %v", got.Targets, want)
	}
}

func TestRouteClassifierErrorFallsBack(t *testing.T) {
	r := NewIntentRouter(&stubClassifier{err: errors.New("classifier down")},
		domain.TargetAdvertisingMetrics, discardLogger())

	got, err := r.Route(context.Background(), "anything", adminPrincipal("+15551234567"))
	if err != nil {
		t.Fatalf("classifier failure surfaced as routing error: %v", err)
	}
	if !got.Fallback {
		t.Fatal("expected fallback routing")
	}
	if len(got.Targets) != 1 || got.Targets[0] != domain.TargetAdvertisingMetrics {
		t.Fatalf("targets = %v", got.Targets)
	}
}

func TestRouteLowConfidenceFallsBack(t *testing.T) {
	r := NewIntentRouter(&stubClassifier{cls: domain.Classification{
		Intents:    []domain.CapabilityTarget{domain.TargetCRMOperations},
		Confidence: 0.1,
	}}, domain.TargetAdvertisingMetrics, discardLogger())

	got, err := r.Route(context.Background(), "hmm", adminPrincipal("+15551234567"))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Fallback || got.Targets[0] != domain.TargetAdvertisingMetrics {
		t.Fatalf("decision = %+v", got)
	}
}

func TestRouteUndeterminedIntentFallsBack(t *testing.T) {
	r := NewIntentRouter(&stubClassifier{cls: domain.Classification{
		Intents:    []domain.CapabilityTarget{domain.TargetUndetermined},
		Confidence: 0.9,
	}}, domain.TargetAdvertisingMetrics, discardLogger())

	got, err := r.Route(context.Background(), "what", adminPrincipal("+15551234567"))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Fallback {
		t.Fatal("undetermined intent should fall back")
	}
}

func TestRouteRejectsCampaignOutOfScope(t *testing.T) {
	r := NewIntentRouter(&stubClassifier{cls: domain.Classification{
		Intents:    []domain.CapabilityTarget{domain.TargetAdvertisingMetrics},
		Confidence: 0.9,
		Entities:   domain.Entities{CampaignIDs: []string{"camp_002"}},
	}}, domain.TargetAdvertisingMetrics, discardLogger())

	// Viewer is scoped to camp_001 only.
	_, err := r.Route(context.Background(), "show camp_002", viewerPrincipal("+15551234567"))
	if !errors.Is(err, domain.ErrCampaignForbidden) {
		t.Fatalf("err = %v, want ErrCampaignForbidden", err)
	}
}

func TestRouteAllowsCampaignInScope(t *testing.T) {
	r := NewIntentRouter(&stubClassifier{cls: domain.Classification{
		Intents:    []domain.CapabilityTarget{domain.TargetAdvertisingMetrics},
		Confidence: 0.9,
		Entities:   domain.Entities{CampaignIDs: []string{"camp_001"}},
	}}, domain.TargetAdvertisingMetrics, discardLogger())

	got, err := r.Route(context.Background(), "show camp_001", viewerPrincipal("+15551234567"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Entities.CampaignIDs) != 1 || got.Entities.CampaignIDs[0] != "camp_001" {
		t.Fatalf("entities = %+v", got.Entities)
	}
}
