package classifier

import (
	"context"
	"testing"

	"adpilot/internal/domain"
)

func classify(t *testing.T, text string) domain.Classification {
	t.Helper()
	cls, err := NewKeyword().Classify(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}
	return cls
}

func hasIntent(cls domain.Classification, target domain.CapabilityTarget) bool {
	for _, i := range cls.Intents {
		if i == target {
			return true
		}
	}
	return false
}

func TestClassifyMetricsRequest(t *testing.T) {
	cls := classify(t, "How is my Facebook campaign performing? What's the ROAS?")

	if !hasIntent(cls, domain.TargetAdvertisingMetrics) {
		t.Fatalf("intents = %v", cls.Intents)
	}
	if hasIntent(cls, domain.TargetCRMOperations) {
		t.Fatalf("CRM intent on a pure metrics request: %v", cls.Intents)
	}
	if cls.Confidence < 0.7 {
		t.Fatalf("confidence = %v", cls.Confidence)
	}
	if cls.Entities.Metric != "roas" {
		t.Fatalf("metric = %q", cls.Entities.Metric)
	}
}

func TestClassifyCRMRequest(t *testing.T) {
	cls := classify(t, "Send an SMS to the new lead about their appointment")

	if !hasIntent(cls, domain.TargetCRMOperations) {
		t.Fatalf("intents = %v", cls.Intents)
	}
	if cls.Entities.Action != "send" {
		t.Fatalf("action = %q", cls.Entities.Action)
	}
}

func TestClassifyMixedRequest(t *testing.T) {
	cls := classify(t, "Show me the campaign spend and message the contact about it")

	if !hasIntent(cls, domain.TargetAdvertisingMetrics) || !hasIntent(cls, domain.TargetCRMOperations) {
		t.Fatalf("intents = %v, want both", cls.Intents)
	}
}

func TestClassifyVagueRequestIsUndetermined(t *testing.T) {
	cls := classify(t, "hello there")

	if !hasIntent(cls, domain.TargetUndetermined) {
		t.Fatalf("intents = %v", cls.Intents)
	}
	if cls.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", cls.Confidence)
	}
}

func TestClassifyExtractsCampaignIDs(t *testing.T) {
	cls := classify(t, "Compare camp_001 and camp_002 performance")

	if len(cls.Entities.CampaignIDs) != 2 {
		t.Fatalf("campaign ids = %v", cls.Entities.CampaignIDs)
	}
	if cls.Entities.CampaignIDs[0] != "camp_001" || cls.Entities.CampaignIDs[1] != "camp_002" {
		t.Fatalf("campaign ids = %v", cls.Entities.CampaignIDs)
	}
}

func TestClassifyExtractsLocation(t *testing.T) {
	cls := classify(t, "How did the Brooklyn ads do this week?")

	if cls.Entities.Location != "brooklyn" {
		t.Fatalf("location = %q", cls.Entities.Location)
	}
}

func TestClassifyWordBoundaries(t *testing.T) {
	// "read" must not match "ad", "budget" must not match "get".
	cls := classify(t, "I read the report yesterday")
	if hasIntent(cls, domain.TargetAdvertisingMetrics) {
		t.Fatalf("intents = %v for non-advertising text", cls.Intents)
	}

	cls = classify(t, "what is the budget")
	if cls.Entities.Action == "get" {
		t.Fatal(`"budget" extracted action "get"`)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	text := "Show campaign ROAS for Miami and send a follow up"
	first := classify(t, text)
	for i := 0; i < 20; i++ {
		got := classify(t, text)
		if got.Confidence != first.Confidence || len(got.Intents) != len(first.Intents) {
			t.Fatalf("classification varies between runs: %+v vs %+v", got, first)
		}
	}
}
