package capability

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"adpilot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPrincipal() domain.Principal {
	return domain.Principal{
		Identity: "+15551234567",
		Role:     domain.RoleViewer,
	}
}

func TestMetricsInvoke(t *testing.T) {
	var got queryRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(queryResponse{Answer: "ROAS is 3.2 across 2 campaigns"})
	}))
	defer srv.Close()

	m := NewMetrics(srv.URL, 5*time.Second, discardLogger())
	if m.Target() != domain.TargetAdvertisingMetrics {
		t.Fatalf("target = %q", m.Target())
	}

	res := m.Invoke(context.Background(), "what's my roas", testPrincipal(), domain.Entities{
		CampaignIDs: []string{"camp_001"},
		Metric:      "roas",
	})
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.Payload != "ROAS is 3.2 across 2 campaigns" {
		t.Fatalf("payload = %q", res.Payload)
	}
	if got.Query != "what's my roas" || got.Role != "viewer" || got.Metric != "roas" {
		t.Fatalf("backend request = %+v", got)
	}
	if len(got.Campaigns) != 1 || got.Campaigns[0] != "camp_001" {
		t.Fatalf("campaigns = %v", got.Campaigns)
	}
}

func TestCRMInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(queryResponse{Answer: "contact updated"})
	}))
	defer srv.Close()

	c := NewCRM(srv.URL, 5*time.Second, discardLogger())
	if c.Target() != domain.TargetCRMOperations {
		t.Fatalf("target = %q", c.Target())
	}

	res := c.Invoke(context.Background(), "update Mike's phone", testPrincipal(), domain.Entities{Action: "update"})
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.Payload != "contact updated" {
		t.Fatalf("payload = %q", res.Payload)
	}
}

func TestInvokeBackendErrorBecomesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	m := NewMetrics(srv.URL, 5*time.Second, discardLogger())
	res := m.Invoke(context.Background(), "roas?", testPrincipal(), domain.Entities{})

	if res.Err == nil {
		t.Fatal("expected error result")
	}
	if !errors.Is(res.Err, domain.ErrCapabilityFailed) {
		t.Fatalf("err = %v", res.Err)
	}
	if res.Target != domain.TargetAdvertisingMetrics {
		t.Fatalf("target = %q", res.Target)
	}
}

func TestInvokeEmptyAnswerIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(queryResponse{Answer: ""})
	}))
	defer srv.Close()

	c := NewCRM(srv.URL, 5*time.Second, discardLogger())
	res := c.Invoke(context.Background(), "anything", testPrincipal(), domain.Entities{})
	if res.Err == nil {
		t.Fatal("empty backend answer accepted")
	}
}

func TestInvokeRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(queryResponse{Answer: "late"})
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	m := NewMetrics(srv.URL, 5*time.Second, discardLogger())
	res := m.Invoke(ctx, "roas?", testPrincipal(), domain.Entities{})
	if res.Err == nil {
		t.Fatal("expected timeout error")
	}
}
