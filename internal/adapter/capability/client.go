package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"adpilot/internal/domain"
)

// queryRequest is the wire format sent to a capability backend.
type queryRequest struct {
	Query     string   `json:"query"`
	Principal string   `json:"principal"`
	Role      string   `json:"role"`
	Campaigns []string `json:"campaigns,omitempty"`
	Location  string   `json:"location,omitempty"`
	Metric    string   `json:"metric,omitempty"`
	Contact   string   `json:"contact,omitempty"`
	Action    string   `json:"action,omitempty"`
}

// queryResponse is the wire format returned by a capability backend.
type queryResponse struct {
	Answer string `json:"answer"`
}

// httpClient is the shared POST-a-query helper behind both capability
// adapters.
type httpClient struct {
	endpoint string
	client   *http.Client
}

func newHTTPClient(endpoint string, timeout time.Duration) *httpClient {
	return &httpClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// query posts the request and returns the backend's textual answer.
func (c *httpClient) query(ctx context.Context, rawText string, principal domain.Principal, entities domain.Entities) (string, error) {
	payload, err := json.Marshal(queryRequest{
		Query:     rawText,
		Principal: string(principal.Identity),
		Role:      string(principal.Role),
		Campaigns: entities.CampaignIDs,
		Location:  entities.Location,
		Metric:    entities.Metric,
		Contact:   entities.Contact,
		Action:    entities.Action,
	})
	if err != nil {
		return "", fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	var parsed queryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Answer == "" {
		return "", fmt.Errorf("backend returned an empty answer")
	}
	return parsed.Answer, nil
}
