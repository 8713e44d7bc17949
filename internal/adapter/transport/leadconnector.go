package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"adpilot/internal/domain"
)

// apiVersionHeader is the LeadConnector API versioning header.
const apiVersionHeader = "Version"

// maxResponseBody caps how much of an error body is retained for diagnostics.
const maxResponseBody = 4 << 10

// LeadConnector sends messages through the LeadConnector (GoHighLevel)
// conversations API. One Send maps to one POST; retries live in the delivery
// agent, not here.
type LeadConnector struct {
	baseURL    string
	apiToken   string
	apiVersion string
	client     *http.Client
}

// NewLeadConnector creates a transport against the given API base URL.
func NewLeadConnector(baseURL, apiToken, apiVersion string) *LeadConnector {
	return &LeadConnector{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiToken:   apiToken,
		apiVersion: apiVersion,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type sendMessageRequest struct {
	Type      string `json:"type"`
	ContactID string `json:"contactId"`
	Message   string `json:"message"`
}

type sendMessageResponse struct {
	MessageID string `json:"messageId"`
}

// Send posts one SMS message to the contact's conversation. The raw status
// code and body travel back so the delivery agent can classify the attempt.
func (t *LeadConnector) Send(ctx context.Context, destinationRef, messageText string) (domain.TransportResponse, error) {
	payload, err := json.Marshal(sendMessageRequest{
		Type:      "SMS",
		ContactID: destinationRef,
		Message:   messageText,
	})
	if err != nil {
		return domain.TransportResponse{}, fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.baseURL+"/conversations/messages", bytes.NewReader(payload))
	if err != nil {
		return domain.TransportResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiVersionHeader, t.apiVersion)

	resp, err := t.client.Do(req)
	if err != nil {
		return domain.TransportResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return domain.TransportResponse{StatusCode: resp.StatusCode}, fmt.Errorf("read response: %w", err)
	}

	out := domain.TransportResponse{
		StatusCode: resp.StatusCode,
		Body:       body,
	}
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		var parsed sendMessageResponse
		if json.Unmarshal(body, &parsed) == nil {
			out.MessageID = parsed.MessageID
		}
	}
	return out, nil
}
