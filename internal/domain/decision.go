package domain

import (
	"context"
	"time"
)

// Request is one inbound caller interaction consumed by the orchestration
// controller. DestinationRef identifies the CRM conversation the answer
// should be delivered to; empty means no outbound delivery.
type Request struct {
	ID             string // ULID assigned at ingress
	IdentityRaw    string
	RawText        string
	DestinationRef string
}

// AuthResult is the outcome of an authorization decision.
type AuthResult string

const (
	AuthAllow AuthResult = "allow"
	AuthDeny  AuthResult = "deny"
)

// AuthorizationDecision is computed per request and consumed immediately
// by the orchestration controller.
type AuthorizationDecision struct {
	Result       AuthResult
	Principal    Principal // valid only when Result == AuthAllow
	DeniedReason string    // human-readable, never raw internal state
	Blocked      bool      // true when the denial was lockout-caused
}

// Allowed reports whether the decision permits the request to proceed.
func (d AuthorizationDecision) Allowed() bool { return d.Result == AuthAllow }

// CapabilityTarget identifies a downstream capability handler.
type CapabilityTarget string

const (
	TargetAdvertisingMetrics CapabilityTarget = "advertising_metrics"
	TargetCRMOperations      CapabilityTarget = "crm_operations"
	TargetUndetermined       CapabilityTarget = "undetermined"
)

// Entities are classifier-extracted slots from the caller's raw text.
type Entities struct {
	CampaignIDs []string
	Location    string
	Metric      string
	Contact     string
	Action      string
}

// Classification is the best-effort output of the external text classifier.
// Low confidence lowers routing precision, it is never an error. A request
// may legitimately need more than one capability (e.g. a metrics question
// that also asks for a contact update), hence a list of intents.
type Classification struct {
	Intents    []CapabilityTarget
	Confidence float64
	Entities   Entities
}

// Classifier delegates semantic intent classification to an external
// collaborator.
type Classifier interface {
	Classify(ctx context.Context, rawText string) (Classification, error)
}

// RoutingDecision selects the capability handlers for an allowed request.
type RoutingDecision struct {
	Targets  []CapabilityTarget
	Entities Entities
	Fallback bool // true when classification was inconclusive
}

// CapabilityResult is the outcome of one capability handler invocation.
// Exactly one of Payload or Err is meaningful.
type CapabilityResult struct {
	Target  CapabilityTarget
	Payload string
	Err     error
}

// Capability is an external collaborator that answers a specific class of
// question (advertising metrics, CRM operations).
type Capability interface {
	Target() CapabilityTarget
	Invoke(ctx context.Context, rawText string, principal Principal, entities Entities) CapabilityResult
}

// DeliveryOutcome classifies a single delivery attempt.
type DeliveryOutcome string

const (
	DeliverySuccess          DeliveryOutcome = "success"
	DeliveryRetryableFailure DeliveryOutcome = "retryable_failure"
	DeliveryTerminalFailure  DeliveryOutcome = "terminal_failure"
)

// DeliveryAttempt records one attempt of the delivery state machine.
type DeliveryAttempt struct {
	Number     int
	Outcome    DeliveryOutcome
	StatusCode int
	Err        error
	At         time.Time
}

// DeliveryStatus summarizes a completed delivery sequence.
type DeliveryStatus struct {
	Sent      bool
	Attempts  int
	LastError string
	MessageID string
}

// TransportResponse is the raw result of one synchronous transport send.
type TransportResponse struct {
	StatusCode int
	Body       []byte
	MessageID  string
}

// Transport sends a message to a CRM conversation. Wrapped by the delivery
// agent's retry loop; implementations should be idempotent where the
// downstream API allows it.
type Transport interface {
	Send(ctx context.Context, destinationRef, messageText string) (TransportResponse, error)
}

// Outcome is the controller's final result for one request. FinalText is
// always the best-effort aggregated answer; a failed delivery degrades
// Delivery, never FinalText.
type Outcome struct {
	RequestID    string
	Authorized   bool
	DenialReason string
	FinalText    string
	Delivery     *DeliveryStatus // nil when no delivery was attempted
}
