package transport

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sony/gobreaker/v2"

	"adpilot/internal/domain"
	"adpilot/internal/infra/config"
)

// BreakerTransport wraps a transport with a circuit breaker. When the CRM
// API fails repeatedly the circuit opens and sends fail fast without a
// network round trip, keeping the delivery agent's retries from turning
// an outage into a retry storm. An open circuit surfaces as a retryable
// failure so later requests probe the half-open state.
type BreakerTransport struct {
	inner   domain.Transport
	breaker *gobreaker.CircuitBreaker[domain.TransportResponse]
}

// NewBreakerTransport wraps inner with a circuit breaker configured from cfg.
func NewBreakerTransport(inner domain.Transport, cfg config.BreakerConfig, logger *slog.Logger) *BreakerTransport {
	cb := gobreaker.NewCircuitBreaker[domain.TransportResponse](gobreaker.Settings{
		Name:        "crm-transport",
		MaxRequests: 1, // one probe in half-open state
		Interval:    cfg.IntervalOrDefault(),
		Timeout:     cfg.TimeoutOrDefault(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &BreakerTransport{inner: inner, breaker: cb}
}

// Send routes the call through the breaker. Only transport-level errors trip
// it; HTTP error statuses come back as ordinary responses and are the
// delivery agent's concern.
func (t *BreakerTransport) Send(ctx context.Context, destinationRef, messageText string) (domain.TransportResponse, error) {
	resp, err := t.breaker.Execute(func() (domain.TransportResponse, error) {
		return t.inner.Send(ctx, destinationRef, messageText)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.TransportResponse{},
				domain.NewDomainError("BreakerTransport.Send", domain.ErrDeliveryRetryable, "circuit open")
		}
		return domain.TransportResponse{}, err
	}
	return resp, nil
}

// State returns the current breaker state for monitoring.
func (t *BreakerTransport) State() gobreaker.State {
	return t.breaker.State()
}
