package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"adpilot/internal/domain"
)

// DeliveryAgent sends an aggregated answer to the caller's channel with
// bounded retries and exponential backoff. Retryable transport failures are
// retried up to the attempt ceiling; terminal failures abort immediately.
// The caller always receives a definitive outcome.
type DeliveryAgent struct {
	transport   domain.Transport
	maxAttempts int
	backoffBase time.Duration
	logger      *slog.Logger

	// sleep is replaceable in tests; the default honors ctx cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDeliveryAgent creates a delivery agent with the given retry policy.
func NewDeliveryAgent(transport domain.Transport, maxAttempts int, backoffBase time.Duration, logger *slog.Logger) *DeliveryAgent {
	return &DeliveryAgent{
		transport:   transport,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		logger:      logger,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver runs the per-attempt state machine: send, then success, retryable
// failure (backoff and retry) or terminal failure (abort). The returned
// attempt history is complete and the status is always definitive.
func (a *DeliveryAgent) Deliver(ctx context.Context, destinationRef, message string) (domain.DeliveryStatus, []domain.DeliveryAttempt) {
	if destinationRef == "" {
		return a.abort(1, domain.ErrNoDestination)
	}
	if message == "" {
		return a.abort(1, domain.ErrEmptyMessage)
	}

	var attempts []domain.DeliveryAttempt
	var lastErr error

	for n := 1; n <= a.maxAttempts; n++ {
		resp, err := a.transport.Send(ctx, destinationRef, message)
		outcome, attemptErr := classifyAttempt(resp, err)

		attempt := domain.DeliveryAttempt{
			Number:     n,
			Outcome:    outcome,
			StatusCode: resp.StatusCode,
			Err:        attemptErr,
			At:         time.Now().UTC(),
		}
		attempts = append(attempts, attempt)

		switch outcome {
		case domain.DeliverySuccess:
			return domain.DeliveryStatus{
				Sent:      true,
				Attempts:  n,
				MessageID: resp.MessageID,
			}, attempts

		case domain.DeliveryTerminalFailure:
			a.logger.Error("delivery aborted", "attempt", n, "error", attemptErr)
			return domain.DeliveryStatus{
				Attempts:  n,
				LastError: attemptErr.Error(),
			}, attempts
		}

		lastErr = attemptErr
		a.logger.Warn("delivery attempt failed",
			"attempt", n,
			"of", a.maxAttempts,
			"error", attemptErr,
		)

		if n < a.maxAttempts {
			// Base delay doubling per attempt: base, 2*base, 4*base, ...
			delay := a.backoffBase << (n - 1)
			if err := a.sleep(ctx, delay); err != nil {
				// Request cancelled mid-backoff. No further real attempt
				// is made; already-sent side effects are not retracted.
				attempts = append(attempts, domain.DeliveryAttempt{
					Number:  n + 1,
					Outcome: domain.DeliveryTerminalFailure,
					Err:     err,
					At:      time.Now().UTC(),
				})
				return domain.DeliveryStatus{
					Attempts:  n + 1,
					LastError: err.Error(),
				}, attempts
			}
		}
	}

	return domain.DeliveryStatus{
		Attempts:  a.maxAttempts,
		LastError: lastErr.Error(),
	}, attempts
}

// abort records a terminal failure without consuming any transport attempt.
func (a *DeliveryAgent) abort(n int, sentinel error) (domain.DeliveryStatus, []domain.DeliveryAttempt) {
	err := domain.NewDomainError("DeliveryAgent.Deliver", sentinel, "")
	a.logger.Error("delivery aborted before send", "error", err)
	return domain.DeliveryStatus{
			Attempts:  0,
			LastError: sentinel.Error(),
		}, []domain.DeliveryAttempt{{
			Number:  n,
			Outcome: domain.DeliveryTerminalFailure,
			Err:     err,
			At:      time.Now().UTC(),
		}}
}

// classifyAttempt maps one transport response to an attempt outcome.
// Timeouts and 5xx-class responses are retryable; explicit authentication
// rejections and other client errors are terminal.
func classifyAttempt(resp domain.TransportResponse, err error) (domain.DeliveryOutcome, error) {
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return domain.DeliveryTerminalFailure, err
		case errors.Is(err, domain.ErrTransportAuth):
			return domain.DeliveryTerminalFailure, err
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return domain.DeliveryRetryableFailure,
				domain.NewDomainError("transport", domain.ErrDeliveryRetryable, "timeout: "+err.Error())
		}
		// Connection-level trouble is assumed transient.
		return domain.DeliveryRetryableFailure,
			domain.NewDomainError("transport", domain.ErrDeliveryRetryable, err.Error())
	}

	switch {
	case resp.StatusCode == 200 || resp.StatusCode == 201:
		return domain.DeliverySuccess, nil
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		return domain.DeliveryTerminalFailure,
			domain.NewDomainError("transport", domain.ErrTransportAuth,
				fmt.Sprintf("status %d", resp.StatusCode))
	case resp.StatusCode == 408 || resp.StatusCode == 429 || resp.StatusCode >= 500:
		return domain.DeliveryRetryableFailure,
			domain.NewDomainError("transport", domain.ErrDeliveryRetryable,
				fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(resp.Body, 120)))
	default:
		return domain.DeliveryTerminalFailure,
			domain.NewDomainError("transport", domain.ErrDeliveryTerminal,
				fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(resp.Body, 120)))
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
