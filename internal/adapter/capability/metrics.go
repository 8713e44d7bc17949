package capability

import (
	"context"
	"log/slog"
	"time"

	"adpilot/internal/domain"
)

// Metrics answers advertising performance questions by querying the
// campaign analytics backend.
type Metrics struct {
	client *httpClient
	logger *slog.Logger
}

// NewMetrics creates the advertising metrics capability against endpoint.
func NewMetrics(endpoint string, timeout time.Duration, logger *slog.Logger) *Metrics {
	return &Metrics{
		client: newHTTPClient(endpoint, timeout),
		logger: logger,
	}
}

func (m *Metrics) Target() domain.CapabilityTarget { return domain.TargetAdvertisingMetrics }

// Invoke queries the analytics backend. Failures come back as a result
// value so the aggregator can report them inline.
func (m *Metrics) Invoke(ctx context.Context, rawText string, principal domain.Principal, entities domain.Entities) domain.CapabilityResult {
	answer, err := m.client.query(ctx, rawText, principal, entities)
	if err != nil {
		m.logger.Warn("metrics capability failed", "error", err)
		return domain.CapabilityResult{
			Target: m.Target(),
			Err:    domain.NewDomainError("Metrics.Invoke", domain.ErrCapabilityFailed, err.Error()),
		}
	}
	return domain.CapabilityResult{Target: m.Target(), Payload: answer}
}
