package capability

import (
	"context"
	"log/slog"
	"time"

	"adpilot/internal/domain"
)

// CRM executes contact and messaging operations through the CRM backend.
type CRM struct {
	client *httpClient
	logger *slog.Logger
}

// NewCRM creates the CRM operations capability against endpoint.
func NewCRM(endpoint string, timeout time.Duration, logger *slog.Logger) *CRM {
	return &CRM{
		client: newHTTPClient(endpoint, timeout),
		logger: logger,
	}
}

func (c *CRM) Target() domain.CapabilityTarget { return domain.TargetCRMOperations }

// Invoke performs the CRM operation described by the request.
func (c *CRM) Invoke(ctx context.Context, rawText string, principal domain.Principal, entities domain.Entities) domain.CapabilityResult {
	answer, err := c.client.query(ctx, rawText, principal, entities)
	if err != nil {
		c.logger.Warn("crm capability failed", "error", err)
		return domain.CapabilityResult{
			Target: c.Target(),
			Err:    domain.NewDomainError("CRM.Invoke", domain.ErrCapabilityFailed, err.Error()),
		}
	}
	return domain.CapabilityResult{Target: c.Target(), Payload: answer}
}
