package usecase

import (
	"context"
	"log/slog"

	"adpilot/internal/domain"
)

// minRoutingConfidence is the classifier confidence below which the router
// falls back to the default capability instead of trusting the intent.
const minRoutingConfidence = 0.3

// IntentRouter maps a classification result to concrete capability targets
// and constrains requests to the principal's campaign scope. Classification
// itself is delegated to the external classifier; the router owns only the
// policy.
type IntentRouter struct {
	classifier    domain.Classifier
	defaultTarget domain.CapabilityTarget
	logger        *slog.Logger
}

// NewIntentRouter creates a router that falls back to defaultTarget when
// classification is inconclusive.
func NewIntentRouter(classifier domain.Classifier, defaultTarget domain.CapabilityTarget, logger *slog.Logger) *IntentRouter {
	return &IntentRouter{
		classifier:    classifier,
		defaultTarget: defaultTarget,
		logger:        logger,
	}
}

// Route produces the routing decision for an allowed request. Inconclusive
// classification is not an error: the request falls back to the default
// capability. A campaign reference outside the principal's scope fails here,
// before any capability handler runs, regardless of the classifier's opinion.
func (r *IntentRouter) Route(ctx context.Context, rawText string, principal domain.Principal) (domain.RoutingDecision, error) {
	cls, err := r.classifier.Classify(ctx, rawText)
	if err != nil {
		r.logger.Warn("classification failed, using default capability",
			"error", err,
			"default", r.defaultTarget,
		)
		return domain.RoutingDecision{
			Targets:  []domain.CapabilityTarget{r.defaultTarget},
			Fallback: true,
		}, nil
	}

	for _, campaignID := range cls.Entities.CampaignIDs {
		if !principal.CanAccessCampaign(campaignID) {
			return domain.RoutingDecision{}, domain.NewDomainError(
				"IntentRouter.Route", domain.ErrCampaignForbidden, campaignID)
		}
	}

	targets := make([]domain.CapabilityTarget, 0, len(cls.Intents))
	for _, intent := range cls.Intents {
		switch intent {
		case domain.TargetAdvertisingMetrics, domain.TargetCRMOperations:
			targets = append(targets, intent)
		}
	}

	if len(targets) == 0 || cls.Confidence < minRoutingConfidence {
		r.logger.Debug("inconclusive classification, using default capability",
			"confidence", cls.Confidence,
			"default", r.defaultTarget,
		)
		return domain.RoutingDecision{
			Targets:  []domain.CapabilityTarget{r.defaultTarget},
			Entities: cls.Entities,
			Fallback: true,
		}, nil
	}

	return domain.RoutingDecision{
		Targets:  targets,
		Entities: cls.Entities,
	}, nil
}
