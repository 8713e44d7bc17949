package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"adpilot/internal/domain"
)

// State is a phase of the orchestration state machine.
type State int

const (
	StateReceived State = iota
	StateAuthorizing
	StateDeniedTerminal
	StateRouting
	StateAggregating
	StateDelivering
	StateDone
)

var stateNames = map[State]string{
	StateReceived:       "RECEIVED",
	StateAuthorizing:    "AUTHORIZING",
	StateDeniedTerminal: "DENIED_TERMINAL",
	StateRouting:        "ROUTING",
	StateAggregating:    "AGGREGATING",
	StateDelivering:     "DELIVERING",
	StateDone:           "DONE",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// validTransitions encodes the legal edges of the machine, so a wiring bug
// surfaces as an explicit error instead of a silently skipped phase.
var validTransitions = map[State][]State{
	StateReceived:    {StateAuthorizing},
	StateAuthorizing: {StateDeniedTerminal, StateRouting},
	StateRouting:     {StateAggregating, StateDeniedTerminal},
	StateAggregating: {StateDelivering, StateDone},
	StateDelivering:  {StateDone},
}

// Controller is the top-level state machine wiring authorization, routing,
// aggregation and delivery, and producing the final result. Denied requests
// short-circuit to a terminal response without ever invoking a capability.
type Controller struct {
	gate         *Gate
	router       *IntentRouter
	capabilities map[domain.CapabilityTarget]domain.Capability
	delivery     *DeliveryAgent
	bus          domain.EventBus // optional
	logger       *slog.Logger
}

// NewController wires the orchestration controller.
func NewController(gate *Gate, router *IntentRouter, capabilities []domain.Capability, delivery *DeliveryAgent, bus domain.EventBus, logger *slog.Logger) *Controller {
	byTarget := make(map[domain.CapabilityTarget]domain.Capability, len(capabilities))
	for _, c := range capabilities {
		byTarget[c.Target()] = c
	}
	return &Controller{
		gate:         gate,
		router:       router,
		capabilities: byTarget,
		delivery:     delivery,
		bus:          bus,
		logger:       logger,
	}
}

// Handle processes one inbound request end to end. It is safe to call
// concurrently; identity-keyed state is serialized inside the gate and is
// released before the delivery phase begins, so backoff delays never hold
// an identity lock.
func (c *Controller) Handle(ctx context.Context, req domain.Request) domain.Outcome {
	state := StateReceived
	c.publish(ctx, domain.EventRequestReceived, req, nil)

	// AUTHORIZING
	if err := c.advance(&state, StateAuthorizing); err != nil {
		return c.internalError(req, err)
	}
	decision := c.gate.Authorize(ctx, req.IdentityRaw, req.RawText)
	if !decision.Allowed() {
		if err := c.advance(&state, StateDeniedTerminal); err != nil {
			return c.internalError(req, err)
		}
		c.logger.Info("request denied",
			"request_id", req.ID,
			"reason", decision.DeniedReason,
			"blocked", decision.Blocked,
		)
		outcome := domain.Outcome{
			RequestID:    req.ID,
			Authorized:   false,
			DenialReason: decision.DeniedReason,
		}
		c.publish(ctx, domain.EventRequestCompleted, req, map[string]string{"result": "denied"})
		return outcome
	}

	// ROUTING
	if err := c.advance(&state, StateRouting); err != nil {
		return c.internalError(req, err)
	}
	routing, err := c.router.Route(ctx, req.RawText, decision.Principal)
	if err != nil {
		// Campaign scope violations fail here, before any capability runs.
		// The denial is audited like any other so the trail does not end on
		// the gate's allowed entry.
		if err := c.advance(&state, StateDeniedTerminal); err != nil {
			return c.internalError(req, err)
		}
		c.gate.RecordScopeDenial(ctx, req.IdentityRaw, req.RawText)
		c.logger.Info("request denied at routing", "request_id", req.ID, "error", err)
		outcome := domain.Outcome{
			RequestID:    req.ID,
			Authorized:   false,
			DenialReason: "campaign not in allowed scope",
		}
		c.publish(ctx, domain.EventRequestCompleted, req, map[string]string{"result": "denied"})
		return outcome
	}
	c.publish(ctx, domain.EventRequestRouted, req, map[string]string{
		"targets": fmt.Sprint(routing.Targets),
	})

	// AGGREGATING
	if err := c.advance(&state, StateAggregating); err != nil {
		return c.internalError(req, err)
	}
	results := c.invokeCapabilities(ctx, req, decision.Principal, routing)
	finalText := Aggregate(results)

	outcome := domain.Outcome{
		RequestID:  req.ID,
		Authorized: true,
		FinalText:  finalText,
	}

	// Delivery is skipped entirely when the request has no destination.
	if req.DestinationRef == "" {
		if err := c.advance(&state, StateDone); err != nil {
			return c.internalError(req, err)
		}
		c.publish(ctx, domain.EventRequestCompleted, req, map[string]string{"result": "done"})
		return outcome
	}

	if err := c.advance(&state, StateDelivering); err != nil {
		return c.internalError(req, err)
	}
	status, _ := c.delivery.Deliver(ctx, req.DestinationRef, finalText)
	outcome.Delivery = &status

	eventType := domain.EventDeliverySent
	if !status.Sent {
		// A transport outage degrades the delivery status; the aggregated
		// answer is preserved in the outcome regardless.
		eventType = domain.EventDeliveryFailed
	}
	c.publish(ctx, eventType, req, map[string]string{
		"attempts": fmt.Sprint(status.Attempts),
	})

	if err := c.advance(&state, StateDone); err != nil {
		return c.internalError(req, err)
	}
	c.publish(ctx, domain.EventRequestCompleted, req, map[string]string{"result": "done"})
	return outcome
}

// invokeCapabilities runs each routed capability concurrently and returns
// their results in invocation order. A capability failure becomes an inline
// result, never an abort of the whole request.
func (c *Controller) invokeCapabilities(ctx context.Context, req domain.Request, principal domain.Principal, routing domain.RoutingDecision) []domain.CapabilityResult {
	results := make([]domain.CapabilityResult, len(routing.Targets))

	g, gctx := errgroup.WithContext(ctx)
	for i, target := range routing.Targets {
		i, target := i, target
		handler, ok := c.capabilities[target]
		if !ok {
			results[i] = domain.CapabilityResult{
				Target: target,
				Err:    domain.NewDomainError("Controller.Handle", domain.ErrCapabilityFailed, "no handler for "+string(target)),
			}
			continue
		}
		g.Go(func() error {
			results[i] = handler.Invoke(gctx, req.RawText, principal, routing.Entities)
			return nil
		})
	}
	_ = g.Wait() // capability failures travel as result values

	return results
}

// advance moves the machine to next, rejecting illegal edges.
func (c *Controller) advance(state *State, next State) error {
	for _, allowed := range validTransitions[*state] {
		if allowed == next {
			*state = next
			return nil
		}
	}
	return fmt.Errorf("illegal state transition %s -> %s", *state, next)
}

func (c *Controller) internalError(req domain.Request, err error) domain.Outcome {
	c.logger.Error("orchestration error", "request_id", req.ID, "error", err)
	return domain.Outcome{
		RequestID:    req.ID,
		Authorized:   false,
		DenialReason: "internal error",
	}
}

func (c *Controller) publish(ctx context.Context, eventType domain.EventType, req domain.Request, detail map[string]string) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(ctx, domain.Event{
		Type:      eventType,
		RequestID: req.ID,
		Identity:  domain.NormalizeIdentity(req.IdentityRaw),
		Detail:    detail,
		At:        time.Now().UTC(),
	})
}
