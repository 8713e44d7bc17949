package domain

import (
	"context"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	EventRequestReceived  EventType = "request.received"
	EventAuthAllowed      EventType = "auth.allowed"
	EventAuthDenied       EventType = "auth.denied"
	EventAuthBlocked      EventType = "auth.blocked"
	EventIdentityLocked   EventType = "auth.identity_locked"
	EventRequestRouted    EventType = "request.routed"
	EventDeliverySent     EventType = "delivery.sent"
	EventDeliveryFailed   EventType = "delivery.failed"
	EventAlertRaised      EventType = "alert.raised"
	EventRequestCompleted EventType = "request.completed"
)

// Event is a point-in-time fact published on the in-process bus.
type Event struct {
	Type      EventType
	RequestID string
	Identity  Identity
	Detail    map[string]string
	At        time.Time
}

// EventHandler receives published events. Handlers must not block for long;
// the bus dispatches each handler on its own goroutine.
type EventHandler func(ctx context.Context, event Event)

// EventBus is the in-process publish/subscribe fan-out used to decouple
// alerting and bookkeeping from the request's critical path.
type EventBus interface {
	Publish(ctx context.Context, event Event)
	Subscribe(eventType EventType, handler EventHandler) func()
	Close()
}
