package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"adpilot/internal/domain"
)

type subscriber struct {
	id      uint64
	handler domain.EventHandler
}

// Bus is the in-process, goroutine-safe event bus carrying request lifecycle
// events (auth decisions, lockouts, delivery results). Handlers run off the
// request's critical path so a slow subscriber never delays authorization
// or delivery.
type Bus struct {
	mu       sync.RWMutex
	byType   map[domain.EventType][]subscriber
	wildcard []subscriber
	closed   bool // guarded by mu
	nextID   atomic.Uint64
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// New creates an event bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		byType: make(map[domain.EventType][]subscriber),
		logger: logger,
	}
}

// Publish fans out an event to typed and wildcard subscribers, each on its
// own goroutine. Panicking handlers are recovered and logged. Publishing on
// a closed bus is a no-op.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := make([]subscriber, 0, len(b.byType[event.Type])+len(b.wildcard))
	subs = append(subs, b.byType[event.Type]...)
	subs = append(subs, b.wildcard...)
	// Add while still holding the read lock: Close flips closed under the
	// write lock before waiting, so it cannot observe the group between
	// this Add and Wait.
	b.wg.Add(len(subs))
	b.mu.RUnlock()

	for _, sub := range subs {
		go b.dispatch(ctx, event, sub)
	}
}

func (b *Bus) dispatch(ctx context.Context, event domain.Event, sub subscriber) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", string(event.Type),
				"panic", r,
			)
		}
	}()
	sub.handler(ctx, event)
}

// Subscribe registers a handler for one event type and returns an
// unsubscribe function.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.byType[eventType] = append(b.byType[eventType], subscriber{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.byType[eventType]
		for i, s := range subs {
			if s.id == id {
				b.byType[eventType] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// SubscribeAll registers a handler that receives every event, regardless of
// type. Returns an unsubscribe function.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.wildcard = append(b.wildcard, subscriber{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.wildcard {
			if s.id == id {
				b.wildcard = append(b.wildcard[:i], b.wildcard[i+1:]...)
				return
			}
		}
	}
}

// Close stops accepting publishes and waits for in-flight handlers to
// finish. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	alreadyClosed := b.closed
	b.closed = true
	b.mu.Unlock()

	if alreadyClosed {
		return
	}
	b.wg.Wait()
}
