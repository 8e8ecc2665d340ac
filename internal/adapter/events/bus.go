package events

import (
	"context"
	"sync"

	"court-reservation-engine/internal/core/domain"

	"github.com/rs/zerolog"
)

// Handler reacts to a published event.
type Handler func(ctx context.Context, event domain.Event) error

// Bus is an in-process pub/sub for domain events. It implements
// ports.EventPublisher. Handlers run synchronously on the publishing
// goroutine, in subscription order; a failing handler is logged and does not
// stop the others.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[domain.EventType][]Handler
	all         []Handler
	log         zerolog.Logger
}

// NewBus constructs an empty bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[domain.EventType][]Handler),
		log:         log,
	}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(eventType domain.EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, handler)
}

// Publish delivers the event to its type subscribers, then to the catch-all ones.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subscribers[event.Type])+len(b.all))
	handlers = append(handlers, b.subscribers[event.Type]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := b.safeCall(ctx, handler, event); err != nil {
			b.log.Warn().Err(err).
				Str("event_id", event.ID.String()).
				Str("event", string(event.Type)).
				Msg("event handler failed")
		}
	}
}

func (b *Bus) safeCall(ctx context.Context, handler Handler, event domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Str("event", string(event.Type)).Msg("event handler panicked")
		}
	}()
	return handler(ctx, event)
}
