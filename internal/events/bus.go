package events

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Handler receives a published event.
type Handler func(Event)

type subscription struct {
	id    uint64
	fn    Handler
	async bool
	once  bool
}

// Subscription identifies one registered handler. Cancel removes exactly
// that registration, even when the same function value is registered more
// than once.
type Subscription struct {
	bus *Bus
	t   EventType
	id  uint64
}

// Cancel removes the subscription from its bus. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.bus.remove(s.t, s.id)
}

// Bus is a minimal publish/subscribe registry. Publish is fire-and-forget:
// each handler is invoked independently and a handler that panics is caught
// and logged, never propagated to the publisher or to sibling handlers.
type Bus struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[EventType][]*subscription
	logger   *log.Logger
}

// NewBus creates a Bus. The logger may be nil.
func NewBus(logger *log.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]*subscription),
		logger:   logger,
	}
}

// Subscribe registers a handler for t, invoked synchronously on the
// publisher's goroutine in registration order.
func (b *Bus) Subscribe(t EventType, fn Handler) *Subscription {
	return b.add(t, fn, false, false)
}

// SubscribeAsync registers a handler for t, scheduled on its own goroutine
// so it never blocks the publisher.
func (b *Bus) SubscribeAsync(t EventType, fn Handler) *Subscription {
	return b.add(t, fn, true, false)
}

// Once registers a handler that is removed after its first invocation.
func (b *Bus) Once(t EventType, fn Handler) *Subscription {
	return b.add(t, fn, false, true)
}

// Publish delivers ev to every handler registered for its type.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	subs := make([]*subscription, len(b.handlers[ev.Type()]))
	copy(subs, b.handlers[ev.Type()])
	b.mu.Unlock()

	for _, sub := range subs {
		if sub.once {
			b.remove(ev.Type(), sub.id)
		}
		if sub.async {
			go b.invoke(sub.fn, ev)
		} else {
			b.invoke(sub.fn, ev)
		}
	}
}

func (b *Bus) add(t EventType, fn Handler, async, once bool) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[t] = append(b.handlers[t], &subscription{
		id:    b.nextID,
		fn:    fn,
		async: async,
		once:  once,
	})
	return &Subscription{bus: b, t: t, id: b.nextID}
}

func (b *Bus) remove(t EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[t]
	for i, sub := range subs {
		if sub.id == id {
			b.handlers[t] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.handlers[t]) == 0 {
		delete(b.handlers, t)
	}
}

func (b *Bus) invoke(fn Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Errorf("event handler panic on %s: %v", ev.Type(), r)
		}
	}()
	fn(ev)
}
