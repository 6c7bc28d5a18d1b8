package events

import "sync"

// Handler receives one event. Delivery is synchronous: a slow handler delays
// every notification emitted after it.
type Handler func(evt Event)

type subscription struct {
	fn   Handler
	once bool
}

// Bus is an in-process publish/subscribe registry scoped to one client
// instance. Handlers for a given event run in registration order and are
// never invoked concurrently with each other for a single Emit.
type Bus struct {
	mu       sync.Mutex
	handlers map[EventName][]subscription
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventName][]subscription),
	}
}

// Subscribe registers fn for every future emission of name.
func (b *Bus) Subscribe(name EventName, fn Handler) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], subscription{fn: fn})
}

// SubscribeOnce registers fn for the next emission of name only.
func (b *Bus) SubscribeOnce(name EventName, fn Handler) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], subscription{fn: fn, once: true})
}

// Emit delivers evt to all subscribers of evt.Name() in registration order.
// Once-subscribers are dropped before their handler runs, so a handler that
// re-emits the same event cannot recurse into itself.
func (b *Bus) Emit(evt Event) {
	b.mu.Lock()
	subs := b.handlers[evt.Name()]
	remaining := subs[:0]
	toRun := make([]Handler, 0, len(subs))
	for _, s := range subs {
		toRun = append(toRun, s.fn)
		if !s.once {
			remaining = append(remaining, s)
		}
	}
	b.handlers[evt.Name()] = remaining
	b.mu.Unlock()

	for _, fn := range toRun {
		fn(evt)
	}
}

// SubscriberCount reports how many handlers are registered for name.
func (b *Bus) SubscriberCount(name EventName) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[name])
}
