// Package eventbus is the decoupled, typed publish/subscribe component:
// the Indexer Orchestrator publishes domain events and any other consumer
// subscribes to them without a direct dependency.
// Delivery is eager and synchronous, with handler panics isolated so one
// bad subscriber never blocks the others — mirroring spec.md §4.7's
// "exception in one handler does not prevent delivery to others."
package eventbus

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/standardbeagle/groovy-lsp-index/internal/obslog"
	"github.com/standardbeagle/groovy-lsp-index/internal/types"
)

// Handler receives a published event. Implementations must not block for
// long: publish runs every handler synchronously on the publishing
// goroutine.
type Handler func(types.Event)

var log = obslog.For("eventbus")

// Bus is the Event Bus. The zero value is ready to use.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[reflect.Type][]registration
}

type registration struct {
	id      uintptr
	handler Handler
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[reflect.Type][]registration)}
}

// Subscribe registers handler for every event whose concrete type is E.
// Registration is idempotent per (event type, handler identity):
// subscribing the same function value twice for the same type is a no-op.
func Subscribe[E types.Event](b *Bus, handler func(E)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers == nil {
		b.subscribers = make(map[reflect.Type][]registration)
	}

	t := reflect.TypeFor[E]()
	id := reflect.ValueOf(handler).Pointer()

	for _, r := range b.subscribers[t] {
		if r.id == id {
			return
		}
	}

	wrapped := func(e types.Event) {
		typed, ok := e.(E)
		if !ok {
			return
		}
		handler(typed)
	}
	b.subscribers[t] = append(b.subscribers[t], registration{id: id, handler: wrapped})
}

// Unsubscribe removes the exact (event type, handler identity) registration
// added by Subscribe.
func Unsubscribe[E types.Event](b *Bus, handler func(E)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeFor[E]()
	id := reflect.ValueOf(handler).Pointer()

	regs := b.subscribers[t]
	for i, r := range regs {
		if r.id == id {
			b.subscribers[t] = append(regs[:i], regs[i+1:]...)
			return
		}
	}
}

// Publish delivers event to every currently-registered handler for its
// concrete type. Ordering among subscribers of one type is unspecified. A
// panicking handler is recovered, logged, and does not stop delivery to the
// remaining subscribers.
func (b *Bus) Publish(event types.Event) {
	t := reflect.TypeOf(event)

	b.mu.RLock()
	handlers := append([]registration(nil), b.subscribers[t]...)
	b.mu.RUnlock()

	for _, r := range handlers {
		invokeSafely(r.handler, event)
	}
}

func invokeSafely(h Handler, event types.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("event handler panicked for %s: %v", fmt.Sprintf("%T", event), r)
		}
	}()
	h(event)
}
