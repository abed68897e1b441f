// bus.go
package bus

import (
	"reflect"
	"sync"
)

// -----------------------------------------------------------------------------
// Identity
// -----------------------------------------------------------------------------

// Source identifies the publisher of an event, so a handler can tell
// apart several producers of the same event type.
type Source struct {
	ID   uint32
	Name string
}

// Handler is called once per published event.
type Handler[T any] func(from Source, ev T)

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// Registry owns exactly one Broker per event type. It is created once by
// the composition root and passed by reference to producers and consumers.
type Registry struct {
	mu      sync.Mutex
	brokers map[reflect.Type]any
	nextID  uint32
}

func NewRegistry() *Registry {
	return &Registry{brokers: make(map[reflect.Type]any)}
}

// For returns the broker for T, creating it on first use.
func For[T any](r *Registry) *Broker[T] {
	key := reflect.TypeFor[T]()
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.brokers[key]; ok {
		return b.(*Broker[T])
	}
	b := &Broker[T]{reg: r}
	r.brokers[key] = b
	return b
}

// Subscribe is shorthand for For[T](r).Subscribe(h).
func Subscribe[T any](r *Registry, h Handler[T]) { For[T](r).Subscribe(h) }

// NewPublisher is shorthand for For[T](r).NewPublisher(name).
func NewPublisher[T any](r *Registry, name string) *Publisher[T] {
	return For[T](r).NewPublisher(name)
}

func (r *Registry) allocID() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return r.nextID
}

// -----------------------------------------------------------------------------
// Broker
// -----------------------------------------------------------------------------

// Broker fans events of one type out to its handlers, synchronously and in
// subscription order. Handlers cannot be removed.
//
// A publish issued while the same broker is already dispatching (a handler
// publishing the same type again, or a second goroutine) is rejected, the
// same way linebuf.Buffer rejects appends during a flush.
type Broker[T any] struct {
	reg *Registry

	mu          sync.Mutex
	handlers    []Handler[T]
	dispatching bool
	rejected    uint32
}

// Subscribe appends h to the dispatch order. Handlers added during a
// dispatch are first called on the next publish.
func (b *Broker[T]) Subscribe(h Handler[T]) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

// NewPublisher returns a publishing handle with a fresh identity.
func (b *Broker[T]) NewPublisher(name string) *Publisher[T] {
	var id uint32
	if b.reg != nil {
		id = b.reg.allocID()
	}
	return &Publisher[T]{b: b, src: Source{ID: id, Name: name}}
}

// Len returns the number of subscribed handlers.
func (b *Broker[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}

// Rejected returns how many publishes were refused as re-entrant.
func (b *Broker[T]) Rejected() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rejected
}

func (b *Broker[T]) publish(src Source, ev T) bool {
	b.mu.Lock()
	if b.dispatching {
		b.rejected++
		b.mu.Unlock()
		return false
	}
	b.dispatching = true
	hs := b.handlers[:len(b.handlers):len(b.handlers)]
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.dispatching = false
		b.mu.Unlock()
	}()
	for _, h := range hs {
		h(src, ev)
	}
	return true
}

// -----------------------------------------------------------------------------
// Publisher
// -----------------------------------------------------------------------------

// Publisher is a producer's handle on a Broker.
type Publisher[T any] struct {
	b   *Broker[T]
	src Source
}

func (p *Publisher[T]) Source() Source { return p.src }

// Publish delivers ev to every handler registered when the call starts.
// It reports false if the broker was already dispatching.
func (p *Publisher[T]) Publish(ev T) bool { return p.b.publish(p.src, ev) }
