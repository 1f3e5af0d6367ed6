package bus

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrMetaKind is returned when KindAll is used as a payload kind.
var ErrMetaKind = errors.New("all is a subscription kind and cannot be dispatched")

// Handler receives one dispatched payload.
type Handler[P any] func(P)

// PanicHandler is called when a handler panics and panic isolation is
// enabled. kind is the kind the panicking handler subscribed under.
type PanicHandler func(kind Kind, panicValue any)

// Option configures a Bus.
type Option func(*config)

type config struct {
	panicHandler PanicHandler
}

// WithPanicHandler recovers handler panics, reports them to h and
// continues with the remaining handlers. Without it a panic propagates
// out of Dispatch and the remaining handlers are not called.
func WithPanicHandler(h PanicHandler) Option {
	return func(c *config) {
		c.panicHandler = h
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	kind   Kind
	active atomic.Bool
	once   sync.Once
	detach func()
}

// Kind returns the kind the subscription was registered under.
func (s *Subscription) Kind() Kind {
	return s.kind
}

// Active reports whether the subscription still receives dispatches.
func (s *Subscription) Active() bool {
	return s.active.Load()
}

// Remove disposes of the subscription. It is safe to call more than once
// and from inside a handler. Once Remove returns the handler is never
// invoked again.
func (s *Subscription) Remove() {
	s.active.Store(false)
	s.once.Do(func() {
		if s.detach != nil {
			s.detach()
		}
	})
}

type entry[P any] struct {
	sub     *Subscription
	handler Handler[P]
}

// Bus is a synchronous dispatcher keyed by Kind.
//
// Thread-safety: all methods are safe for concurrent use. Handlers are
// invoked without any bus lock held, so they may subscribe, remove or
// dispatch re-entrantly.
type Bus[P any] struct {
	mu           sync.RWMutex
	lists        map[Kind][]*entry[P]
	panicHandler PanicHandler
}

// New creates an empty Bus.
func New[P any](opts ...Option) *Bus[P] {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Bus[P]{
		lists:        make(map[Kind][]*entry[P]),
		panicHandler: cfg.panicHandler,
	}
}

// Subscribe registers handler under kind. Handlers are kept in
// subscription order.
func (b *Bus[P]) Subscribe(kind Kind, handler Handler[P]) (*Subscription, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("subscribe: invalid event kind %d", uint8(kind))
	}
	if handler == nil {
		return nil, fmt.Errorf("subscribe %s: handler is nil", kind)
	}

	sub := &Subscription{kind: kind}
	sub.active.Store(true)
	e := &entry[P]{sub: sub, handler: handler}
	sub.detach = func() { b.detach(e) }

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists[kind] = append(b.lists[kind], e)
	return sub, nil
}

// detach drops e from its kind list.
func (b *Bus[P]) detach(e *entry[P]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.lists[e.sub.kind]
	for i, candidate := range list {
		if candidate == e {
			// Build a new slice: in-flight dispatches hold the old one.
			next := make([]*entry[P], 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			b.lists[e.sub.kind] = next
			return
		}
	}
}

// Dispatch synchronously invokes every live handler for kind, then every
// live KindAll handler.
func (b *Bus[P]) Dispatch(kind Kind, payload P) error {
	if kind == KindAll {
		return ErrMetaKind
	}
	if !kind.Valid() {
		return fmt.Errorf("dispatch: invalid event kind %d", uint8(kind))
	}

	b.mu.RLock()
	targets := b.lists[kind]
	all := b.lists[KindAll]
	b.mu.RUnlock()

	b.run(targets, payload)
	b.run(all, payload)
	return nil
}

// Deliver invokes a single subscription, then every live KindAll handler.
// It is the replay path for KindInit subscribers. A removed or foreign
// subscription is skipped, but KindAll handlers still run.
func (b *Bus[P]) Deliver(sub *Subscription, payload P) {
	b.mu.RLock()
	var target []*entry[P]
	for _, e := range b.lists[sub.kind] {
		if e.sub == sub {
			target = []*entry[P]{e}
			break
		}
	}
	all := b.lists[KindAll]
	b.mu.RUnlock()

	if sub.kind != KindAll {
		b.run(target, payload)
	}
	b.run(all, payload)
}

// Len returns the number of live subscriptions for kind.
func (b *Bus[P]) Len(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lists[kind])
}

func (b *Bus[P]) run(entries []*entry[P], payload P) {
	for _, e := range entries {
		// Removed after the list was captured: skip.
		if !e.sub.active.Load() {
			continue
		}
		b.call(e, payload)
	}
}

func (b *Bus[P]) call(e *entry[P], payload P) {
	if b.panicHandler != nil {
		defer func() {
			if r := recover(); r != nil {
				b.panicHandler(e.sub.kind, r)
			}
		}()
	}
	e.handler(payload)
}
