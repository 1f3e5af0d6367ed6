package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/statebox/internal/bus"
	"github.com/roach88/statebox/internal/ir"
)

// Partial is a top-level update for SetState. Values may be plain Go
// values, ir.Values or anything with a JSON form (structs with tags).
type Partial map[string]any

// Event is the payload every listener receives.
//
// Next and Prev are the published snapshots; in a live store both are
// frozen. For dumpUpdate and init events Next and Prev are the same
// snapshot.
type Event struct {
	Kind   bus.Kind
	Next   *ir.Object
	Prev   *ir.Object
	ID     string
	PrevID string
}

// Listener is a typed subscriber. next and prev are freshly decoded copies
// and may be modified without affecting the store.
type Listener[T any] func(next, prev T, kind bus.Kind)

// Store is an immutable state container for values of type T.
//
// T is any type with a JSON object form: a struct, or map[string]any.
// Integers decoded into interface-typed fields arrive as json.Number.
//
// Thread-safety: all methods are safe for concurrent use. Each mutation is
// atomic; listeners run after the lock is released and before the
// mutating call returns, so they may read the store or mutate it
// re-entrantly.
type Store[T any] struct {
	mu      sync.Mutex
	initial *ir.Object
	current *ir.Object
	id      string
	shape   map[string]struct{}

	bus *bus.Bus[Event]
	cfg *config
}

// New creates a store seeded with initial. No event is dispatched.
func New[T any](initial T, opts ...Option) (*Store[T], error) {
	v, err := ir.FromGo(initial)
	if err != nil {
		return nil, fmt.Errorf("new store: %w", NewValueError("", err))
	}
	obj, ok := v.(*ir.Object)
	if !ok {
		return nil, fmt.Errorf("new store: %w", newNotAnObjectError(ir.KindOf(v)))
	}
	return newStore[T](obj, opts)
}

// NewFromSnapshot creates a store seeded with a copy of obj.
func NewFromSnapshot[T any](obj *ir.Object, opts ...Option) (*Store[T], error) {
	if obj == nil {
		return nil, fmt.Errorf("new store: %w", newNotAnObjectError("null"))
	}
	return newStore[T](ir.CloneObject(obj), opts)
}

// newStore takes ownership of obj.
func newStore[T any](obj *ir.Object, opts []Option) (*Store[T], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	var probe T
	if err := ir.Decode(obj, &probe); err != nil {
		return nil, fmt.Errorf("new store: %w", NewValueError("", err))
	}

	id, err := ir.Fingerprint(obj)
	if err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}

	shape := make(map[string]struct{}, obj.Len())
	for _, k := range obj.SortedKeys() {
		shape[k] = struct{}{}
	}
	for _, k := range declaredKeys[T]() {
		shape[k] = struct{}{}
	}

	current := obj
	initial := ir.CloneObject(obj)
	if cfg.live {
		ir.FreezeObject(current)
		ir.FreezeObject(initial)
	}

	var busOpts []bus.Option
	if cfg.panicHandler != nil {
		busOpts = append(busOpts, bus.WithPanicHandler(cfg.panicHandler))
	}

	s := &Store[T]{
		initial: initial,
		current: current,
		id:      id,
		shape:   shape,
		bus:     bus.New[Event](busOpts...),
		cfg:     cfg,
	}
	cfg.logger.Debug("store created", "id", id, "live", cfg.live, "keys", len(shape))
	return s, nil
}

// ID returns the fingerprint of the current snapshot.
func (s *Store[T]) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Snapshot returns the current snapshot itself, not a copy.
// In a live store it is frozen.
func (s *Store[T]) Snapshot() *ir.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// InitialSnapshot returns the initial snapshot. A live store returns the
// frozen snapshot itself; a non-live store returns a copy, since its
// initial snapshot is writable and ResetState restores it.
func (s *Store[T]) InitialSnapshot() *ir.Object {
	if !s.cfg.live {
		return ir.CloneObject(s.initial)
	}
	return s.initial
}

// State returns a freshly decoded copy of the current snapshot.
func (s *Store[T]) State() T {
	return s.decode(s.Snapshot())
}

// InitialState returns a freshly decoded copy of the initial snapshot.
func (s *Store[T]) InitialState() T {
	return s.decode(s.initial)
}

// SetState replaces the top-level keys named in partial.
//
// The merged candidate is compared with the current snapshot. If it
// differs it is published and update is dispatched; otherwise dumpUpdate
// is dispatched and the store is unchanged. Either way all listeners run
// last, before SetState returns.
//
// A key outside the initial shape or a value that cannot be stored rejects
// the whole call: nothing is applied and nothing is dispatched.
func (s *Store[T]) SetState(partial Partial) error {
	ctx := s.cfg.observer.OnMutationStart(context.Background(), OpSetState)

	patch, err := s.convert(partial)
	if err != nil {
		s.reject(ctx, OpSetState, err)
		return err
	}

	return s.commit(ctx, OpSetState, func(current *ir.Object) *ir.Object {
		return ir.Merge(current, patch)
	})
}

// ResetState restores a copy of the initial snapshot through the same
// decision path as SetState: resetting an unchanged store dispatches
// dumpUpdate.
func (s *Store[T]) ResetState() error {
	ctx := s.cfg.observer.OnMutationStart(context.Background(), OpResetState)
	return s.commit(ctx, OpResetState, func(*ir.Object) *ir.Object {
		return ir.CloneObject(s.initial)
	})
}

// On registers a typed listener for kind.
//
// Subscribing to bus.KindInit invokes the listener once with the current
// state as both next and prev, followed by every all listener, before On
// returns.
func (s *Store[T]) On(kind bus.Kind, l Listener[T]) (*bus.Subscription, error) {
	if l == nil {
		return nil, fmt.Errorf("on %s: listener is nil", kind)
	}
	return s.Watch(kind, func(ev Event) {
		var next, prev T
		if err := ir.Decode(ev.Next, &next); err != nil {
			s.cfg.logger.Error("listener decode failed", "kind", ev.Kind, "id", ev.ID, "error", err)
			return
		}
		if err := ir.Decode(ev.Prev, &prev); err != nil {
			s.cfg.logger.Error("listener decode failed", "kind", ev.Kind, "id", ev.PrevID, "error", err)
			return
		}
		l(next, prev, ev.Kind)
	})
}

// Watch registers a raw listener for kind. It shares ordering and init
// replay with On.
func (s *Store[T]) Watch(kind bus.Kind, fn func(Event)) (*bus.Subscription, error) {
	sub, err := s.bus.Subscribe(kind, bus.Handler[Event](fn))
	if err != nil {
		return nil, err
	}
	if kind == bus.KindInit {
		s.mu.Lock()
		ev := Event{Kind: bus.KindInit, Next: s.current, Prev: s.current, ID: s.id, PrevID: s.id}
		s.mu.Unlock()

		s.cfg.logger.Debug("replaying init", "id", ev.ID)
		s.cfg.observer.OnDispatch(context.Background(), bus.KindInit)
		s.bus.Deliver(sub, ev)
	}
	return sub, nil
}

// Subscribers returns the number of live listeners registered for kind.
func (s *Store[T]) Subscribers(kind bus.Kind) int {
	return s.bus.Len(kind)
}

// convert validates partial against the initial shape and converts every
// value. Keys are checked in sorted order so the reported key is stable.
func (s *Store[T]) convert(partial Partial) (*ir.Object, error) {
	patch := ir.NewObject()
	for _, key := range slices.Sorted(maps.Keys(partial)) {
		if _, ok := s.shape[key]; !ok {
			return nil, NewShapeError(key)
		}
		v, err := ir.FromGo(partial[key])
		if err != nil {
			return nil, NewValueError(key, err)
		}
		if err := patch.Set(key, v); err != nil {
			return nil, NewValueError(key, err)
		}
	}
	return patch, nil
}

// commit runs the clone/merge/compare/freeze/publish sequence under the
// lock, then dispatches outside it.
func (s *Store[T]) commit(ctx context.Context, op Operation, build func(current *ir.Object) *ir.Object) error {
	s.mu.Lock()
	prev, prevID := s.current, s.id
	candidate := build(prev)

	changed := !s.cfg.live || !ir.Equal(candidate, prev)
	if changed {
		id, err := s.publishable(candidate)
		if err != nil {
			s.mu.Unlock()
			s.reject(ctx, op, err)
			return err
		}
		if s.cfg.live {
			ir.FreezeObject(candidate)
		}
		s.current, s.id = candidate, id
	}

	ev := Event{Kind: bus.KindDumpUpdate, Next: s.current, Prev: prev, ID: s.id, PrevID: prevID}
	if changed {
		ev.Kind = bus.KindUpdate
	}
	s.mu.Unlock()

	defer s.cfg.observer.OnMutationComplete(ctx, op, changed, ev.ID, nil)

	s.cfg.logger.Debug("dispatching", "op", string(op), "kind", ev.Kind, "id", ev.ID, "prev_id", ev.PrevID)
	s.cfg.observer.OnDispatch(ctx, ev.Kind)
	return s.bus.Dispatch(ev.Kind, ev)
}

// publishable checks that candidate decodes into T and fingerprints it.
func (s *Store[T]) publishable(candidate *ir.Object) (string, error) {
	var probe T
	if err := ir.Decode(candidate, &probe); err != nil {
		return "", NewValueError("", err)
	}
	id, err := ir.Fingerprint(candidate)
	if err != nil {
		return "", NewValueError("", err)
	}
	return id, nil
}

func (s *Store[T]) reject(ctx context.Context, op Operation, err error) {
	s.cfg.logger.Debug("mutation rejected", "op", string(op), "error", err)
	s.cfg.observer.OnMutationComplete(ctx, op, false, s.ID(), err)
}

func (s *Store[T]) decode(obj *ir.Object) T {
	var out T
	if err := ir.Decode(obj, &out); err != nil {
		// Every published snapshot was decoded successfully before commit.
		s.cfg.logger.Error("state decode failed", "error", err)
	}
	return out
}
