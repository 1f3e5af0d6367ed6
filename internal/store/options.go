package store

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/statebox/internal/bus"
)

// Operation names a store mutation entry point.
type Operation string

const (
	OpSetState   Operation = "set_state"
	OpResetState Operation = "reset_state"
)

// Observer receives lifecycle hooks for every mutation and dispatch.
// Implemented by telemetry.Observer.
//
// OnMutationStart returns the context threaded through the remaining hooks
// of the same call, so an implementation can carry a span in it.
type Observer interface {
	OnMutationStart(ctx context.Context, op Operation) context.Context
	OnMutationComplete(ctx context.Context, op Operation, changed bool, id string, err error)
	OnDispatch(ctx context.Context, kind bus.Kind)
}

type nopObserver struct{}

func (nopObserver) OnMutationStart(ctx context.Context, _ Operation) context.Context { return ctx }
func (nopObserver) OnMutationComplete(context.Context, Operation, bool, string, error) {}
func (nopObserver) OnDispatch(context.Context, bus.Kind)                               {}

type config struct {
	live         bool
	logger       *slog.Logger
	panicHandler bus.PanicHandler
	observer     Observer
}

func defaultConfig() *config {
	return &config{
		live:     true,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: nopObserver{},
	}
}

// Option configures a Store.
type Option func(*config)

// WithLive toggles change detection and freezing.
//
// Default: true. A non-live store publishes writable snapshots and skips
// the equality check, so every SetState and ResetState dispatches update.
func WithLive(live bool) Option {
	return func(c *config) {
		c.live = live
	}
}

// WithLogger sets the structured logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPanicHandler recovers listener panics instead of propagating them.
// See bus.WithPanicHandler.
func WithPanicHandler(h bus.PanicHandler) Option {
	return func(c *config) {
		c.panicHandler = h
	}
}

// WithObserver attaches lifecycle hooks, typically telemetry.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observer = o
		}
	}
}
