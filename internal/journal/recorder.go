package journal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/statebox/internal/bus"
	"github.com/roach88/statebox/internal/store"
)

// Watcher is the part of store.Store the recorder needs. Every Store[T]
// satisfies it.
type Watcher interface {
	Watch(kind bus.Kind, fn func(store.Event)) (*bus.Subscription, error)
	ID() string
}

// Recorder appends every dispatch of one store to a journal session.
//
// Recording never interrupts the store: a failed append is logged and the
// first failure is kept for Err, and later dispatches are still attempted.
//
// Thread-safety: Record may be called from concurrent dispatches; entries
// are stamped and written one at a time.
type Recorder struct {
	journal *Journal
	ctx     context.Context
	logger  *slog.Logger
	gen     SessionGenerator
	clock   Sequencer
	session string
	label   string

	mu       sync.Mutex
	err      error
	recorded int
	sub      *bus.Subscription
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithSession records into an existing or caller-chosen session id.
// Resuming an existing session continues after its last seq.
func WithSession(id string) RecorderOption {
	return func(r *Recorder) {
		r.session = id
	}
}

// WithSessionGenerator sets the generator used when no session id is given.
// Default: UUIDv7Generator.
func WithSessionGenerator(g SessionGenerator) RecorderOption {
	return func(r *Recorder) {
		r.gen = g
	}
}

// WithSequencer sets the clock that stamps entries.
// Default: a Clock resumed from the session's last seq.
func WithSequencer(s Sequencer) RecorderOption {
	return func(r *Recorder) {
		r.clock = s
	}
}

// WithLabel sets a human-readable label stored with the session.
func WithLabel(label string) RecorderOption {
	return func(r *Recorder) {
		r.label = label
	}
}

// WithLogger sets the structured logger. Default: discard.
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRecorder creates a recorder writing to j. ctx bounds every write.
func NewRecorder(ctx context.Context, j *Journal, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		journal: j,
		ctx:     ctx,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		gen:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.session == "" {
		r.session = r.gen.Generate()
	}
	return r
}

// Session returns the session id entries are written under.
func (r *Recorder) Session() string {
	return r.session
}

// Attach registers the session and subscribes to every dispatch of w.
func (r *Recorder) Attach(w Watcher) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub != nil {
		return fmt.Errorf("attach: recorder already attached to session %s", r.session)
	}

	if err := r.journal.BeginSession(r.ctx, r.session, r.label, w.ID()); err != nil {
		return fmt.Errorf("attach: %w", err)
	}

	if r.clock == nil {
		last, err := r.journal.LastSeq(r.ctx, r.session)
		if err != nil {
			return fmt.Errorf("attach: %w", err)
		}
		r.clock = NewClockAt(last)
	}

	sub, err := w.Watch(bus.KindAll, r.Record)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	r.sub = sub
	r.logger.Debug("journal attached", "session", r.session)
	return nil
}

// Detach stops recording. Safe to call more than once.
func (r *Recorder) Detach() {
	r.mu.Lock()
	sub := r.sub
	r.mu.Unlock()
	if sub != nil {
		sub.Remove()
	}
}

// Record appends one dispatch. It is the Watch handler installed by Attach.
func (r *Recorder) Record(ev store.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.clock.Next()
	err := r.journal.Append(r.ctx, Entry{
		Session:         r.session,
		Seq:             seq,
		Kind:            ev.Kind,
		Fingerprint:     ev.ID,
		PrevFingerprint: ev.PrevID,
		State:           ev.Next,
	})
	if err != nil {
		r.logger.Error("journal append failed", "session", r.session, "seq", seq, "kind", ev.Kind, "error", err)
		if r.err == nil {
			r.err = err
		}
		return
	}
	r.recorded++
	r.logger.Debug("journalled", "session", r.session, "seq", seq, "kind", ev.Kind, "id", ev.ID)
}

// Recorded returns the number of entries successfully written.
func (r *Recorder) Recorded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recorded
}

// Err returns the first append failure, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
