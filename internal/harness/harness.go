package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/statebox/internal/bus"
	"github.com/roach88/statebox/internal/ir"
	"github.com/roach88/statebox/internal/journal"
	"github.com/roach88/statebox/internal/statefile"
	"github.com/roach88/statebox/internal/store"
	"github.com/roach88/statebox/internal/testutil"
)

// Harness is the scenario execution engine.
// It drives one store with a deterministic clock and session.
type Harness struct {
	store    *store.Store[map[string]any]
	journal  *journal.Journal
	recorder *journal.Recorder
	clock    *journal.Clock
	logger   *slog.Logger
	result   *Result

	subs map[string]*bus.Subscription
	step int
}

const memoryDB = ":memory:"

// RunOption configures Run.
type RunOption func(*runConfig)

type runConfig struct {
	logger   *slog.Logger
	dbPath   string
	observer store.Observer
}

// WithLogger sets the logger for the store and the journal recorder.
// Defaults to discarding all output.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithJournalPath records the run to a SQLite file instead of an in-memory
// database.
func WithJournalPath(path string) RunOption {
	return func(c *runConfig) {
		c.dbPath = path
	}
}

// WithObserver attaches store lifecycle hooks, such as a telemetry observer.
func WithObserver(o store.Observer) RunOption {
	return func(c *runConfig) {
		c.observer = o
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh store and, unless WithJournalPath is
// given, a fresh in-memory journal. Deterministic helpers ensure
// reproducible traces.
//
// Execution flow:
// 1. Load the initial state
// 2. Create the store and attach the journal recorder
// 3. Register top-level subscribers
// 4. Execute steps, checking expected rejections
// 5. Evaluate assertions
//
// A returned error means the scenario could not be executed at all;
// behavioral failures are reported through Result.Errors.
func Run(scenario *Scenario, opts ...RunOption) (*Result, error) {
	cfg := &runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		dbPath: memoryDB,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	initial, err := loadInitial(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial state: %w", err)
	}

	storeOpts := []store.Option{
		store.WithLive(scenario.IsLive()),
		store.WithLogger(cfg.logger),
	}
	if cfg.observer != nil {
		storeOpts = append(storeOpts, store.WithObserver(cfg.observer))
	}
	st, err := store.NewFromSnapshot[map[string]any](initial, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	j, err := journal.Open(cfg.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer j.Close()

	ctx := context.Background()
	recOpts := []journal.RecorderOption{
		journal.WithLabel(scenario.Name),
		journal.WithLogger(cfg.logger),
	}
	// A persistent journal outlives the run: without an explicit session
	// each run gets a fresh UUIDv7 one. Sequence numbers always resume
	// after the last recorded row, which is 0 for a fresh journal.
	if cfg.dbPath == memoryDB || scenario.Session != "" {
		recOpts = append(recOpts, journal.WithSessionGenerator(testutil.NewFixedSessionGenerator(scenario.Session)))
	}
	rec := journal.NewRecorder(ctx, j, recOpts...)
	if err := rec.Attach(st); err != nil {
		return nil, fmt.Errorf("failed to attach recorder: %w", err)
	}
	defer rec.Detach()

	h := &Harness{
		store:    st,
		journal:  j,
		recorder: rec,
		clock:    journal.NewClock(),
		logger:   cfg.logger,
		result:   NewResult(),
		subs:     make(map[string]*bus.Subscription),
	}
	h.result.Session = rec.Session()

	for _, sub := range scenario.Subscribers {
		if err := h.subscribe(sub); err != nil {
			return nil, fmt.Errorf("failed to subscribe %q: %w", sub.ID, err)
		}
	}

	for i, step := range scenario.Steps {
		h.step = i + 1
		if err := h.execute(step); err != nil {
			return nil, fmt.Errorf("step %d: %w", h.step, err)
		}
	}

	h.result.FinalID = st.ID()

	if err := rec.Err(); err != nil {
		h.result.AddError(fmt.Sprintf("journal: %v", err))
	}

	actx := &AssertionContext{
		Store:   st,
		Journal: j,
		Session: rec.Session(),
		Ctx:     ctx,
	}
	for _, errMsg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(errMsg)
	}

	return h.result, nil
}

func loadInitial(scenario *Scenario) (*ir.Object, error) {
	if scenario.InitialFile != "" {
		return statefile.Load(scenario.InitialFile)
	}
	v, err := statefile.FromYAML(scenario.Initial)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*ir.Object)
	if !ok {
		return nil, fmt.Errorf("initial state must be an object, got %s", ir.KindOf(v))
	}
	return obj, nil
}

// execute runs one step. Store rejections are scenario outcomes, not
// execution errors.
func (h *Harness) execute(step Step) error {
	switch {
	case step.Set != nil:
		h.set(step)
	case step.Reset:
		if err := h.store.ResetState(); err != nil {
			h.result.AddError(fmt.Sprintf("step %d: reset failed: %v", h.step, err))
		}
	case step.Subscribe != nil:
		return h.subscribe(*step.Subscribe)
	case step.Unsubscribe != "":
		sub, ok := h.subs[step.Unsubscribe]
		if !ok {
			return fmt.Errorf("unknown subscriber %q", step.Unsubscribe)
		}
		sub.Remove()
		delete(h.subs, step.Unsubscribe)
	default:
		return fmt.Errorf("empty step")
	}

	h.logger.Info("step completed", "step", h.step, "id", h.store.ID())
	return nil
}

func (h *Harness) set(step Step) {
	err := h.store.SetState(store.Partial(step.Set))
	if err != nil {
		h.result.AddRejectedTrace(h.step, errorCode(err), h.clock.Next())
	}

	switch {
	case err == nil && step.ExpectError != "":
		h.result.AddError(fmt.Sprintf("step %d: expected %s error, set succeeded", h.step, step.ExpectError))
	case err != nil && step.ExpectError == "":
		h.result.AddError(fmt.Sprintf("step %d: set failed: %v", h.step, err))
	case err != nil && !matchesExpectedError(err, step.ExpectError):
		h.result.AddError(fmt.Sprintf("step %d: expected %s error, got: %v", h.step, step.ExpectError, err))
	}
}

func (h *Harness) subscribe(sub Subscriber) error {
	if _, exists := h.subs[sub.ID]; exists {
		return fmt.Errorf("duplicate subscriber id %q", sub.ID)
	}
	id := sub.ID
	s, err := h.store.Watch(sub.Kind, func(ev store.Event) {
		h.result.AddDispatchTrace(h.step, id, ev.Kind.String(), ev.ID, ev.PrevID, h.clock.Next())
	})
	if err != nil {
		return err
	}
	h.subs[id] = s
	return nil
}

func matchesExpectedError(err error, expected string) bool {
	switch expected {
	case ExpectShapeError:
		return store.IsShapeError(err)
	case ExpectValueError:
		return store.IsValueError(err)
	}
	return false
}

// errorCode extracts the store error code for the trace.
func errorCode(err error) string {
	switch {
	case store.IsShapeError(err):
		return string(store.ErrCodeUnknownKey)
	case store.IsValueError(err):
		return string(store.ErrCodeInvalidValue)
	}
	return "UNKNOWN"
}
