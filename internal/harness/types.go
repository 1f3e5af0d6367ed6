package harness

// Trace event types.
const (
	// EventDispatch records one listener invocation.
	EventDispatch = "dispatch"

	// EventRejected records a SetState the store refused.
	EventRejected = "rejected"
)

// TraceEvent is one entry of a scenario trace.
//
// Dispatch events are recorded per subscriber, in the order the listeners
// ran. Rejected events carry the store error code instead of a kind.
type TraceEvent struct {
	Type       string `json:"type"` // "dispatch" or "rejected"
	Seq        int64  `json:"seq"`
	Step       int    `json:"step"` // 0 for top-level subscribers, then 1-based
	Subscriber string `json:"subscriber,omitempty"`
	Kind       string `json:"kind,omitempty"`
	ID         string `json:"id,omitempty"`
	PrevID     string `json:"prev_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step behaved as declared and all assertions held.
	Pass bool `json:"pass"`

	// Trace contains every listener invocation and rejection in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// FinalID is the store fingerprint after the last step.
	FinalID string `json:"final_id"`

	// Session is the journal session the run was recorded under.
	Session string `json:"session"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddDispatchTrace adds one listener invocation to the trace.
func (r *Result) AddDispatchTrace(step int, subscriber, kind, id, prevID string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       EventDispatch,
		Seq:        seq,
		Step:       step,
		Subscriber: subscriber,
		Kind:       kind,
		ID:         id,
		PrevID:     prevID,
	})
}

// AddRejectedTrace adds a rejected mutation to the trace.
func (r *Result) AddRejectedTrace(step int, code string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:  EventRejected,
		Seq:   seq,
		Step:  step,
		Error: code,
	})
}
