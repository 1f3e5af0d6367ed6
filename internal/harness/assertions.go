package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/statebox/internal/bus"
	"github.com/roach88/statebox/internal/ir"
	"github.com/roach88/statebox/internal/journal"
	"github.com/roach88/statebox/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			if event.Type == EventDispatch {
				fmt.Fprintf(&buf, "  [%d] step %d %s <- %s %s\n", event.Seq, event.Step, event.Subscriber, event.Kind, event.ID)
			} else {
				fmt.Fprintf(&buf, "  [%d] step %d rejected %s\n", event.Seq, event.Step, event.Error)
			}
		}
	}

	return buf.String()
}

// AssertionContext provides the store and journal for assertions that
// inspect final state.
type AssertionContext struct {
	Store   *store.Store[map[string]any]
	Journal *journal.Journal
	Session string
	Ctx     context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertEventCount:
			err = assertEventCount(result.Trace, assertion)
		case AssertKindOrder:
			err = assertKindOrder(result.Trace, assertion)
		case AssertStateEquals, AssertFieldEquals, AssertFingerprint:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a store", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertStateEquals:
				err = assertStateEquals(actx.Store, assertion)
			case AssertFieldEquals:
				err = assertFieldEquals(actx.Store, assertion)
			default:
				err = assertFingerprint(actx.Store, assertion)
			}
		case AssertJournalCount:
			if actx == nil || actx.Journal == nil {
				err = fmt.Errorf("assertion[%d]: journal_count requires a journal", i)
			} else {
				err = assertJournalCount(actx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertStateEquals checks the whole final state against Expect.
func assertStateEquals(st *store.Store[map[string]any], assertion Assertion) error {
	expected, err := ir.FromGo(assertion.Expect)
	if err != nil {
		return fmt.Errorf("state_equals: expected value: %w", err)
	}

	actual := st.Snapshot()
	if !ir.Equal(expected, actual) {
		return &AssertionError{
			Type:     AssertStateEquals,
			Expected: canonicalString(expected),
			Actual:   canonicalString(actual),
		}
	}
	return nil
}

// assertFieldEquals checks one value addressed by a dotted path.
func assertFieldEquals(st *store.Store[map[string]any], assertion Assertion) error {
	expected, err := ir.FromGo(assertion.Value)
	if err != nil {
		return fmt.Errorf("field_equals: expected value: %w", err)
	}

	actual, ok := ir.Lookup(st.Snapshot(), assertion.Path)
	if !ok {
		return &AssertionError{
			Type:     AssertFieldEquals,
			Expected: fmt.Sprintf("%s = %s", assertion.Path, canonicalString(expected)),
			Actual:   fmt.Sprintf("path %s not found", assertion.Path),
		}
	}
	if !ir.Equal(expected, actual) {
		return &AssertionError{
			Type:     AssertFieldEquals,
			Expected: fmt.Sprintf("%s = %s", assertion.Path, canonicalString(expected)),
			Actual:   fmt.Sprintf("%s = %s", assertion.Path, canonicalString(actual)),
		}
	}
	return nil
}

// assertEventCount counts deliveries to one subscriber.
func assertEventCount(trace []TraceEvent, assertion Assertion) error {
	count := len(deliveries(trace, assertion.Subscriber, assertion.Kind))
	if count != assertion.Count {
		what := "events"
		if assertion.Kind.Valid() && assertion.Kind != bus.KindAll {
			what = assertion.Kind.String() + " events"
		}
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s for %s", assertion.Count, what, assertion.Subscriber),
			Actual:   fmt.Sprintf("%d %s", count, what),
			Trace:    trace,
		}
	}
	return nil
}

// assertKindOrder checks the exact sequence of kinds one subscriber saw.
func assertKindOrder(trace []TraceEvent, assertion Assertion) error {
	got := deliveries(trace, assertion.Subscriber, 0)
	want := make([]string, len(assertion.Kinds))
	for i, k := range assertion.Kinds {
		want[i] = k.String()
	}

	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertKindOrder,
			Expected: fmt.Sprintf("%s saw %v", assertion.Subscriber, want),
			Actual:   fmt.Sprintf("%s saw %v", assertion.Subscriber, got),
			Trace:    trace,
		}
	}
	return nil
}

// assertFingerprint checks the final store ID.
func assertFingerprint(st *store.Store[map[string]any], assertion Assertion) error {
	if id := st.ID(); id != assertion.ID {
		return &AssertionError{
			Type:     AssertFingerprint,
			Expected: assertion.ID,
			Actual:   id,
		}
	}
	return nil
}

// assertJournalCount counts journal rows for the run's session.
func assertJournalCount(actx *AssertionContext, assertion Assertion) error {
	kind := assertion.Kind
	if !kind.Valid() {
		kind = bus.KindAll
	}

	n, err := actx.Journal.Count(actx.Ctx, actx.Session, kind)
	if err != nil {
		return &AssertionError{
			Type:     AssertJournalCount,
			Expected: fmt.Sprintf("count %s rows", kind),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	if n != assertion.Count {
		return &AssertionError{
			Type:     AssertJournalCount,
			Expected: fmt.Sprintf("%d %s rows", assertion.Count, kind),
			Actual:   fmt.Sprintf("%d rows", n),
		}
	}
	return nil
}

// deliveries returns the kinds delivered to subscriber, optionally
// filtered to one kind.
func deliveries(trace []TraceEvent, subscriber string, kind bus.Kind) []string {
	out := []string{}
	for _, event := range trace {
		if event.Type != EventDispatch || event.Subscriber != subscriber {
			continue
		}
		if kind.Valid() && kind != bus.KindAll && event.Kind != kind.String() {
			continue
		}
		out = append(out, event.Kind)
	}
	return out
}

func canonicalString(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
