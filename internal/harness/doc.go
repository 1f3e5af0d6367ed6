// Package harness runs store conformance scenarios.
//
// A scenario seeds a store, drives it through SetState, ResetState and
// subscription changes, and asserts on what every subscriber saw, the
// final state and the dispatch journal.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: counter
//	description: "Counter reaches 4 with a reproducible id"
//	initial:                   # or initial_file: state.cue
//	  counter: 0
//	  foo: foo
//	live: true                 # default
//	session: test-session-counter
//	subscribers:
//	  - id: everything
//	    kind: all
//	steps:
//	  - set: { counter: 1 }
//	  - set: { counter: 1 }    # no-op, dispatches dumpUpdate
//	  - set: { missing: 1 }
//	    expect_error: shape
//	  - reset: true
//	  - subscribe: { id: late, kind: init }
//	  - unsubscribe: late
//	assertions:
//	  - type: fingerprint
//	    id: 5035931e61d7c23a
//	  - type: event_count
//	    subscriber: everything
//	    kind: update
//	    count: 2
//
// # Assertion Types
//
//   - state_equals: the final state equals expect exactly
//   - field_equals: the value at a dotted path (array indices allowed) equals value
//   - event_count: a subscriber received count events, optionally of one kind
//   - fingerprint: the final store id equals id
//   - kind_order: a subscriber received exactly the listed kinds, in order
//   - journal_count: the journal recorded count rows, optionally of one kind
//
// # Deterministic Testing
//
// Every run uses a fixed journal session (scenario.session, or
// "test-session-default"), logical clocks starting at 0 for trace and
// journal sequence numbers, and an in-memory SQLite journal. The same
// scenario always yields a byte-identical trace, which RunWithGolden
// compares against testdata/golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/counter.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
