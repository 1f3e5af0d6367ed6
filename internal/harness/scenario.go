package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/statebox/internal/bus"
)

// Scenario defines a store conformance scenario.
// A scenario seeds a store, drives it through a list of steps and asserts
// on the recorded trace, the final state and the dispatch journal.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Initial is the inline initial state.
	Initial map[string]any `yaml:"initial,omitempty"`

	// InitialFile points at a .json, .yaml, .yml or .cue state file.
	// Relative paths are resolved against the scenario file location.
	// Exactly one of Initial and InitialFile must be set.
	InitialFile string `yaml:"initial_file,omitempty"`

	// Live toggles snapshot freezing and no-op detection. Defaults to true.
	Live *bool `yaml:"live,omitempty"`

	// Session is the fixed journal session id.
	// If empty, defaults to "test-session-default" for deterministic golden file comparison.
	Session string `yaml:"session,omitempty"`

	// Subscribers are registered before the first step.
	Subscribers []Subscriber `yaml:"subscribers,omitempty"`

	// Steps drive the store in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace, state and journal.
	Assertions []Assertion `yaml:"assertions"`
}

// Subscriber names a listener whose deliveries are traced.
type Subscriber struct {
	ID   string   `yaml:"id"`
	Kind bus.Kind `yaml:"kind"`
}

// Step is a single store operation. Exactly one of Set, Reset, Subscribe
// and Unsubscribe is used.
type Step struct {
	// Set calls SetState with this partial. An empty map is a valid no-op.
	Set map[string]any `yaml:"set,omitempty"`

	// ExpectError declares that Set must be rejected: "shape" or "value".
	ExpectError string `yaml:"expect_error,omitempty"`

	// Reset calls ResetState.
	Reset bool `yaml:"reset,omitempty"`

	// Subscribe registers another traced listener.
	Subscribe *Subscriber `yaml:"subscribe,omitempty"`

	// Unsubscribe removes the listener with this id.
	Unsubscribe string `yaml:"unsubscribe,omitempty"`
}

// Expected error classes for Step.ExpectError.
const (
	ExpectShapeError = "shape"
	ExpectValueError = "value"
)

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type specifies the assertion type:
	// - "state_equals": final state equals Expect exactly
	// - "field_equals": value at Path equals Value
	// - "event_count": Subscriber received Count events, optionally of Kind
	// - "fingerprint": final store ID equals ID
	// - "kind_order": Subscriber received exactly Kinds, in order
	// - "journal_count": the journal holds Count rows, optionally of Kind
	Type string `yaml:"type"`

	// Expect is the full expected state (used by state_equals).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Path is a dotted path into the state (used by field_equals).
	Path string `yaml:"path,omitempty"`

	// Value is the expected value at Path (used by field_equals).
	// A missing value means null.
	Value any `yaml:"value,omitempty"`

	// Subscriber is the listener id (used by event_count and kind_order).
	Subscriber string `yaml:"subscriber,omitempty"`

	// Kind filters counted events; unset counts every kind
	// (used by event_count and journal_count).
	Kind bus.Kind `yaml:"kind,omitempty"`

	// Kinds is the expected delivery sequence (used by kind_order).
	Kinds []bus.Kind `yaml:"kinds,omitempty"`

	// Count is the expected number of events or rows.
	Count int `yaml:"count,omitempty"`

	// ID is the expected fingerprint (used by fingerprint).
	ID string `yaml:"id,omitempty"`
}

// Assertion type constants.
const (
	AssertStateEquals  = "state_equals"
	AssertFieldEquals  = "field_equals"
	AssertEventCount   = "event_count"
	AssertFingerprint  = "fingerprint"
	AssertKindOrder    = "kind_order"
	AssertJournalCount = "journal_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
//
// A relative initial_file is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving initial_file relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve before validation so the existence check sees the real path
	if scenario.InitialFile != "" && !filepath.IsAbs(scenario.InitialFile) && basePath != "" {
		scenario.InitialFile = filepath.Join(basePath, scenario.InitialFile)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

// ParseScenario decodes scenario YAML without validating it.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// IsLive reports whether the scenario runs a live store.
func (s *Scenario) IsLive() bool {
	return s.Live == nil || *s.Live
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Initial == nil && s.InitialFile == "":
		return fmt.Errorf("one of initial or initial_file is required")
	case s.Initial != nil && s.InitialFile != "":
		return fmt.Errorf("initial and initial_file are mutually exclusive")
	}

	if s.InitialFile != "" {
		if _, err := os.Stat(s.InitialFile); os.IsNotExist(err) {
			return fmt.Errorf("initial file not found: %s", s.InitialFile)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	seen := make(map[string]bool)
	for i, sub := range s.Subscribers {
		if err := validateSubscriber(sub, seen); err != nil {
			return fmt.Errorf("subscribers[%d]: %w", i, err)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(step, seen); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateSubscriber(sub Subscriber, seen map[string]bool) error {
	if sub.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !sub.Kind.Valid() {
		return fmt.Errorf("kind is required")
	}
	if seen[sub.ID] {
		return fmt.Errorf("duplicate subscriber id %q", sub.ID)
	}
	seen[sub.ID] = true
	return nil
}

// validateStep checks that exactly one operation is set.
func validateStep(step Step, seen map[string]bool) error {
	ops := 0
	if step.Set != nil {
		ops++
	}
	if step.Reset {
		ops++
	}
	if step.Subscribe != nil {
		ops++
	}
	if step.Unsubscribe != "" {
		ops++
	}
	if ops != 1 {
		return fmt.Errorf("exactly one of set, reset, subscribe, unsubscribe is required (got %d)", ops)
	}

	switch step.ExpectError {
	case "":
	case ExpectShapeError, ExpectValueError:
		if step.Set == nil {
			return fmt.Errorf("expect_error is only valid with set")
		}
	default:
		return fmt.Errorf("unknown expect_error %q (want %q or %q)", step.ExpectError, ExpectShapeError, ExpectValueError)
	}

	if step.Subscribe != nil {
		return validateSubscriber(*step.Subscribe, seen)
	}
	if step.Unsubscribe != "" && !seen[step.Unsubscribe] {
		return fmt.Errorf("unsubscribe: unknown subscriber %q", step.Unsubscribe)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStateEquals:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for state_equals", index)
		}
	case AssertFieldEquals:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for field_equals", index)
		}
	case AssertEventCount:
		if a.Subscriber == "" {
			return fmt.Errorf("assertions[%d]: subscriber is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertFingerprint:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for fingerprint", index)
		}
	case AssertKindOrder:
		if a.Subscriber == "" {
			return fmt.Errorf("assertions[%d]: subscriber is required for kind_order", index)
		}
	case AssertJournalCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for journal_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
