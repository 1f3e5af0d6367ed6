package testutil

import "sync"

// FixedSessionGenerator generates the same session id every time.
//
// This enables deterministic test execution and golden trace comparison.
// The same scenario with the same FixedSessionGenerator produces
// byte-identical journals.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a new fixed session id generator.
//
// The id is typically set in the scenario YAML:
//
//	session: "test-session-counter"
//
// If id is empty, Generate() returns "test-session-default".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed session id.
//
// Implements journal.SessionGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}

// SequenceSessionGenerator returns predetermined session ids in order.
//
// Thread-safety: SequenceSessionGenerator is safe for concurrent use via
// internal mutex.
type SequenceSessionGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewSequenceSessionGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewSequenceSessionGenerator("s-1", "s-2")
//	gen.Generate() // "s-1"
//	gen.Generate() // "s-2"
//	gen.Generate() // panic: all session ids exhausted
func NewSequenceSessionGenerator(ids ...string) *SequenceSessionGenerator {
	return &SequenceSessionGenerator{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics if all ids have been consumed, to catch a test that opens more
// sessions than it declared.
func (g *SequenceSessionGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("SequenceSessionGenerator: all session ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
