package journal

import "sync/atomic"

// Sequencer stamps journal entries. Implemented by Clock.
type Sequencer interface {
	Next() int64
}

// Clock is a monotonic logical clock for entry ordering.
//
// All entries are stamped with a strictly increasing seq number from this
// clock, never with wall-clock time, so two runs of the same scenario
// produce identical journals.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used to resume a session from its last recorded seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
