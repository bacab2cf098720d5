package engine

import "sync/atomic"

// Sequencer hands out strictly increasing logical sequence numbers.
// Implemented by Clock (production) and testutil.DeterministicClock (tests).
type Sequencer interface {
	Next() int64
}

// Clock is a monotonic logical clock. Runs and construction events are
// stamped with its seq, never with wall-clock time, so a trace orders the
// same way every time it is read back.
//
// Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start. Used when appending
// runs to an existing store.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
