package store

import "sync/atomic"

// Sequencer issues dispatch sequence numbers. Implemented by Clock.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is a monotonic logical clock for dispatch ordering.
//
// Every dispatch is stamped with a strictly increasing seq so that a recorded
// session replays in exactly the order it happened, regardless of wall time.
//
// Thread-safety: Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used to continue a journaled session.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Reset rewinds the clock to 0, so a rerun on the same clock stamps the same
// seq values.
func (c *Clock) Reset() {
	c.seq.Store(0)
}
