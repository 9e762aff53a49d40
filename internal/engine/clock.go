package engine

import "sync/atomic"

// Clock hands out scan sequence numbers. Every successful grid read gets the next number,
// so journal rows, notifications and logs of one run share a single monotonic ordering that
// does not depend on wall time.
//
// Only the Run loop advances the clock; readers may call Current from any goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock whose first Next is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt returns a clock resuming after start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances and returns the new sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last number handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
