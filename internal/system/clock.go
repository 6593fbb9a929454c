package system

import "time"

// Clock is the simulation tick counter shared by the per-tick systems. Only
// the simulation goroutine touches it; consumers learn the tick through the
// tick channel.
type Clock struct {
	tick    uint32
	started time.Time
}

func NewClock() *Clock { return &Clock{} }

// Tick returns the current tick. It is 0 before the first advance.
func (c *Clock) Tick() uint32 { return c.tick }

func (c *Clock) advance(now time.Time) uint32 {
	c.tick++
	c.started = now
	return c.tick
}

// Elapsed is the wall time since the current tick began.
func (c *Clock) Elapsed(now time.Time) time.Duration {
	if c.started.IsZero() {
		return 0
	}
	return now.Sub(c.started)
}
