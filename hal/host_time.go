//go:build !tinygo

package hal

import "time"

// realClock turns wall-clock time into whole timer ticks, carrying the
// remainder so that slow frames do not lose time.
type realClock struct {
	tick time.Duration
	last time.Time
	acc  time.Duration
}

func newRealClock(hz int) *realClock {
	if hz <= 0 {
		hz = 1000
	}
	d := time.Second / time.Duration(hz)
	if d <= 0 {
		d = time.Nanosecond
	}
	return &realClock{tick: d}
}

// elapsed returns the ticks that passed between the previous call and now.
// The first call returns zero.
func (c *realClock) elapsed(now time.Time) uint64 {
	if c.last.IsZero() {
		c.last = now
		return 0
	}
	if now.After(c.last) {
		c.acc += now.Sub(c.last)
	}
	c.last = now

	n := uint64(c.acc / c.tick)
	c.acc %= c.tick
	return n
}
