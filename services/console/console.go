// Package console tees log lines onto the framebuffer through a tinyterm
// terminal. The terminal is redrawn by a periodic task, not on every line.
package console

import (
	"sync/atomic"

	"rvcore/core/task"
	"rvcore/hal"
	"rvcore/services/display"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

const (
	fontHeight = 10
	fontOffset = 6
)

// Console is a hal.Logger. Lines go to next and, when a display is
// present, to the terminal.
//
// It is not safe for use from more than one hart.
type Console struct {
	next hal.Logger
	d    *display.FB
	t    *tinyterm.Terminal

	dirty   atomic.Bool
	lines   atomic.Uint64
	flushes atomic.Uint64
}

// New returns a console writing to next and to d. d may be nil.
func New(next hal.Logger, d *display.FB) *Console {
	c := &Console{next: next, d: d}
	if d != nil {
		if w, h := d.Size(); w > 0 && h >= fontHeight {
			c.reset()
		}
	}
	return c
}

func (c *Console) reset() {
	c.t = tinyterm.NewTerminal(c.d)
	c.t.Configure(&tinyterm.Config{
		Font:              &proggy.TinySZ8pt7b,
		FontHeight:        fontHeight,
		FontOffset:        fontOffset,
		UseSoftwareScroll: true,
	})
}

func (c *Console) WriteLineString(s string) {
	if c.next != nil {
		c.next.WriteLineString(s)
	}
	c.put([]byte(s))
}

func (c *Console) WriteLineBytes(b []byte) {
	if c.next != nil {
		c.next.WriteLineBytes(b)
	}
	c.put(b)
}

func (c *Console) put(b []byte) {
	c.lines.Add(1)
	if c.t == nil {
		return
	}
	c.t.Write(b)
	c.t.Write([]byte("\r\n"))
	c.dirty.Store(true)
}

// Flush redraws the terminal if anything was written since the last flush.
func (c *Console) Flush() {
	if c.t == nil || !c.dirty.Swap(false) {
		return
	}
	c.t.Display()
	c.flushes.Add(1)
}

// Lines returns the number of lines logged.
func (c *Console) Lines() uint64 { return c.lines.Load() }

// Task returns a task that flushes the console after every wait until
// stop reports true. wait is usually rt.WaitTicks.
func (c *Console) Task(period uint64, wait func(uint64) task.Future, stop func() bool) task.Future {
	return task.Repeat(
		func() task.Future { return wait(period) },
		func() bool {
			c.Flush()
			return !stop()
		},
	)
}
