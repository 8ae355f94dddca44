// Package monitor renders runtime counters to a status band on the display
// and to the log at a fixed tick period.
package monitor

import (
	"fmt"
	"image/color"
	"sync/atomic"

	"rvcore/core/rt"
	"rvcore/core/task"
	"rvcore/hal"
	"rvcore/services/display"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// Height is the height in pixels of the status band.
const Height = 12

var (
	bg = color.RGBA{R: 0x10, G: 0x20, B: 0x40, A: 0xFF}
	fg = color.RGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF}
)

// Monitor samples runtime statistics. Render is separate from sampling so
// it can be driven from tests without a runtime.
type Monitor struct {
	d      *display.FB
	log    hal.Logger
	sample func() rt.Stats

	stop   atomic.Bool
	frames atomic.Uint64
	last   rt.Stats
}

// New returns a monitor drawing to d (may be nil) and logging to log (may
// be nil). sample is usually rt.ReadStats.
func New(d *display.FB, log hal.Logger, sample func() rt.Stats) *Monitor {
	return &Monitor{d: d, log: log, sample: sample}
}

// Stop makes the monitor task finish after its current wait.
func (m *Monitor) Stop() { m.stop.Store(true) }

// Stopped reports whether Stop was called.
func (m *Monitor) Stopped() bool { return m.stop.Load() }

// Frames returns the number of samples taken.
func (m *Monitor) Frames() uint64 { return m.frames.Load() }

// Last returns the most recent sample.
func (m *Monitor) Last() rt.Stats { return m.last }

// Line formats st as one status line.
func Line(st rt.Stats) string {
	return fmt.Sprintf("h%d t=%d tmr=%d/%d task=%d/%d thr=%d",
		st.Hart, st.Now,
		st.TimerQueued, st.TimerFired,
		st.Tasks.Completed, st.Tasks.Spawned,
		st.Threads)
}

// Sample takes one sample, logs it and draws it.
func (m *Monitor) Sample() {
	st := m.sample()
	m.last = st
	m.frames.Add(1)
	line := Line(st)
	if m.log != nil {
		m.log.WriteLineString("monitor: " + line)
	}
	m.Render(line)
}

// Render draws line into the status band.
func (m *Monitor) Render(line string) {
	if m.d == nil {
		return
	}
	w, h := m.d.Size()
	if w <= 0 || h <= 0 {
		return
	}
	m.d.FillRectangle(0, 0, w, h, bg)
	tinyfont.WriteLine(m.d, &proggy.TinySZ8pt7b, 2, h-3, line, fg)
	m.d.Display()
}

// Task returns a task that samples every period ticks until Stop.
func (m *Monitor) Task(period uint64, wait func(uint64) task.Future) task.Future {
	return task.Repeat(
		func() task.Future { return wait(period) },
		func() bool {
			m.Sample()
			return !m.Stopped()
		},
	)
}
