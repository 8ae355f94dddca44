package console

import (
	"testing"

	"rvcore/core/task"
	"rvcore/hal"
	"rvcore/services/display"
)

type memFB struct {
	w, h    int
	buf     []byte
	present int
}

func (f *memFB) Width() int              { return f.w }
func (f *memFB) Height() int             { return f.h }
func (f *memFB) Format() hal.PixelFormat { return hal.PixelFormatRGB565 }
func (f *memFB) StrideBytes() int        { return f.w * 2 }
func (f *memFB) Buffer() []byte          { return f.buf }
func (f *memFB) ClearRGB(r, g, b uint8)  {}
func (f *memFB) Present() error          { f.present++; return nil }

func TestConsoleForwardsAndFlushesOnce(t *testing.T) {
	fb := &memFB{w: 160, h: 80, buf: make([]byte, 160*80*2)}
	var mem hal.MemLogger
	c := New(&mem, display.New(fb))

	c.WriteLineString("hello")
	c.WriteLineBytes([]byte("world"))

	if got := mem.Lines(); len(got) != 2 || got[0] != "hello" || got[1] != "world" {
		t.Fatalf("forwarded lines = %q, want [hello world]", got)
	}
	c.Flush()
	c.Flush()
	if fb.present != 1 {
		t.Fatalf("Present() calls = %d, want 1", fb.present)
	}
	if c.Lines() != 2 {
		t.Fatalf("Lines() = %d, want 2", c.Lines())
	}
}

func TestConsoleWithoutDisplay(t *testing.T) {
	var mem hal.MemLogger
	c := New(&mem, nil)
	c.WriteLineString("only log")
	c.Flush()
	if got := mem.Lines(); len(got) != 1 {
		t.Fatalf("forwarded lines = %q, want 1 line", got)
	}
}

type readyNow struct{}

func (readyNow) Poll(*task.Context) task.Poll { return task.Ready }

func TestConsoleTaskStops(t *testing.T) {
	var mem hal.MemLogger
	c := New(&mem, nil)
	rounds := 0
	f := c.Task(1, func(uint64) task.Future { return readyNow{} }, func() bool {
		rounds++
		return rounds == 3
	})
	if got := f.Poll(nil); got != task.Ready {
		t.Fatalf("Poll() = %v, want ready", got)
	}
	if rounds != 3 {
		t.Fatalf("rounds = %d, want 3", rounds)
	}
}
