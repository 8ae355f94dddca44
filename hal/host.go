//go:build !tinygo

package hal

import (
	"fmt"
	"os"
	"sync"
)

// DefaultHeapBytes bounds thread stacks and control blocks on the host.
const DefaultHeapBytes = 1 << 20

type hostPlatform struct {
	logger *hostLogger
	fb     *hostFramebuffer
	sim    *Sim
	heap   *BudgetHeap
}

// New returns a host platform: stdout log, a 320x240 framebuffer and a
// simulated hart whose timer is driven in real time by Tick.
func New() Platform {
	return newHost(SimConfig{Realtime: true}, DefaultHeapBytes)
}

func newHost(cfg SimConfig, heapBytes uintptr) *hostPlatform {
	return &hostPlatform{
		logger: &hostLogger{w: os.Stdout},
		fb:     newHostFramebuffer(320, 240),
		sim:    NewSim(cfg),
		heap:   NewBudgetHeap(heapBytes),
	}
}

func (h *hostPlatform) Logger() Logger   { return h.logger }
func (h *hostPlatform) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostPlatform) CPU() CPU         { return h.sim }
func (h *hostPlatform) Timer() Timer     { return h.sim }
func (h *hostPlatform) IntC() IntC       { return h.sim }
func (h *hostPlatform) Heap() Heap       { return h.heap }

func (h *hostPlatform) SetTrapVector(fn func(cause uint64)) { h.sim.SetTrapVector(fn) }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}
