//go:build !tinygo

package hal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrPoweredOff is the panic value a simulated hart raises from
// WaitForInterrupt once the runner stops supplying ticks.
var ErrPoweredOff = errors.New("powered off")

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool
	// Hz is the rate at which the simulated mtime advances.
	Hz int
	// TicksPerStep is how many mtime ticks each real-time step adds.
	TicksPerStep uint64
	// Ticks stops the run after that many steps (0 = until run returns).
	Ticks uint64
	// HeapBytes bounds thread stacks and control blocks.
	HeapBytes uintptr
}

// RunHeadless boots a simulated hart without opening a window. run is the
// hart's main; mtime advances from a real-time ticker until run returns,
// ctx is cancelled or cfg.Ticks steps have elapsed.
func RunHeadless(ctx context.Context, run func(Platform) error, cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 1000
	}
	if cfg.TicksPerStep == 0 {
		cfg.TicksPerStep = 1
	}
	if cfg.HeapBytes == 0 {
		cfg.HeapBytes = DefaultHeapBytes
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	h := newHost(SimConfig{Realtime: true}, cfg.HeapBytes)
	return runHart(ctx, h, run, func(ctx context.Context) error {
		t := time.NewTicker(d)
		defer t.Stop()

		var steps uint64
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				h.sim.Tick(cfg.TicksPerStep)
				steps++
				if cfg.Ticks > 0 && steps >= cfg.Ticks {
					return nil
				}
			}
		}
	})
}

// runHart runs the hart's main next to a tick source. Whichever finishes
// first stops the other.
func runHart(ctx context.Context, h *hostPlatform, run func(Platform) error, ticks func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	hartDone := make(chan struct{})

	g.Go(func() (err error) {
		defer close(hartDone)
		defer func() {
			if r := recover(); r != nil {
				if e, ok := r.(error); ok && errors.Is(e, ErrPoweredOff) {
					err = nil
					return
				}
				if e, ok := r.(error); ok && errors.Is(e, ErrHalted) {
					err = e
					return
				}
				panic(r)
			}
		}()
		return run(h)
	})
	g.Go(func() error {
		tctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-hartDone:
				cancel()
			case <-tctx.Done():
			}
		}()
		err := ticks(tctx)
		h.sim.PowerOff()
		return err
	})
	return g.Wait()
}

// WindowConfig controls the desktop runner.
type WindowConfig struct {
	// Hz is the rate at which the simulated mtime advances.
	Hz        int
	HeapBytes uintptr
}
