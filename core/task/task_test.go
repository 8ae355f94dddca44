package task

import (
	"errors"
	"testing"

	"rvcore/core/fault"
	"rvcore/core/irq"
	"rvcore/core/timer"
	"rvcore/hal"
)

func newExecutor(t *testing.T, maxTasks, queueSize int) (*hal.Sim, *timer.Queue, *Executor) {
	t.Helper()
	sim := hal.NewSim(hal.SimConfig{})
	irq.Install(sim)
	fault.Install(sim)
	sim.SetTrapVector(irq.Entry)
	q := timer.New(sim, sim)
	if err := irq.Register(hal.CodeTimer, q.Handle); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	t.Cleanup(func() { irq.Unregister(hal.CodeTimer) })
	return sim, q, New(sim, maxTasks, queueSize)
}

func TestReadyTaskPolledOnce(t *testing.T) {
	_, _, ex := newExecutor(t, 4, 4)

	polls := 0
	ex.Spawn(FutureFunc(func(*Context) Poll {
		polls++
		return Ready
	}))
	if err := ex.WaitAll(); err != nil {
		t.Fatalf("WaitAll() error = %v", err)
	}
	if polls != 1 {
		t.Fatalf("polls = %d, want 1", polls)
	}
	st := ex.Stats()
	if st.Spawned != 1 || st.Completed != 1 || st.Live != 0 {
		t.Fatalf("Stats() = %+v, want 1 spawned, 1 completed, 0 live", st)
	}
}

func TestUnwokenTaskNotRepolled(t *testing.T) {
	_, q, ex := newExecutor(t, 4, 4)

	idlePolls := 0
	done := false
	ex.Spawn(FutureFunc(func(cx *Context) Poll {
		idlePolls++
		if done {
			return Ready
		}
		if idlePolls == 1 {
			w := cx.Waker().Clone()
			q.Wait(100, func(uint64, irq.Free) timer.Result {
				done = true
				w.Wake()
				w.Release()
				return timer.Done()
			})
		}
		return Pending
	}))

	busyPolls := 0
	ex.Spawn(FutureFunc(func(cx *Context) Poll {
		busyPolls++
		if busyPolls == 5 {
			return Ready
		}
		cx.Waker().Wake()
		return Pending
	}))

	if err := ex.WaitAll(); err != nil {
		t.Fatalf("WaitAll() error = %v", err)
	}
	if busyPolls != 5 {
		t.Fatalf("busy task polled %d times, want 5", busyPolls)
	}
	if idlePolls != 2 {
		t.Fatalf("idle task polled %d times, want 2", idlePolls)
	}
}

func TestWakeDuringPollRepolls(t *testing.T) {
	_, _, ex := newExecutor(t, 4, 4)

	polls := 0
	ex.Spawn(FutureFunc(func(cx *Context) Poll {
		polls++
		if polls == 1 {
			// Woken before returning Pending: must run again.
			cx.Waker().Wake()
			return Pending
		}
		return Ready
	}))
	if err := ex.WaitAll(); err != nil {
		t.Fatalf("WaitAll() error = %v", err)
	}
	if polls != 2 {
		t.Fatalf("polls = %d, want 2", polls)
	}
}

func TestWaitAllIncludesTransitiveSpawns(t *testing.T) {
	_, q, ex := newExecutor(t, 8, 8)

	var finished []string
	ex.Spawn(FutureFunc(func(cx *Context) Poll {
		cx.Spawn(FutureFunc(func(cx *Context) Poll {
			cx.Spawn(Then(Sleep(q, 20), func() { finished = append(finished, "grandchild") }))
			finished = append(finished, "child")
			return Ready
		}))
		finished = append(finished, "parent")
		return Ready
	}))

	if err := ex.WaitAll(); err != nil {
		t.Fatalf("WaitAll() error = %v", err)
	}
	want := []string{"parent", "child", "grandchild"}
	if len(finished) != len(want) {
		t.Fatalf("finished = %v, want %v", finished, want)
	}
	for i := range want {
		if finished[i] != want[i] {
			t.Fatalf("finished = %v, want %v", finished, want)
		}
	}
}

func TestSleepWaitsForTicks(t *testing.T) {
	sim, q, ex := newExecutor(t, 2, 2)

	start := sim.Now()
	var woke uint64
	ex.Spawn(Then(Sleep(q, 50), func() { woke = sim.Now() }))
	if err := ex.WaitAll(); err != nil {
		t.Fatalf("WaitAll() error = %v", err)
	}
	if woke < start+50 {
		t.Fatalf("woke at %d, want >= %d", woke, start+50)
	}
}

func TestWakeAfterCompleteIsNoop(t *testing.T) {
	_, _, ex := newExecutor(t, 2, 2)

	var kept Waker
	ex.Spawn(FutureFunc(func(cx *Context) Poll {
		kept = cx.Waker().Clone()
		return Ready
	}))
	ex.WaitAll()

	kept.Wake()
	if got := kept.c.state.Load(); got != stateComplete {
		t.Fatalf("state = %d after Wake, want complete", got)
	}
	kept.Release()
	if got := kept.c.refs.Load(); got != 0 {
		t.Fatalf("refs = %d, want 0", got)
	}
}

func TestSpawnErrors(t *testing.T) {
	_, _, ex := newExecutor(t, 1, 4)

	ready := FutureFunc(func(*Context) Poll { return Ready })
	if err := ex.Spawn(ready); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	if err := ex.Spawn(ready); !errors.Is(err, ErrTooManyTasks) {
		t.Fatalf("Spawn() error = %v, want %v", err, ErrTooManyTasks)
	}
	ex.WaitAll()

	_, _, ex = newExecutor(t, 8, 1)
	ex.Spawn(ready)
	if err := ex.Spawn(ready); !errors.Is(err, ErrSpawnQueueFull) {
		t.Fatalf("Spawn() error = %v, want %v", err, ErrSpawnQueueFull)
	}
	if got := ex.Stats().Live; got != 1 {
		t.Fatalf("Stats().Live = %d, want 1", got)
	}
	ex.WaitAll()
}

func TestWaitAllInsideTaskFails(t *testing.T) {
	_, _, ex := newExecutor(t, 2, 2)

	var err error
	ex.Spawn(FutureFunc(func(*Context) Poll {
		err = ex.WaitAll()
		return Ready
	}))
	ex.WaitAll()
	if !errors.Is(err, ErrReentered) {
		t.Fatalf("nested WaitAll() error = %v, want %v", err, ErrReentered)
	}
}

func TestRepeatRunsUntilStepStops(t *testing.T) {
	sim, q, ex := newExecutor(t, 2, 2)

	var at []uint64
	ex.Spawn(Repeat(func() Future { return Sleep(q, 10) }, func() bool {
		at = append(at, sim.Now())
		return len(at) < 3
	}))
	if err := ex.WaitAll(); err != nil {
		t.Fatalf("WaitAll() error = %v", err)
	}
	want := []uint64{10, 20, 30}
	for i := range want {
		if i >= len(at) || at[i] != want[i] {
			t.Fatalf("steps at %v, want %v", at, want)
		}
	}
}
