package rt

import (
	"errors"
	"testing"

	"rvcore/core/irq"
	"rvcore/core/task"
	"rvcore/hal"
)

func boot(t *testing.T) *hal.Sim {
	t.Helper()
	sim := hal.NewSim(hal.SimConfig{})
	p := hal.NewSimPlatform(sim, &hal.MemLogger{}, nil, 64<<10)
	if _, err := Boot(p, Config{}); err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	return sim
}

func TestTaskWokenByTimerCallback(t *testing.T) {
	sim := boot(t)

	var (
		events   []string
		wakeB    func()
		bWoken   bool
		bPolls   int
		cPolls   int
	)

	taskB := task.FutureFunc(func(cx *task.Context) task.Poll {
		bPolls++
		if bWoken {
			events = append(events, "B")
			return task.Ready
		}
		if wakeB == nil {
			w := cx.Waker().Clone()
			wakeB = func() {
				bWoken = true
				w.Wake()
				w.Release()
			}
			WaitThenCall(5, wakeB)
		}
		return task.Pending
	})
	taskA := task.FutureFunc(func(cx *task.Context) task.Poll {
		if err := cx.Spawn(taskB); err != nil {
			t.Errorf("Spawn(B) error = %v", err)
		}
		events = append(events, "A")
		return task.Ready
	})
	taskC := task.FutureFunc(func(*task.Context) task.Poll {
		cPolls++
		events = append(events, "C")
		return task.Ready
	})

	for _, f := range []task.Future{taskA, taskC} {
		if err := SpawnTask(f); err != nil {
			t.Fatalf("SpawnTask() error = %v", err)
		}
	}
	start := sim.Now()
	if err := WaitForAllTasks(); err != nil {
		t.Fatalf("WaitForAllTasks() error = %v", err)
	}
	if !bWoken {
		t.Fatalf("WaitForAllTasks() returned before B was woken")
	}
	if got := sim.Now() - start; got < 5 {
		t.Fatalf("elapsed = %d ticks, want >= 5", got)
	}
	if bPolls != 2 {
		t.Fatalf("B polled %d times, want 2", bPolls)
	}
	if last := events[len(events)-1]; last != "B" {
		t.Fatalf("events = %v, want B last", events)
	}
	if cPolls != 1 {
		t.Fatalf("C polled %d times, want 1", cPolls)
	}
	if st := ReadStats(); st.Tasks.Completed != 3 || st.TimerQueued != 0 {
		t.Fatalf("ReadStats() = %+v, want 3 completed tasks and an empty timer queue", st)
	}
}

func TestTwoThreadsCounter(t *testing.T) {
	boot(t)

	const a, b = 2, 5
	counter := 0
	var order []int
	for _, add := range []int{a, b} {
		add := add
		_, err := SpawnThread(func() {
			for i := 0; i < 3; i++ {
				before := counter
				counter = before + add
				order = append(order, add)
				PauseThread()
			}
		}, StackConfig{Size: 512})
		if err != nil {
			t.Fatalf("SpawnThread() error = %v", err)
		}
	}
	RunThreads()

	if counter != 3*(a+b) {
		t.Fatalf("counter = %d, want %d", counter, 3*(a+b))
	}
	want := []int{a, b, a, b, a, b}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestWaitTicksAndEvery(t *testing.T) {
	sim := boot(t)

	var beats []uint64
	Every(3, func(now uint64) bool {
		beats = append(beats, now)
		return len(beats) < 4
	})
	if err := SpawnTask(WaitTicks(20)); err != nil {
		t.Fatalf("SpawnTask() error = %v", err)
	}
	if err := WaitForAllTasks(); err != nil {
		t.Fatalf("WaitForAllTasks() error = %v", err)
	}
	if sim.Now() < 20 {
		t.Fatalf("Now() = %d, want >= 20", sim.Now())
	}
	if len(beats) != 4 {
		t.Fatalf("beats = %v, want 4 entries", beats)
	}
}

func TestRunWithoutInterrupts(t *testing.T) {
	sim := boot(t)
	got := RunWithoutInterrupts(func(irq.Free) bool { return sim.InterruptsEnabled() })
	if got {
		t.Fatal("interrupts enabled inside RunWithoutInterrupts")
	}
	if HartID() != 0 {
		t.Fatalf("HartID() = %d, want 0", HartID())
	}
}

func TestCallsBeforeBootReturnError(t *testing.T) {
	saved := *harts.At(0)
	*harts.At(0) = nil
	t.Cleanup(func() { *harts.At(0) = saved })

	noop := task.FutureFunc(func(*task.Context) task.Poll { return task.Ready })
	if err := SpawnTask(noop); !errors.Is(err, ErrNotBooted) {
		t.Fatalf("SpawnTask() error = %v, want %v", err, ErrNotBooted)
	}
	if err := WaitForAllTasks(); !errors.Is(err, ErrNotBooted) {
		t.Fatalf("WaitForAllTasks() error = %v, want %v", err, ErrNotBooted)
	}
	if err := Scope(func(*task.Scope) {}); !errors.Is(err, ErrNotBooted) {
		t.Fatalf("Scope() error = %v, want %v", err, ErrNotBooted)
	}
	if _, err := SpawnThread(func() {}, StackConfig{}); !errors.Is(err, ErrNotBooted) {
		t.Fatalf("SpawnThread() error = %v, want %v", err, ErrNotBooted)
	}
}
