package hart

import (
	"errors"
	"testing"

	"rvcore/core/fault"
	"rvcore/core/irq"
	"rvcore/hal"
)

func TestInitBootHartIsZero(t *testing.T) {
	sim := hal.NewSim(hal.SimConfig{HartID: 0})
	sim.SetScratch(42)
	if got := Init(sim); got != 0 {
		t.Fatalf("Init() = %d, want 0", got)
	}
	if got := sim.Scratch(); got != 0 {
		t.Fatalf("Scratch() = %d, want 0", got)
	}
	if got := ID(); got != 0 {
		t.Fatalf("ID() = %d, want 0", got)
	}
}

func TestInitHaltsWhenIDsRunOut(t *testing.T) {
	next.Store(Count)
	defer next.Store(1)

	sim := hal.NewSim(hal.SimConfig{HartID: 5})
	fault.Install(sim)
	defer func() {
		r := recover()
		if err, ok := r.(error); !ok || !errors.Is(err, hal.ErrHalted) {
			t.Fatalf("recover() = %v, want %v", r, hal.ErrHalted)
		}
	}()
	Init(sim)
	t.Fatal("Init() returned for an exhausted hart id")
}

func TestLocalAndCell(t *testing.T) {
	sim := hal.NewSim(hal.SimConfig{})
	Init(sim)
	irq.Install(sim)

	var l Local[Cell[[]int]]
	irq.Do(func(f irq.Free) {
		s := l.Get().Borrow(f)
		*s = append(*s, 1, 2)
	})
	got := irq.Without(func(f irq.Free) int { return len(*l.Get().Borrow(f)) })
	if got != 2 {
		t.Fatalf("len = %d, want 2", got)
	}
	if l.At(0) != l.Get() {
		t.Fatal("At(0) and Get() disagree on hart 0")
	}
}

func TestCellRejectsForgedToken(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Borrow with zero token did not panic")
		}
	}()
	var c Cell[int]
	c.Borrow(irq.Free{})
}
