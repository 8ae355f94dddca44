package irq

import (
	"errors"
	"testing"

	"rvcore/core/fault"
	"rvcore/hal"
)

func newSim(t *testing.T) *hal.Sim {
	t.Helper()
	sim := hal.NewSim(hal.SimConfig{})
	Install(sim)
	fault.Install(sim)
	sim.SetTrapVector(Entry)
	t.Cleanup(func() {
		for code := uint32(0); code < NumCodes; code++ {
			Unregister(code)
		}
	})
	return sim
}

func TestWithoutRestoresPriorState(t *testing.T) {
	sim := newSim(t)

	got := Without(func(f Free) bool {
		if !f.Valid() {
			t.Fatal("token from Without is not valid")
		}
		inner := Without(func(Free) bool { return sim.InterruptsEnabled() })
		if inner {
			t.Fatal("nested Without enabled interrupts")
		}
		return sim.InterruptsEnabled()
	})
	if got {
		t.Fatal("interrupts enabled inside Without")
	}
	if !sim.InterruptsEnabled() {
		t.Fatal("interrupts not restored after Without")
	}

	sim.DisableInterrupts()
	Do(func(Free) {})
	if sim.InterruptsEnabled() {
		t.Fatal("Do re-enabled interrupts that were disabled before")
	}
}

func TestForgedTokenIsInvalid(t *testing.T) {
	var f Free
	if f.Valid() {
		t.Fatal("zero Free reports valid")
	}
}

func TestDecodeCause(t *testing.T) {
	tests := []struct {
		raw  uint64
		want Cause
	}{
		{raw: 1<<63 | 7, want: Cause{Interrupt: true, Code: 7}},
		{raw: 1<<63 | 11, want: Cause{Interrupt: true, Code: 11}},
		{raw: 2, want: Cause{Interrupt: false, Code: 2}},
		{raw: 1<<63 | 40, want: Cause{Interrupt: true, Code: 40}},
	}
	for _, tt := range tests {
		if got := DecodeCause(tt.raw); got != tt.want {
			t.Fatalf("DecodeCause(%#x) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}

func TestDispatchCallsHandlerWithToken(t *testing.T) {
	sim := newSim(t)

	var calls []uint32
	if err := Register(hal.CodeSoftware, func(code uint32, f Free) {
		if !f.Valid() {
			t.Fatal("handler token is not valid")
		}
		if sim.InterruptsEnabled() {
			t.Fatal("handler ran with interrupts enabled")
		}
		calls = append(calls, code)
		sim.SetPending(hal.CodeSoftware, false)
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	sim.Enable(hal.CodeSoftware)
	sim.SetPending(hal.CodeSoftware, true)
	sim.Advance(0)

	if len(calls) != 1 || calls[0] != hal.CodeSoftware {
		t.Fatalf("calls = %v, want [%d]", calls, hal.CodeSoftware)
	}
	if Taken(hal.CodeSoftware) == 0 {
		t.Fatal("Taken() = 0 after dispatch")
	}
}

func TestDispatchExceptionIsNotHandled(t *testing.T) {
	newSim(t)
	if Dispatch(13) {
		t.Fatal("Dispatch(exception) = true, want false")
	}
}

func TestRegisterRejectsBadCode(t *testing.T) {
	if err := Register(NumCodes, func(uint32, Free) {}); !errors.Is(err, ErrBadCode) {
		t.Fatalf("Register(%d) error = %v, want %v", NumCodes, err, ErrBadCode)
	}
}

func TestUnhandledInterruptHalts(t *testing.T) {
	sim := newSim(t)
	defer func() {
		r := recover()
		if err, ok := r.(error); !ok || !errors.Is(err, hal.ErrHalted) {
			t.Fatalf("recover() = %v, want %v", r, hal.ErrHalted)
		}
		if !sim.Halted() {
			t.Fatal("sim not halted")
		}
	}()
	Dispatch(1<<63 | 20)
}
