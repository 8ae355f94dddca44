//go:build tinygo && baremetal && riscv

package hal

import (
	"device/riscv"
	"machine"
	"runtime/volatile"
	"unsafe"
)

// ACLINT layout used by QEMU virt and most SiFive-derived parts.
var (
	aclintMTIME = (*struct {
		low  volatile.Register32
		high volatile.Register32
	})(unsafe.Pointer(uintptr(0x0200_bff8)))
	aclintMTIMECMP = (*[4095]volatile.Register64)(unsafe.Pointer(uintptr(0x0200_4000)))
	// Same registers as 32-bit halves, for RV32 harts.
	aclintMTIMECMP32 = (*[4095]struct {
		low  volatile.Register32
		high volatile.Register32
	})(unsafe.Pointer(uintptr(0x0200_4000)))
)

const xlen = uint32(8 * unsafe.Sizeof(uintptr(0)))

// DefaultHeapBytes bounds thread stacks and control blocks on the device.
const DefaultHeapBytes = 64 << 10

type riscvPlatform struct {
	logger *uartLogger
	disp   Display
	cpu    riscvCPU
	timer  riscvTimer
	intc   riscvIntC
	heap   Heap
}

// New returns the RISC-V bare-metal platform.
//
// The log goes to machine.Serial; there is no display.
func New() Platform {
	return &riscvPlatform{
		logger: &uartLogger{uart: machine.Serial},
		disp:   stubDisplay{fb: &stubFramebuffer{w: 0, h: 0, format: PixelFormatRGB565}},
		heap:   NewBudgetHeap(DefaultHeapBytes),
	}
}

func (p *riscvPlatform) Logger() Logger   { return p.logger }
func (p *riscvPlatform) Display() Display { return p.disp }
func (p *riscvPlatform) CPU() CPU         { return p.cpu }
func (p *riscvPlatform) Timer() Timer     { return p.timer }
func (p *riscvPlatform) IntC() IntC       { return p.intc }
func (p *riscvPlatform) Heap() Heap       { return p.heap }

func (p *riscvPlatform) SetTrapVector(fn func(cause uint64)) {
	trapVector = fn
	riscv.MTVEC.Set(uintptr(unsafe.Pointer(&trapEntryASM)))
}

// trapEntryASM saves the caller-saved registers, calls rvcore_handle_trap and
// returns with mret.
//
//go:extern rvcore_trap_entry
var trapEntryASM [0]uintptr

var trapVector func(cause uint64)

//export rvcore_handle_trap
func handleTrap() {
	cause := uint64(riscv.MCAUSE.Get())
	if xlen == 32 && cause&(1<<31) != 0 {
		cause = 1<<63 | cause&^(1<<31)
	}
	if trapVector != nil {
		trapVector(cause)
	}
	riscv.MCAUSE.Set(0)
}

func waitForInterrupt() {
	riscv.Asm("wfi")
}

type riscvCPU struct{}

func (riscvCPU) DisableInterrupts() bool {
	return riscv.MSTATUS.ClearBits(riscv.MSTATUS_MIE)&riscv.MSTATUS_MIE != 0
}

func (riscvCPU) RestoreInterrupts(enabled bool) {
	if enabled {
		riscv.MSTATUS.SetBits(riscv.MSTATUS_MIE)
	}
}

func (riscvCPU) InterruptsEnabled() bool {
	return riscv.MSTATUS.Get()&riscv.MSTATUS_MIE != 0
}

func (riscvCPU) WaitForInterrupt() { waitForInterrupt() }

func (riscvCPU) HartID() uint32 { return uint32(riscv.MHARTID.Get()) }

func (riscvCPU) Scratch() uint32 { return uint32(riscv.MSCRATCH.Get()) }

func (riscvCPU) SetScratch(v uint32) { riscv.MSCRATCH.Set(uintptr(v)) }

func (riscvCPU) Halt() {
	riscv.MSTATUS.ClearBits(riscv.MSTATUS_MIE)
	for {
		waitForInterrupt()
	}
}

type riscvTimer struct{}

func (riscvTimer) Now() uint64 {
	// Re-read the high half to catch a carry out of the low half.
	high := aclintMTIME.high.Get()
	for {
		low := aclintMTIME.low.Get()
		again := aclintMTIME.high.Get()
		if again == high {
			return uint64(high)<<32 | uint64(low)
		}
		high = again
	}
}

func (riscvTimer) SetNow(ticks uint64) {
	aclintMTIME.low.Set(0)
	aclintMTIME.high.Set(uint32(ticks >> 32))
	aclintMTIME.low.Set(uint32(ticks))
}

func (riscvTimer) Compare() uint64 {
	return aclintMTIMECMP[riscv.MHARTID.Get()].Get()
}

func (riscvTimer) SetCompare(ticks uint64) {
	if xlen == 32 {
		r := &aclintMTIMECMP32[riscv.MHARTID.Get()]
		storeCompare32(ticks, r.low.Set, r.high.Set)
		return
	}
	aclintMTIMECMP[riscv.MHARTID.Get()].Set(ticks)
}

// riscvIntC drives the local interrupt enable and pending CSRs. Platform
// interrupts above xlen live behind a PLIC this core does not touch.
type riscvIntC struct{}

func (riscvIntC) Enable(code uint32) {
	if code < xlen {
		riscv.MIE.SetBits(1 << code)
	}
}

func (riscvIntC) Disable(code uint32) {
	if code < xlen {
		riscv.MIE.ClearBits(1 << code)
	}
}

func (riscvIntC) Enabled(code uint32) bool {
	return code < xlen && riscv.MIE.Get()&(1<<code) != 0
}

func (riscvIntC) Pending(code uint32) bool {
	return code < xlen && riscv.MIP.Get()&(1<<code) != 0
}

func (riscvIntC) SetPending(code uint32, pending bool) {
	if code >= xlen {
		return
	}
	if pending {
		riscv.MIP.SetBits(1 << code)
	} else {
		riscv.MIP.ClearBits(1 << code)
	}
}

func (riscvIntC) SetTrigger(code uint32, t Trigger) {
	_ = code
	_ = t
}

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		l.uart.WriteByte(b[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}
