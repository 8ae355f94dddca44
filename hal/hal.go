package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

var (
	ErrNotImplemented = errors.New("not implemented")
	ErrOutOfMemory    = errors.New("out of memory")
)

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Machine-level interrupt codes as they appear in mcause.
const (
	CodeSupervisorSoftware = 1
	CodeSoftware           = 3
	CodeSupervisorTimer    = 5
	CodeTimer              = 7
	CodeSupervisorExternal = 9
	CodeExternal           = 11
)

// CompareDisabled is the compare value that never raises the timer interrupt.
const CompareDisabled = ^uint64(0)

// Timer is the per-hart machine timer (mtime/mtimecmp).
//
// The interrupt is level-triggered: it is pending while Now() >= Compare().
type Timer interface {
	Now() uint64
	SetNow(ticks uint64)
	Compare() uint64
	SetCompare(ticks uint64)
}

// Trigger selects how an interrupt source latches.
type Trigger uint8

const (
	TriggerLevel Trigger = iota
	TriggerEdge
)

// IntC is the interrupt controller, addressed by trap code.
type IntC interface {
	Enable(code uint32)
	Disable(code uint32)
	Enabled(code uint32) bool
	Pending(code uint32) bool
	SetPending(code uint32, pending bool)
	SetTrigger(code uint32, t Trigger)
}

// CPU is the architectural surface of the calling hart.
type CPU interface {
	// DisableInterrupts clears the global interrupt enable and reports
	// whether it was set before.
	DisableInterrupts() bool
	// RestoreInterrupts sets the global interrupt enable to enabled.
	RestoreInterrupts(enabled bool)
	InterruptsEnabled() bool
	// WaitForInterrupt stalls until an enabled interrupt is pending. It
	// returns even when the global enable is clear.
	WaitForInterrupt()
	// HartID reads the physical hart id (mhartid).
	HartID() uint32
	// Scratch reads the register holding the dense runtime hart id.
	Scratch() uint32
	SetScratch(v uint32)
	// Halt stops the hart for good.
	Halt()
}

// Heap supplies stack and control-block memory. It must be callable with
// interrupts disabled.
type Heap interface {
	Alloc(size, align uintptr) ([]byte, error)
	Free(b []byte)
}

// Context is the callee-saved register file of a suspended thread.
type Context struct {
	PC uintptr
	SP uintptr
	RA uintptr
	S  [12]uintptr

	ext contextExt
}

// InitContext prepares ctx so that restoring it runs entry on the stack
// whose highest address is top.
func InitContext(ctx *Context, top uintptr, entry func()) {
	*ctx = Context{SP: top}
	initContext(ctx, entry)
}

// Switch saves the live registers into save and resumes restore. It returns
// when another Switch restores save.
func Switch(save, restore *Context) {
	switchContext(save, restore)
}

// Enter resumes restore without saving the caller. The calling context is
// abandoned and must not touch any state afterwards.
func Enter(restore *Context) {
	switchContext(nil, restore)
}

// Platform bundles the collaborators the execution core needs.
type Platform interface {
	Logger() Logger
	Display() Display
	CPU() CPU
	Timer() Timer
	IntC() IntC
	Heap() Heap
	// SetTrapVector installs the function trap entry calls with mcause.
	SetTrapVector(fn func(cause uint64))
}
