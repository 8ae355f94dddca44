//go:build tinygo && baremetal && riscv

package hal

import "unsafe"

type contextExt struct {
	entry func()
}

// Provided by the board support assembly. switchContextASM stores ra, sp and
// s0-s11 into save (unless save is nil) and loads them from restore, then
// returns through the restored ra.
//
//export rvcore_switch_context
func switchContextASM(save, restore *Context)

// threadTrampolineASM moves s0 into a0 and calls rvcore_thread_start.
//
//go:extern rvcore_thread_trampoline
var threadTrampolineASM [0]uintptr

func initContext(ctx *Context, entry func()) {
	ctx.PC = uintptr(unsafe.Pointer(&threadTrampolineASM))
	ctx.RA = ctx.PC
	ctx.S[0] = uintptr(unsafe.Pointer(ctx))
	ctx.ext.entry = entry
}

func switchContext(save, restore *Context) {
	switchContextASM(save, restore)
}

//export rvcore_thread_start
func threadStart(ctx *Context) {
	ctx.ext.entry()
	// The entry hands control to another context before returning; reaching
	// this point means the scheduler lost track of the thread.
	for {
		waitForInterrupt()
	}
}
