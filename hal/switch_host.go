//go:build !tinygo

package hal

// On the host every thread context is backed by a goroutine. Exactly one of
// them runs at a time: the others are parked on their resume channel, which
// stands in for the saved register file.
type contextExt struct {
	resume  chan struct{}
	entry   func()
	started bool
}

// hostEntryPC marks a context prepared by InitContext.
const hostEntryPC = 1

func initContext(ctx *Context, entry func()) {
	ctx.PC = hostEntryPC
	ctx.ext = contextExt{resume: make(chan struct{}, 1), entry: entry}
}

func switchContext(save, restore *Context) {
	if save != nil && save.ext.resume == nil {
		save.ext.resume = make(chan struct{}, 1)
	}
	r := &restore.ext
	if r.resume == nil {
		panic("hal: switch to a context that was never saved or initialized")
	}
	if !r.started && r.entry != nil {
		r.started = true
		go func(resume chan struct{}, entry func()) {
			<-resume
			entry()
		}(r.resume, r.entry)
	}
	r.resume <- struct{}{}
	if save != nil {
		<-save.ext.resume
	}
}
