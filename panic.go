package hawk

import (
	"sync/atomic"
)

// PanicHandler receives a recovered panic value and the backtrace captured
// at the recovery site.
type PanicHandler func(recovered any, frames []BacktraceFrame)

// The process-wide panic handler chain. Go has no std panic hook, so the
// bridge is a handler slot consulted by Recover, Catch and Go. Installation
// is guarded for idempotence, and the catcher's handler chains to whatever
// was registered before it rather than replacing it.
var (
	panicHandlerInstalled atomic.Bool
	currentPanicHandler   atomic.Pointer[PanicHandler]
)

// SetPanicHandler registers a custom process-wide handler and returns the
// previous one (nil if none). Intended for hosts that already route panics
// somewhere: install it before the catcher and the catcher will keep
// calling it after its own capture.
func SetPanicHandler(h PanicHandler) PanicHandler {
	var p *PanicHandler
	if h != nil {
		p = &h
	}
	prev := currentPanicHandler.Swap(p)
	if prev == nil {
		return nil
	}
	return *prev
}

// InstallPanicHandler wires the catcher's capture into the process-wide
// chain. Idempotent: only the first call installs, so installing twice
// never double-reports a panic. The previously registered handler keeps
// running after the event is enqueued, preserving prior behaviour.
func InstallPanicHandler(c *Catcher) {
	if panicHandlerInstalled.Swap(true) {
		return
	}

	prev := currentPanicHandler.Load()
	h := PanicHandler(func(recovered any, frames []BacktraceFrame) {
		capturePanic(c, recovered, frames)
		if prev != nil {
			(*prev)(recovered, frames)
		}
	})
	currentPanicHandler.Store(&h)
}

// capturePanic builds and enqueues the panic event. It runs on the
// panicking goroutine, so any internal failure is swallowed by the nested
// recover — a panic handler must never raise.
func capturePanic(c *Catcher, recovered any, frames []BacktraceFrame) {
	defer func() {
		_ = recover()
	}()

	c.CaptureEvent(newPanicEvent(recovered, frames))
}

// handlePanic routes a recovered value through the installed chain.
func handlePanic(recovered any) {
	h := currentPanicHandler.Load()
	if h == nil {
		return
	}

	// Frames above the hawk entry points (Recover/Catch and this helper)
	// are skipped so the backtrace starts at the panic site.
	(*h)(recovered, captureBacktrace(3))
}

// Recover captures a panic, enqueues it and swallows it. Use directly in
// defer:
//
//	defer hawk.Recover()
//
// Returns the recovered value (nil when there was no panic) so callers can
// turn it into an error if needed.
func Recover() any {
	r := recover()
	if r == nil {
		return nil
	}

	handlePanic(r)
	return r
}

// Catch captures a panic, enqueues it and re-panics, preserving the default
// crash behaviour. Use when the process should still abort:
//
//	defer hawk.Catch()
func Catch() {
	r := recover()
	if r == nil {
		return
	}

	handlePanic(r)
	panic(r)
}

// Go runs fn on a new goroutine with panic capture. The panic is swallowed
// after reporting — a crashing task does not take down the process.
func Go(fn func()) {
	go func() {
		defer Recover()
		fn()
	}()
}

// Recover is the per-catcher variant of the package-level Recover, for
// hosts running multiple catchers.
func (c *Catcher) Recover() any {
	r := recover()
	if r == nil {
		return nil
	}

	capturePanic(c, r, captureBacktrace(2))
	return r
}
