// Package sync provides the synchronization primitives available to a single
// CPU kernel: critical sections that mask interrupts.
package sync

import "gopherix/kernel/cpu"

var (
	// the following functions are overridden by tests.
	interruptsEnabledFn = cpu.InterruptsEnabled
	disableInterruptsFn = cpu.DisableInterrupts
	enableInterruptsFn  = cpu.EnableInterrupts
)

// IRQLock masks interrupts for the duration of a critical section. On a
// single CPU this is enough to make the section atomic with respect to
// interrupt handlers. Sections may nest; interrupts are re-enabled only when
// the outermost section that found them enabled is released.
type IRQLock struct {
	depth      uint32
	wasEnabled bool
}

// Acquire disables interrupts and records whether they were enabled.
func (l *IRQLock) Acquire() {
	enabled := interruptsEnabledFn()
	disableInterruptsFn()

	if l.depth == 0 {
		l.wasEnabled = enabled
	}
	l.depth++
}

// Release ends a critical section. Calling Release without a matching
// Acquire has no effect.
func (l *IRQLock) Release() {
	if l.depth == 0 {
		return
	}

	l.depth--
	if l.depth == 0 && l.wasEnabled {
		enableInterruptsFn()
	}
}

// Held returns true while a critical section is active.
func (l *IRQLock) Held() bool {
	return l.depth != 0
}
