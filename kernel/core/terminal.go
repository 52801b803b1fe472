package core

import (
	"gopherix/kernel"
	"gopherix/kernel/cpu"
)

var errBadTerminal = &kernel.Error{Kind: kernel.InvalidArgument, Module: "core", Message: "terminal id out of range"}

// Switch brings terminal target to the foreground. Without the scheduler
// the CPU follows the display: the outgoing terminal's thread is saved and
// the target's thread is resumed, launching a shell on first visit. With
// the scheduler enabled only the display changes.
func (k *Kernel) Switch(target int) *kernel.Error {
	if !k.mux.Valid(target) {
		return errBadTerminal
	}

	if target == k.mux.Foreground() {
		return nil
	}

	if err := k.mux.Swap(target); err != nil {
		return err
	}

	if !k.cfg.Sched {
		k.handoff(target)
	}

	return nil
}

// handoff gives the CPU to the thread of terminal target and returns once
// the calling thread is resumed. Terminals that never ran get a launcher.
func (k *Kernel) handoff(target int) {
	if target == k.running {
		return
	}

	from, to := k.mux.Terminal(k.running), k.mux.Terminal(target)

	next := *to.Saved()
	if !next.Valid() {
		if to.Active != nil {
			return
		}

		next = cpu.Spawn(func() { k.launcher(target) })
		next.PDT = k.vm.Kernel()
	}
	*to.Saved() = cpu.Context{}

	save := from.Saved()
	save.PDT = cpu.ActivePDT()

	k.running = target
	if to.Active != nil {
		cpu.SetKernelStack(to.Active.KernelStack())
	}

	k.vm.Activate(next.PDT)
	cpu.Switch(save, next)
}

// KeyTyped implements keyboard.Listener.
func (k *Kernel) KeyTyped(ch byte) {
	k.mux.Terminal(k.mux.Foreground()).Line.Input(ch)
}

// ClearScreen implements keyboard.Listener. The screen is cleared and the
// partially typed line is redrawn.
func (k *Kernel) ClearScreen() {
	t := k.mux.Terminal(k.mux.Foreground())
	t.VT.Clear()
	t.VT.Write(t.Line.Pending())
}

// SwitchTerminal implements keyboard.Listener.
func (k *Kernel) SwitchTerminal(target int) {
	k.Switch(target)
}
