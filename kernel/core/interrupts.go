package core

import (
	"gopherix/device/keyboard"
	"gopherix/device/pit"
	"gopherix/device/rtc"
	"gopherix/kernel/gate"
)

// installHandlers registers the system call gate and the handlers of the
// timer, keyboard and clock lines and unmasks those lines.
func (k *Kernel) installHandlers() {
	gate.HandleInterrupt(gate.Syscall, k.syscallHandler)

	if k.dev.Timer != nil {
		k.handleIRQ(pit.IRQ, func() {
			k.dev.Timer.HandleIRQ()
			k.Tick()
		})
	}

	if k.dev.Keyboard != nil {
		k.handleIRQ(keyboard.IRQ, k.dev.Keyboard.HandleIRQ)
	}

	if k.dev.Clock != nil {
		k.handleIRQ(rtc.IRQ, k.dev.Clock.HandleIRQ)
	}
}

// handleIRQ installs fn on the vector of irq. The line is acknowledged
// before fn runs because fn may switch to another thread.
func (k *Kernel) handleIRQ(irq uint8, fn func()) {
	gate.HandleInterrupt(gate.IRQ(irq), func(_ *gate.Registers) {
		if k.dev.PIC != nil {
			k.dev.PIC.SendEOI(irq)
		}
		fn()
	})

	if k.dev.PIC != nil {
		k.dev.PIC.Enable(irq)
	}
}
