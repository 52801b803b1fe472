package hosted

import (
	"runtime"

	"gopherix/kernel/cpu"
	"gopherix/kernel/gate"
)

// Raise latches an interrupt request on an IRQ line. The request is
// delivered at the next safe point once the line is unmasked and interrupts
// are enabled.
func (m *Machine) Raise(irq uint8) {
	m.mu.Lock()
	m.latch(irq)
	m.mu.Unlock()
}

// latch must be called with mu held.
func (m *Machine) latch(irq uint8) {
	m.pending |= 1 << (irq & 0xf)
	m.idle = false

	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// acceptIRQ picks the highest priority deliverable request and returns the
// vector it is delivered on.
func (m *Machine) acceptIRQ() (uint8, gate.InterruptNumber, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for irq := uint8(0); irq < 16; irq++ {
		if m.pending&(1<<irq) == 0 || m.pic.masked(irq) {
			continue
		}

		m.pending &^= 1 << irq
		return irq, m.pic.vector(irq), true
	}
	return 0, 0, false
}

// deliverable must be called with mu held.
func (m *Machine) deliverable() bool {
	for irq := uint8(0); irq < 16; irq++ {
		if m.pending&(1<<irq) != 0 && !m.pic.masked(irq) {
			return true
		}
	}
	return false
}

// deliver dispatches pending interrupts while the interrupt flag is set. The
// flag is cleared while a handler runs and set again when it returns, the
// way an interrupt gate and iret treat EFLAGS. It returns the number of
// interrupts serviced.
func (m *Machine) deliver() int {
	serviced := 0
	for m.iflag {
		irq, vector, ok := m.acceptIRQ()
		if !ok {
			break
		}

		m.iflag = false
		regs := gate.Registers{Info: uint32(irq), CS: cpu.KernelCS, EFlags: cpu.FlagIF}
		gate.Dispatch(vector, &regs)
		m.iflag = true

		m.stopIfHalted()
		serviced++
	}
	return serviced
}

// WaitForInterrupt enables interrupts and idles until at least one
// interrupt has been serviced.
func (m *Machine) WaitForInterrupt() {
	m.iflag = true
	for {
		m.stopIfHalted()
		if m.deliver() > 0 {
			return
		}

		m.mu.Lock()
		if m.deliverable() {
			m.mu.Unlock()
			continue
		}
		m.idle = true
		for _, ch := range m.idleWaiters {
			close(ch)
		}
		m.idleWaiters = nil
		m.mu.Unlock()

		select {
		case <-m.kick:
		case <-m.halted:
			runtime.Goexit()
		}
	}
}
