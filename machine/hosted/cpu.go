package hosted

import (
	"runtime"

	"gopherix/kernel/cpu"
)

var _ cpu.Platform = (*Machine)(nil)

// EnableInterrupts sets the interrupt flag. Pending interrupts are
// delivered before the call returns.
func (m *Machine) EnableInterrupts() {
	m.iflag = true
	m.deliver()
}

// DisableInterrupts clears the interrupt flag.
func (m *Machine) DisableInterrupts() {
	m.iflag = false
}

// InterruptsEnabled returns the interrupt flag.
func (m *Machine) InterruptsEnabled() bool {
	return m.iflag
}

// Halt stops the machine and terminates the calling thread.
func (m *Machine) Halt() {
	m.fail(ErrHalted)
	runtime.Goexit()
}

// FlushTLBEntry is a no-op; the MMU walks the page tables on every access.
func (m *Machine) FlushTLBEntry(uintptr) {}

// SwitchPDT loads CR3.
func (m *Machine) SwitchPDT(pdtPhysAddr uintptr) {
	m.cr3 = pdtPhysAddr
}

// ActivePDT returns CR3.
func (m *Machine) ActivePDT() uintptr {
	return m.cr3
}

// ReadCR2 returns the address of the last page fault.
func (m *Machine) ReadCR2() uintptr {
	return m.cr2
}

// SetKernelStack records the stack loaded on entry from user mode.
func (m *Machine) SetKernelStack(esp0 uintptr) {
	m.esp0 = esp0
}

// KernelStack returns the value last passed to SetKernelStack.
func (m *Machine) KernelStack() uintptr {
	return m.esp0
}

// PhysicalMemory returns the physical address space.
func (m *Machine) PhysicalMemory() []byte {
	return m.mem
}
