package gate

import (
	"gopherix/kernel/kfmt"
	"io"
)

// Registers contains a snapshot of all register values when an exception,
// interrupt or syscall occurs.
type Registers struct {
	EAX uint32
	EBX uint32
	ECX uint32
	EDX uint32
	ESI uint32
	EDI uint32
	EBP uint32

	// Info contains the error code for exceptions, the syscall number for
	// syscall entries or the IRQ number for HW interrupts.
	Info uint32

	// The return frame used by IRET
	EIP    uint32
	CS     uint32
	EFlags uint32
	ESP    uint32
	SS     uint32
}

// DumpTo outputs the register contents to w.
func (r *Registers) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "EAX = %8x EBX = %8x\n", r.EAX, r.EBX)
	kfmt.Fprintf(w, "ECX = %8x EDX = %8x\n", r.ECX, r.EDX)
	kfmt.Fprintf(w, "ESI = %8x EDI = %8x\n", r.ESI, r.EDI)
	kfmt.Fprintf(w, "EBP = %8x\n", r.EBP)
	kfmt.Fprintf(w, "\n")
	kfmt.Fprintf(w, "EIP = %8x CS  = %8x\n", r.EIP, r.CS)
	kfmt.Fprintf(w, "ESP = %8x SS  = %8x\n", r.ESP, r.SS)
	kfmt.Fprintf(w, "EFL = %8x\n", r.EFlags)
}

// InterruptNumber describes an x86 interrupt/exception/trap slot.
type InterruptNumber uint8

const (
	// DivideByZero occurs when dividing any number by 0 using the DIV or
	// IDIV instruction.
	DivideByZero = InterruptNumber(0)

	// Debug is raised by debug traps and single stepping.
	Debug = InterruptNumber(1)

	// NMI (non-maskable-interrupt) is a hardware interrupt that indicates
	// issues with RAM or unrecoverable hardware problems.
	NMI = InterruptNumber(2)

	// Breakpoint is raised by the INT3 instruction.
	Breakpoint = InterruptNumber(3)

	// Overflow is raised by INTO when the overflow flag is set.
	Overflow = InterruptNumber(4)

	// BoundRangeExceeded occurs when the BOUND instruction is invoked with
	// an index out of range.
	BoundRangeExceeded = InterruptNumber(5)

	// InvalidOpcode occurs when the CPU attempts to execute an invalid or
	// undefined instruction opcode.
	InvalidOpcode = InterruptNumber(6)

	// DeviceNotAvailable occurs when the CPU attempts to execute an FPU
	// instruction while no FPU is available.
	DeviceNotAvailable = InterruptNumber(7)

	// DoubleFault occurs when an exception occurs within a running
	// exception handler.
	DoubleFault = InterruptNumber(8)

	// CoprocessorSegmentOverrun is reserved on post-386 processors.
	CoprocessorSegmentOverrun = InterruptNumber(9)

	// InvalidTSS occurs when the TSS points to an invalid task segment
	// selector.
	InvalidTSS = InterruptNumber(10)

	// SegmentNotPresent occurs when a segment or gate with a cleared
	// present bit is loaded.
	SegmentNotPresent = InterruptNumber(11)

	// StackSegmentFault occurs when the stack segment limit checks fail.
	StackSegmentFault = InterruptNumber(12)

	// GPFException occurs when a general protection fault occurs.
	GPFException = InterruptNumber(13)

	// PageFaultException occurs when a page directory or page table entry
	// is not present or when a privilege and/or RW protection check fails.
	PageFaultException = InterruptNumber(14)

	// FloatingPointException occurs on an unmasked x87 exception.
	FloatingPointException = InterruptNumber(16)

	// AlignmentCheck occurs when alignment checks are enabled and an
	// unaligned memory access is performed.
	AlignmentCheck = InterruptNumber(17)

	// MachineCheck occurs when the CPU detects internal errors such as
	// memory-, bus- or cache-related errors.
	MachineCheck = InterruptNumber(18)

	// SIMDFloatingPointException occurs on an unmasked SSE exception.
	SIMDFloatingPointException = InterruptNumber(19)

	// IRQBase is the vector that the master PIC maps IRQ0 to. IRQ n is
	// delivered on vector IRQBase+n.
	IRQBase = InterruptNumber(0x20)

	// Syscall is the software trap used by user programs to enter the
	// kernel.
	Syscall = InterruptNumber(0x80)
)

// NumExceptions is the number of vectors reserved for processor exceptions.
const NumExceptions = 20

// IRQ returns the interrupt number that hardware interrupt line irq is
// delivered on.
func IRQ(irq uint8) InterruptNumber {
	return IRQBase + InterruptNumber(irq)
}

// handlers is the interrupt descriptor table. A nil entry marks a
// non-present gate.
var handlers [256]func(*Registers)

// HandleInterrupt ensures that the provided handler will be invoked when a
// particular interrupt number occurs. Passing a nil handler marks the gate
// as non-present.
func HandleInterrupt(intNumber InterruptNumber, handler func(*Registers)) {
	handlers[intNumber] = handler
}

// Installed returns true if a handler is registered for intNumber.
func Installed(intNumber InterruptNumber) bool {
	return handlers[intNumber] != nil
}

// Dispatch routes an incoming interrupt to its registered handler. It is
// invoked by the platform interrupt entry code and returns false if no
// handler is registered for intNumber.
func Dispatch(intNumber InterruptNumber, regs *Registers) bool {
	handler := handlers[intNumber]
	if handler == nil {
		return false
	}

	handler(regs)
	return true
}

// Reset marks all gates as non-present.
func Reset() {
	for i := range handlers {
		handlers[i] = nil
	}
}
