// Package irq installs the handlers for processor exceptions. Exceptions are
// not recoverable: the handler reports the exception together with the
// register state and halts the system.
package irq

import (
	"gopherix/kernel"
	"gopherix/kernel/gate"
	"gopherix/kernel/kfmt"
)

var (
	// panicFn is overridden by tests.
	panicFn = kfmt.Panic

	errException = &kernel.Error{Module: "irq", Message: "unhandled processor exception"}

	exceptionNames = [gate.NumExceptions]string{
		gate.DivideByZero:               "divide error",
		gate.Debug:                      "debug",
		gate.NMI:                        "non-maskable interrupt",
		gate.Breakpoint:                 "breakpoint",
		gate.Overflow:                   "overflow",
		gate.BoundRangeExceeded:         "bound range exceeded",
		gate.InvalidOpcode:              "invalid opcode",
		gate.DeviceNotAvailable:         "device not available",
		gate.DoubleFault:                "double fault",
		gate.CoprocessorSegmentOverrun:  "coprocessor segment overrun",
		gate.InvalidTSS:                 "invalid TSS",
		gate.SegmentNotPresent:          "segment not present",
		gate.StackSegmentFault:          "stack-segment fault",
		gate.GPFException:               "general protection fault",
		gate.PageFaultException:         "page fault",
		15:                              "reserved",
		gate.FloatingPointException:     "x87 floating-point exception",
		gate.AlignmentCheck:             "alignment check",
		gate.MachineCheck:               "machine check",
		gate.SIMDFloatingPointException: "SIMD floating-point exception",
	}
)

// InstallExceptionHandlers registers a reporting handler for every exception
// vector that does not already have one.
func InstallExceptionHandlers() {
	for vector := gate.InterruptNumber(0); vector < gate.NumExceptions; vector++ {
		if gate.Installed(vector) {
			continue
		}

		vector := vector
		gate.HandleInterrupt(vector, func(regs *gate.Registers) {
			exceptionHandler(vector, regs)
		})
	}
}

// ExceptionName returns a human readable name for an exception vector.
func ExceptionName(vector gate.InterruptNumber) string {
	if vector < gate.NumExceptions {
		return exceptionNames[vector]
	}
	return "unknown"
}

func exceptionHandler(vector gate.InterruptNumber, regs *gate.Registers) {
	kfmt.Printf("\nException %d (%s), error code 0x%x\n", uint8(vector), ExceptionName(vector), regs.Info)
	kfmt.Printf("Registers:\n")
	regs.DumpTo(kfmt.GetOutputSink())

	panicFn(errException)
}
