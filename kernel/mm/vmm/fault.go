package vmm

import (
	"gopherix/kernel/gate"
	"gopherix/kernel/kfmt"
)

// Page fault error code bits.
const (
	faultPresent = 1 << iota
	faultWrite
	faultUser
	faultReserved
)

func installFaultHandlers() {
	gate.HandleInterrupt(gate.PageFaultException, pageFaultHandler)
	gate.HandleInterrupt(gate.GPFException, generalProtectionFaultHandler)
}

// pageFaultHandler reports the fault and halts. Faults are never recovered:
// there is no demand paging and no mapping from faults to processes.
func pageFaultHandler(regs *gate.Registers) {
	kfmt.Printf("\nPage fault while accessing address: 0x%8x\nReason: ", readCR2Fn())

	errorCode := regs.Info
	switch {
	case errorCode&faultReserved != 0:
		kfmt.Printf("page table has reserved bit set")
	case errorCode&faultPresent == 0 && errorCode&faultWrite == 0:
		kfmt.Printf("read from non-present page")
	case errorCode&faultPresent == 0:
		kfmt.Printf("write to non-present page")
	case errorCode&faultWrite == 0:
		kfmt.Printf("page protection violation (read)")
	default:
		kfmt.Printf("page protection violation (write)")
	}

	if errorCode&faultUser != 0 {
		kfmt.Printf(" in user-mode")
	}

	kfmt.Printf("\n\nRegisters:\n")
	regs.DumpTo(kfmt.GetOutputSink())

	panicFn(errUnrecoverableFault)
}

func generalProtectionFaultHandler(regs *gate.Registers) {
	kfmt.Printf("\nGeneral protection fault (selector: 0x%x)\n", regs.Info)
	kfmt.Printf("Registers:\n")
	regs.DumpTo(kfmt.GetOutputSink())

	panicFn(errUnrecoverableFault)
}
