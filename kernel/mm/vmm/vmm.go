package vmm

import (
	"gopherix/kernel"
	"gopherix/kernel/cpu"
	"gopherix/kernel/kfmt"
)

var (
	// the following functions are overridden by tests.
	activePDTFn     = cpu.ActivePDT
	switchPDTFn     = cpu.SwitchPDT
	flushTLBEntryFn = cpu.FlushTLBEntry
	readCR2Fn       = cpu.ReadCR2
	panicFn         = kfmt.Panic

	errUnrecoverableFault  = &kernel.Error{Module: "vmm", Message: "page/gpf fault"}
	errMisalignedLargePage = &kernel.Error{Kind: kernel.InvalidArgument, Module: "vmm", Message: "4M mappings require 4M aligned addresses"}
	errMissingPageTable    = &kernel.Error{Kind: kernel.InvalidArgument, Module: "vmm", Message: "no page table covers the requested page"}
	errInvalidMapping      = &kernel.Error{Kind: kernel.InvalidArgument, Module: "vmm", Message: "virtual address does not point to a mapped physical page"}
	errInvalidSlot         = &kernel.Error{Kind: kernel.InvalidArgument, Module: "vmm", Message: "address space slot out of range"}
	errBadAddress          = &kernel.Error{Kind: kernel.InvalidArgument, Module: "vmm", Message: "bad user address"}
)

// Init creates the address space pool, activates the kernel page directory
// and installs paging-related exception handlers.
func Init() (*Manager, *kernel.Error) {
	m := NewManager()
	if err := m.InitKernel(); err != nil {
		return nil, err
	}

	installFaultHandlers()
	return m, nil
}
