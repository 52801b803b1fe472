package kmain

import (
	"gopherix/kernel"
	"gopherix/kernel/core"
	"gopherix/kernel/cpu"
	"gopherix/kernel/fs/bootfs"
	"gopherix/kernel/hal"
	"gopherix/kernel/irq"
	"gopherix/kernel/kfmt"
	"gopherix/kernel/mm"
	"gopherix/kernel/mm/vmm"
	"gopherix/kernel/term"
)

var (
	// panicFn is overridden by tests.
	panicFn = kfmt.Panic

	errKmainReturned  = &kernel.Error{Module: "kmain", Message: "Kmain returned"}
	errMissingDevice  = &kernel.Error{Kind: kernel.NotFound, Module: "kmain", Message: "required device not detected"}
	errArchivePlacing = &kernel.Error{Kind: kernel.InvalidArgument, Module: "kmain", Message: "boot archive outside of its reserved region"}
)

// Kmain is the kernel entry point. The boot loader passes the kernel
// command line and the physical placement of the boot archive module.
//
// Kmain is not expected to return. If it does, the CPU is halted.
func Kmain(cmdLine string, archivePhysAddr, archiveSize uintptr) {
	mm.SetPhysicalMemory(cpu.PhysicalMemory())

	hal.ParseCmdLine(cmdLine)
	hal.DetectHardware()
	kfmt.Printf("Starting gopherix\n")

	k, err := boot(archivePhysAddr, archiveSize)
	if err != nil {
		panicFn(err)
		return
	}
	k.Start()

	// Use panicFn instead of panic to halt the CPU through the platform.
	panicFn(errKmainReturned)
}

// boot wires the detected devices, the address spaces, the terminals and
// the boot archive into a kernel instance.
func boot(archivePhysAddr, archiveSize uintptr) (*core.Kernel, *kernel.Error) {
	if archivePhysAddr < mm.BootArchiveBase || archiveSize > mm.BootArchiveMaxSize ||
		archivePhysAddr+archiveSize > mm.BootArchiveBase+mm.BootArchiveMaxSize {
		return nil, errArchivePlacing
	}

	dev := core.Devices{
		PIC:      hal.InterruptController(),
		Timer:    hal.Timer(),
		Clock:    hal.Clock(),
		Keyboard: hal.Keyboard(),
	}
	if hal.ActiveConsole() == nil || hal.ActiveTTY() == nil ||
		dev.PIC == nil || dev.Timer == nil || dev.Clock == nil || dev.Keyboard == nil {
		return nil, errMissingDevice
	}

	vm, err := vmm.Init()
	if err != nil {
		return nil, err
	}
	irq.InstallExceptionHandlers()

	mux, err := term.New(hal.ActiveConsole(), hal.ActiveTTY(), vm)
	if err != nil {
		return nil, err
	}

	img, err := bootfs.Open(mm.Bytes(archivePhysAddr, archiveSize))
	if err != nil {
		return nil, err
	}

	dentries, _, _ := img.Counts()
	if v := img.Version(); v != nil {
		kfmt.Printf("[kmain] boot archive format %s, %d entries\n", v.String(), dentries)
	} else {
		kfmt.Printf("[kmain] unstamped boot archive, %d entries\n", dentries)
	}

	cfg := core.Config{
		Shell: hal.BootParam("shell", core.DefaultShell),
		Sched: hal.BootParam("sched", "off") == "on",
	}
	return core.New(cfg, img, vm, mux, dev), nil
}
