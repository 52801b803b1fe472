package mm

const (
	// PageShift is equal to log2(PageSize).
	PageShift = uintptr(12)

	// PageSize defines the size of a small page in bytes.
	PageSize = uintptr(1 << PageShift)

	// LargePageShift is equal to log2(LargePageSize).
	LargePageShift = uintptr(22)

	// LargePageSize defines the size of a 4M page in bytes.
	LargePageSize = uintptr(1 << LargePageShift)

	// ProcessSlots is the number of statically allocated process slots.
	// Each slot owns a PCB, a kernel stack, a 4M user region and an
	// address space.
	ProcessSlots = 6
)

// Physical memory layout.
const (
	// PhysicalMemorySize is the amount of physical memory the kernel
	// expects to find.
	PhysicalMemorySize = uintptr(36 << 20)

	// VideoMemory is the physical address of the VGA text framebuffer.
	VideoMemory = uintptr(0xB8000)

	// KernelBase is the start of the 4M kernel page.
	KernelBase = uintptr(0x400000)

	// PageTablePoolBase is the physical address of the statically
	// allocated page directories and page tables.
	PageTablePoolBase = uintptr(0x600000)

	// KernelStackTop is the top of the kernel stack area. The kernel stack
	// of process slot N grows down from KernelStackTop - N*KernelStackSize.
	KernelStackTop = uintptr(0x800000)

	// KernelStackSize is the size of each per-process kernel stack. The
	// slot's PCB sits at the bottom of the same area.
	KernelStackSize = uintptr(0x2000)

	// UserPhysBase is the physical address of the user region for
	// process slot 0. Slot N uses UserPhysBase + N*LargePageSize.
	UserPhysBase = uintptr(0x800000)

	// BackgroundBufferBase is the physical address of the first
	// terminal background video buffer. Each terminal owns one page.
	BackgroundBufferBase = uintptr(0x2000000)

	// BootArchiveBase is where the boot loader places the boot archive
	// module. It may extend up to BootArchiveMaxSize bytes.
	BootArchiveBase    = uintptr(0x2100000)
	BootArchiveMaxSize = uintptr(0x300000)
)

// Virtual memory layout.
const (
	// UserBase is the virtual address of the 4M user region.
	UserBase = uintptr(0x08000000)

	// UserEnd is the first virtual address past the user region.
	UserEnd = UserBase + LargePageSize

	// ProgramLoadAddress is the virtual address executable images are
	// copied to.
	ProgramLoadAddress = uintptr(0x08048000)

	// UserStackTop is the initial user stack pointer.
	UserStackTop = UserEnd - 4

	// VideoAlias is the user-visible virtual address of the video page.
	VideoAlias = uintptr(0x08800000)
)

// UserPhysAddress returns the physical base of the user region for slot.
func UserPhysAddress(slot int) uintptr {
	return UserPhysBase + uintptr(slot)*LargePageSize
}

// KernelStack returns the initial kernel stack pointer for slot.
func KernelStack(slot int) uintptr {
	return KernelStackTop - uintptr(slot)*KernelStackSize - 4
}

// BackgroundBuffer returns the physical address of the background video
// buffer for a terminal.
func BackgroundBuffer(terminal int) uintptr {
	return BackgroundBufferBase + uintptr(terminal)*PageSize
}
