package vmm

import (
	"gopherix/kernel"
	"gopherix/kernel/mm"
)

const (
	// framesPerSpace is the number of pool frames owned by each address
	// space: the page directory, the page table for the low 4M and the
	// page table holding the video alias.
	framesPerSpace = 3

	// kernelSlot is the pool index of the kernel-only address space.
	kernelSlot = mm.ProcessSlots
)

// AddressSpace bundles a page directory with the page tables it owns.
type AddressSpace struct {
	PageDirectoryTable

	lowTable   mm.Frame
	videoTable mm.Frame
}

// Manager owns the statically allocated pool of address spaces: one per
// process slot plus one for the kernel.
type Manager struct {
	spaces [mm.ProcessSlots + 1]AddressSpace
}

// NewManager returns a manager whose address spaces are carved out of the
// page table pool at mm.PageTablePoolBase.
func NewManager() *Manager {
	m := &Manager{}
	for i := range m.spaces {
		base := mm.FrameFromAddress(mm.PageTablePoolBase) + mm.Frame(i*framesPerSpace)
		m.spaces[i] = AddressSpace{
			PageDirectoryTable: PageDirectoryTable{pdtFrame: base},
			lowTable:           base + 1,
			videoTable:         base + 2,
		}
	}
	return m
}

// InitKernel builds the kernel-only page directory and activates it.
func (m *Manager) InitKernel() *kernel.Error {
	as := &m.spaces[kernelSlot]
	if err := as.buildKernel(); err != nil {
		return err
	}

	as.Activate()
	return nil
}

// Kernel returns the physical address of the kernel-only page directory.
func (m *Manager) Kernel() uintptr {
	return m.spaces[kernelSlot].Address()
}

// Install (re)builds the page directory for a process slot and activates
// it. The directory maps the kernel, the slot's 4M user region and a user
// accessible alias at mm.VideoAlias that points to video. It returns the
// physical address of the page directory.
func (m *Manager) Install(slot int, video mm.Frame) (uintptr, *kernel.Error) {
	if slot < 0 || slot >= mm.ProcessSlots {
		return 0, errInvalidSlot
	}

	as := &m.spaces[slot]
	if err := as.buildKernel(); err != nil {
		return 0, err
	}

	if err := as.MapLarge(mm.UserBase, mm.UserPhysAddress(slot), FlagRW|FlagUserAccessible); err != nil {
		return 0, err
	}

	as.MapTable(mm.VideoAlias, as.videoTable, FlagRW|FlagUserAccessible)
	if err := as.Map(mm.PageFromAddress(mm.VideoAlias), video, FlagRW|FlagUserAccessible); err != nil {
		return 0, err
	}

	as.Activate()
	return as.Address(), nil
}

// Activate reinstalls a previously built page directory.
func (m *Manager) Activate(pdtAddr uintptr) {
	switchPDTFn(pdtAddr)
}

// Retarget points the video alias of a process slot to video.
func (m *Manager) Retarget(slot int, video mm.Frame) *kernel.Error {
	if slot < 0 || slot >= mm.ProcessSlots {
		return errInvalidSlot
	}

	return m.spaces[slot].Map(mm.PageFromAddress(mm.VideoAlias), video, FlagRW|FlagUserAccessible)
}

// Space returns the address space for a process slot.
func (m *Manager) Space(slot int) *AddressSpace {
	return &m.spaces[slot]
}

// buildKernel resets the directory so that it only contains the kernel
// mappings: the low 4M identity mapped with 4K pages (leaving the null page
// unmapped) and the 4M kernel page.
func (as *AddressSpace) buildKernel() *kernel.Error {
	as.Init(as.pdtFrame)
	as.MapTable(0, as.lowTable, FlagRW)

	for page := mm.Page(1); page.Address() < mm.LargePageSize; page++ {
		if err := as.Map(page, mm.Frame(page), FlagRW); err != nil {
			return err
		}
	}

	return as.MapLarge(mm.KernelBase, mm.KernelBase, FlagRW|FlagGlobal)
}
