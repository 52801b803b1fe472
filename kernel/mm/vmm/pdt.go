package vmm

import (
	"gopherix/kernel"
	"gopherix/kernel/mm"
)

// PageDirectoryTable describes the top-level table of the two-level 32-bit
// paging scheme. Its entries either map a 4M page directly or point to a
// page table of 4K entries.
type PageDirectoryTable struct {
	pdtFrame mm.Frame
}

// Init sets up an empty page directory at the supplied physical frame.
func (pdt *PageDirectoryTable) Init(pdtFrame mm.Frame) {
	pdt.pdtFrame = pdtFrame
	mm.Memset(pdtFrame.Address(), 0, mm.PageSize)
}

// Address returns the physical address of the page directory.
func (pdt PageDirectoryTable) Address() uintptr {
	return pdt.pdtFrame.Address()
}

func (pdt PageDirectoryTable) directoryEntryAddr(virtAddr uintptr) uintptr {
	return pdt.pdtFrame.Address() + directoryIndex(virtAddr)<<2
}

// isActive returns true if this directory is loaded in CR3.
func (pdt PageDirectoryTable) isActive() bool {
	return activePDTFn() == pdt.pdtFrame.Address()
}

// MapLarge maps the 4M virtual region starting at virtAddr to the 4M physical
// region starting at physAddr. Both addresses must be 4M aligned.
func (pdt PageDirectoryTable) MapLarge(virtAddr, physAddr uintptr, flags PageTableEntryFlag) *kernel.Error {
	if virtAddr&(mm.LargePageSize-1) != 0 || physAddr&(mm.LargePageSize-1) != 0 {
		return errMisalignedLargePage
	}

	pde := pageTableEntry(physAddr)
	pde.SetFlags(flags | FlagPresent | FlagLargePage)
	storeEntry(pdt.directoryEntryAddr(virtAddr), pde)
	pdt.flush(virtAddr)
	return nil
}

// MapTable installs the page table at tableFrame for the 4M virtual region
// that contains virtAddr. The table contents are cleared.
func (pdt PageDirectoryTable) MapTable(virtAddr uintptr, tableFrame mm.Frame, flags PageTableEntryFlag) {
	mm.Memset(tableFrame.Address(), 0, mm.PageSize)

	var pde pageTableEntry
	pde.SetFrame(tableFrame)
	pde.SetFlags(flags | FlagPresent)
	storeEntry(pdt.directoryEntryAddr(virtAddr), pde)
}

// Map establishes a mapping between a virtual page and a physical memory
// frame. The page table covering the page must have been installed with
// MapTable.
func (pdt PageDirectoryTable) Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag) *kernel.Error {
	pteAddr, err := pdt.tableEntryAddr(page.Address())
	if err != nil {
		return err
	}

	var pte pageTableEntry
	pte.SetFrame(frame)
	pte.SetFlags(flags | FlagPresent)
	storeEntry(pteAddr, pte)
	pdt.flush(page.Address())
	return nil
}

// Unmap removes the mapping for page. If page is covered by a 4M mapping,
// the whole 4M mapping is removed.
func (pdt PageDirectoryTable) Unmap(page mm.Page) *kernel.Error {
	pdeAddr := pdt.directoryEntryAddr(page.Address())
	pde := loadEntry(pdeAddr)

	switch {
	case !pde.HasFlags(FlagPresent):
		return errInvalidMapping
	case pde.HasFlags(FlagLargePage):
		storeEntry(pdeAddr, 0)
	default:
		pteAddr := pde.Frame().Address() + tableIndex(page.Address())<<2
		if !loadEntry(pteAddr).HasFlags(FlagPresent) {
			return errInvalidMapping
		}
		storeEntry(pteAddr, 0)
	}

	pdt.flush(page.Address())
	return nil
}

// Translate returns the physical address that corresponds to virtAddr or an
// error if virtAddr is not mapped.
func (pdt PageDirectoryTable) Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	physAddr, _, ok := pdt.walk(virtAddr)
	if !ok {
		return 0, errInvalidMapping
	}
	return physAddr, nil
}

// Activate loads this page directory and flushes the TLB.
func (pdt PageDirectoryTable) Activate() {
	switchPDTFn(pdt.pdtFrame.Address())
}

// tableEntryAddr returns the physical address of the page table entry for
// virtAddr.
func (pdt PageDirectoryTable) tableEntryAddr(virtAddr uintptr) (uintptr, *kernel.Error) {
	pde := loadEntry(pdt.directoryEntryAddr(virtAddr))
	if !pde.HasFlags(FlagPresent) || pde.HasFlags(FlagLargePage) {
		return 0, errMissingPageTable
	}

	return pde.Frame().Address() + tableIndex(virtAddr)<<2, nil
}

// walk translates virtAddr and returns the effective access flags of the
// mapping. A flag is effective only if it is set at both paging levels.
func (pdt PageDirectoryTable) walk(virtAddr uintptr) (uintptr, PageTableEntryFlag, bool) {
	pde := loadEntry(pdt.directoryEntryAddr(virtAddr))
	if !pde.HasFlags(FlagPresent) {
		return 0, 0, false
	}

	if pde.HasFlags(FlagLargePage) {
		return pde.LargePageAddress() | (virtAddr & (mm.LargePageSize - 1)), PageTableEntryFlag(pde) & flagMask, true
	}

	pte := loadEntry(pde.Frame().Address() + tableIndex(virtAddr)<<2)
	if !pte.HasFlags(FlagPresent) {
		return 0, 0, false
	}

	return pte.Frame().Address() | (virtAddr & (mm.PageSize - 1)), PageTableEntryFlag(pde&pte) & flagMask, true
}

// flush invalidates the TLB entry for virtAddr if this directory is active.
func (pdt PageDirectoryTable) flush(virtAddr uintptr) {
	if pdt.isActive() {
		flushTLBEntryFn(virtAddr)
	}
}
