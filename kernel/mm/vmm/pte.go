package vmm

import "gopherix/kernel/mm"

const (
	// ptePhysPageMask extracts the physical frame address from a 4K page
	// directory or page table entry.
	ptePhysPageMask = uintptr(0xfffff000)

	// pdeLargePageMask extracts the physical address of a 4M page from a
	// page directory entry with FlagLargePage set.
	pdeLargePageMask = uintptr(0xffc00000)

	// flagMask extracts the flag bits from an entry.
	flagMask = PageTableEntryFlag(0xfff)

	// entriesPerTable is the number of 32-bit entries in a page directory
	// or page table.
	entriesPerTable = 1024
)

// PageTableEntryFlag describes a flag that can be applied to a page
// directory or page table entry.
type PageTableEntryFlag uint32

const (
	// FlagPresent is set when the page is available in memory.
	FlagPresent PageTableEntryFlag = 1 << iota

	// FlagRW is set if the page can be written to.
	FlagRW

	// FlagUserAccessible is set if user-mode code can access this page.
	// If not set only kernel code can access this page.
	FlagUserAccessible

	// FlagWriteThroughCaching implies write-through caching when set and
	// write-back caching if cleared.
	FlagWriteThroughCaching

	// FlagDoNotCache prevents this page from being cached if set.
	FlagDoNotCache

	// FlagAccessed is set by the CPU when this page is accessed.
	FlagAccessed

	// FlagDirty is set by the CPU when this page is modified.
	FlagDirty

	// FlagLargePage is set on page directory entries that map a 4M page
	// directly instead of pointing to a page table.
	FlagLargePage

	// FlagGlobal prevents the TLB from flushing the cached translation
	// for this page when CR3 is reloaded.
	FlagGlobal
)

// pageTableEntry describes a 32-bit page directory or page table entry.
type pageTableEntry uint32

// HasFlags returns true if this entry has all the input flags set.
func (pte pageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return (uint32(pte) & uint32(flags)) == uint32(flags)
}

// HasAnyFlag returns true if this entry has at least one of the input flags
// set.
func (pte pageTableEntry) HasAnyFlag(flags PageTableEntryFlag) bool {
	return (uint32(pte) & uint32(flags)) != 0
}

// SetFlags sets the input list of flags to the page table entry.
func (pte *pageTableEntry) SetFlags(flags PageTableEntryFlag) {
	*pte = (pageTableEntry)(uint32(*pte) | uint32(flags))
}

// ClearFlags unsets the input list of flags from the page table entry.
func (pte *pageTableEntry) ClearFlags(flags PageTableEntryFlag) {
	*pte = (pageTableEntry)(uint32(*pte) &^ uint32(flags))
}

// Frame returns the physical page frame that this entry points to.
func (pte pageTableEntry) Frame() mm.Frame {
	return mm.Frame((uintptr(pte) & ptePhysPageMask) >> mm.PageShift)
}

// SetFrame updates the page table entry to point to the given physical frame.
func (pte *pageTableEntry) SetFrame(frame mm.Frame) {
	*pte = (pageTableEntry)((uintptr(*pte) &^ ptePhysPageMask) | frame.Address())
}

// LargePageAddress returns the physical address of the 4M page mapped by a
// page directory entry with FlagLargePage set.
func (pte pageTableEntry) LargePageAddress() uintptr {
	return uintptr(pte) & pdeLargePageMask
}

// loadEntry reads the entry stored at the physical address addr.
func loadEntry(addr uintptr) pageTableEntry {
	return pageTableEntry(mm.ReadUint32(addr))
}

// storeEntry writes pte to the physical address addr.
func storeEntry(addr uintptr, pte pageTableEntry) {
	mm.WriteUint32(addr, uint32(pte))
}

// directoryIndex returns the page directory slot that covers virtAddr.
func directoryIndex(virtAddr uintptr) uintptr {
	return (virtAddr >> mm.LargePageShift) & (entriesPerTable - 1)
}

// tableIndex returns the page table slot that covers virtAddr.
func tableIndex(virtAddr uintptr) uintptr {
	return (virtAddr >> mm.PageShift) & (entriesPerTable - 1)
}
