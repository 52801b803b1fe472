package hosted

import (
	"encoding/binary"

	"gopherix/kernel/cpu"
	"gopherix/kernel/gate"
)

// Page table entry bits checked by the MMU.
const (
	ptePresent = 1 << 0
	pteRW      = 1 << 1
	pteUser    = 1 << 2
	pteLarge   = 1 << 7

	pteFrameMask = 0xfffff000
	pdeLargeMask = 0xffc00000
)

// Page fault error code bits.
const (
	faultPresent = 1 << 0
	faultWrite   = 1 << 1
	faultUser    = 1 << 2
)

const pageSize = 4096

func (m *Machine) load32(physAddr uintptr) (uint32, bool) {
	if physAddr > uintptr(len(m.mem))-4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(m.mem[physAddr:]), true
}

// checkEntry validates a paging structure entry for a user-mode access and
// returns the fault error code if the access is not allowed.
func checkEntry(entry uint32, write bool) (uint32, bool) {
	code := uint32(faultUser)
	if write {
		code |= faultWrite
	}

	switch {
	case entry&ptePresent == 0:
		return code, false
	case entry&pteUser == 0, write && entry&pteRW == 0:
		return code | faultPresent, false
	}
	return 0, true
}

// translate walks the page tables rooted at CR3 and returns the physical
// address a user-mode access to virtAddr resolves to.
func (m *Machine) translate(virtAddr uintptr, write bool) (uintptr, uint32, bool) {
	pde, ok := m.load32(m.cr3 + (virtAddr>>22)*4)
	if !ok {
		return 0, faultUser, false
	}
	if code, ok := checkEntry(pde, write); !ok {
		return 0, code, false
	}

	if pde&pteLarge != 0 {
		return uintptr(pde&pdeLargeMask) | virtAddr&0x3fffff, 0, true
	}

	pte, ok := m.load32(uintptr(pde&pteFrameMask) + ((virtAddr>>12)&0x3ff)*4)
	if !ok {
		return 0, faultUser, false
	}
	if code, ok := checkEntry(pte, write); !ok {
		return 0, code, false
	}

	return uintptr(pte&pteFrameMask) | virtAddr&0xfff, 0, true
}

// userAccess copies between buf and user memory at virtAddr one page at a
// time. A failed translation raises a page fault.
func (m *Machine) userAccess(virtAddr uintptr, buf []byte, write bool) {
	for offset := 0; offset < len(buf); {
		cur := virtAddr + uintptr(offset)
		n := pageSize - int(cur&(pageSize-1))
		if n > len(buf)-offset {
			n = len(buf) - offset
		}

		physAddr, code, ok := m.translate(cur, write)
		if !ok || physAddr+uintptr(n) > uintptr(len(m.mem)) {
			m.pageFault(cur, code)
		}

		if write {
			copy(m.mem[physAddr:physAddr+uintptr(n)], buf[offset:offset+n])
		} else {
			copy(buf[offset:offset+n], m.mem[physAddr:physAddr+uintptr(n)])
		}
		offset += n
	}
}

// pageFault raises vector 14 for virtAddr. Faults are not recoverable so the
// call never returns.
func (m *Machine) pageFault(virtAddr uintptr, code uint32) {
	m.cr2 = virtAddr
	m.exception(gate.PageFaultException, code)
}

// exception dispatches a processor exception raised by user code. The
// machine halts if no handler is installed or the handler returns.
func (m *Machine) exception(vector gate.InterruptNumber, code uint32) {
	m.iflag = false
	regs := gate.Registers{Info: code, CS: cpu.UserCS, SS: cpu.UserDS}
	gate.Dispatch(vector, &regs)
	m.Halt()
}
