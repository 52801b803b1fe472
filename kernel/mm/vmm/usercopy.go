package vmm

import (
	"gopherix/kernel"
	"gopherix/kernel/mm"
)

// activeDirectory returns the page directory currently loaded in CR3.
func activeDirectory() PageDirectoryTable {
	return PageDirectoryTable{pdtFrame: mm.FrameFromAddress(activePDTFn())}
}

// CheckUserRange verifies that the size bytes starting at virtAddr are
// mapped in the active address space and accessible from user mode. If
// write is true, the pages must also be writable.
func CheckUserRange(virtAddr, size uintptr, write bool) *kernel.Error {
	_, err := userPages(virtAddr, size, write, nil)
	return err
}

// CopyToUser copies data to the user virtual address virtAddr. Nothing is
// copied unless the whole destination range is writable by user mode.
func CopyToUser(virtAddr uintptr, data []byte) *kernel.Error {
	if err := CheckUserRange(virtAddr, uintptr(len(data)), true); err != nil {
		return err
	}

	_, err := userPages(virtAddr, uintptr(len(data)), true, func(physAddr uintptr, offset, n uintptr) bool {
		copy(mm.Bytes(physAddr, n), data[offset:offset+n])
		return true
	})
	return err
}

// CopyFromUser fills buf with the bytes at the user virtual address virtAddr.
func CopyFromUser(virtAddr uintptr, buf []byte) *kernel.Error {
	_, err := userPages(virtAddr, uintptr(len(buf)), false, func(physAddr uintptr, offset, n uintptr) bool {
		copy(buf[offset:offset+n], mm.Bytes(physAddr, n))
		return true
	})
	return err
}

// UserString reads a NUL-terminated string from the user virtual address
// virtAddr. At most maxLen bytes are returned; longer strings are truncated.
// Pages past the terminator are never touched.
func UserString(virtAddr uintptr, maxLen int) ([]byte, *kernel.Error) {
	var out []byte

	_, err := userPages(virtAddr, uintptr(maxLen), false, func(physAddr uintptr, _, n uintptr) bool {
		for _, b := range mm.Bytes(physAddr, n) {
			if b == 0 {
				return false
			}
			out = append(out, b)
		}
		return true
	})
	return out, err
}

// ReadUserUint32 reads a 32-bit value from the user virtual address virtAddr.
func ReadUserUint32(virtAddr uintptr) (uint32, *kernel.Error) {
	var buf [4]byte
	if err := CopyFromUser(virtAddr, buf[:]); err != nil {
		return 0, err
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, nil
}

// WriteUserUint32 stores a 32-bit value at the user virtual address virtAddr.
func WriteUserUint32(virtAddr uintptr, v uint32) *kernel.Error {
	return CopyToUser(virtAddr, []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

// userPages walks the user range [virtAddr, virtAddr+size) one page at a
// time invoking visit with the physical address of each chunk and its offset
// into the range. Walking stops early if visit returns false. The function
// returns the number of bytes visited.
func userPages(virtAddr, size uintptr, write bool, visit func(physAddr, offset, n uintptr) bool) (uintptr, *kernel.Error) {
	if virtAddr+size < virtAddr {
		return 0, errBadAddress
	}

	required := FlagPresent | FlagUserAccessible
	if write {
		required |= FlagRW
	}

	var (
		pdt    = activeDirectory()
		offset uintptr
	)

	for offset < size {
		cur := virtAddr + offset
		n := mm.PageSize - (cur & (mm.PageSize - 1))
		if n > size-offset {
			n = size - offset
		}

		physAddr, flags, ok := pdt.walk(cur)
		if !ok || flags&required != required || mm.Bytes(physAddr, n) == nil {
			return offset, errBadAddress
		}

		if visit != nil && !visit(physAddr, offset, n) {
			return offset + n, nil
		}
		offset += n
	}

	return offset, nil
}
