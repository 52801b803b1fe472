package mm

import "encoding/binary"

// floatingBus is returned by reads from unbacked physical addresses.
const floatingBus = ^uint32(0)

// physMem is the physical address space. It is registered once at boot by
// the platform code.
var physMem []byte

// SetPhysicalMemory registers the byte slice that backs the physical address
// space.
func SetPhysicalMemory(mem []byte) {
	physMem = mem
}

// PhysicalMemory returns the registered physical address space.
func PhysicalMemory() []byte {
	return physMem
}

// Bytes returns a slice aliasing size bytes of physical memory starting at
// addr. It returns nil if the range is not backed by memory.
func Bytes(addr, size uintptr) []byte {
	if addr > uintptr(len(physMem)) || size > uintptr(len(physMem))-addr {
		return nil
	}

	return physMem[addr : addr+size : addr+size]
}

// ReadUint32 reads a little-endian 32-bit value at addr. Reads from
// unbacked addresses return all ones, like a floating bus.
func ReadUint32(addr uintptr) uint32 {
	b := Bytes(addr, 4)
	if b == nil {
		return floatingBus
	}
	return binary.LittleEndian.Uint32(b)
}

// WriteUint32 stores a little-endian 32-bit value at addr. Writes to
// unbacked addresses are discarded.
func WriteUint32(addr uintptr, v uint32) {
	if b := Bytes(addr, 4); b != nil {
		binary.LittleEndian.PutUint32(b, v)
	}
}

// Memset sets size bytes at the given physical address to the supplied
// value using log2(size) copy calls.
func Memset(addr uintptr, value byte, size uintptr) {
	target := Bytes(addr, size)
	if len(target) == 0 {
		return
	}

	target[0] = value
	for index := 1; index < len(target); index *= 2 {
		copy(target[index:], target[:index])
	}
}

// Memcopy copies size bytes from the physical address src to dst.
func Memcopy(src, dst uintptr, size uintptr) {
	srcSlice, dstSlice := Bytes(src, size), Bytes(dst, size)
	if srcSlice == nil || dstSlice == nil {
		return
	}

	copy(dstSlice, srcSlice)
}
