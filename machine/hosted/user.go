package hosted

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"gopherix/kernel/cpu"
	"gopherix/kernel/gate"
	"gopherix/kernel/mm"
)

// Executable image layout.
const (
	// NameOffset is the offset of the NUL padded program name embedded in
	// an image.
	NameOffset = 0x28

	// NameSize is the size of the program name field.
	NameSize = 16

	imageSize   = 0x40
	entryOffset = 24

	// heapBase is where User.Alloc starts handing out memory.
	heapBase = mm.ProgramLoadAddress + 0x100000

	// stackReserve keeps allocations clear of the user stack.
	stackReserve = 0x10000

	// sysHalt is the syscall number crt0 invokes when a program returns.
	sysHalt = 1
)

var imageMagic = []byte{0x7f, 'E', 'L', 'F'}

// Program is the body of a user program. It runs in user mode and talks to
// the kernel through u.
type Program func(u *User)

var (
	registryMu sync.Mutex
	registry   = map[string]Program{}
)

// Register adds a program to the global registry. Programs are usually
// registered from init functions.
func Register(name string, prog Program) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = prog
}

// Programs returns the sorted names of the registered programs.
func Programs() []string {
	registryMu.Lock()
	defer registryMu.Unlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Machine) lookupProgram(name string) Program {
	if prog, ok := m.cfg.Programs[name]; ok {
		return prog
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	return registry[name]
}

// Binary returns an executable image for the named program. Names longer
// than NameSize bytes are truncated.
func Binary(name string) []byte {
	img := make([]byte, imageSize)
	copy(img, imageMagic)

	// 32-bit little-endian i386 executable
	img[4], img[5], img[6] = 1, 1, 1
	binary.LittleEndian.PutUint16(img[16:], 2)
	binary.LittleEndian.PutUint16(img[18:], 3)
	binary.LittleEndian.PutUint32(img[entryOffset:], uint32(mm.ProgramLoadAddress))
	copy(img[NameOffset:NameOffset+NameSize], name)
	return img
}

// User is the user-mode view of the machine handed to a running program.
type User struct {
	m   *Machine
	brk uintptr
}

// runUser is the body of a user-mode thread. It resolves the program named
// by the loaded image and runs it; returning from the program halts the
// process with status 0.
func (m *Machine) runUser(frame cpu.TrapFrame) {
	defer m.exitThread()

	m.iflag = frame.EFlags&cpu.FlagIF != 0
	u := &User{m: m, brk: heapBase}

	var name [NameSize]byte
	u.Peek(mm.ProgramLoadAddress+NameOffset, name[:])
	if n := bytes.IndexByte(name[:], 0); n >= 0 {
		prog := m.lookupProgram(string(name[:n]))
		if prog != nil && uintptr(frame.EIP) == mm.ProgramLoadAddress {
			prog(u)
			u.Syscall(sysHalt, 0, 0, 0)
			m.fail(errHaltReturned)
			return
		}
	}

	m.exception(gate.InvalidOpcode, 0)
}

// Syscall traps into the kernel with num in EAX and the arguments in EBX,
// ECX and EDX and returns EAX.
func (u *User) Syscall(num, arg1, arg2, arg3 uint32) int32 {
	m := u.m
	m.stopIfHalted()
	m.deliver()

	regs := gate.Registers{
		EAX: num, EBX: arg1, ECX: arg2, EDX: arg3,
		Info: num, CS: cpu.UserCS, SS: cpu.UserDS, EFlags: cpu.FlagIF,
	}

	m.iflag = false
	if !gate.Dispatch(gate.Syscall, &regs) {
		// not-present IDT gate: error code selects the IDT entry
		m.exception(gate.GPFException, uint32(gate.Syscall)<<3|2)
	}
	m.iflag = true

	m.stopIfHalted()
	m.deliver()
	return int32(regs.EAX)
}

// Peek copies user memory at addr into buf. Inaccessible addresses raise a
// page fault.
func (u *User) Peek(addr uintptr, buf []byte) {
	u.m.userAccess(addr, buf, false)
}

// Poke copies data to user memory at addr. Inaccessible addresses raise a
// page fault.
func (u *User) Poke(addr uintptr, data []byte) {
	u.m.userAccess(addr, data, true)
}

// Alloc reserves size bytes of user memory and returns their address.
// Allocations are word aligned and never freed.
func (u *User) Alloc(size uintptr) uintptr {
	addr := u.brk
	next := (addr + size + 3) &^ 3
	if next > mm.UserStackTop-stackReserve {
		panic(fmt.Sprintf("user heap exhausted allocating %d bytes", size))
	}

	u.brk = next
	return addr
}

// CString copies s to freshly allocated user memory as a NUL-terminated
// string.
func (u *User) CString(s string) uintptr {
	addr := u.Alloc(uintptr(len(s) + 1))
	u.Poke(addr, append([]byte(s), 0))
	return addr
}

// Bytes returns a copy of n bytes of user memory at addr.
func (u *User) Bytes(addr uintptr, n int) []byte {
	buf := make([]byte, n)
	u.Peek(addr, buf)
	return buf
}
