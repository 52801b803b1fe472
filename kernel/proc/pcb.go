// Package proc implements the process control block store. PCBs live in a
// fixed pool with one slot per process; the slot index doubles as the pid and
// as the index of the process address space.
package proc

import (
	"gopherix/kernel/cpu"
	"gopherix/kernel/mm"
)

const (
	// MaxProcesses is the number of live processes the kernel supports.
	MaxProcesses = mm.ProcessSlots

	// NumDescriptors is the size of the per-process descriptor table.
	NumDescriptors = 8

	// FirstDynamicFD is the lowest descriptor that open may hand out.
	FirstDynamicFD = 2

	// ArgSize is the size of the per-process argument buffer.
	ArgSize = 128

	// pcbBase is the physical address of the PCB for pid 0. The PCB for
	// pid N lives at pcbBase - N*mm.KernelStackSize, at the bottom of the
	// pid's kernel stack.
	pcbBase = mm.KernelStackTop - mm.KernelStackSize
)

// Standard descriptors.
const (
	Stdin  = 0
	Stdout = 1
)

// FileKind selects the operations backing a file descriptor.
type FileKind uint8

// The supported file kinds.
const (
	KindNone FileKind = iota
	KindTerminal
	KindDirectory
	KindRegularFile
	KindClock
)

var kindNames = [...]string{"none", "terminal", "directory", "file", "clock"}

// String implements fmt.Stringer.
func (k FileKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// FileDescriptor is a slot of a process descriptor table.
type FileDescriptor struct {
	// Kind selects the operation set for this descriptor.
	Kind FileKind

	// Inode is the backing inode for regular files; unused otherwise.
	Inode uint32

	// Pos is the byte cursor for regular files and the entry cursor for
	// directories.
	Pos uint32

	// InUse is set while the descriptor is open.
	InUse bool
}

// PCB is a process control block.
type PCB struct {
	// PID is the process identifier and the slot index of the process.
	PID int

	// Parent is the kernel context that execute parked while this process
	// runs. Halt resumes it.
	Parent cpu.Context

	// Self is the saved kernel context of this process while another
	// process or terminal owns the CPU.
	Self cpu.Context

	// Terminal is the terminal the process was started on.
	Terminal int

	// Status is the exit status recorded by halt.
	Status uint8

	// ParentPCB is the PCB of the process that executed this one. It is
	// nil for the shell at the root of a terminal.
	ParentPCB *PCB

	// PDT is the physical address of the page directory of the process.
	PDT uintptr

	// Args holds the NUL-terminated argument string.
	Args [ArgSize]byte

	// Files is the descriptor table.
	Files [NumDescriptors]FileDescriptor
}

// Address returns the physical address where the PCB is placed.
func (p *PCB) Address() uintptr {
	return pcbBase - uintptr(p.PID)*mm.KernelStackSize
}

// KernelStack returns the initial kernel stack pointer of the process.
func (p *PCB) KernelStack() uintptr {
	return mm.KernelStack(p.PID)
}

// IsShell returns true if the process is the root of its terminal.
func (p *PCB) IsShell() bool {
	return p.ParentPCB == nil
}

// SetArgs stores args in the argument buffer, truncating it so that the
// terminating NUL always fits.
func (p *PCB) SetArgs(args []byte) {
	p.Args = [ArgSize]byte{}
	copy(p.Args[:ArgSize-1], args)
}

// Arguments returns the stored argument string without its terminator.
func (p *PCB) Arguments() []byte {
	for i, b := range p.Args {
		if b == 0 {
			return p.Args[:i]
		}
	}
	return p.Args[:]
}

// reset zero-initializes the PCB and pins stdin/stdout to the terminal.
func (p *PCB) reset(pid int) {
	*p = PCB{PID: pid}
	p.Files[Stdin] = FileDescriptor{Kind: KindTerminal, InUse: true}
	p.Files[Stdout] = FileDescriptor{Kind: KindTerminal, InUse: true}
}
