package core

import (
	"bytes"
	"encoding/binary"
	"gopherix/kernel"
	"gopherix/kernel/cpu"
	"gopherix/kernel/fs"
	"gopherix/kernel/mm"
	"gopherix/kernel/proc"
)

const (
	// headerSize is the number of image bytes inspected before loading.
	headerSize = 28

	// entryOffset is the offset of the little-endian entry point.
	entryOffset = 24

	// maxImageSize is the room between the load address and the end of
	// the user region.
	maxImageSize = mm.UserEnd - mm.ProgramLoadAddress
)

var (
	executableMagic = []byte{0x7f, 'E', 'L', 'F'}

	errEmptyCommand  = &kernel.Error{Kind: kernel.InvalidArgument, Module: "core", Message: "empty command"}
	errNotExecutable = &kernel.Error{Kind: kernel.NotExecutable, Module: "core", Message: "file is not an executable"}
	errImageTooLarge = &kernel.Error{Kind: kernel.NotExecutable, Module: "core", Message: "executable does not fit in the user region"}
	errBudget        = &kernel.Error{Kind: kernel.ResourceExhausted, Module: "core", Message: "process budget exhausted"}
)

// ParseCommand splits a command line into the program name and its
// arguments. Leading spaces are skipped before both; the name ends at the
// first space.
func ParseCommand(cmd []byte) (name, args []byte) {
	cmd = bytes.TrimLeft(cmd, " ")
	if i := bytes.IndexByte(cmd, ' '); i >= 0 {
		name, args = cmd[:i], bytes.TrimLeft(cmd[i+1:], " ")
	} else {
		name = cmd
	}

	return name, args
}

// Execute loads the program named by cmd and runs it on terminal term as a
// child of the process currently active there. It returns once the child
// halts with the child's exit status: the status byte sign-extended, with
// positive values reported as 0.
//
// Failures are reported before anything is allocated and leave the process
// store, the counts and the terminal untouched.
func (k *Kernel) Execute(term int, cmd []byte) (int32, *kernel.Error) {
	name, args := ParseCommand(cmd)
	if len(name) == 0 {
		return -1, errEmptyCommand
	}

	dentry, err := k.files.Lookup(name)
	if err != nil {
		return -1, err
	}

	entry, size, err := k.inspect(dentry)
	if err != nil {
		return -1, err
	}

	if k.mux.Processes() >= proc.MaxProcesses {
		return -1, errBudget
	}

	k.lock.Acquire()

	t := k.mux.Terminal(term)
	p, err := k.procs.Allocate()
	if err != nil {
		k.lock.Release()
		return -1, err
	}

	callerPDT := cpu.ActivePDT()
	pdt, err := k.vm.Install(p.PID, k.mux.VideoFrame(term))
	if err != nil {
		report(k.procs.Release(p.PID))
		k.vm.Activate(callerPDT)
		k.lock.Release()
		return -1, err
	}

	image := mm.Bytes(mm.UserPhysAddress(p.PID)+(mm.ProgramLoadAddress-mm.UserBase), uintptr(size))
	if _, err = k.files.ReadData(dentry.Inode, 0, image); err != nil {
		report(k.procs.Release(p.PID))
		k.vm.Activate(callerPDT)
		k.lock.Release()
		return -1, err
	}

	parent := t.Active
	k.procs.Bind(p, parent)
	p.SetArgs(args)
	p.Terminal = term
	p.PDT = pdt
	p.Parent.PDT = callerPDT

	t.Processes++
	t.Active = p

	if parent != nil && k.queues.Contains(parent.PID) {
		report(k.queues.Replace(parent.PID, p.PID))
	} else {
		report(k.queues.Add(p.PID))
	}

	cpu.SetKernelStack(p.KernelStack())
	k.lock.Release()

	cpu.EnterUser(&cpu.TrapFrame{
		EIP:    entry,
		CS:     cpu.UserCS,
		EFlags: cpu.FlagIF,
		ESP:    uint32(mm.UserStackTop),
		SS:     cpu.UserDS,
	}, &p.Parent)

	// Halt resumes us with the parent's directory active.
	status := int32(int8(p.Status))
	if status > 0 {
		status = 0
	}

	return status, nil
}

// inspect validates the executable header of dentry and returns its entry
// point and size.
func (k *Kernel) inspect(dentry fs.Dentry) (entry uint32, size uint32, err *kernel.Error) {
	if dentry.Type != fs.TypeRegular {
		return 0, 0, errNotExecutable
	}

	var header [headerSize]byte
	n, err := k.files.ReadData(dentry.Inode, 0, header[:])
	if err != nil {
		return 0, 0, err
	}

	if n < headerSize || !bytes.Equal(header[:len(executableMagic)], executableMagic) {
		return 0, 0, errNotExecutable
	}

	if size, err = k.files.Length(dentry.Inode); err != nil {
		return 0, 0, err
	}

	if uintptr(size) > maxImageSize {
		return 0, 0, errImageTooLarge
	}

	return binary.LittleEndian.Uint32(header[entryOffset:]), size, nil
}

// Halt terminates the running process. Its dynamic descriptors are closed,
// its pid is released and the kernel context parked by Execute is resumed.
// Halt never returns.
func (k *Kernel) Halt(status uint8) {
	p := k.current()
	if p == nil {
		panicFn(errNoProcess)
		return
	}

	k.lock.Acquire()

	if k.procs.Owner(cpu.KernelStack()) != p {
		report(errStackOwner)
	}

	for fd := proc.FirstDynamicFD; fd < proc.NumDescriptors; fd++ {
		k.closeFD(p, fd)
	}

	t := k.mux.Terminal(p.Terminal)
	t.Processes--
	t.Active = p.ParentPCB
	report(k.procs.Release(p.PID))
	p.Status = status

	if parent := p.ParentPCB; parent != nil {
		if k.queues.Contains(p.PID) {
			report(k.queues.Replace(p.PID, parent.PID))
		}
		cpu.SetKernelStack(parent.KernelStack())
		report(k.vm.Retarget(parent.PID, k.mux.VideoFrame(t.ID)))
	} else {
		report(k.queues.Finish(p.PID))
	}

	k.vm.Activate(p.Parent.PDT)
	k.lock.Release()

	cpu.Restore(p.Parent)
}
