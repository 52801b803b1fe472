package core

import (
	"gopherix/kernel"
	"gopherix/kernel/gate"
	"gopherix/kernel/mm"
	"gopherix/kernel/mm/vmm"
	"gopherix/kernel/proc"
)

// System call numbers.
const (
	SysHalt = iota + 1
	SysExecute
	SysRead
	SysWrite
	SysOpen
	SysClose
	SysGetArgs
	SysVidmap
	SysSetHandler
	SysSigreturn
)

var (
	errBadSyscall = &kernel.Error{Kind: kernel.InvalidArgument, Module: "core", Message: "unknown system call"}
	errNoArgs     = &kernel.Error{Kind: kernel.InvalidArgument, Module: "core", Message: "no arguments"}
	errNoSignals  = &kernel.Error{Kind: kernel.Unsupported, Module: "core", Message: "signals are not supported"}
)

// syscallHandler is the gate handler for int 0x80. The call number is in
// EAX and the arguments in EBX, ECX and EDX; the result replaces EAX.
func (k *Kernel) syscallHandler(regs *gate.Registers) {
	ret, _ := k.Syscall(regs.EAX, regs.EBX, regs.ECX, regs.EDX)
	regs.EAX = uint32(ret)
}

// Syscall runs system call num. Every failure is reported to user mode as
// -1; the error is returned for in-kernel callers.
func (k *Kernel) Syscall(num, a1, a2, a3 uint32) (int32, *kernel.Error) {
	var (
		ret int32
		err *kernel.Error
	)

	switch num {
	case SysHalt:
		k.Halt(uint8(a1))
		return 0, nil
	case SysExecute:
		ret, err = k.sysExecute(uintptr(a1))
	case SysRead:
		ret, err = k.Read(int32(a1), uintptr(a2), int32(a3))
	case SysWrite:
		ret, err = k.Write(int32(a1), uintptr(a2), int32(a3))
	case SysOpen:
		ret, err = k.Open(uintptr(a1))
	case SysClose:
		ret, err = k.Close(int32(a1))
	case SysGetArgs:
		ret, err = k.GetArgs(uintptr(a1), int32(a2))
	case SysVidmap:
		ret, err = k.Vidmap(uintptr(a1))
	case SysSetHandler, SysSigreturn:
		err = errNoSignals
	default:
		err = errBadSyscall
	}

	if err != nil {
		return -1, err
	}

	return ret, nil
}

func (k *Kernel) sysExecute(cmd uintptr) (int32, *kernel.Error) {
	line, err := vmm.UserString(cmd, proc.ArgSize)
	if err != nil {
		return -1, err
	}

	return k.Execute(k.running, line)
}

// GetArgs copies the NUL-terminated argument string of the running process
// to the user buffer at buf. The buffer is left untouched on failure.
func (k *Kernel) GetArgs(buf uintptr, n int32) (int32, *kernel.Error) {
	p := k.current()
	if p == nil {
		return -1, errNoProcess
	}

	if n <= 0 {
		return -1, errBadBuffer
	}

	args := p.Arguments()
	if len(args) == 0 || args[0] == '%' {
		return -1, errNoArgs
	}

	if len(args)+1 > int(n) {
		return -1, errBadBuffer
	}

	if err := vmm.CopyToUser(buf, p.Args[:len(args)+1]); err != nil {
		return -1, err
	}

	return 0, nil
}

// Vidmap stores the user address of the video page at the user address
// screenStart.
func (k *Kernel) Vidmap(screenStart uintptr) (int32, *kernel.Error) {
	if screenStart < mm.UserBase || screenStart > mm.UserEnd-4 {
		return -1, errBadBuffer
	}

	if err := vmm.WriteUserUint32(screenStart, uint32(mm.VideoAlias)); err != nil {
		return -1, err
	}

	return 0, nil
}
