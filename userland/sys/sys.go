// Package sys is the user-side system call library. It plays the role of the
// C library stubs user programs link against: every call traps into the
// kernel through int 0x80 with the call number in EAX and the arguments in
// EBX, ECX and EDX.
package sys

import (
	"bytes"
	"encoding/binary"

	"gopherix/machine/hosted"
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

// Descriptors every process starts with.
const (
	Stdin  = 0
	Stdout = 1
)

const (
	// BufSize is the size of the scratch buffer used to move data between
	// Go memory and user memory.
	BufSize = 1024

	// ArgSize is the longest argument string the kernel keeps.
	ArgSize = 128
)

// Proc wraps the user-mode view of a running program with a scratch buffer
// in user memory. Programs create a single Proc since user memory
// allocations are never freed.
type Proc struct {
	u   *hosted.User
	buf uintptr
}

// New allocates the scratch buffer.
func New(u *hosted.User) *Proc {
	return &Proc{u: u, buf: u.Alloc(BufSize)}
}

// User returns the underlying user handle.
func (p *Proc) User() *hosted.User {
	return p.u
}

// Halt terminates the program with status. It does not return.
func (p *Proc) Halt(status uint8) {
	p.u.Syscall(SysHalt, uint32(status), 0, 0)
}

// Execute runs cmd and waits for it to halt. It returns the child status or
// -1 if cmd could not be executed.
func (p *Proc) Execute(cmd string) int32 {
	if len(cmd) >= BufSize {
		return -1
	}

	p.poke(append([]byte(cmd), 0))
	return p.u.Syscall(SysExecute, uint32(p.buf), 0, 0)
}

// Read reads up to n bytes from fd. The returned slice is only valid until
// the next call.
func (p *Proc) Read(fd int32, n int) ([]byte, int32) {
	if n > BufSize {
		n = BufSize
	}

	ret := p.u.Syscall(SysRead, uint32(fd), uint32(p.buf), uint32(n))
	if ret <= 0 {
		return nil, ret
	}
	return p.u.Bytes(p.buf, int(ret)), ret
}

// Write writes data to fd. It returns the number of bytes written or the
// first failing return value.
func (p *Proc) Write(fd int32, data []byte) int32 {
	var written int32
	for len(data) > 0 {
		chunk := data
		if len(chunk) > BufSize {
			chunk = chunk[:BufSize]
		}

		p.poke(chunk)
		ret := p.u.Syscall(SysWrite, uint32(fd), uint32(p.buf), uint32(len(chunk)))
		if ret < 0 {
			return ret
		}
		written += ret
		data = data[len(chunk):]
	}
	return written
}

// Puts writes s to stdout.
func (p *Proc) Puts(s string) {
	p.Write(Stdout, []byte(s))
}

// Open opens a file by name.
func (p *Proc) Open(name string) int32 {
	if len(name) >= BufSize {
		return -1
	}

	p.poke(append([]byte(name), 0))
	return p.u.Syscall(SysOpen, uint32(p.buf), 0, 0)
}

// Close closes fd.
func (p *Proc) Close(fd int32) int32 {
	return p.u.Syscall(SysClose, uint32(fd), 0, 0)
}

// GetArgs returns the argument string of the program.
func (p *Proc) GetArgs() (string, int32) {
	ret := p.u.Syscall(SysGetArgs, uint32(p.buf), ArgSize, 0)
	if ret != 0 {
		return "", ret
	}

	args := p.u.Bytes(p.buf, ArgSize)
	if end := bytes.IndexByte(args, 0); end >= 0 {
		args = args[:end]
	}
	return string(args), ret
}

// Vidmap maps the video page into the program and returns its address.
func (p *Proc) Vidmap() (uintptr, int32) {
	ret := p.u.Syscall(SysVidmap, uint32(p.buf), 0, 0)
	if ret != 0 {
		return 0, ret
	}

	return uintptr(binary.LittleEndian.Uint32(p.u.Bytes(p.buf, 4))), ret
}

// SetHandler installs a signal handler.
func (p *Proc) SetHandler(signum int32, handler uintptr) int32 {
	return p.u.Syscall(SysSetHandler, uint32(signum), uint32(handler), 0)
}

// Sigreturn returns from a signal handler.
func (p *Proc) Sigreturn() int32 {
	return p.u.Syscall(SysSigreturn, 0, 0, 0)
}

// Syscall issues a raw system call.
func (p *Proc) Syscall(num, arg1, arg2, arg3 uint32) int32 {
	return p.u.Syscall(num, arg1, arg2, arg3)
}

// Scratch returns the address of the scratch buffer.
func (p *Proc) Scratch() uintptr {
	return p.buf
}

func (p *Proc) poke(data []byte) {
	p.u.Poke(p.buf, data)
}
