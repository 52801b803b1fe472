package core

import (
	"encoding/binary"
	"gopherix/device/tty"
	"gopherix/kernel"
	"gopherix/kernel/cpu"
	"gopherix/kernel/fs"
	"gopherix/kernel/mm/vmm"
	"gopherix/kernel/proc"
)

// chunkSize bounds the kernel buffers used to move data between user memory
// and devices.
const chunkSize = tty.LineSize

var (
	errBadDescriptor = &kernel.Error{Kind: kernel.InvalidArgument, Module: "core", Message: "bad file descriptor"}
	errBadBuffer     = &kernel.Error{Kind: kernel.InvalidArgument, Module: "core", Message: "bad buffer"}
	errBadName       = &kernel.Error{Kind: kernel.InvalidArgument, Module: "core", Message: "bad file name"}
	errWriteOnly     = &kernel.Error{Kind: kernel.InvalidArgument, Module: "core", Message: "descriptor is write only"}
	errReadOnly      = &kernel.Error{Kind: kernel.InvalidArgument, Module: "core", Message: "descriptor is read only"}
	errUnsupported   = &kernel.Error{Kind: kernel.Unsupported, Module: "core", Message: "operation not supported by file"}
)

// descriptor returns the open descriptor fd of the running process.
func (k *Kernel) descriptor(fd int32) (*proc.PCB, *proc.FileDescriptor, *kernel.Error) {
	p := k.current()
	if p == nil {
		return nil, nil, errNoProcess
	}

	desc, err := p.Descriptor(int(fd))
	if err != nil {
		return nil, nil, errBadDescriptor
	}

	return p, desc, nil
}

// Read reads up to n bytes from fd into the user buffer at buf.
func (k *Kernel) Read(fd int32, buf uintptr, n int32) (int32, *kernel.Error) {
	if fd == proc.Stdout {
		return -1, errWriteOnly
	}

	p, desc, err := k.descriptor(fd)
	if err != nil {
		return -1, err
	}

	if n < 0 {
		return -1, errBadBuffer
	}

	if err = vmm.CheckUserRange(buf, uintptr(n), true); err != nil {
		return -1, err
	}

	switch desc.Kind {
	case proc.KindTerminal:
		return k.readTerminal(p, buf, n)
	case proc.KindRegularFile:
		return k.readFile(desc, buf, n)
	case proc.KindDirectory:
		return k.readDirectory(desc, buf, n)
	case proc.KindClock:
		return k.readClock()
	default:
		return -1, errBadDescriptor
	}
}

// Write writes n bytes from the user buffer at buf to fd.
func (k *Kernel) Write(fd int32, buf uintptr, n int32) (int32, *kernel.Error) {
	if fd == proc.Stdin {
		return -1, errReadOnly
	}

	p, desc, err := k.descriptor(fd)
	if err != nil {
		return -1, err
	}

	if n < 0 {
		return -1, errBadBuffer
	}

	if err = vmm.CheckUserRange(buf, uintptr(n), false); err != nil {
		return -1, err
	}

	switch desc.Kind {
	case proc.KindTerminal:
		return k.writeTerminal(p, buf, n)
	case proc.KindClock:
		return k.writeClock(buf, n)
	case proc.KindRegularFile, proc.KindDirectory:
		return -1, errUnsupported
	default:
		return -1, errBadDescriptor
	}
}

// Open binds the lowest free descriptor of the running process to the file
// whose NUL-terminated name is at the user address name.
func (k *Kernel) Open(name uintptr) (int32, *kernel.Error) {
	p := k.current()
	if p == nil {
		return -1, errNoProcess
	}

	fname, err := vmm.UserString(name, fs.NameLength+1)
	if err != nil {
		return -1, err
	}

	if len(fname) == 0 {
		return -1, errBadName
	}

	fd, err := p.AllocFD(proc.KindNone, 0)
	if err != nil {
		return -1, err
	}

	dentry, err := k.files.Lookup(fname)
	if err != nil {
		p.FreeFD(fd)
		return -1, err
	}

	desc := &p.Files[fd]
	switch dentry.Type {
	case fs.TypeRTC:
		desc.Kind = proc.KindClock
		if k.dev.Clock != nil {
			k.dev.Clock.Open()
		}
	case fs.TypeDirectory:
		desc.Kind = proc.KindDirectory
	default:
		desc.Kind = proc.KindRegularFile
		desc.Inode = dentry.Inode
	}

	return int32(fd), nil
}

// Close releases a dynamic descriptor of the running process.
func (k *Kernel) Close(fd int32) (int32, *kernel.Error) {
	p := k.current()
	if p == nil {
		return -1, errNoProcess
	}

	if err := k.closeFD(p, int(fd)); err != nil {
		return -1, err
	}

	return 0, nil
}

func (k *Kernel) closeFD(p *proc.PCB, fd int) *kernel.Error {
	if err := p.FreeFD(fd); err != nil {
		return errBadDescriptor
	}
	return nil
}

// readTerminal blocks until the line discipline of the process's terminal
// commits a line and copies up to n bytes of it.
func (k *Kernel) readTerminal(p *proc.PCB, buf uintptr, n int32) (int32, *kernel.Error) {
	var line [tty.LineSize]byte
	size := len(line)
	if int(n) < size {
		size = int(n)
	}

	got := k.mux.Terminal(p.Terminal).Line.Read(line[:size])
	if err := vmm.CopyToUser(buf, line[:got]); err != nil {
		return -1, err
	}

	return int32(got), nil
}

func (k *Kernel) writeTerminal(p *proc.PCB, buf uintptr, n int32) (int32, *kernel.Error) {
	var (
		chunk [chunkSize]byte
		vt    = k.mux.Terminal(p.Terminal).VT
	)

	for done := int32(0); done < n; {
		size := n - done
		if size > chunkSize {
			size = chunkSize
		}

		if err := vmm.CopyFromUser(buf+uintptr(done), chunk[:size]); err != nil {
			return -1, err
		}

		vt.Write(chunk[:size])
		done += size
	}

	return n, nil
}

func (k *Kernel) readFile(desc *proc.FileDescriptor, buf uintptr, n int32) (int32, *kernel.Error) {
	var (
		chunk [chunkSize]byte
		done  int32
	)

	for done < n {
		size := n - done
		if size > chunkSize {
			size = chunkSize
		}

		got, err := k.files.ReadData(desc.Inode, desc.Pos, chunk[:size])
		if err != nil {
			return -1, err
		}

		if got == 0 {
			break
		}

		if err = vmm.CopyToUser(buf+uintptr(done), chunk[:got]); err != nil {
			return -1, err
		}

		desc.Pos += uint32(got)
		done += int32(got)
	}

	return done, nil
}

// readDirectory copies the name of the next directory entry. Names that
// fill the whole name field are not NUL-terminated. A buffer too small for a
// single byte is rejected without consuming an entry.
func (k *Kernel) readDirectory(desc *proc.FileDescriptor, buf uintptr, n int32) (int32, *kernel.Error) {
	if n <= 0 {
		return -1, errBadBuffer
	}

	dentry, err := k.files.DentryAt(int(desc.Pos))
	if kernel.Is(err, kernel.NotFound) {
		return 0, nil
	} else if err != nil {
		return -1, err
	}

	name := dentry.NameBytes()
	if int(n) < len(name) {
		name = name[:n]
	}

	if err = vmm.CopyToUser(buf, name); err != nil {
		return -1, err
	}

	desc.Pos++
	return int32(len(name)), nil
}

// readClock blocks until the next periodic clock interrupt.
func (k *Kernel) readClock() (int32, *kernel.Error) {
	if k.dev.Clock == nil {
		return -1, errUnsupported
	}

	for start := k.dev.Clock.Ticks(); k.dev.Clock.Ticks() == start; {
		cpu.WaitForInterrupt()
	}

	return 0, nil
}

// writeClock sets the periodic interrupt rate. Buffers of at least four
// bytes hold a little-endian 32-bit rate; shorter ones a single byte.
func (k *Kernel) writeClock(buf uintptr, n int32) (int32, *kernel.Error) {
	if k.dev.Clock == nil {
		return -1, errUnsupported
	}

	var raw [4]byte
	size := 1
	if n >= 4 {
		size = 4
	} else if n == 0 {
		return -1, errBadBuffer
	}

	if err := vmm.CopyFromUser(buf, raw[:size]); err != nil {
		return -1, err
	}

	if err := k.dev.Clock.SetFrequency(binary.LittleEndian.Uint32(raw[:])); err != nil {
		return -1, err
	}

	return 0, nil
}
