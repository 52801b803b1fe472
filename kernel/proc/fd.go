package proc

import "gopherix/kernel"

var (
	errNoFreeDescriptor = &kernel.Error{Kind: kernel.ResourceExhausted, Module: "proc", Message: "no free file descriptor"}
	errBadDescriptor    = &kernel.Error{Kind: kernel.InvalidArgument, Module: "proc", Message: "bad file descriptor"}
)

// AllocFD reserves the lowest free dynamic descriptor and binds it to kind.
// The cursor starts at 0.
func (p *PCB) AllocFD(kind FileKind, inode uint32) (int, *kernel.Error) {
	for fd := FirstDynamicFD; fd < NumDescriptors; fd++ {
		if p.Files[fd].InUse {
			continue
		}

		p.Files[fd] = FileDescriptor{Kind: kind, Inode: inode, InUse: true}
		return fd, nil
	}

	return -1, errNoFreeDescriptor
}

// FreeFD clears a dynamic descriptor. Standard descriptors, out of range
// descriptors and descriptors that are not open are rejected and left
// unchanged.
func (p *PCB) FreeFD(fd int) *kernel.Error {
	if fd < FirstDynamicFD || fd >= NumDescriptors || !p.Files[fd].InUse {
		return errBadDescriptor
	}

	p.Files[fd] = FileDescriptor{}
	return nil
}

// Descriptor returns the open descriptor fd.
func (p *PCB) Descriptor(fd int) (*FileDescriptor, *kernel.Error) {
	if fd < 0 || fd >= NumDescriptors || !p.Files[fd].InUse {
		return nil, errBadDescriptor
	}

	return &p.Files[fd], nil
}
