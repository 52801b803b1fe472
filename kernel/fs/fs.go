// Package fs defines the interface between the kernel and the read-only file
// store it boots from.
package fs

import (
	"bytes"
	"gopherix/kernel"
)

// NameLength is the size of the name field of a directory entry. Names that
// fill the whole field are not NUL-terminated.
const NameLength = 32

// FileType describes the kind of object a directory entry refers to.
type FileType uint32

// The supported file types.
const (
	TypeRTC FileType = iota
	TypeDirectory
	TypeRegular
)

// Dentry is a directory entry.
type Dentry struct {
	Name  [NameLength]byte
	Type  FileType
	Inode uint32
}

// NameBytes returns the entry name without NUL padding.
func (d *Dentry) NameBytes() []byte {
	if i := bytes.IndexByte(d.Name[:], 0); i >= 0 {
		return d.Name[:i]
	}
	return d.Name[:]
}

// Store is implemented by file stores the kernel can read from.
type Store interface {
	// Lookup resolves a file name to its directory entry.
	Lookup(name []byte) (Dentry, *kernel.Error)

	// DentryAt returns the directory entry at index. It fails with a
	// NotFound error past the last entry.
	DentryAt(index int) (Dentry, *kernel.Error)

	// ReadData copies up to len(buf) bytes of the inode contents starting
	// at offset into buf. It returns 0 at end of file.
	ReadData(inode, offset uint32, buf []byte) (int, *kernel.Error)

	// Length returns the size of the inode contents in bytes.
	Length(inode uint32) (uint32, *kernel.Error)
}
