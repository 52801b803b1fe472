// Package bootfs reads the read-only archive the kernel boots with.
//
// An archive is a sequence of 4K blocks. Block 0 is the boot block: three
// little-endian counts (directory entries, inodes, data blocks), 52 reserved
// bytes and up to 63 64-byte directory entries. Each following block up to
// the inode count is an inode holding the file length and up to 1023 data
// block indices. Data blocks come last.
//
// Archives written by Builder stamp their format version in the reserved
// bytes of the boot block. Unstamped archives are accepted as is.
package bootfs

import (
	"bytes"
	"encoding/binary"
	"gopherix/kernel"
	"gopherix/kernel/fs"

	"github.com/Masterminds/semver/v3"
)

const (
	// BlockSize is the size of every archive block.
	BlockSize = 4096

	// MaxDentries is the number of directory entries in the boot block.
	MaxDentries = 63

	// MaxFileBlocks is the number of data blocks an inode can reference.
	MaxFileBlocks = (BlockSize - 4) / 4

	dentrySize      = 64
	dentryOffset    = 64
	reservedOffset  = 12
	stampMagicSize  = 4
	versionOffset   = reservedOffset + stampMagicSize
	versionFieldLen = dentryOffset - versionOffset

	// FormatVersion is the archive format version written by Builder.
	FormatVersion = "1.0.0"

	// supportedVersions constrains stamped archive versions.
	supportedVersions = "~1"
)

var (
	stampMagic = []byte("GPXF")

	errTooSmall           = &kernel.Error{Kind: kernel.Corrupt, Module: "bootfs", Message: "archive is smaller than its boot block"}
	errTruncated          = &kernel.Error{Kind: kernel.Corrupt, Module: "bootfs", Message: "archive is smaller than its block counts"}
	errTooManyDentries    = &kernel.Error{Kind: kernel.Corrupt, Module: "bootfs", Message: "too many directory entries"}
	errBadVersion         = &kernel.Error{Kind: kernel.Corrupt, Module: "bootfs", Message: "malformed archive version stamp"}
	errUnsupportedVersion = &kernel.Error{Kind: kernel.Corrupt, Module: "bootfs", Message: "unsupported archive version"}
	errBadBlock           = &kernel.Error{Kind: kernel.Corrupt, Module: "bootfs", Message: "inode references an invalid data block"}
	errNoSuchFile         = &kernel.Error{Kind: kernel.NotFound, Module: "bootfs", Message: "no such file"}
	errNoSuchEntry        = &kernel.Error{Kind: kernel.NotFound, Module: "bootfs", Message: "directory entry index out of range"}
	errBadInode           = &kernel.Error{Kind: kernel.InvalidArgument, Module: "bootfs", Message: "inode out of range"}
)

// Image is a parsed archive.
type Image struct {
	data []byte

	numDentries uint32
	numInodes   uint32
	numBlocks   uint32

	version *semver.Version
}

// Open validates the archive held in data. The archive is read in place.
func Open(data []byte) (*Image, *kernel.Error) {
	if len(data) < BlockSize {
		return nil, errTooSmall
	}

	img := &Image{
		data:        data,
		numDentries: binary.LittleEndian.Uint32(data[0:]),
		numInodes:   binary.LittleEndian.Uint32(data[4:]),
		numBlocks:   binary.LittleEndian.Uint32(data[8:]),
	}

	if img.numDentries > MaxDentries {
		return nil, errTooManyDentries
	}

	if need := (1 + uint64(img.numInodes) + uint64(img.numBlocks)) * BlockSize; uint64(len(data)) < need {
		return nil, errTruncated
	}

	if err := img.checkVersion(); err != nil {
		return nil, err
	}

	return img, nil
}

// checkVersion parses the version stamp, if present, and ensures the archive
// format is supported.
func (img *Image) checkVersion() *kernel.Error {
	if !bytes.Equal(img.data[reservedOffset:reservedOffset+stampMagicSize], stampMagic) {
		return nil
	}

	field := img.data[versionOffset : versionOffset+versionFieldLen]
	if end := bytes.IndexByte(field, 0); end >= 0 {
		field = field[:end]
	}

	v, err := semver.NewVersion(string(field))
	if err != nil {
		return errBadVersion
	}

	constraint, err := semver.NewConstraint(supportedVersions)
	if err != nil || !constraint.Check(v) {
		return errUnsupportedVersion
	}

	img.version = v
	return nil
}

// Version returns the format version stamped in the archive or nil for
// unstamped archives.
func (img *Image) Version() *semver.Version {
	return img.version
}

// Counts returns the number of directory entries, inodes and data blocks.
func (img *Image) Counts() (dentries, inodes, blocks uint32) {
	return img.numDentries, img.numInodes, img.numBlocks
}

// Lookup resolves a file name to its directory entry. Names are compared over
// at most fs.NameLength bytes.
func (img *Image) Lookup(name []byte) (fs.Dentry, *kernel.Error) {
	if len(name) == 0 || len(name) > fs.NameLength {
		return fs.Dentry{}, errNoSuchFile
	}

	for i := 0; i < int(img.numDentries); i++ {
		d := img.dentry(i)
		if bytes.Equal(d.NameBytes(), name) {
			return d, nil
		}
	}

	return fs.Dentry{}, errNoSuchFile
}

// DentryAt returns the directory entry at index.
func (img *Image) DentryAt(index int) (fs.Dentry, *kernel.Error) {
	if index < 0 || index >= int(img.numDentries) {
		return fs.Dentry{}, errNoSuchEntry
	}

	return img.dentry(index), nil
}

func (img *Image) dentry(index int) fs.Dentry {
	raw := img.data[dentryOffset+index*dentrySize:]

	var d fs.Dentry
	copy(d.Name[:], raw[:fs.NameLength])
	d.Type = fs.FileType(binary.LittleEndian.Uint32(raw[32:]))
	d.Inode = binary.LittleEndian.Uint32(raw[36:])
	return d
}

// Length returns the size of an inode's contents.
func (img *Image) Length(inode uint32) (uint32, *kernel.Error) {
	if inode >= img.numInodes {
		return 0, errBadInode
	}

	return binary.LittleEndian.Uint32(img.data[img.inodeOffset(inode):]), nil
}

// ReadData copies up to len(buf) bytes of the inode contents starting at
// offset. Reads never extend past the end of the file; a read at or past the
// end returns 0.
func (img *Image) ReadData(inode, offset uint32, buf []byte) (int, *kernel.Error) {
	length, err := img.Length(inode)
	if err != nil {
		return 0, err
	}

	if offset >= length || len(buf) == 0 {
		return 0, nil
	}

	remaining := length - offset
	if uint64(len(buf)) < uint64(remaining) {
		remaining = uint32(len(buf))
	}

	var (
		inodeBase = img.inodeOffset(inode)
		dataBase  = (1 + uint64(img.numInodes)) * BlockSize
		copied    int
	)

	for remaining > 0 {
		blockSlot := offset / BlockSize
		if blockSlot >= MaxFileBlocks {
			return copied, errBadBlock
		}

		block := binary.LittleEndian.Uint32(img.data[inodeBase+4+uint64(blockSlot)*4:])
		if block >= img.numBlocks {
			return copied, errBadBlock
		}

		inBlock := offset % BlockSize
		n := BlockSize - inBlock
		if n > remaining {
			n = remaining
		}

		start := dataBase + uint64(block)*BlockSize + uint64(inBlock)
		copy(buf[copied:], img.data[start:start+uint64(n)])

		copied += int(n)
		offset += n
		remaining -= n
	}

	return copied, nil
}

func (img *Image) inodeOffset(inode uint32) uint64 {
	return (1 + uint64(inode)) * BlockSize
}
