package bootfs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"gopherix/kernel/fs"

	"github.com/Masterminds/semver/v3"
)

var (
	errBuilderFull   = errors.New("bootfs: directory is full")
	errBuilderName   = errors.New("bootfs: file names must be between 1 and 32 bytes long")
	errBuilderExists = errors.New("bootfs: duplicate file name")
	errBuilderLarge  = errors.New("bootfs: file exceeds the maximum inode size")
)

type builderEntry struct {
	name  string
	ftype fs.FileType
	data  []byte
}

// Builder assembles archives. The zero value is not usable; use NewBuilder.
type Builder struct {
	entries []builderEntry
	version *semver.Version
}

// NewBuilder returns a builder that stamps archives with FormatVersion.
func NewBuilder() *Builder {
	return &Builder{version: semver.MustParse(FormatVersion)}
}

// SetVersion overrides the format version stamped in the archive. An empty
// version produces an unstamped archive.
func (b *Builder) SetVersion(version string) error {
	if version == "" {
		b.version = nil
		return nil
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("bootfs: invalid format version %q: %w", version, err)
	}

	if len(v.String()) > versionFieldLen {
		return fmt.Errorf("bootfs: format version %q does not fit the boot block", version)
	}

	b.version = v
	return nil
}

// AddFile adds a regular file.
func (b *Builder) AddFile(name string, data []byte) error {
	if len(data) > MaxFileBlocks*BlockSize {
		return errBuilderLarge
	}
	return b.add(builderEntry{name: name, ftype: fs.TypeRegular, data: data})
}

// AddDirectory adds a directory entry.
func (b *Builder) AddDirectory(name string) error {
	return b.add(builderEntry{name: name, ftype: fs.TypeDirectory})
}

// AddRTC adds an entry for the real-time clock device.
func (b *Builder) AddRTC(name string) error {
	return b.add(builderEntry{name: name, ftype: fs.TypeRTC})
}

func (b *Builder) add(e builderEntry) error {
	if len(e.name) == 0 || len(e.name) > fs.NameLength {
		return errBuilderName
	}

	if len(b.entries) == MaxDentries {
		return errBuilderFull
	}

	for _, existing := range b.entries {
		if existing.name == e.name {
			return errBuilderExists
		}
	}

	b.entries = append(b.entries, e)
	return nil
}

// Bytes serializes the archive.
func (b *Builder) Bytes() []byte {
	var numInodes, numBlocks uint32
	for _, e := range b.entries {
		if e.ftype == fs.TypeRegular {
			numInodes++
			numBlocks += uint32((len(e.data) + BlockSize - 1) / BlockSize)
		}
	}

	var (
		out       = make([]byte, (1+int(numInodes)+int(numBlocks))*BlockSize)
		dataBase  = (1 + int(numInodes)) * BlockSize
		nextInode uint32
		nextBlock uint32
	)

	binary.LittleEndian.PutUint32(out[0:], uint32(len(b.entries)))
	binary.LittleEndian.PutUint32(out[4:], numInodes)
	binary.LittleEndian.PutUint32(out[8:], numBlocks)

	if b.version != nil {
		copy(out[reservedOffset:], stampMagic)
		copy(out[versionOffset:versionOffset+versionFieldLen], b.version.String())
	}

	for i, e := range b.entries {
		raw := out[dentryOffset+i*dentrySize:]
		copy(raw[:fs.NameLength], e.name)
		binary.LittleEndian.PutUint32(raw[32:], uint32(e.ftype))

		if e.ftype != fs.TypeRegular {
			continue
		}

		binary.LittleEndian.PutUint32(raw[36:], nextInode)
		inode := out[(1+int(nextInode))*BlockSize:]
		binary.LittleEndian.PutUint32(inode, uint32(len(e.data)))

		for slot, off := 0, 0; off < len(e.data); slot, off = slot+1, off+BlockSize {
			binary.LittleEndian.PutUint32(inode[4+slot*4:], nextBlock)
			copy(out[dataBase+int(nextBlock)*BlockSize:], e.data[off:min(off+BlockSize, len(e.data))])
			nextBlock++
		}
		nextInode++
	}

	return out
}
