// Package image assembles boot archives out of the user programs and a
// directory of host files.
package image

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopherix/kernel/fs/bootfs"
	"gopherix/machine/hosted"
	"gopherix/userland"
)

// Options controls the contents of an archive.
type Options struct {
	// Root is a host directory whose regular files are added to the
	// archive. Files override the built-in files with the same name.
	Root string

	// Programs lists the programs to embed. A nil slice embeds every
	// registered program.
	Programs []string

	// Version is the format version stamped in the archive. It defaults
	// to bootfs.FormatVersion.
	Version string

	// Unstamped omits the version stamp.
	Unstamped bool
}

// Build returns an archive holding a directory entry, the clock device, the
// programs and the files.
func Build(opts Options) ([]byte, error) {
	b := bootfs.NewBuilder()
	switch {
	case opts.Unstamped:
		b.SetVersion("")
	case opts.Version != "":
		if err := b.SetVersion(opts.Version); err != nil {
			return nil, err
		}
	}

	if err := b.AddDirectory("."); err != nil {
		return nil, err
	}
	if err := b.AddRTC("rtc"); err != nil {
		return nil, err
	}

	programs := opts.Programs
	if programs == nil {
		programs = hosted.Programs()
	}
	known := make(map[string]bool)
	for _, name := range hosted.Programs() {
		known[name] = true
	}
	for _, name := range programs {
		if !known[name] {
			return nil, fmt.Errorf("image: unknown program %q", name)
		}
		if err := b.AddFile(name, hosted.Binary(name)); err != nil {
			return nil, fmt.Errorf("image: adding program %q: %w", name, err)
		}
	}

	contents := userland.Files()
	if opts.Root != "" {
		hostFiles, err := readDir(opts.Root)
		if err != nil {
			return nil, err
		}
		for name, data := range hostFiles {
			contents[name] = data
		}
	}

	names := make([]string, 0, len(contents))
	for name := range contents {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := b.AddFile(name, contents[name]); err != nil {
			return nil, fmt.Errorf("image: adding file %q: %w", name, err)
		}
	}

	return b.Bytes(), nil
}

// readDir loads the regular files of dir. Subdirectories are skipped.
func readDir(dir string) (map[string][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("image: reading %s: %w", dir, err)
	}

	out := make(map[string][]byte)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("image: reading %s: %w", entry.Name(), err)
		}
		out[entry.Name()] = data
	}
	return out, nil
}
