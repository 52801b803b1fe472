//go:build unix

package hosted

import "golang.org/x/sys/unix"

// allocateMemory maps an anonymous private region to back physical memory.
// The pages are zero-filled and only committed by the host when touched.
func allocateMemory(size int) ([]byte, func() error, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}

	return mem, func() error { return unix.Munmap(mem) }, nil
}
