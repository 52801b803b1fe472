package proc

import (
	"gopherix/kernel"
	"gopherix/kernel/mm"
)

var (
	errNoFreeSlot   = &kernel.Error{Kind: kernel.ResourceExhausted, Module: "proc", Message: "no free process slot"}
	errNotAllocated = &kernel.Error{Kind: kernel.InvalidArgument, Module: "proc", Message: "process slot is not allocated"}
)

// Store is the fixed-capacity PCB pool. A bitmap with one bit per slot
// tracks which pids are live.
type Store struct {
	occupied uint8
	pcbs     [MaxProcesses]PCB
}

// Allocate reserves the lowest free pid and returns its zero-initialized
// PCB.
func (s *Store) Allocate() (*PCB, *kernel.Error) {
	for pid := 0; pid < MaxProcesses; pid++ {
		mask := uint8(1) << uint(pid)
		if s.occupied&mask != 0 {
			continue
		}

		s.occupied |= mask
		p := &s.pcbs[pid]
		p.reset(pid)
		return p, nil
	}

	return nil, errNoFreeSlot
}

// Release frees a pid previously returned by Allocate.
func (s *Store) Release(pid int) *kernel.Error {
	if pid < 0 || pid >= MaxProcesses || s.occupied&(uint8(1)<<uint(pid)) == 0 {
		return errNotAllocated
	}

	s.occupied &^= uint8(1) << uint(pid)
	return nil
}

// Bind records the parent of p. A nil parent marks p as a shell.
func (s *Store) Bind(p, parent *PCB) {
	p.ParentPCB = parent
}

// Lookup returns the PCB for a live pid or nil.
func (s *Store) Lookup(pid int) *PCB {
	if pid < 0 || pid >= MaxProcesses || s.occupied&(uint8(1)<<uint(pid)) == 0 {
		return nil
	}
	return &s.pcbs[pid]
}

// Owner returns the live PCB placed at the bottom of the kernel stack that
// contains esp or nil if esp is outside every live process's kernel stack.
func (s *Store) Owner(esp uintptr) *PCB {
	base := esp &^ (mm.KernelStackSize - 1)
	if esp >= mm.KernelStackTop || base > pcbBase {
		return nil
	}

	p := s.Lookup(int((pcbBase - base) / mm.KernelStackSize))
	if p == nil || p.Address() != base {
		return nil
	}
	return p
}

// Live returns the number of allocated PCBs.
func (s *Store) Live() int {
	count := 0
	for bits := s.occupied; bits != 0; bits &= bits - 1 {
		count++
	}
	return count
}

// Occupancy returns the occupancy bitmap; bit N is set if pid N is live.
func (s *Store) Occupancy() uint8 {
	return s.occupied
}
