// Package sched implements the round-robin run queues used to rotate the CPU
// between terminals. Entries live in an arena indexed by pid; the run and
// expired queues only hold pids so that requeueing never touches an entry
// that has been released.
package sched

import (
	"gopherix/kernel"
	"gopherix/kernel/proc"
)

var (
	errBadPID        = &kernel.Error{Kind: kernel.InvalidArgument, Module: "sched", Message: "pid out of range"}
	errAlreadyQueued = &kernel.Error{Kind: kernel.InvalidArgument, Module: "sched", Message: "pid is already queued"}
	errNotQueued     = &kernel.Error{Kind: kernel.InvalidArgument, Module: "sched", Message: "pid is not queued"}
)

type entry struct {
	queued   bool
	finished bool
}

// queue is a fixed-capacity FIFO of pids.
type queue struct {
	pids  [proc.MaxProcesses]int
	head  int
	count int
}

func (q *queue) push(pid int) {
	q.pids[(q.head+q.count)%len(q.pids)] = pid
	q.count++
}

func (q *queue) pop() int {
	pid := q.pids[q.head]
	q.head = (q.head + 1) % len(q.pids)
	q.count--
	return pid
}

func (q *queue) peek() int {
	return q.pids[q.head]
}

// index returns the position of pid relative to the queue head or -1.
func (q *queue) index(pid int) int {
	for i := 0; i < q.count; i++ {
		if q.pids[(q.head+i)%len(q.pids)] == pid {
			return i
		}
	}
	return -1
}

func (q *queue) set(i, pid int) {
	q.pids[(q.head+i)%len(q.pids)] = pid
}

// removeAt drops the element at position i preserving the order of the
// remaining elements.
func (q *queue) removeAt(i int) {
	for ; i < q.count-1; i++ {
		q.set(i, q.pids[(q.head+i+1)%len(q.pids)])
	}
	q.count--
}

// Queues holds the run and expired queues. The head of the run queue is the
// process that owns the CPU. The zero value is an empty scheduler.
type Queues struct {
	entries [proc.MaxProcesses]entry
	run     queue
	expired queue
}

// Add appends pid to the tail of the run queue. A pid that was finished but
// not yet dropped is requeued.
func (s *Queues) Add(pid int) *kernel.Error {
	if pid < 0 || pid >= proc.MaxProcesses {
		return errBadPID
	}

	if e := s.entries[pid]; e.queued {
		if !e.finished {
			return errAlreadyQueued
		}
		s.drop(pid)
	}

	s.entries[pid] = entry{queued: true}
	s.run.push(pid)
	return nil
}

// Finish marks pid as terminated. It stays in its queue until the rotation
// reaches it and is then dropped instead of being requeued.
func (s *Queues) Finish(pid int) *kernel.Error {
	if pid < 0 || pid >= proc.MaxProcesses {
		return errBadPID
	}

	if !s.entries[pid].queued {
		return errNotQueued
	}

	s.entries[pid].finished = true
	return nil
}

// Remove drops pid from whichever queue holds it.
func (s *Queues) Remove(pid int) *kernel.Error {
	if pid < 0 || pid >= proc.MaxProcesses {
		return errBadPID
	}

	if !s.entries[pid].queued {
		return errNotQueued
	}

	s.drop(pid)
	return nil
}

// Replace substitutes newPID for oldPID keeping the queue position of
// oldPID. It is used when a process hands the CPU to a child it executed or
// back to its parent on halt. A finished newPID that is still queued is
// dropped first.
func (s *Queues) Replace(oldPID, newPID int) *kernel.Error {
	if oldPID < 0 || oldPID >= proc.MaxProcesses || newPID < 0 || newPID >= proc.MaxProcesses {
		return errBadPID
	}

	if !s.entries[oldPID].queued {
		return errNotQueued
	}

	if oldPID == newPID {
		return nil
	}

	if e := s.entries[newPID]; e.queued {
		if !e.finished {
			return errAlreadyQueued
		}
		s.drop(newPID)
	}

	for _, q := range []*queue{&s.run, &s.expired} {
		if i := q.index(oldPID); i >= 0 {
			q.set(i, newPID)
			break
		}
	}

	s.entries[newPID] = s.entries[oldPID]
	s.entries[oldPID] = entry{}
	return nil
}

// Tick rotates the queues. The head of the run queue is moved to the expired
// queue, or dropped if it finished, and the queues are swapped once the run
// queue drains. Tick returns the pid that should own the CPU next; ok is
// false if no process is queued.
func (s *Queues) Tick() (next int, ok bool) {
	if s.run.count == 0 {
		s.swap()
	}

	if s.run.count > 0 {
		pid := s.run.pop()
		if s.entries[pid].finished {
			s.entries[pid] = entry{}
		} else {
			s.expired.push(pid)
		}
	}

	return s.Current()
}

// Current returns the pid at the head of the run queue after dropping any
// finished entries that reached it.
func (s *Queues) Current() (pid int, ok bool) {
	for {
		if s.run.count == 0 {
			s.swap()
		}

		if s.run.count == 0 {
			return -1, false
		}

		pid = s.run.peek()
		if !s.entries[pid].finished {
			return pid, true
		}

		s.run.pop()
		s.entries[pid] = entry{}
	}
}

// Contains returns true if pid is queued.
func (s *Queues) Contains(pid int) bool {
	return pid >= 0 && pid < proc.MaxProcesses && s.entries[pid].queued
}

// Len returns the number of queued pids, finished ones included.
func (s *Queues) Len() int {
	return s.run.count + s.expired.count
}

func (s *Queues) swap() {
	s.run, s.expired = s.expired, s.run
}

func (s *Queues) drop(pid int) {
	for _, q := range []*queue{&s.run, &s.expired} {
		if i := q.index(pid); i >= 0 {
			q.removeAt(i)
			break
		}
	}
	s.entries[pid] = entry{}
}
