// Package hosted implements cpu.Platform on top of the Go runtime so that the
// kernel can boot and run user programs inside an ordinary process.
//
// The machine has a single logical CPU. Kernel threads and user programs are
// goroutines that pass the CPU around like a baton: exactly one of them runs
// at any time while the others are parked on a channel keyed by the token
// stored in their saved cpu.Context. Device models latch interrupt requests
// which are delivered at safe points: syscall entry and exit, when
// interrupts are enabled and while the CPU waits for an interrupt.
package hosted

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"gopherix/kernel/mm"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrHalted is reported when the kernel stops the CPU.
	ErrHalted = errors.New("hosted: cpu halted")

	errSpawnReturned = errors.New("hosted: spawned thread returned")
	errHaltReturned  = errors.New("hosted: halt syscall returned to user mode")
)

// idlePoll is how often a stopped device clock checks whether it has been
// reprogrammed.
const idlePoll = 10 * time.Millisecond

// Config describes a hosted machine.
type Config struct {
	// MemorySize is the size of physical memory. It defaults to
	// mm.PhysicalMemorySize.
	MemorySize uintptr

	// Programs maps program names to their implementation. Names that
	// are not found here are resolved through the global registry.
	Programs map[string]Program

	// TimeScale speeds up the device clocks. Values below 1 run them in
	// real time.
	TimeScale int
}

// Machine is a hosted single-CPU machine.
type Machine struct {
	cfg Config

	mem   []byte
	unmap func() error

	// Processor state. It is only accessed by the goroutine that holds
	// the CPU.
	iflag bool
	cr2   uintptr
	cr3   uintptr
	esp0  uintptr

	// mu guards everything below as well as the device models which are
	// also touched by the clock goroutines and by input injection.
	mu          sync.Mutex
	pending     uint16
	idle        bool
	idleWaiters []chan struct{}
	threads     map[uintptr]chan struct{}
	nextToken   uintptr
	err         error

	pic  picModel
	pit  pitModel
	rtc  rtcModel
	kbd  kbdModel
	crtc crtcModel

	kick     chan struct{}
	halted   chan struct{}
	haltOnce sync.Once
	wg       sync.WaitGroup
}

// New allocates the physical memory of a machine and resets its devices.
func New(cfg Config) (*Machine, error) {
	if cfg.MemorySize == 0 {
		cfg.MemorySize = mm.PhysicalMemorySize
	}
	if cfg.TimeScale < 1 {
		cfg.TimeScale = 1
	}

	mem, unmap, err := allocateMemory(int(cfg.MemorySize))
	if err != nil {
		return nil, fmt.Errorf("hosted: allocating %d bytes of physical memory: %w", cfg.MemorySize, err)
	}

	m := &Machine{
		cfg:     cfg,
		mem:     mem,
		unmap:   unmap,
		threads: make(map[uintptr]chan struct{}),
		kick:    make(chan struct{}, 1),
		halted:  make(chan struct{}),
	}
	m.pic.reset()
	return m, nil
}

// Start runs entry on the boot thread. The machine shuts down cleanly if
// entry returns.
func (m *Machine) Start(entry func()) {
	m.wg.Add(1)
	go func() {
		defer m.exitThread()
		entry()
		m.shutdown()
	}()
}

// Run starts entry on the boot thread together with the device clocks and
// blocks until the machine stops or ctx is cancelled. It returns ErrHalted
// if the kernel stopped the CPU.
func (m *Machine) Run(ctx context.Context, entry func()) error {
	g, ctx := errgroup.WithContext(ctx)

	m.Start(entry)
	g.Go(func() error { return m.clock(ctx, m.pitPeriod, func() { m.Raise(pitIRQ) }) })
	g.Go(func() error { return m.clock(ctx, m.rtcPeriod, m.rtcTick) })
	g.Go(func() error {
		select {
		case <-m.halted:
			return m.Err()
		case <-ctx.Done():
			m.shutdown()
			return ctx.Err()
		}
	})

	err := g.Wait()
	m.wg.Wait()
	return err
}

// clock invokes tick at the rate reported by period until the machine stops.
func (m *Machine) clock(ctx context.Context, period func() time.Duration, tick func()) error {
	for {
		d := period()
		if d <= 0 {
			d = idlePoll
		} else {
			d /= time.Duration(m.cfg.TimeScale)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-m.halted:
			return nil
		case <-time.After(d):
		}

		if period() > 0 {
			tick()
		}
	}
}

// Halted returns a channel that is closed when the machine stops.
func (m *Machine) Halted() <-chan struct{} {
	return m.halted
}

// Err returns the reason the machine stopped: ErrHalted if the kernel
// stopped the CPU, the value of a panic raised by a thread or nil.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// WaitIdle blocks until the CPU waits for an interrupt that no device has
// raised yet. Machine state such as the screen may be inspected once it
// returns.
func (m *Machine) WaitIdle(ctx context.Context) error {
	m.mu.Lock()
	if m.idle {
		m.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	m.idleWaiters = append(m.idleWaiters, ch)
	m.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-m.halted:
		if err := m.Err(); err != nil {
			return err
		}
		return ErrHalted
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the machine, waits for its threads to exit and releases its
// physical memory.
func (m *Machine) Close() error {
	m.shutdown()
	m.wg.Wait()

	if m.unmap == nil {
		return nil
	}
	err := m.unmap()
	m.mem, m.unmap = nil, nil
	return err
}

// shutdown stops all threads. Parked threads exit as soon as they notice.
func (m *Machine) shutdown() {
	m.haltOnce.Do(func() { close(m.halted) })
}

func (m *Machine) isHalted() bool {
	select {
	case <-m.halted:
		return true
	default:
		return false
	}
}

// fail records err as the reason the machine stopped and stops it.
func (m *Machine) fail(err error) {
	m.mu.Lock()
	if m.err == nil {
		m.err = err
	}
	m.mu.Unlock()
	m.shutdown()
}

// exitThread is deferred by every thread goroutine.
func (m *Machine) exitThread() {
	if r := recover(); r != nil {
		m.fail(fmt.Errorf("hosted: thread panic: %v", r))
	}
	m.wg.Done()
}

// stopIfHalted terminates the calling thread once the machine has stopped.
func (m *Machine) stopIfHalted() {
	if m.isHalted() {
		runtime.Goexit()
	}
}
