// Package core ties the process store, the address-space manager, the
// terminal multiplexer and the scheduler together. It implements program
// execution, the file-descriptor operations and the system call layer.
//
// Every terminal owns one kernel thread at a time. The thread is either the
// deepest process of the terminal's execute chain or, while no process runs
// on the terminal, its launcher. Switching terminals (from the keyboard
// handler or from the scheduler tick) saves the outgoing thread into the
// slot returned by term.Terminal.Saved and resumes the incoming one.
package core

import (
	"gopherix/device/keyboard"
	"gopherix/device/pic"
	"gopherix/device/pit"
	"gopherix/device/rtc"
	"gopherix/kernel"
	"gopherix/kernel/cpu"
	"gopherix/kernel/fs"
	"gopherix/kernel/kfmt"
	"gopherix/kernel/mm/vmm"
	"gopherix/kernel/proc"
	"gopherix/kernel/sched"
	"gopherix/kernel/sync"
	"gopherix/kernel/term"
)

// DefaultShell is the command every terminal launcher executes.
const DefaultShell = "shell"

var (
	// panicFn is overridden by tests.
	panicFn = kfmt.Panic

	errNoProcess  = &kernel.Error{Module: "core", Message: "halt called without a running process"}
	errStackOwner = &kernel.Error{Module: "core", Message: "kernel stack does not belong to the halting process"}
)

// report prints err if it is not nil. It is used for bookkeeping calls that
// only fail when the process store, the scheduler queues and the address
// spaces disagree.
func report(err *kernel.Error) {
	if err != nil {
		kfmt.Printf("[core] inconsistent state: [%s] %s\n", err.Module, err.Message)
	}
}

// Config selects the optional kernel behavior.
type Config struct {
	// Shell is the command line executed by terminal launchers.
	Shell string

	// Sched enables round-robin scheduling between terminals on every
	// timer tick. When disabled only the foreground terminal runs.
	Sched bool
}

// Devices bundles the drivers the kernel talks to directly.
type Devices struct {
	PIC      *pic.Controller
	Timer    *pit.Timer
	Clock    *rtc.Clock
	Keyboard *keyboard.Driver
}

// Kernel is the process and terminal manager.
type Kernel struct {
	cfg   Config
	shell []byte

	procs  proc.Store
	queues sched.Queues
	lock   sync.IRQLock

	vm    *vmm.Manager
	mux   *term.Mux
	files fs.Store
	dev   Devices

	// running is the id of the terminal that owns the CPU.
	running int
}

// New creates a kernel. Call Start to install its handlers and launch the
// first shell.
func New(cfg Config, files fs.Store, vm *vmm.Manager, mux *term.Mux, dev Devices) *Kernel {
	if cfg.Shell == "" {
		cfg.Shell = DefaultShell
	}

	return &Kernel{
		cfg:   cfg,
		shell: []byte(cfg.Shell),
		vm:    vm,
		mux:   mux,
		files: files,
		dev:   dev,
	}
}

// Start installs the system call gate and the IRQ handlers and turns the
// calling thread into the launcher of terminal 0. It never returns.
func (k *Kernel) Start() {
	k.installHandlers()
	if k.dev.Keyboard != nil {
		k.dev.Keyboard.SetListener(k)
	}

	k.running = k.mux.Foreground()
	k.launcher(k.running)
}

// Running returns the id of the terminal that owns the CPU.
func (k *Kernel) Running() int {
	return k.running
}

// Processes returns the PCB store.
func (k *Kernel) Processes() *proc.Store {
	return &k.procs
}

// Mux returns the terminal multiplexer.
func (k *Kernel) Mux() *term.Mux {
	return k.mux
}

// current returns the process running on the CPU or nil.
func (k *Kernel) current() *proc.PCB {
	return k.mux.Terminal(k.running).Active
}

// launcher keeps a shell alive on terminal id. A root shell that halts is
// started again. While the process budget is exhausted the launcher prints a
// notice and waits for a process to exit.
func (k *Kernel) launcher(id int) {
	t := k.mux.Terminal(id)
	for {
		cpu.EnableInterrupts()

		_, err := k.Execute(id, k.shell)
		switch {
		case err == nil:
		case kernel.Is(err, kernel.ResourceExhausted):
			kfmt.Fprintf(t.VT, "[term] process budget exhausted\n")
			for k.mux.Processes() >= proc.MaxProcesses {
				cpu.WaitForInterrupt()
			}
		default:
			panicFn(err)
			return
		}
	}
}
