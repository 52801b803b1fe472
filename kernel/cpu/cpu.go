// Package cpu exposes the processor primitives used by the kernel. The
// primitives are provided by a Platform implementation that is registered
// once during boot via SetPlatform.
package cpu

// Segment selectors and flags used when building privilege transition
// frames.
const (
	KernelCS = 0x0010
	KernelDS = 0x0018
	UserCS   = 0x0023
	UserDS   = 0x002B

	// FlagIF is the interrupt-enable bit in EFLAGS.
	FlagIF = 1 << 9
)

// Context is a saved kernel execution context: the kernel stack and frame
// pointers of a parked thread plus the page directory it runs with. The
// platform fills in ESP and EBP; the page directory is managed by the
// kernel which reinstalls it before resuming the context. Higher level code
// only ever copies Context values around; the meaning of ESP and EBP is
// private to the platform.
type Context struct {
	ESP uintptr
	EBP uintptr
	PDT uintptr
}

// Valid returns true if the context was filled in by Switch, EnterUser or
// Spawn.
func (c Context) Valid() bool {
	return c.ESP != 0
}

// TrapFrame is the frame consumed by iret when returning to user mode.
type TrapFrame struct {
	EIP    uint32
	CS     uint32
	EFlags uint32
	ESP    uint32
	SS     uint32
}

// Platform is implemented by objects that provide the processor primitives.
type Platform interface {
	// EnableInterrupts enables interrupt handling.
	EnableInterrupts()

	// DisableInterrupts disables interrupt handling.
	DisableInterrupts()

	// InterruptsEnabled returns true if the interrupt flag is set.
	InterruptsEnabled() bool

	// Halt stops instruction execution. It never returns.
	Halt()

	// WaitForInterrupt enables interrupts and idles until at least one
	// interrupt has been serviced.
	WaitForInterrupt()

	// FlushTLBEntry flushes a TLB entry for a particular virtual address.
	FlushTLBEntry(virtAddr uintptr)

	// SwitchPDT loads the page directory at the specified physical
	// address and flushes the TLB.
	SwitchPDT(pdtPhysAddr uintptr)

	// ActivePDT returns the physical address of the active page directory.
	ActivePDT() uintptr

	// ReadCR2 returns the address that triggered the last page fault.
	ReadCR2() uintptr

	// SetKernelStack sets the stack pointer loaded on a privilege
	// transition from user mode (tss.esp0).
	SetKernelStack(esp0 uintptr)

	// KernelStack returns the value last passed to SetKernelStack.
	KernelStack() uintptr

	// PortWriteByte writes a uint8 value to the requested port.
	PortWriteByte(port uint16, val uint8)

	// PortReadByte reads a uint8 value from the requested port.
	PortReadByte(port uint16) uint8

	// PhysicalMemory returns the physical address space as a byte slice.
	PhysicalMemory() []byte

	// Restore resumes a previously saved context and abandons the
	// current one. It never returns.
	Restore(Context)

	// Switch stores the stack pointers of the caller in save and resumes
	// to. The call returns when save is resumed.
	Switch(save *Context, to Context)

	// Spawn prepares a new kernel context that runs entry once resumed.
	// The entry function must never return.
	Spawn(entry func()) Context

	// EnterUser stores the stack pointers of the caller in save and
	// performs a privilege transition to user mode using the supplied
	// frame. The call returns when save is resumed.
	EnterUser(frame *TrapFrame, save *Context)
}

var platform Platform

// SetPlatform registers the processor primitive provider.
func SetPlatform(p Platform) {
	platform = p
}

// GetPlatform returns the registered processor primitive provider.
func GetPlatform() Platform {
	return platform
}

// EnableInterrupts enables interrupt handling.
func EnableInterrupts() { platform.EnableInterrupts() }

// DisableInterrupts disables interrupt handling.
func DisableInterrupts() { platform.DisableInterrupts() }

// InterruptsEnabled returns true if the interrupt flag is set.
func InterruptsEnabled() bool { return platform.InterruptsEnabled() }

// Halt stops instruction execution.
func Halt() { platform.Halt() }

// WaitForInterrupt idles until an interrupt is serviced.
func WaitForInterrupt() { platform.WaitForInterrupt() }

// FlushTLBEntry flushes a TLB entry for a particular virtual address.
func FlushTLBEntry(virtAddr uintptr) { platform.FlushTLBEntry(virtAddr) }

// SwitchPDT sets the root page table directory to point to the specified
// physical address and flushes the TLB.
func SwitchPDT(pdtPhysAddr uintptr) { platform.SwitchPDT(pdtPhysAddr) }

// ActivePDT returns the physical address of the currently active page table.
func ActivePDT() uintptr { return platform.ActivePDT() }

// ReadCR2 returns the value stored in the CR2 register.
func ReadCR2() uintptr { return platform.ReadCR2() }

// SetKernelStack updates the kernel stack used when entering the kernel from
// user mode.
func SetKernelStack(esp0 uintptr) { platform.SetKernelStack(esp0) }

// KernelStack returns the stack pointer loaded on entry from user mode.
func KernelStack() uintptr { return platform.KernelStack() }

// PortWriteByte writes a uint8 value to the requested port.
func PortWriteByte(port uint16, val uint8) { platform.PortWriteByte(port, val) }

// PortReadByte reads a uint8 value from the requested port.
func PortReadByte(port uint16) uint8 { return platform.PortReadByte(port) }

// Restore resumes ctx. It never returns.
func Restore(ctx Context) { platform.Restore(ctx) }

// Switch saves the current execution context in save and resumes to.
func Switch(save *Context, to Context) { platform.Switch(save, to) }

// Spawn prepares a new kernel context that will run entry.
func Spawn(entry func()) Context { return platform.Spawn(entry) }

// EnterUser saves the current execution context in save and transitions to
// user mode.
func EnterUser(frame *TrapFrame, save *Context) { platform.EnterUser(frame, save) }

// PhysicalMemory returns the physical address space.
func PhysicalMemory() []byte { return platform.PhysicalMemory() }
