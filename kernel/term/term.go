// Package term multiplexes the display between the three kernel terminals.
// Exactly one terminal is in the foreground; its console draws straight
// into VGA memory while the consoles of the other terminals draw into
// per-terminal background buffers.
package term

import (
	"gopherix/device/tty"
	"gopherix/device/video/console"
	"gopherix/kernel"
	"gopherix/kernel/cpu"
	"gopherix/kernel/mm"
	"gopherix/kernel/proc"
)

// NumTerminals is the number of terminals.
const NumTerminals = 3

var errBadTerminal = &kernel.Error{Kind: kernel.InvalidArgument, Module: "term", Message: "terminal id out of range"}

// Retargeter repoints the video alias of a process address space.
type Retargeter interface {
	Retarget(slot int, video mm.Frame) *kernel.Error
}

// Terminal holds the per-terminal state.
type Terminal struct {
	// ID is the terminal index.
	ID int

	Console *console.VgaTextConsole
	VT      *tty.VT
	Line    *tty.LineDiscipline

	// Background is the physical address of the buffer that holds the
	// terminal contents while it is not in the foreground.
	Background uintptr

	// Processes is the number of live processes started on the
	// terminal.
	Processes int

	// Active is the process that currently runs on the terminal; the
	// deepest process of its execute chain. It is nil when no process
	// runs.
	Active *proc.PCB

	// Idle is the saved kernel context of the terminal while no process
	// runs on it.
	Idle cpu.Context
}

// Saved returns a pointer to the context slot that holds the terminal's
// kernel context while another terminal owns the CPU.
func (t *Terminal) Saved() *cpu.Context {
	if t.Active != nil {
		return &t.Active.Self
	}
	return &t.Idle
}

// Mux owns the terminals and tracks the foreground one.
type Mux struct {
	terms [NumTerminals]Terminal
	fg    int

	aliases Retargeter
}

// New creates the terminals. Terminal 0 uses the supplied console and VT
// which must already draw into VGA memory; the remaining terminals get
// fresh consoles over their background buffers which are cleared.
func New(primary *console.VgaTextConsole, primaryVT *tty.VT, aliases Retargeter) (*Mux, *kernel.Error) {
	m := &Mux{aliases: aliases}
	width, height := primary.Dimensions()

	for i := range m.terms {
		t := &m.terms[i]
		t.ID = i
		t.Background = mm.BackgroundBuffer(i)

		if i == 0 {
			t.Console, t.VT = primary, primaryVT
		} else {
			t.Console = console.NewVgaTextConsole(width, height, t.Background)
			if err := t.Console.SetFramebuffer(t.Background); err != nil {
				return nil, err
			}

			t.VT = tty.NewVT(tty.DefaultTabWidth)
			t.VT.AttachTo(t.Console)
			t.VT.Clear()
		}

		t.Line = tty.NewLineDiscipline(t.VT)
	}

	m.terms[0].VT.SetState(tty.StateActive)
	return m, nil
}

// Foreground returns the id of the foreground terminal.
func (m *Mux) Foreground() int {
	return m.fg
}

// Terminal returns the terminal with the given id.
func (m *Mux) Terminal(id int) *Terminal {
	return &m.terms[id]
}

// Valid returns true if id names a terminal.
func (m *Mux) Valid(id int) bool {
	return id >= 0 && id < NumTerminals
}

// VideoFrame returns the frame the video alias of processes on terminal id
// must point to.
func (m *Mux) VideoFrame(id int) mm.Frame {
	if id == m.fg {
		return mm.FrameFromAddress(mm.VideoMemory)
	}
	return mm.FrameFromAddress(m.terms[id].Background)
}

// Processes returns the number of live processes across all terminals.
func (m *Mux) Processes() int {
	count := 0
	for i := range m.terms {
		count += m.terms[i].Processes
	}
	return count
}

// Swap brings target to the foreground. The visible contents are saved to
// the background buffer of the current foreground terminal and the target
// contents are copied to VGA memory. Both consoles and the video aliases
// of the processes running on both terminals are repointed. Swapping to the
// foreground terminal is a no-op.
func (m *Mux) Swap(target int) *kernel.Error {
	if !m.Valid(target) {
		return errBadTerminal
	}

	if target == m.fg {
		return nil
	}

	var (
		cur  = &m.terms[m.fg]
		next = &m.terms[target]
		size = cur.Console.FramebufferSize()
	)

	mm.Memcopy(mm.VideoMemory, cur.Background, size)
	mm.Memcopy(next.Background, mm.VideoMemory, size)
	reapplyAttributes(mm.Bytes(mm.VideoMemory, size))

	if err := cur.Console.SetFramebuffer(cur.Background); err != nil {
		return err
	}
	if err := next.Console.SetFramebuffer(mm.VideoMemory); err != nil {
		return err
	}

	cur.VT.SetState(tty.StateInactive)
	next.VT.SetState(tty.StateActive)
	m.fg = target

	for _, t := range []*Terminal{cur, next} {
		if t.Active == nil || m.aliases == nil {
			continue
		}
		if err := m.aliases.Retarget(t.Active.PID, m.VideoFrame(t.ID)); err != nil {
			return err
		}
	}

	return nil
}

// reapplyAttributes restores the default attribute of cells whose attribute
// byte is blank so that raw character writes stay visible.
func reapplyAttributes(fb []byte) {
	for i := 1; i < len(fb); i += 2 {
		if fb[i] == 0 {
			fb[i] = console.DefaultAttribute
		}
	}
}
