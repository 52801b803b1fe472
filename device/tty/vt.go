package tty

import (
	"gopherix/device/video/console"
	"gopherix/kernel"
	"io"
)

// VT implements a terminal on top of a text console. The console
// framebuffer is the only copy of the terminal contents so that a terminal
// whose console is redirected to a background buffer keeps its output. The
// terminal interprets the following special characters:
//   - \r (carriage-return)
//   - \n (line-feed)
//   - \b (backspace; wraps to the end of the previous line)
//   - \t (tab; expanded to tabWidth spaces)
type VT struct {
	cons console.Device

	width  uint32
	height uint32

	tabWidth         uint8
	defaultFg, curFg uint8
	defaultBg, curBg uint8
	cursorX          uint32
	cursorY          uint32
	state            State
}

// NewVT creates a new virtual terminal device. The tabWidth parameter
// controls tab expansion.
func NewVT(tabWidth uint8) *VT {
	return &VT{
		tabWidth: tabWidth,
		cursorX:  1,
		cursorY:  1,
	}
}

// AttachTo connects a TTY to a console instance.
func (t *VT) AttachTo(cons console.Device) {
	if cons == nil {
		return
	}

	t.cons = cons
	t.width, t.height = cons.Dimensions()
	t.defaultFg, t.defaultBg = cons.DefaultColors()
	t.curFg, t.curBg = t.defaultFg, t.defaultBg
	t.cursorX, t.cursorY = 1, 1
}

// State returns the TTY's state.
func (t *VT) State() State {
	return t.state
}

// SetState updates the TTY's state.
func (t *VT) SetState(newState State) {
	if t.state == newState {
		return
	}

	t.state = newState
	t.syncCursor()
}

// CursorPosition returns the current cursor position.
func (t *VT) CursorPosition() (uint32, uint32) {
	return t.cursorX, t.cursorY
}

// SetCursorPosition sets the current cursor position to (x,y).
func (t *VT) SetCursorPosition(x, y uint32) {
	if t.cons == nil {
		return
	}

	if x < 1 {
		x = 1
	} else if x > t.width {
		x = t.width
	}

	if y < 1 {
		y = 1
	} else if y > t.height {
		y = t.height
	}

	t.cursorX, t.cursorY = x, y
	t.syncCursor()
}

// Clear erases the terminal contents and moves the cursor to (1,1).
func (t *VT) Clear() {
	if t.cons == nil {
		return
	}

	t.cons.Fill(1, 1, t.width, t.height, t.defaultFg, t.defaultBg)
	t.SetCursorPosition(1, 1)
}

// Write implements io.Writer.
func (t *VT) Write(data []byte) (int, error) {
	for count, b := range data {
		if err := t.writeByte(b); err != nil {
			return count, err
		}
	}

	t.syncCursor()
	return len(data), nil
}

// WriteByte implements io.ByteWriter.
func (t *VT) WriteByte(b byte) error {
	if err := t.writeByte(b); err != nil {
		return err
	}

	t.syncCursor()
	return nil
}

func (t *VT) writeByte(b byte) error {
	if t.cons == nil {
		return io.ErrClosedPipe
	}

	switch b {
	case '\r':
		t.cursorX = 1
	case '\n':
		t.lf()
	case '\b':
		switch {
		case t.cursorX > 1:
			t.cursorX--
		case t.cursorY > 1:
			t.cursorX, t.cursorY = t.width, t.cursorY-1
		default:
			return nil
		}
		t.cons.Write(' ', t.curFg, t.curBg, t.cursorX, t.cursorY)
	case '\t':
		for i := uint8(0); i < t.tabWidth; i++ {
			t.put(' ')
		}
	default:
		t.put(b)
	}

	return nil
}

// put writes the specified character together with the current fg/bg
// attributes at the cursor and advances the cursor.
func (t *VT) put(b byte) {
	t.cons.Write(b, t.curFg, t.curBg, t.cursorX, t.cursorY)

	t.cursorX++
	if t.cursorX > t.width {
		t.lf()
	}
}

// lf moves the cursor to the start of the next line scrolling the console
// contents if the cursor is on the last line.
func (t *VT) lf() {
	t.cursorX = 1
	if t.cursorY < t.height {
		t.cursorY++
		return
	}

	t.cons.Scroll(console.ScrollDirUp, 1)
	t.cons.Fill(1, t.height, t.width, 1, t.defaultFg, t.defaultBg)
}

// syncCursor moves the hardware cursor when the terminal is displayed.
func (t *VT) syncCursor() {
	if t.state == StateActive && t.cons != nil {
		t.cons.MoveCursor(t.cursorX, t.cursorY)
	}
}

// DriverName returns the name of this driver.
func (t *VT) DriverName() string {
	return "vt"
}

// DriverVersion returns the version of this driver.
func (t *VT) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit initializes this driver.
func (t *VT) DriverInit(_ io.Writer) *kernel.Error { return nil }
