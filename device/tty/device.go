package tty

import (
	"gopherix/device/video/console"
	"io"
)

// DefaultTabWidth defines the number of spaces that tabs expand to.
const DefaultTabWidth = 4

// State defines the supported terminal state values.
type State uint8

const (
	// StateInactive marks the terminal as inactive. Writes still reach
	// the attached console but the hardware cursor is left alone.
	StateInactive State = iota

	// StateActive marks the terminal as the one being displayed. The
	// hardware cursor tracks the terminal cursor.
	StateActive
)

// Device is implemented by objects that can be used as a terminal device.
type Device interface {
	io.Writer
	io.ByteWriter

	// AttachTo connects a TTY to a console instance.
	AttachTo(console.Device)

	// State returns the TTY's state.
	State() State

	// SetState updates the TTY's state.
	SetState(State)

	// CursorPosition returns the current cursor x,y coordinates. Both
	// coordinates are 1-based (top-left corner has coordinates 1,1).
	CursorPosition() (uint32, uint32)

	// SetCursorPosition sets the current cursor position to (x,y). Both
	// coordinates are 1-based (top-left corner has coordinates 1,1).
	// Implementations are expected to clip the cursor position to their
	// viewport.
	SetCursorPosition(x, y uint32)

	// Clear erases the terminal and moves the cursor to the top-left
	// corner.
	Clear()
}
