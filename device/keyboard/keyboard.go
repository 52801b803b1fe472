// Package keyboard implements a driver for the PS/2 keyboard controller using
// scancode set 1.
package keyboard

import (
	"gopherix/device"
	"gopherix/kernel"
	"gopherix/kernel/cpu"
	"gopherix/kernel/kfmt"
	"io"
)

// Controller ports.
const (
	DataPort   = 0x60
	StatusPort = 0x64

	// statusOutputFull is set while the data port holds a scancode.
	statusOutputFull = 1 << 0
)

// IRQ is the interrupt line of the keyboard controller.
const IRQ = 1

// Scancodes with a special meaning. Releasing a key sends its scancode with
// the release bit set.
const (
	scLCtrl     = 0x1d
	scLShift    = 0x2a
	scRShift    = 0x36
	scLAlt      = 0x38
	scCapsLock  = 0x3a
	scBackspace = 0x0e
	scTab       = 0x0f
	scEnter     = 0x1c
	scSpace     = 0x39
	scL         = 0x26
	scF1        = 0x3b
	scF2        = 0x3c
	scF3        = 0x3d

	releaseBit = 0x80
)

// Listener receives the events decoded by the keyboard driver.
type Listener interface {
	// KeyTyped is invoked for characters that should reach the line
	// buffer of the foreground terminal.
	KeyTyped(ch byte)

	// ClearScreen is invoked when Ctrl+L is pressed.
	ClearScreen()

	// SwitchTerminal is invoked when Alt+F1..F3 is pressed.
	SwitchTerminal(term int)
}

var (
	portReadByteFn = cpu.PortReadByte
)

type modifiers struct {
	shift, ctrl, alt, capsLock bool
}

// Driver decodes scancodes read from the keyboard controller.
type Driver struct {
	mods     modifiers
	listener Listener
}

// SetListener registers the receiver of keyboard events.
func (d *Driver) SetListener(l Listener) {
	d.listener = l
}

// HandleIRQ reads a scancode from the controller and processes it.
func (d *Driver) HandleIRQ() {
	d.Process(portReadByteFn(DataPort))
}

// Process decodes a single scancode.
func (d *Driver) Process(sc uint8) {
	switch sc {
	case scLShift, scRShift:
		d.mods.shift = true
		return
	case scLShift | releaseBit, scRShift | releaseBit:
		d.mods.shift = false
		return
	case scLCtrl:
		d.mods.ctrl = true
		return
	case scLCtrl | releaseBit:
		d.mods.ctrl = false
		return
	case scLAlt:
		d.mods.alt = true
		return
	case scLAlt | releaseBit:
		d.mods.alt = false
		return
	case scCapsLock:
		d.mods.capsLock = !d.mods.capsLock
		return
	}

	if sc&releaseBit != 0 || d.listener == nil {
		return
	}

	if d.mods.alt && sc >= scF1 && sc <= scF3 {
		d.listener.SwitchTerminal(int(sc - scF1))
		return
	}

	if d.mods.ctrl {
		if sc == scL {
			d.listener.ClearScreen()
		}
		return
	}

	if ch := d.translate(sc); ch != 0 {
		d.listener.KeyTyped(ch)
	}
}

// translate maps a make code to ASCII honoring shift and caps lock. Caps
// lock only affects letters.
func (d *Driver) translate(sc uint8) byte {
	if int(sc) >= len(plainMap) {
		return 0
	}

	ch := plainMap[sc]
	isLetter := ch >= 'a' && ch <= 'z'

	switch {
	case isLetter && d.mods.shift != d.mods.capsLock:
		return ch - 'a' + 'A'
	case !isLetter && d.mods.shift:
		return shiftMap[sc]
	}
	return ch
}

// DriverName returns the name of this driver.
func (d *Driver) DriverName() string {
	return "ps2_keyboard"
}

// DriverVersion returns the version of this driver.
func (d *Driver) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit drains any scancodes left in the controller output buffer.
func (d *Driver) DriverInit(w io.Writer) *kernel.Error {
	var drained int
	for ; portReadByteFn(StatusPort)&statusOutputFull != 0 && drained < 16; drained++ {
		portReadByteFn(DataPort)
	}

	kfmt.Fprintf(w, "scancode set 1, drained %d bytes\n", drained)
	return nil
}

func probeForKeyboard() device.Driver {
	return &Driver{}
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderNormal,
		Probe: probeForKeyboard,
	})
}
