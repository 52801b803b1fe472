package console

import (
	"gopherix/kernel"
	"gopherix/kernel/kfmt"
	"io"
)

// CRT controller ports used to position the hardware cursor.
const (
	crtcIndexPort = 0x3d4
	crtcDataPort  = 0x3d5

	crtcCursorHigh = 0x0e
	crtcCursorLow  = 0x0f
)

// DefaultAttribute is the attribute byte for light gray text on a black
// background.
const DefaultAttribute = 0x07

var errUnmappedFramebuffer = &kernel.Error{Kind: kernel.InvalidArgument, Module: "vga_text_console", Message: "framebuffer is not backed by physical memory"}

// VgaTextConsole implements an EGA-compatible text console using VGA mode
// 0x3. Each character in the framebuffer is represented using two bytes, a
// byte for the character ASCII code and a byte that encodes the foreground
// and background colors (4 bits for each).
//
// The framebuffer does not have to be the VGA memory: the console can be
// pointed at any physical buffer with the same layout. This is how
// terminals that are not visible keep drawing into their background
// buffers.
type VgaTextConsole struct {
	width  uint32
	height uint32

	fbPhysAddr uintptr
	fb         []byte

	defaultFg uint8
	defaultBg uint8
	clearChar byte
}

// NewVgaTextConsole creates an new vga text console with its framebuffer
// located at fbPhysAddr.
func NewVgaTextConsole(columns, rows uint32, fbPhysAddr uintptr) *VgaTextConsole {
	return &VgaTextConsole{
		width:      columns,
		height:     rows,
		fbPhysAddr: fbPhysAddr,
		clearChar:  ' ',
		// light gray text on black background
		defaultFg: DefaultAttribute & 0xf,
		defaultBg: DefaultAttribute >> 4,
	}
}

// Dimensions returns the console width and height in characters.
func (cons *VgaTextConsole) Dimensions() (uint32, uint32) {
	return cons.width, cons.height
}

// DefaultColors returns the default foreground and background colors
// used by this console.
func (cons *VgaTextConsole) DefaultColors() (fg uint8, bg uint8) {
	return cons.defaultFg, cons.defaultBg
}

// Framebuffer returns the physical address of the framebuffer.
func (cons *VgaTextConsole) Framebuffer() uintptr {
	return cons.fbPhysAddr
}

// FramebufferSize returns the size of the framebuffer in bytes.
func (cons *VgaTextConsole) FramebufferSize() uintptr {
	return uintptr(cons.width * cons.height * 2)
}

// SetFramebuffer points the console at a different physical buffer. The
// contents of either buffer are left untouched.
func (cons *VgaTextConsole) SetFramebuffer(fbPhysAddr uintptr) *kernel.Error {
	fb := mapFramebufferFn(fbPhysAddr, cons.FramebufferSize())
	if fb == nil {
		return errUnmappedFramebuffer
	}

	cons.fbPhysAddr, cons.fb = fbPhysAddr, fb
	return nil
}

// Fill sets the contents of the specified rectangular region to the requested
// color. Both x and y coordinates are 1-based.
func (cons *VgaTextConsole) Fill(x, y, width, height uint32, fg, bg uint8) {
	var (
		attr                 = (bg << 4) | (fg & 0xf)
		rowOffset, colOffset uint32
	)

	// clip rectangle
	if x == 0 {
		x = 1
	} else if x >= cons.width {
		x = cons.width
	}

	if y == 0 {
		y = 1
	} else if y >= cons.height {
		y = cons.height
	}

	if x+width-1 > cons.width {
		width = cons.width - x + 1
	}

	if y+height-1 > cons.height {
		height = cons.height - y + 1
	}

	rowOffset = ((y - 1) * cons.width) + (x - 1)
	for ; height > 0; height, rowOffset = height-1, rowOffset+cons.width {
		for colOffset = rowOffset; colOffset < rowOffset+width; colOffset++ {
			cons.fb[colOffset*2] = cons.clearChar
			cons.fb[colOffset*2+1] = attr
		}
	}
}

// Scroll the console contents to the specified direction. The caller
// is responsible for updating (e.g. clear or replace) the contents of
// the region that was scrolled.
func (cons *VgaTextConsole) Scroll(dir ScrollDir, lines uint32) {
	if lines == 0 || lines > cons.height {
		return
	}

	offset := int(lines*cons.width) * 2
	switch dir {
	case ScrollDirUp:
		copy(cons.fb, cons.fb[offset:])
	case ScrollDirDown:
		copy(cons.fb[offset:], cons.fb)
	}
}

// Write a char to the specified location. If fg or bg exceed the supported
// colors for this console, they will be set to their default value. Both x
// and y coordinates are 1-based.
func (cons *VgaTextConsole) Write(ch byte, fg, bg uint8, x, y uint32) {
	if x < 1 || x > cons.width || y < 1 || y > cons.height {
		return
	}

	if fg > 0xf {
		fg = cons.defaultFg
	}
	if bg > 0xf {
		bg = cons.defaultBg
	}

	offset := (((y - 1) * cons.width) + (x - 1)) * 2
	cons.fb[offset] = ch
	cons.fb[offset+1] = (bg << 4) | fg
}

// Char returns the character and attribute byte at the specified location.
func (cons *VgaTextConsole) Char(x, y uint32) (ch, attr byte) {
	if x < 1 || x > cons.width || y < 1 || y > cons.height {
		return 0, 0
	}

	offset := (((y - 1) * cons.width) + (x - 1)) * 2
	return cons.fb[offset], cons.fb[offset+1]
}

// MoveCursor moves the hardware cursor to the specified location.
func (cons *VgaTextConsole) MoveCursor(x, y uint32) {
	if x < 1 || x > cons.width || y < 1 || y > cons.height {
		return
	}

	pos := uint16((y-1)*cons.width + (x - 1))
	portWriteByteFn(crtcIndexPort, crtcCursorHigh)
	portWriteByteFn(crtcDataPort, uint8(pos>>8))
	portWriteByteFn(crtcIndexPort, crtcCursorLow)
	portWriteByteFn(crtcDataPort, uint8(pos))
}

// DriverName returns the name of this driver.
func (cons *VgaTextConsole) DriverName() string {
	return "vga_text_console"
}

// DriverVersion returns the version of this driver.
func (cons *VgaTextConsole) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit initializes this driver.
func (cons *VgaTextConsole) DriverInit(w io.Writer) *kernel.Error {
	if err := cons.SetFramebuffer(cons.fbPhysAddr); err != nil {
		return err
	}

	kfmt.Fprintf(w, "%dx%d text framebuffer at 0x%x\n", cons.width, cons.height, cons.fbPhysAddr)
	return nil
}
