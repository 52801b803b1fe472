package tty

import (
	"gopherix/device"
	"gopherix/device/video/console"
	"io"
	"testing"
)

func TestVtPosition(t *testing.T) {
	specs := []struct {
		inX, inY   uint32
		expX, expY uint32
	}{
		{20, 20, 20, 20},
		{100, 20, 80, 20},
		{10, 200, 10, 25},
		{0, 0, 1, 1},
		{100, 100, 80, 25},
	}

	var term Device = NewVT(4)

	// SetCursorPosition without an attached console is a no-op
	term.SetCursorPosition(2, 2)

	if curX, curY := term.CursorPosition(); curX != 1 || curY != 1 {
		t.Fatalf("expected terminal initial position to be (1, 1); got (%d, %d)", curX, curY)
	}

	cons := newMockConsole(80, 25)
	term.AttachTo(cons)

	for specIndex, spec := range specs {
		term.SetCursorPosition(spec.inX, spec.inY)
		if x, y := term.CursorPosition(); x != spec.expX || y != spec.expY {
			t.Errorf("[spec %d] expected setting position to (%d, %d) to update the position to (%d, %d); got (%d, %d)", specIndex, spec.inX, spec.inY, spec.expX, spec.expY, x, y)
		}
	}
}

func TestVtWrite(t *testing.T) {
	cons := newMockConsole(80, 25)

	term := NewVT(4)
	if _, err := term.Write([]byte("foo")); err != io.ErrClosedPipe {
		t.Fatal("expected calling Write on a terminal without an attached console to return ErrClosedPipe")
	}

	if err := term.WriteByte('!'); err != io.ErrClosedPipe {
		t.Fatal("expected calling WriteByte on a terminal without an attached console to return ErrClosedPipe")
	}

	term.AttachTo(cons)
	term.curFg = 2
	term.curBg = 3

	data := []byte("\b123\b4\t5\n67\r68")
	count, err := term.Write(data)
	if err != nil {
		t.Fatal(err)
	}

	if count != len(data) {
		t.Fatalf("expected to write %d bytes; wrote %d", len(data), count)
	}

	specs := []struct {
		x, y    uint32
		expByte uint8
	}{
		{1, 1, '1'},
		{2, 1, '2'},
		{3, 1, '4'},
		{4, 1, ' '},
		{8, 1, '5'}, // 3 + tabWidth + 1
		{1, 2, '6'},
		{2, 2, '8'},
	}

	for specIndex, spec := range specs {
		ch, fg, bg := cons.cell(spec.x, spec.y)
		if ch != spec.expByte {
			t.Errorf("[spec %d] expected char at (%d, %d) to be %q; got %q", specIndex, spec.x, spec.y, spec.expByte, ch)
		}

		if fg != term.curFg || bg != term.curBg {
			t.Errorf("[spec %d] expected attributes at (%d, %d) to be (%d, %d); got (%d, %d)", specIndex, spec.x, spec.y, term.curFg, term.curBg, fg, bg)
		}
	}

	if cons.cursorMoves != 0 {
		t.Fatalf("expected an inactive terminal to leave the hardware cursor alone; got %d moves", cons.cursorMoves)
	}
}

func TestVtBackspaceWrap(t *testing.T) {
	cons := newMockConsole(10, 3)
	term := NewVT(4)
	term.AttachTo(cons)

	term.Write([]byte("0123456789ab"))
	if x, y := term.CursorPosition(); x != 3 || y != 2 {
		t.Fatalf("expected cursor at (3, 2); got (%d, %d)", x, y)
	}

	term.Write([]byte("\b\b\b"))
	if x, y := term.CursorPosition(); x != 10 || y != 1 {
		t.Fatalf("expected backspace to wrap to (10, 1); got (%d, %d)", x, y)
	}

	if ch, _, _ := cons.cell(10, 1); ch != ' ' {
		t.Fatalf("expected wrapped backspace to erase the last column; got %q", ch)
	}

	term.SetCursorPosition(1, 1)
	term.WriteByte('\b')
	if x, y := term.CursorPosition(); x != 1 || y != 1 {
		t.Fatalf("expected backspace at the origin to be ignored; got (%d, %d)", x, y)
	}
}

func TestVtLineFeedScroll(t *testing.T) {
	cons := newMockConsole(80, 25)

	term := NewVT(4)
	term.SetState(StateActive)
	term.AttachTo(cons)

	term.SetCursorPosition(1, 25)
	term.Write([]byte("last"))
	term.WriteByte('\n')

	if cons.scrollUpCount != 1 {
		t.Fatalf("expected console to be scrolled up 1 time; got %d", cons.scrollUpCount)
	}

	if x, y := term.CursorPosition(); x != 1 || y != 25 {
		t.Fatalf("expected cursor to stay on the last line; got (%d, %d)", x, y)
	}

	if ch, _, _ := cons.cell(1, 24); ch != 'l' {
		t.Fatalf("expected scrolled line to move up; got %q", ch)
	}

	if ch, _, _ := cons.cell(1, 25); ch != ' ' {
		t.Fatalf("expected the last line to be cleared; got %q", ch)
	}

	// Filling the last column wraps and scrolls as well.
	for i := 0; i < 80; i++ {
		term.WriteByte('x')
	}

	if cons.scrollUpCount != 2 {
		t.Fatalf("expected console to be scrolled up 2 times; got %d", cons.scrollUpCount)
	}
}

func TestVtSetState(t *testing.T) {
	cons := newMockConsole(80, 25)
	term := NewVT(4)
	term.AttachTo(cons)

	term.Write([]byte("abc"))
	if cons.cursorMoves != 0 {
		t.Fatal("expected inactive terminal not to move the hardware cursor")
	}

	term.SetState(StateActive)
	term.SetState(StateActive) // calling SetState with the same state is a no-op

	if got := term.State(); got != StateActive {
		t.Fatalf("expected terminal state to be %d; got %d", StateActive, got)
	}

	if cons.cursorMoves != 1 || cons.cursorX != 4 || cons.cursorY != 1 {
		t.Fatalf("expected activation to sync the hardware cursor to (4, 1); got (%d, %d) after %d moves", cons.cursorX, cons.cursorY, cons.cursorMoves)
	}

	term.Write([]byte("de"))
	if cons.cursorX != 6 {
		t.Fatalf("expected hardware cursor to follow writes; got x = %d", cons.cursorX)
	}
}

func TestVtClear(t *testing.T) {
	cons := newMockConsole(80, 25)
	term := NewVT(4)

	// Clear without an attached console is a no-op
	term.Clear()

	term.AttachTo(cons)
	term.Write([]byte("hello\nworld"))
	term.Clear()

	for y := uint32(1); y <= 25; y++ {
		for x := uint32(1); x <= 80; x++ {
			if ch, fg, bg := cons.cell(x, y); ch != ' ' || fg != 7 || bg != 0 {
				t.Fatalf("expected cell (%d, %d) to be cleared; got (%q, %d, %d)", x, y, ch, fg, bg)
			}
		}
	}

	if x, y := term.CursorPosition(); x != 1 || y != 1 {
		t.Fatalf("expected cursor at (1, 1); got (%d, %d)", x, y)
	}
}

func TestVtAttach(t *testing.T) {
	cons := newMockConsole(80, 25)
	term := NewVT(4)

	// AttachTo with a nil console should be a no-op
	term.AttachTo(nil)
	if term.width != 0 || term.height != 0 {
		t.Fatal("expected attaching a nil console to be a no-op")
	}

	term.AttachTo(cons)
	if term.width != cons.width || term.height != cons.height || term.curFg != 7 || term.curBg != 0 {
		t.Fatal("expected the terminal to initialize using the attached console info")
	}
}

func TestVTDriverInterface(t *testing.T) {
	var dev device.Driver = NewVT(0)

	if err := dev.DriverInit(nil); err != nil {
		t.Fatal(err)
	}

	if dev.DriverName() == "" {
		t.Fatal("DriverName() returned an empty string")
	}

	if major, minor, patch := dev.DriverVersion(); major+minor+patch == 0 {
		t.Fatal("DriverVersion() returned an invalid version number")
	}
}

func TestVTProbe(t *testing.T) {
	if drv := probeForVT(); drv == nil {
		t.Fatal("expected probeForVT to return a driver")
	}
}

type mockConsole struct {
	width, height    uint32
	fg, bg           uint8
	chars            []uint8
	fgAttrs          []uint8
	bgAttrs          []uint8
	scrollUpCount    int
	scrollDownCount  int
	cursorX, cursorY uint32
	cursorMoves      int
}

func newMockConsole(w, h uint32) *mockConsole {
	return &mockConsole{
		width:   w,
		height:  h,
		fg:      7,
		bg:      0,
		chars:   make([]uint8, w*h),
		fgAttrs: make([]uint8, w*h),
		bgAttrs: make([]uint8, w*h),
	}
}

func (cons *mockConsole) cell(x, y uint32) (ch, fg, bg uint8) {
	offset := (y-1)*cons.width + (x - 1)
	return cons.chars[offset], cons.fgAttrs[offset], cons.bgAttrs[offset]
}

func (cons *mockConsole) Dimensions() (uint32, uint32) {
	return cons.width, cons.height
}

func (cons *mockConsole) DefaultColors() (uint8, uint8) {
	return cons.fg, cons.bg
}

func (cons *mockConsole) Fill(x, y, width, height uint32, fg, bg uint8) {
	for fy := y; fy < y+height; fy++ {
		for fx := x; fx < x+width; fx++ {
			offset := (fy-1)*cons.width + (fx - 1)
			cons.chars[offset] = ' '
			cons.fgAttrs[offset] = fg
			cons.bgAttrs[offset] = bg
		}
	}
}

func (cons *mockConsole) Scroll(dir console.ScrollDir, lines uint32) {
	stride := int(lines * cons.width)
	switch dir {
	case console.ScrollDirUp:
		cons.scrollUpCount++
		copy(cons.chars, cons.chars[stride:])
		copy(cons.fgAttrs, cons.fgAttrs[stride:])
		copy(cons.bgAttrs, cons.bgAttrs[stride:])
	case console.ScrollDirDown:
		cons.scrollDownCount++
	}
}

func (cons *mockConsole) Write(ch byte, fg, bg uint8, x, y uint32) {
	offset := (y-1)*cons.width + (x - 1)
	cons.chars[offset] = ch
	cons.fgAttrs[offset] = fg
	cons.bgAttrs[offset] = bg
}

func (cons *mockConsole) MoveCursor(x, y uint32) {
	cons.cursorX, cons.cursorY = x, y
	cons.cursorMoves++
}
