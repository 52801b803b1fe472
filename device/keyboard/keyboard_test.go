package keyboard

import (
	"bytes"
	"gopherix/device"
	"testing"
)

type recordingListener struct {
	typed    bytes.Buffer
	clears   int
	switches []int
}

func (l *recordingListener) KeyTyped(ch byte)        { l.typed.WriteByte(ch) }
func (l *recordingListener) ClearScreen()            { l.clears++ }
func (l *recordingListener) SwitchTerminal(term int) { l.switches = append(l.switches, term) }

func feed(d *Driver, scancodes []byte) {
	for _, sc := range scancodes {
		d.Process(sc)
	}
}

func TestTranslation(t *testing.T) {
	specs := []struct {
		descr string
		input []byte
		exp   string
	}{
		{"plain letters", []byte{0x23, 0xa3, 0x17, 0x97}, "hi"},
		{"shifted letter", []byte{scLShift, 0x1e, 0x9e, scLShift | releaseBit, 0x1e}, "Aa"},
		{"shifted symbols", []byte{scRShift, 0x02, 0x35, scRShift | releaseBit, 0x35}, "!?/"},
		{"caps lock", []byte{scCapsLock, 0x1e, 0x02, scCapsLock, 0x1e}, "A1a"},
		{"caps lock with shift", []byte{scCapsLock, scLShift, 0x1e, 0x02, scLShift | releaseBit}, "a!"},
		{"control keys", []byte{scBackspace, scTab, scEnter}, "\b\t\n"},
		{"unmapped keys", []byte{0x01, 0x45, 0x57}, ""},
		{"releases are ignored", []byte{0x9e, 0xa3}, ""},
	}

	for _, spec := range specs {
		t.Run(spec.descr, func(t *testing.T) {
			var (
				d Driver
				l recordingListener
			)
			d.SetListener(&l)

			feed(&d, spec.input)
			if got := l.typed.String(); got != spec.exp {
				t.Fatalf("expected %q; got %q", spec.exp, got)
			}
		})
	}
}

func TestShortcuts(t *testing.T) {
	var (
		d Driver
		l recordingListener
	)
	d.SetListener(&l)

	feed(&d, EncodeSwitch(1))
	feed(&d, EncodeSwitch(2))
	feed(&d, EncodeSwitch(0))
	if len(l.switches) != 3 || l.switches[0] != 1 || l.switches[1] != 2 || l.switches[2] != 0 {
		t.Fatalf("expected switches to terminals [1 2 0]; got %v", l.switches)
	}

	feed(&d, EncodeClear())
	if l.clears != 1 {
		t.Fatalf("expected 1 clear request; got %d", l.clears)
	}

	// Ctrl with other keys and F-keys without Alt are swallowed.
	feed(&d, []byte{scLCtrl, 0x1e, scLCtrl | releaseBit, scF1})
	if l.typed.Len() != 0 || len(l.switches) != 3 {
		t.Fatalf("expected no extra events; typed %q, switches %v", l.typed.String(), l.switches)
	}

	// Modifiers are released.
	feed(&d, Encode("l"))
	if l.typed.String() != "l" || l.clears != 1 {
		t.Fatalf("expected a plain 'l' after releasing ctrl; typed %q", l.typed.String())
	}
}

func TestEncode(t *testing.T) {
	var (
		d Driver
		l recordingListener
	)
	d.SetListener(&l)

	text := "Hello, World! cat frame0.txt | grep \"x\" {1+1=2}\n"
	feed(&d, Encode(text))

	if got := l.typed.String(); got != text {
		t.Fatalf("expected typing %q; got %q", text, got)
	}

	if sc := Encode("\x00\x7f"); len(sc) != 0 {
		t.Fatalf("expected characters without a key to be skipped; got %v", sc)
	}

	if sc := Encode("\r"); !bytes.Equal(sc, []byte{scEnter, scEnter | releaseBit}) {
		t.Fatalf("expected carriage return to map to enter; got %v", sc)
	}
}

func TestHandleIRQ(t *testing.T) {
	defer func(orig func(uint16) uint8) { portReadByteFn = orig }(portReadByteFn)

	var (
		d     Driver
		l     recordingListener
		queue = []byte{0x2d, 0xad}
	)
	portReadByteFn = func(port uint16) uint8 {
		switch port {
		case StatusPort:
			if len(queue) > 0 {
				return statusOutputFull
			}
			return 0
		default:
			sc := queue[0]
			queue = queue[1:]
			return sc
		}
	}

	// Without a listener scancodes are decoded but dropped.
	d.HandleIRQ()
	if l.typed.Len() != 0 {
		t.Fatal("unexpected key event")
	}

	d.SetListener(&l)
	queue = []byte{0x2d}
	d.HandleIRQ()
	if l.typed.String() != "x" {
		t.Fatalf("expected 'x'; got %q", l.typed.String())
	}

	queue = []byte{0x2d, 0xad, 0x2d}
	var buf bytes.Buffer
	if err := d.DriverInit(&buf); err != nil {
		t.Fatal(err)
	}

	if len(queue) != 0 || buf.String() != "scancode set 1, drained 3 bytes\n" {
		t.Fatalf("expected DriverInit to drain the controller; queue %v, log %q", queue, buf.String())
	}
}

func TestDriverInterface(t *testing.T) {
	var dev device.Driver = probeForKeyboard()

	if dev.DriverName() == "" {
		t.Fatal("DriverName() returned an empty string")
	}

	if major, minor, patch := dev.DriverVersion(); major+minor+patch == 0 {
		t.Fatal("DriverVersion() returned an invalid version number")
	}
}
