package hosted

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"gopherix/kernel/cpu"
	"gopherix/kernel/gate"
	"gopherix/kernel/mm"
)

func newMachine(t *testing.T, cfg Config) *Machine {
	t.Helper()

	m, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	gate.Reset()
	t.Cleanup(func() {
		gate.Reset()
		if err := m.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return m
}

// initPIC remaps the master controller to vector 0x20 and loads its mask.
func initPIC(m *Machine, masterMask, slaveMask uint8) {
	for _, val := range []uint8{0x11, 0x20, 0x04, 0x01} {
		port := uint16(portPICMasterData)
		if val == 0x11 {
			port = portPICMasterCommand
		}
		m.PortWriteByte(port, val)
	}
	for _, val := range []uint8{0x11, 0x28, 0x02, 0x01} {
		port := uint16(portPICSlaveData)
		if val == 0x11 {
			port = portPICSlaveCommand
		}
		m.PortWriteByte(port, val)
	}

	m.PortWriteByte(portPICMasterData, masterMask)
	m.PortWriteByte(portPICSlaveData, slaveMask)
}

func waitHalted(t *testing.T, m *Machine) {
	t.Helper()

	select {
	case <-m.Halted():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the machine to stop")
	}
}

func TestBinary(t *testing.T) {
	img := Binary("averyveryverylongname")

	if !bytes.HasPrefix(img, imageMagic) {
		t.Fatalf("expected image to start with the executable magic; got %v", img[:4])
	}
	if got := binary.LittleEndian.Uint32(img[entryOffset:]); got != uint32(mm.ProgramLoadAddress) {
		t.Fatalf("expected entry point 0x%x; got 0x%x", mm.ProgramLoadAddress, got)
	}
	if got := string(img[NameOffset : NameOffset+NameSize]); got != "averyveryverylon" {
		t.Fatalf("expected truncated name; got %q", got)
	}
}

func TestSwitchAndRestore(t *testing.T) {
	m := newMachine(t, Config{MemorySize: 1 << 20})

	var (
		order []string
		a     cpu.Context
	)

	m.Start(func() {
		b := m.Spawn(func() {
			order = append(order, "b")
			m.Restore(a)
		})

		order = append(order, "a1")
		m.Switch(&a, b)
		order = append(order, "a2")
	})

	waitHalted(t, m)

	if err := m.Err(); err != nil {
		t.Fatal(err)
	}
	if exp := []string{"a1", "b", "a2"}; len(order) != len(exp) || order[0] != exp[0] || order[1] != exp[1] || order[2] != exp[2] {
		t.Fatalf("expected execution order %v; got %v", exp, order)
	}
}

func TestResumeUnknownContext(t *testing.T) {
	m := newMachine(t, Config{MemorySize: 1 << 20})

	m.Start(func() {
		m.Restore(cpu.Context{ESP: 0xbad})
	})
	waitHalted(t, m)

	if m.Err() == nil {
		t.Fatal("expected resuming an unknown context to stop the machine with an error")
	}
}

func TestInterruptDelivery(t *testing.T) {
	m := newMachine(t, Config{MemorySize: 1 << 20})

	var (
		timerIRQs, kbdIRQs int
		enabledInHandler   bool
	)
	gate.HandleInterrupt(0x20, func(regs *gate.Registers) {
		timerIRQs++
		enabledInHandler = m.InterruptsEnabled()
	})
	gate.HandleInterrupt(0x21, func(*gate.Registers) { kbdIRQs++ })

	ready := make(chan struct{})
	m.Start(func() {
		// only IRQ0 is unmasked
		initPIC(m, 0xfe, 0xff)
		close(ready)
		m.WaitForInterrupt()
	})

	<-ready
	m.Raise(kbdIRQ)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.WaitIdle(ctx); err != nil {
		t.Fatal(err)
	}

	m.Raise(pitIRQ)
	waitHalted(t, m)

	if timerIRQs != 1 || kbdIRQs != 0 {
		t.Fatalf("expected 1 timer and 0 keyboard interrupts; got %d and %d", timerIRQs, kbdIRQs)
	}
	if enabledInHandler {
		t.Fatal("expected interrupts to be disabled while the handler runs")
	}
	if m.pending&(1<<kbdIRQ) == 0 {
		t.Fatal("expected the masked keyboard request to stay latched")
	}
}

func TestPICModel(t *testing.T) {
	m := newMachine(t, Config{MemorySize: 1 << 20})

	if !m.pic.masked(0) || m.pic.vector(0) != 0x08 {
		t.Fatal("expected BIOS state after reset")
	}

	initPIC(m, 0xfb, 0xfe)

	specs := []struct {
		irq    uint8
		masked bool
		vector gate.InterruptNumber
	}{
		{0, true, 0x20},
		{2, false, 0x22},
		{8, false, 0x28},
		{9, true, 0x29},
	}

	for _, spec := range specs {
		if got := m.pic.masked(spec.irq); got != spec.masked {
			t.Errorf("[irq %d] expected masked to be %t; got %t", spec.irq, spec.masked, got)
		}
		if got := m.pic.vector(spec.irq); got != spec.vector {
			t.Errorf("[irq %d] expected vector 0x%x; got 0x%x", spec.irq, spec.vector, got)
		}
	}

	// masking the cascade line masks every slave line
	m.PortWriteByte(portPICMasterData, 0xff)
	if !m.pic.masked(8) {
		t.Error("expected slave line to be masked through the cascade")
	}

	m.PortWriteByte(portPICMasterCommand, 0x60)
	if got := m.pic.master.eoiCount; got != 1 {
		t.Errorf("expected 1 EOI; got %d", got)
	}
}

func TestClockModels(t *testing.T) {
	m := newMachine(t, Config{MemorySize: 1 << 20})

	if m.pitPeriod() != 0 || m.rtcPeriod() != 0 {
		t.Fatal("expected clocks to be stopped after reset")
	}

	// 100Hz rate generator
	m.PortWriteByte(portPITCommand, 0x34)
	m.PortWriteByte(portPITChannel0, uint8(11931&0xff))
	m.PortWriteByte(portPITChannel0, uint8(11931>>8))
	if got := m.pitPeriod(); got < 9900*time.Microsecond || got > 10100*time.Microsecond {
		t.Errorf("expected a PIT period of ~10ms; got %s", got)
	}

	// 1024Hz without the periodic interrupt enabled
	m.PortWriteByte(portRTCIndex, 0x80|rtcRegA)
	m.PortWriteByte(portRTCData, 0x26)
	if got := m.rtcPeriod(); got != 0 {
		t.Errorf("expected RTC to stay quiet until PIE is set; got %s", got)
	}

	m.PortWriteByte(portRTCIndex, 0x80|rtcRegB)
	m.PortWriteByte(portRTCData, rtcPIE)
	if exp, got := time.Second/1024, m.rtcPeriod(); got != exp {
		t.Errorf("expected RTC period %s; got %s", exp, got)
	}

	m.rtcTick()
	m.PortWriteByte(portRTCIndex, 0x80|rtcRegC)
	if got := m.PortReadByte(portRTCData); got != rtcIRQF|rtcPF {
		t.Errorf("expected register C to report the tick; got 0x%x", got)
	}
	if got := m.PortReadByte(portRTCData); got != 0 {
		t.Errorf("expected reading register C to clear it; got 0x%x", got)
	}
	if m.pending&(1<<rtcIRQ) == 0 {
		t.Error("expected the tick to latch IRQ8")
	}
}

func TestKeyboardModel(t *testing.T) {
	m := newMachine(t, Config{MemorySize: 1 << 20})

	if got := m.PortReadByte(portKbdStatus); got != 0 {
		t.Fatalf("expected empty output buffer; got status 0x%x", got)
	}

	m.Type([]byte{0x1e, 0x9e})
	m.pending = 0

	if got := m.PortReadByte(portKbdStatus); got&kbdOutputFull == 0 {
		t.Fatal("expected output buffer full")
	}
	if got := m.PortReadByte(portKbdData); got != 0x1e {
		t.Fatalf("expected scancode 0x1e; got 0x%x", got)
	}
	if m.pending&(1<<kbdIRQ) == 0 {
		t.Fatal("expected IRQ1 to be latched again while scancodes remain")
	}

	m.pending = 0
	if got := m.PortReadByte(portKbdData); got != 0x9e {
		t.Fatalf("expected scancode 0x9e; got 0x%x", got)
	}
	if m.pending != 0 {
		t.Fatal("expected no IRQ once the buffer drained")
	}

	if got := m.PortReadByte(0x1234); got != floatingPort {
		t.Fatalf("expected unclaimed port to float; got 0x%x", got)
	}
}

func TestScreenAndCursor(t *testing.T) {
	m := newMachine(t, Config{MemorySize: 1 << 20})

	fb := m.PhysicalMemory()[mm.VideoMemory:]
	for i, ch := range []byte("hi \x01") {
		fb[i*2], fb[i*2+1] = ch, 0x07
	}
	fb[ScreenColumns*2] = 'x'

	rows := m.Screen()
	if rows[0] != "hi" || rows[1] != "x" || rows[2] != "" {
		t.Fatalf("unexpected screen contents: %q", rows[:3])
	}

	m.PortWriteByte(portCRTCIndex, crtcCursorHigh)
	m.PortWriteByte(portCRTCData, 0)
	m.PortWriteByte(portCRTCIndex, crtcCursorLow)
	m.PortWriteByte(portCRTCData, 82)
	if x, y := m.Cursor(); x != 2 || y != 1 {
		t.Fatalf("expected cursor at (2, 1); got (%d, %d)", x, y)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	m := newMachine(t, Config{MemorySize: 1 << 20})

	ticks := 0
	gate.HandleInterrupt(0x20, func(*gate.Registers) { ticks++ })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := m.Run(ctx, func() {
		initPIC(m, 0xfe, 0xff)
		m.PortWriteByte(portPITCommand, 0x34)
		m.PortWriteByte(portPITChannel0, uint8(1193&0xff))
		m.PortWriteByte(portPITChannel0, uint8(1193>>8))

		for {
			m.WaitForInterrupt()
		}
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded; got %v", err)
	}
	if ticks == 0 {
		t.Fatal("expected the PIT clock to raise interrupts")
	}
}

func TestHaltStopsRun(t *testing.T) {
	m := newMachine(t, Config{MemorySize: 1 << 20})

	err := m.Run(context.Background(), func() {
		m.Halt()
	})
	if err != ErrHalted {
		t.Fatalf("expected ErrHalted; got %v", err)
	}
}
