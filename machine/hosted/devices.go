package hosted

import (
	"time"

	"gopherix/kernel/gate"
)

// I/O ports decoded by the machine.
const (
	portPICMasterCommand = 0x20
	portPICMasterData    = 0x21
	portPICSlaveCommand  = 0xa0
	portPICSlaveData     = 0xa1
	portPITChannel0      = 0x40
	portPITCommand       = 0x43
	portKbdData          = 0x60
	portKbdStatus        = 0x64
	portRTCIndex         = 0x70
	portRTCData          = 0x71
	portCRTCIndex        = 0x3d4
	portCRTCData         = 0x3d5

	// floatingPort is returned by reads from ports nothing answers on.
	floatingPort = 0xff
)

// IRQ lines of the modelled devices.
const (
	pitIRQ = 0
	kbdIRQ = 1
	rtcIRQ = 8
)

// PortWriteByte writes a byte to an I/O port.
func (m *Machine) PortWriteByte(port uint16, val uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch port {
	case portPICMasterCommand:
		m.pic.master.writeCommand(val)
	case portPICMasterData:
		m.pic.master.writeData(val)
	case portPICSlaveCommand:
		m.pic.slave.writeCommand(val)
	case portPICSlaveData:
		m.pic.slave.writeData(val)
	case portPITCommand:
		m.pit.writeCommand(val)
	case portPITChannel0:
		m.pit.writeData(val)
	case portRTCIndex:
		m.rtc.index = val &^ 0x80
	case portRTCData:
		m.rtc.regs[m.rtc.index] = val
	case portCRTCIndex:
		m.crtc.index = val
	case portCRTCData:
		m.crtc.write(val)
	}
}

// PortReadByte reads a byte from an I/O port.
func (m *Machine) PortReadByte(port uint16) uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch port {
	case portPICMasterData:
		return m.pic.master.imr
	case portPICSlaveData:
		return m.pic.slave.imr
	case portRTCData:
		return m.rtc.read()
	case portKbdStatus:
		if len(m.kbd.fifo) != 0 {
			return kbdOutputFull
		}
		return 0
	case portKbdData:
		sc := m.kbd.pop()
		if len(m.kbd.fifo) != 0 {
			m.latch(kbdIRQ)
		}
		return sc
	}
	return floatingPort
}

// i8259 is one half of the cascaded interrupt controller pair.
type i8259 struct {
	imr        uint8
	vectorBase uint8

	// icw is the initialization word expected next on the data port or
	// 0 once the controller is initialized.
	icw     int
	needIC4 bool

	eoiCount int
}

func (c *i8259) writeCommand(val uint8) {
	switch {
	case val&0x10 != 0:
		// ICW1 starts the initialization sequence.
		c.icw, c.needIC4 = 2, val&0x01 != 0
		c.imr = 0
	case val&0x20 != 0:
		c.eoiCount++
	}
}

func (c *i8259) writeData(val uint8) {
	switch c.icw {
	case 2:
		c.vectorBase = val &^ 0x07
		c.icw = 3
	case 3:
		c.icw = 0
		if c.needIC4 {
			c.icw = 4
		}
	case 4:
		c.icw = 0
	default:
		c.imr = val
	}
}

type picModel struct {
	master, slave i8259
}

// reset puts the controllers in the state the BIOS leaves them in: vectors
// at 0x08 and 0x70 with every line masked.
func (p *picModel) reset() {
	p.master = i8259{imr: 0xff, vectorBase: 0x08}
	p.slave = i8259{imr: 0xff, vectorBase: 0x70}
}

func (p *picModel) masked(irq uint8) bool {
	if irq >= 8 {
		return p.slave.imr&(1<<(irq-8)) != 0 || p.master.imr&(1<<2) != 0
	}
	return p.master.imr&(1<<irq) != 0
}

func (p *picModel) vector(irq uint8) gate.InterruptNumber {
	if irq >= 8 {
		return gate.InterruptNumber(p.slave.vectorBase + irq - 8)
	}
	return gate.InterruptNumber(p.master.vectorBase + irq)
}

// pitOscillator is the input clock of the interval timer in Hz.
const pitOscillator = 1193182

// pitModel models channel 0 of the interval timer.
type pitModel struct {
	divisor  uint32
	lowByte  bool
	reloaded bool
}

func (p *pitModel) writeCommand(val uint8) {
	// Only lobyte/hibyte access to channel 0 is modelled.
	if val>>6 == 0 {
		p.lowByte = true
	}
}

func (p *pitModel) writeData(val uint8) {
	if p.lowByte {
		p.divisor = uint32(val)
		p.lowByte = false
		return
	}

	p.divisor |= uint32(val) << 8
	if p.divisor == 0 {
		p.divisor = 65536
	}
	p.reloaded = true
}

func (m *Machine) pitPeriod() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.pit.reloaded {
		return 0
	}
	return time.Duration(m.pit.divisor) * time.Second / pitOscillator
}

// RTC registers and bits.
const (
	rtcRegA = 0x0a
	rtcRegB = 0x0b
	rtcRegC = 0x0c

	rtcPIE = 0x40

	// rtcIRQF|rtcPF are reported in register C after a periodic tick.
	rtcIRQF = 0x80
	rtcPF   = 0x40
)

type rtcModel struct {
	index uint8
	regs  [128]uint8
}

func (r *rtcModel) read() uint8 {
	val := r.regs[r.index]
	if r.index == rtcRegC {
		r.regs[rtcRegC] = 0
	}
	return val
}

func (m *Machine) rtcPeriod() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	rate := m.rtc.regs[rtcRegA] & 0x0f
	if m.rtc.regs[rtcRegB]&rtcPIE == 0 || rate < 3 {
		return 0
	}

	hz := 32768 >> (rate - 1)
	return time.Second / time.Duration(hz)
}

// rtcTick signals a periodic interrupt.
func (m *Machine) rtcTick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rtc.regs[rtcRegC] |= rtcIRQF | rtcPF
	m.latch(rtcIRQ)
}

const kbdOutputFull = 0x01

type kbdModel struct {
	fifo []byte
}

func (k *kbdModel) pop() uint8 {
	if len(k.fifo) == 0 {
		return 0
	}

	sc := k.fifo[0]
	k.fifo = k.fifo[1:]
	return sc
}

// Type queues scancodes in the keyboard controller and raises its IRQ.
func (m *Machine) Type(scancodes []byte) {
	if len(scancodes) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.kbd.fifo = append(m.kbd.fifo, scancodes...)
	m.latch(kbdIRQ)
}

// CRT controller registers.
const (
	crtcCursorHigh = 0x0e
	crtcCursorLow  = 0x0f
)

type crtcModel struct {
	index  uint8
	cursor uint16
}

func (c *crtcModel) write(val uint8) {
	switch c.index {
	case crtcCursorHigh:
		c.cursor = c.cursor&0x00ff | uint16(val)<<8
	case crtcCursorLow:
		c.cursor = c.cursor&0xff00 | uint16(val)
	}
}
