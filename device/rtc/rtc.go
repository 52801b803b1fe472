// Package rtc implements a driver for the periodic interrupt of the MC146818
// real-time clock.
package rtc

import (
	"gopherix/device"
	"gopherix/kernel"
	"gopherix/kernel/cpu"
	"gopherix/kernel/kfmt"
	"io"
)

// Clock ports.
const (
	IndexPort = 0x70
	DataPort  = 0x71
)

const (
	// IRQ is the interrupt line of the clock.
	IRQ = 8

	// MinFrequency and MaxFrequency bound the periodic interrupt rate.
	MinFrequency = 2
	MaxFrequency = 1024

	// OpenFrequency is the rate set whenever the clock is opened.
	OpenFrequency = 2

	baseFrequency = 32768

	regA       = 0x0a
	regB       = 0x0b
	regC       = 0x0c
	nmiDisable = 0x80

	periodicInterruptEnable = 0x40
	rateMask                = 0xf0
)

var (
	portWriteByteFn = cpu.PortWriteByte
	portReadByteFn  = cpu.PortReadByte

	errBadFrequency = &kernel.Error{Kind: kernel.InvalidFrequency, Module: "rtc", Message: "frequency must be a power of two between 2 and 1024"}
)

// Clock drives the periodic interrupt of the real-time clock.
type Clock struct {
	hz    uint32
	ticks uint64
}

// NewClock returns a clock that is programmed to hz by DriverInit.
func NewClock(hz uint32) *Clock {
	return &Clock{hz: hz}
}

// ValidFrequency returns true if hz is a power of two in [2, 1024].
func ValidFrequency(hz uint32) bool {
	return hz >= MinFrequency && hz <= MaxFrequency && hz&(hz-1) == 0
}

// SetFrequency programs the periodic interrupt rate.
func (c *Clock) SetFrequency(hz uint32) *kernel.Error {
	if !ValidFrequency(hz) {
		return errBadFrequency
	}

	// hz = 32768 >> (rate - 1)
	rate := uint8(1)
	for div := baseFrequency / hz; div != 1; div >>= 1 {
		rate++
	}

	prev := c.readRegister(regA)
	c.writeRegister(regA, (prev&rateMask)|rate)

	c.hz = hz
	return nil
}

// Open resets the rate to OpenFrequency.
func (c *Clock) Open() *kernel.Error {
	return c.SetFrequency(OpenFrequency)
}

// Frequency returns the programmed rate.
func (c *Clock) Frequency() uint32 {
	return c.hz
}

// HandleIRQ acknowledges the periodic interrupt by reading register C and
// accounts for the tick. The clock stops raising interrupts until register
// C is read.
func (c *Clock) HandleIRQ() {
	c.readRegister(regC)
	c.ticks++
}

// Ticks returns the number of periodic interrupts since boot.
func (c *Clock) Ticks() uint64 {
	return c.ticks
}

func (c *Clock) readRegister(reg uint8) uint8 {
	portWriteByteFn(IndexPort, nmiDisable|reg)
	return portReadByteFn(DataPort)
}

func (c *Clock) writeRegister(reg, val uint8) {
	portWriteByteFn(IndexPort, nmiDisable|reg)
	portWriteByteFn(DataPort, val)
}

// DriverName returns the name of this driver.
func (c *Clock) DriverName() string {
	return "mc146818_rtc"
}

// DriverVersion returns the version of this driver.
func (c *Clock) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit enables the periodic interrupt and programs its rate.
func (c *Clock) DriverInit(w io.Writer) *kernel.Error {
	if err := c.SetFrequency(c.hz); err != nil {
		return err
	}

	prev := c.readRegister(regB)
	c.writeRegister(regB, prev|periodicInterruptEnable)

	// Re-enable NMIs.
	portWriteByteFn(IndexPort, regB)

	kfmt.Fprintf(w, "periodic interrupt at %dHz\n", c.hz)
	return nil
}

func probeForRTC() device.Driver {
	return NewClock(OpenFrequency)
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderNormal,
		Probe: probeForRTC,
	})
}
