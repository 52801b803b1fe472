// Package pit implements a driver for channel 0 of the i8253/i8254
// programmable interval timer.
package pit

import (
	"gopherix/device"
	"gopherix/kernel"
	"gopherix/kernel/cpu"
	"gopherix/kernel/kfmt"
	"io"
)

// Timer ports.
const (
	Channel0Port = 0x40
	CommandPort  = 0x43
)

const (
	// Oscillator is the input frequency of the timer in Hz.
	Oscillator = 1193182

	// DefaultFrequency is the tick rate programmed by DriverInit.
	DefaultFrequency = 100

	// IRQ is the interrupt line of channel 0.
	IRQ = 0

	// rateGenerator selects channel 0, lobyte/hibyte access and mode 2.
	rateGenerator = 0x34

	maxDivisor = 65536
)

var (
	portWriteByteFn = cpu.PortWriteByte

	errBadFrequency = &kernel.Error{Kind: kernel.InvalidFrequency, Module: "pit", Message: "frequency out of range"}
)

// Timer drives channel 0 of the PIT.
type Timer struct {
	hz    uint32
	ticks uint64
}

// NewTimer returns a timer that is programmed to hz by DriverInit.
func NewTimer(hz uint32) *Timer {
	return &Timer{hz: hz}
}

// SetFrequency programs the channel 0 rate. The divisor is clamped so the
// effective rate may differ from hz for rates below 19Hz.
func (t *Timer) SetFrequency(hz uint32) *kernel.Error {
	if hz == 0 || hz > Oscillator {
		return errBadFrequency
	}

	divisor := Oscillator / hz
	if divisor > maxDivisor {
		divisor = maxDivisor
	}

	// A divisor of 65536 is written as 0.
	portWriteByteFn(CommandPort, rateGenerator)
	portWriteByteFn(Channel0Port, uint8(divisor))
	portWriteByteFn(Channel0Port, uint8(divisor>>8))

	t.hz = hz
	return nil
}

// Frequency returns the programmed rate.
func (t *Timer) Frequency() uint32 {
	return t.hz
}

// HandleIRQ accounts for a timer tick.
func (t *Timer) HandleIRQ() {
	t.ticks++
}

// Ticks returns the number of ticks since boot.
func (t *Timer) Ticks() uint64 {
	return t.ticks
}

// DriverName returns the name of this driver.
func (t *Timer) DriverName() string {
	return "i8254_pit"
}

// DriverVersion returns the version of this driver.
func (t *Timer) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit programs the timer rate.
func (t *Timer) DriverInit(w io.Writer) *kernel.Error {
	if err := t.SetFrequency(t.hz); err != nil {
		return err
	}

	kfmt.Fprintf(w, "channel 0 at %dHz\n", t.hz)
	return nil
}

func probeForPIT() device.Driver {
	return NewTimer(DefaultFrequency)
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderNormal,
		Probe: probeForPIT,
	})
}
