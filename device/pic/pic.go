// Package pic implements a driver for the cascaded pair of i8259 interrupt
// controllers.
package pic

import (
	"gopherix/device"
	"gopherix/kernel"
	"gopherix/kernel/cpu"
	"gopherix/kernel/kfmt"
	"io"
)

// Controller ports.
const (
	MasterCommand = 0x20
	MasterData    = 0x21
	SlaveCommand  = 0xa0
	SlaveData     = 0xa1
)

const (
	icw1       = 0x11
	icw2Master = 0x20
	icw2Slave  = 0x28
	icw3Master = 0x04
	icw3Slave  = 0x02
	icw4       = 0x01

	maskAll = 0xff

	// specificEOI is or-ed with the line number to acknowledge it.
	specificEOI = 0x60

	// CascadeIRQ is the master line the slave controller is wired to.
	CascadeIRQ = 2

	// NumIRQs is the number of lines handled by the controller pair.
	NumIRQs = 16

	linesPerController = 8
)

var (
	portWriteByteFn = cpu.PortWriteByte
	portReadByteFn  = cpu.PortReadByte

	errBadIRQ = &kernel.Error{Kind: kernel.InvalidArgument, Module: "i8259", Message: "IRQ line out of range"}
)

// Controller drives the master/slave i8259 pair.
type Controller struct{}

// Enable unmasks an IRQ line. Slave lines are only delivered while the
// cascade line is unmasked; DriverInit takes care of that.
func (c *Controller) Enable(irq uint8) *kernel.Error {
	if irq >= NumIRQs {
		return errBadIRQ
	}

	port, bit := dataPort(irq)
	portWriteByteFn(port, portReadByteFn(port)&^bit)
	return nil
}

// Disable masks an IRQ line.
func (c *Controller) Disable(irq uint8) *kernel.Error {
	if irq >= NumIRQs {
		return errBadIRQ
	}

	port, bit := dataPort(irq)
	portWriteByteFn(port, portReadByteFn(port)|bit)
	return nil
}

// SendEOI acknowledges an IRQ line. Acknowledging a slave line also
// acknowledges the cascade line on the master.
func (c *Controller) SendEOI(irq uint8) {
	if irq >= NumIRQs {
		return
	}

	if irq >= linesPerController {
		portWriteByteFn(SlaveCommand, specificEOI|(irq-linesPerController))
		portWriteByteFn(MasterCommand, specificEOI|CascadeIRQ)
		return
	}

	portWriteByteFn(MasterCommand, specificEOI|irq)
}

func dataPort(irq uint8) (uint16, uint8) {
	if irq >= linesPerController {
		return SlaveData, 1 << (irq - linesPerController)
	}
	return MasterData, 1 << irq
}

// DriverName returns the name of this driver.
func (c *Controller) DriverName() string {
	return "i8259"
}

// DriverVersion returns the version of this driver.
func (c *Controller) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit remaps the controllers so that IRQs 0-15 raise vectors
// 0x20-0x2f and masks every line except the cascade.
func (c *Controller) DriverInit(w io.Writer) *kernel.Error {
	portWriteByteFn(MasterData, maskAll)
	portWriteByteFn(SlaveData, maskAll)

	portWriteByteFn(MasterCommand, icw1)
	portWriteByteFn(SlaveCommand, icw1)
	portWriteByteFn(MasterData, icw2Master)
	portWriteByteFn(SlaveData, icw2Slave)
	portWriteByteFn(MasterData, icw3Master)
	portWriteByteFn(SlaveData, icw3Slave)
	portWriteByteFn(MasterData, icw4)
	portWriteByteFn(SlaveData, icw4)

	portWriteByteFn(MasterData, maskAll)
	portWriteByteFn(SlaveData, maskAll)
	c.Enable(CascadeIRQ)

	kfmt.Fprintf(w, "remapped IRQs to vectors 0x%x-0x%x\n", icw2Master, icw2Slave+linesPerController-1)
	return nil
}

func probeForPIC() device.Driver {
	return &Controller{}
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderInterruptController,
		Probe: probeForPIC,
	})
}
