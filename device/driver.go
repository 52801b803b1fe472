package device

import (
	"gopherix/kernel"
	"io"
)

// Driver is an interface implemented by all drivers.
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major uint16, minor uint16, patch uint16)

	// DriverInit initializes the device driver. If the driver init code
	// needs to log some output, it can use the supplied io.Writer in
	// conjunction with a call to kfmt.Fprintf.
	DriverInit(io.Writer) *kernel.Error
}

// ProbeFn is a function that scans for the presence of a particular
// piece of hardware and returns a driver for it.
type ProbeFn func() Driver

// DetectOrder specifies when each driver's probe function will be invoked
// by the hal package.
type DetectOrder int8

// The order in which driver probes are executed. Interrupt controller
// drivers come first so that the remaining drivers can unmask their lines.
const (
	DetectOrderFirst = DetectOrder(iota - 64)
	DetectOrderInterruptController
	DetectOrderConsole
	DetectOrderTTY

	DetectOrderEarly  = DetectOrder(-1)
	DetectOrderNormal = DetectOrder(0)
	DetectOrderLast   = DetectOrder(127)
)

// DriverInfo describes a driver registered with the device package.
type DriverInfo struct {
	// Order specifies at which stage of the hw detection the driver's
	// probe function should be invoked.
	Order DetectOrder

	// Probe is a function that checks for the presence of a particular
	// piece of hardware and returns a driver for it.
	Probe ProbeFn
}

// DriverInfoList is a list of registered drivers that implements
// sort.Interface.
type DriverInfoList []*DriverInfo

// Len returns the length of the driver info list.
func (l DriverInfoList) Len() int { return len(l) }

// Swap exchanges 2 elements in the driver info list.
func (l DriverInfoList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

// Less compares 2 elements of the driver info list.
func (l DriverInfoList) Less(i, j int) bool { return l[i].Order < l[j].Order }

var registeredDrivers DriverInfoList

// RegisterDriver adds the supplied driver info object to the list of
// registered drivers. The list can be retrieved by a call to DriverList().
func RegisterDriver(info *DriverInfo) {
	registeredDrivers = append(registeredDrivers, info)
}

// DriverList returns the list of registered drivers.
func DriverList() DriverInfoList {
	return registeredDrivers
}
