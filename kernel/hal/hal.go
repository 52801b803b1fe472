// Package hal parses the boot command line and probes the registered device
// drivers.
package hal

import (
	"bytes"
	"gopherix/device"
	"gopherix/device/keyboard"
	"gopherix/device/pic"
	"gopherix/device/pit"
	"gopherix/device/rtc"
	"gopherix/device/tty"
	"gopherix/device/video/console"
	"gopherix/kernel"
	"gopherix/kernel/kfmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// managedDevices contains the devices discovered by the HAL.
type managedDevices struct {
	activeConsole *console.VgaTextConsole
	activeTTY     *tty.VT

	pic      *pic.Controller
	timer    *pit.Timer
	clock    *rtc.Clock
	keyboard *keyboard.Driver

	// activeDrivers tracks all initialized device drivers.
	activeDrivers []device.Driver
}

var (
	devices   managedDevices
	strBuf    bytes.Buffer
	cmdLineKV = map[string]string{}

	errBadParam = &kernel.Error{Kind: kernel.InvalidArgument, Module: "hal", Message: "malformed numeric boot parameter"}
)

// ParseCmdLine replaces the boot parameters with the space separated
// key=value pairs in line. A bare key is stored with itself as the value.
func ParseCmdLine(line string) {
	cmdLineKV = make(map[string]string)
	for _, pair := range strings.Fields(line) {
		kv := strings.Split(pair, "=")
		switch len(kv) {
		case 2: // foo=bar
			cmdLineKV[kv[0]] = kv[1]
		case 1: // nofoo
			cmdLineKV[kv[0]] = kv[0]
		}
	}
}

// BootParam returns the value of a boot parameter or def if it was not
// specified.
func BootParam(key, def string) string {
	if v, ok := cmdLineKV[key]; ok {
		return v
	}
	return def
}

// BootParamUint returns a numeric boot parameter.
func BootParamUint(key string, def uint32) (uint32, *kernel.Error) {
	v, ok := cmdLineKV[key]
	if !ok {
		return def, nil
	}

	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return def, errBadParam
	}
	return uint32(n), nil
}

// ActiveConsole returns the console that displays the foreground terminal.
func ActiveConsole() *console.VgaTextConsole { return devices.activeConsole }

// ActiveTTY returns the currently active TTY.
func ActiveTTY() *tty.VT { return devices.activeTTY }

// InterruptController returns the initialized PIC driver.
func InterruptController() *pic.Controller { return devices.pic }

// Timer returns the initialized PIT driver.
func Timer() *pit.Timer { return devices.timer }

// Clock returns the initialized RTC driver.
func Clock() *rtc.Clock { return devices.clock }

// Keyboard returns the initialized keyboard driver.
func Keyboard() *keyboard.Driver { return devices.keyboard }

// DetectHardware probes for hardware devices and initializes the appropriate
// drivers. Devices found by an earlier call are forgotten.
func DetectHardware() {
	devices = managedDevices{}

	// Get driver list and sort by detection priority
	drivers := device.DriverList()
	sort.Sort(drivers)

	probe(drivers)
}

// printfSink forwards driver output to the current kfmt sink, which changes
// once a terminal is linked to the console.
type printfSink struct{}

func (printfSink) Write(p []byte) (int, error) {
	kfmt.Printf("%s", p)
	return len(p), nil
}

// probe executes the probe function for each driver and invokes
// onDriverInit for each successfully initialized driver.
func probe(driverInfoList device.DriverInfoList) {
	var w = kfmt.PrefixWriter{Sink: printfSink{}}
	if BootParam("quiet", "0") == "1" {
		w.Sink = io.Discard
	}

	for _, info := range driverInfoList {
		drv := info.Probe()
		if drv == nil {
			continue
		}

		strBuf.Reset()
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&strBuf, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
		w.Prefix = strBuf.Bytes()

		if err := configure(drv); err != nil {
			kfmt.Fprintf(&w, "ignoring boot parameters: %s\n", err.Message)
		}

		if err := drv.DriverInit(&w); err != nil {
			kfmt.Fprintf(&w, "init failed: %s\n", err.Message)
			continue
		}

		kfmt.Fprintf(&w, "initialized\n")
		onDriverInit(drv)
		devices.activeDrivers = append(devices.activeDrivers, drv)
	}
}

// configure applies the boot parameters that tune a driver before it is
// initialized.
func configure(drv device.Driver) *kernel.Error {
	switch drvImpl := drv.(type) {
	case *pit.Timer:
		hz, err := BootParamUint("pit", pit.DefaultFrequency)
		if err != nil {
			return err
		}
		return drvImpl.SetFrequency(hz)
	case *rtc.Clock:
		hz, err := BootParamUint("rtc", rtc.OpenFrequency)
		if err != nil {
			return err
		}
		return drvImpl.SetFrequency(hz)
	}
	return nil
}

// onDriverInit is invoked by probe() whenever a piece of hardware is detected
// and successfully initialized. Only the first device of each kind is used.
func onDriverInit(drv device.Driver) {
	switch drvImpl := drv.(type) {
	case *console.VgaTextConsole:
		if devices.activeConsole != nil {
			return
		}

		devices.activeConsole = drvImpl
		if devices.activeTTY != nil {
			linkTTYToConsole()
		}
	case *tty.VT:
		if devices.activeTTY != nil {
			return
		}

		devices.activeTTY = drvImpl
		if devices.activeConsole != nil {
			linkTTYToConsole()
		}
	case *pic.Controller:
		if devices.pic == nil {
			devices.pic = drvImpl
		}
	case *pit.Timer:
		if devices.timer == nil {
			devices.timer = drvImpl
		}
	case *rtc.Clock:
		if devices.clock == nil {
			devices.clock = drvImpl
		}
	case *keyboard.Driver:
		if devices.keyboard == nil {
			devices.keyboard = drvImpl
		}
	}
}

// linkTTYToConsole connects the active TTY device to the active console device
// and makes it the kernel output sink.
func linkTTYToConsole() {
	devices.activeTTY.AttachTo(devices.activeConsole)
	devices.activeTTY.Clear()
	devices.activeTTY.SetState(tty.StateActive)
	kfmt.SetOutputSink(devices.activeTTY)
}
