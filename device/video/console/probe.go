package console

import (
	"gopherix/device"
	"gopherix/kernel/cpu"
	"gopherix/kernel/mm"
)

var (
	mapFramebufferFn = mm.Bytes
	portWriteByteFn  = cpu.PortWriteByte
)

// The text mode dimensions set up by the boot loader.
const (
	TextColumns = 80
	TextRows    = 25
)

// probeForVgaTextConsole returns a console for the VGA text buffer.
func probeForVgaTextConsole() device.Driver {
	return NewVgaTextConsole(TextColumns, TextRows, mm.VideoMemory)
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderConsole,
		Probe: probeForVgaTextConsole,
	})
}
