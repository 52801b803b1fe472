package tty

import "gopherix/device"

func probeForVT() device.Driver {
	return NewVT(DefaultTabWidth)
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderTTY,
		Probe: probeForVT,
	})
}
