package usbfs

import "time"

// System paths.
const (
	SysfsUSBPath = "/sys/bus/usb/devices"
	DevfsUSBPath = "/dev/bus/usb"
)

// DefaultTimeout bounds synchronous control and bulk transfers.
const DefaultTimeout = time.Second

// DefaultQueueLength is the capacity of a pipe's completion channel.
const DefaultQueueLength = 256

// URB transfer types for USBDEVFS_SUBMITURB.
const (
	urbTypeISO       = 0
	urbTypeInterrupt = 1
	urbTypeControl   = 2
	urbTypeBulk      = 3
)

// URB flags.
const (
	urbShortNotOK = 0x01
	urbZeroPacket = 0x40
)

// maxEpollEvents is the number of events retrieved per epoll_wait call.
const maxEpollEvents = 8

// Speed is the negotiated bus speed in Mbit/s as reported by sysfs.
type Speed int

// Bus speeds.
const (
	SpeedUnknown   Speed = 0
	SpeedLow       Speed = 1 // 1.5 Mbit/s, rounded
	SpeedFull      Speed = 12
	SpeedHigh      Speed = 480
	SpeedSuper     Speed = 5000
	SpeedSuperPlus Speed = 10000
)

// String returns the USB marketing name of the speed.
func (s Speed) String() string {
	switch {
	case s >= SpeedSuperPlus:
		return "super-plus"
	case s >= SpeedSuper:
		return "super"
	case s >= SpeedHigh:
		return "high"
	case s >= SpeedFull:
		return "full"
	case s >= SpeedLow:
		return "low"
	default:
		return "unknown"
	}
}
