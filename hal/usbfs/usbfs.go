//go:build linux

package usbfs

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

// urb matches the kernel's struct usbdevfs_urb without the trailing
// isochronous frame descriptors.
type urb struct {
	typ          uint8
	endpoint     uint8
	status       int32
	flags        uint32
	buffer       uintptr
	bufferLength int32
	actualLength int32
	startFrame   int32
	streamID     uint32
	errorCount   int32
	signr        uint32
	userContext  uintptr
}

// ctrlTransfer matches struct usbdevfs_ctrltransfer.
type ctrlTransfer struct {
	requestType uint8
	request     uint8
	value       uint16
	index       uint16
	length      uint16
	timeout     uint32 // milliseconds
	data        uintptr
}

// bulkTransfer matches struct usbdevfs_bulktransfer.
type bulkTransfer struct {
	endpoint uint32
	length   uint32
	timeout  uint32 // milliseconds
	data     uintptr
}

// ifaceIoctl matches struct usbdevfs_ioctl.
type ifaceIoctl struct {
	ifno int32
	code int32
	data uintptr
}

const (
	iocNRBits   = 8
	iocTypeBits = 8

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNRShift | size<<iocSizeShift
}

func ion(typ, nr uintptr) uintptr        { return ioc(iocNone, typ, nr, 0) }
func ior(typ, nr, size uintptr) uintptr  { return ioc(iocRead, typ, nr, size) }
func iow(typ, nr, size uintptr) uintptr  { return ioc(iocWrite, typ, nr, size) }
func iowr(typ, nr, size uintptr) uintptr { return ioc(iocRead|iocWrite, typ, nr, size) }

const usbdevfsType = 'U'

var (
	ioctlControl          = iowr(usbdevfsType, 0, unsafe.Sizeof(ctrlTransfer{}))
	ioctlBulk             = iowr(usbdevfsType, 2, unsafe.Sizeof(bulkTransfer{}))
	ioctlSubmitURB        = ior(usbdevfsType, 10, unsafe.Sizeof(urb{}))
	ioctlDiscardURB       = ion(usbdevfsType, 11)
	ioctlReapURBNDelay    = iow(usbdevfsType, 13, unsafe.Sizeof(uintptr(0)))
	ioctlClaimInterface   = ior(usbdevfsType, 15, unsafe.Sizeof(uint32(0)))
	ioctlReleaseInterface = ior(usbdevfsType, 16, unsafe.Sizeof(uint32(0)))
	ioctlIoctl            = iowr(usbdevfsType, 18, unsafe.Sizeof(ifaceIoctl{}))
	ioctlDisconnect       = ion(usbdevfsType, 22)
	ioctlConnect          = ion(usbdevfsType, 23)
)

func ioctl(fd int, req, arg uintptr) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, arg)
	if errno != 0 {
		return int(r), errno
	}
	return int(r), nil
}

func openDevice(path string) (int, error) {
	return unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
}

func doControl(fd int, rType, request uint8, value, index uint16, data []byte, timeoutMs uint32) (int, error) {
	c := ctrlTransfer{
		requestType: rType,
		request:     request,
		value:       value,
		index:       index,
		length:      uint16(len(data)),
		timeout:     timeoutMs,
	}
	if len(data) > 0 {
		c.data = uintptr(unsafe.Pointer(&data[0]))
	}
	return ioctl(fd, ioctlControl, uintptr(unsafe.Pointer(&c)))
}

func doBulk(fd int, endpoint uint8, data []byte, timeoutMs uint32) (int, error) {
	b := bulkTransfer{
		endpoint: uint32(endpoint),
		length:   uint32(len(data)),
		timeout:  timeoutMs,
	}
	if len(data) > 0 {
		b.data = uintptr(unsafe.Pointer(&data[0]))
	}
	return ioctl(fd, ioctlBulk, uintptr(unsafe.Pointer(&b)))
}

func claimInterface(fd int, iface uint8) error {
	n := uint32(iface)
	_, err := ioctl(fd, ioctlClaimInterface, uintptr(unsafe.Pointer(&n)))
	return err
}

func releaseInterface(fd int, iface uint8) error {
	n := uint32(iface)
	_, err := ioctl(fd, ioctlReleaseInterface, uintptr(unsafe.Pointer(&n)))
	return err
}

// driverIoctl forwards USBDEVFS_DISCONNECT or USBDEVFS_CONNECT to one
// interface through USBDEVFS_IOCTL.
func driverIoctl(fd int, iface uint8, code uintptr) error {
	req := ifaceIoctl{ifno: int32(iface), code: int32(code)}
	_, err := ioctl(fd, ioctlIoctl, uintptr(unsafe.Pointer(&req)))
	return err
}

// detachDriver unbinds the kernel driver from iface. No bound driver is not
// an error.
func detachDriver(fd int, iface uint8) error {
	err := driverIoctl(fd, iface, ioctlDisconnect)
	if errors.Is(err, unix.ENODATA) {
		return nil
	}
	return err
}

func attachDriver(fd int, iface uint8) error {
	return driverIoctl(fd, iface, ioctlConnect)
}

func submitURB(fd int, u *urb) error {
	_, err := ioctl(fd, ioctlSubmitURB, uintptr(unsafe.Pointer(u)))
	return err
}

// reapURB returns the address of a completed URB or EAGAIN when none is
// ready.
func reapURB(fd int) (uintptr, error) {
	var addr uintptr
	_, err := ioctl(fd, ioctlReapURBNDelay, uintptr(unsafe.Pointer(&addr)))
	return addr, err
}

func discardURB(fd int, u *urb) error {
	_, err := ioctl(fd, ioctlDiscardURB, uintptr(unsafe.Pointer(u)))
	return err
}
