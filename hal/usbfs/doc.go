// Package usbfs is a Linux transport for the FT60x that talks to the kernel
// through usbfs (/dev/bus/usb) without libusb.
//
// Bulk-IN reads are asynchronous URBs: [Pipe.Submit] issues
// USBDEVFS_SUBMITURB, a reaper goroutine waits on the device descriptor with
// epoll and collects finished URBs with USBDEVFS_REAPURBNDELAY, and
// [Pipe.Cancel] maps to USBDEVFS_DISCARDURB. Control transfers and the
// session pipe use the synchronous USBDEVFS_CONTROL and USBDEVFS_BULK calls.
//
// # Device Discovery
//
// [Open] scans sysfs for a device matching the vendor and product IDs (and an
// optional serial number), opens its devfs node, detaches any kernel driver
// and claims the configured interfaces.
//
// # Disconnect
//
// Unplugging the device surfaces as EPOLLHUP or ENODEV. Every outstanding
// request then completes with pkg.ErrNoDevice and later submissions fail the
// same way.
//
// # Permissions
//
// The devfs node must be writable by the calling user, typically through a
// udev rule such as:
//
//	SUBSYSTEM=="usb", ATTR{idVendor}=="0403", ATTR{idProduct}=="601f", MODE="0666"
package usbfs
