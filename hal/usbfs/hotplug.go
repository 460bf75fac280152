//go:build linux

package usbfs

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ardnew/ft60x/pkg"
)

const (
	ueventBufferSize = 8192
	ueventGroup      = 1 // kernel broadcast group
	hotplugPollMs    = 100
)

// uevent is the part of a kernel uevent that device matching needs.
type uevent struct {
	action    string
	devpath   string
	subsystem string
	devtype   string
}

// parseUEvent decodes a NUL-separated kernel uevent message. The leading
// "action@devpath" header is used when ACTION or DEVPATH are absent.
func parseUEvent(data []byte) uevent {
	var ev uevent
	for _, field := range bytes.Split(data, []byte{0}) {
		s := string(field)
		key, value, ok := strings.Cut(s, "=")
		if !ok {
			if action, path, ok := strings.Cut(s, "@"); ok && ev.action == "" {
				ev.action, ev.devpath = action, path
			}
			continue
		}
		switch key {
		case "ACTION":
			ev.action = value
		case "DEVPATH":
			ev.devpath = value
		case "SUBSYSTEM":
			ev.subsystem = value
		case "DEVTYPE":
			ev.devtype = value
		}
	}
	return ev
}

// isDeviceAdd reports whether ev announces a new USB device (not one of its
// interfaces).
func (ev uevent) isDeviceAdd() bool {
	return ev.action == "add" && ev.subsystem == "usb" && ev.devtype == "usb_device"
}

// WaitAttached returns the first device matching opts, waiting for it to be
// attached when it is not present yet. Kernel hotplug events wake the wait
// early; sysfs is rescanned at least every 100ms regardless. It gives up
// when ctx ends.
func WaitAttached(ctx context.Context, opts Options) (Info, error) {
	opts = opts.withDefaults()

	// Subscribe before scanning so an attach between the two is not missed.
	fd, err := ueventSocket()
	if err != nil {
		pkg.LogWarn(pkg.ComponentTransport, "hotplug events unavailable, polling sysfs", "error", err)
		fd = -1
	} else {
		defer unix.Close(fd)
	}

	buf := make([]byte, ueventBufferSize)
	for waited := false; ; waited = true {
		if info, ok, err := findFirst(opts); ok || err != nil {
			return info, err
		}
		if !waited {
			pkg.LogInfo(pkg.ComponentTransport, "waiting for device",
				"vid", opts.VendorID, "pid", opts.ProductID, "serial", opts.Serial)
		}
		if err := ctx.Err(); err != nil {
			return Info{}, err
		}
		if err := waitUEvent(fd, buf); err != nil {
			return Info{}, err
		}
	}
}

func ueventSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return -1, errnoError("netlink socket", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: ueventGroup}); err != nil {
		unix.Close(fd)
		return -1, errnoError("netlink bind", err)
	}
	return fd, nil
}

// waitUEvent blocks for up to hotplugPollMs, returning early once fd has
// delivered a USB device add event. A negative fd just sleeps.
func waitUEvent(fd int, buf []byte) error {
	if fd < 0 {
		time.Sleep(hotplugPollMs * time.Millisecond)
		return nil
	}

	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, hotplugPollMs)
	if n == 0 || errors.Is(err, unix.EINTR) {
		return nil
	}
	if err != nil {
		return errnoError("netlink poll", err)
	}
	for {
		m, _, err := unix.Recvfrom(fd, buf, 0)
		if errors.Is(err, unix.EAGAIN) {
			return nil
		}
		if err != nil {
			return errnoError("netlink recv", err)
		}
		if ev := parseUEvent(buf[:m]); ev.isDeviceAdd() {
			pkg.LogDebug(pkg.ComponentTransport, "device added", "devpath", ev.devpath)
		}
	}
}

func findFirst(opts Options) (Info, bool, error) {
	found, err := Find(opts.SysfsRoot, opts.DevfsRoot, opts.VendorID, opts.ProductID, opts.Serial)
	if err != nil || len(found) == 0 {
		return Info{}, false, err
	}
	return found[0], true, nil
}
