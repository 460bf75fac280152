//go:build linux

package usbfs

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/ardnew/ft60x/pkg"
)

// errnoError maps an ioctl errno to the matching pkg sentinel. The returned
// error wraps both, so callers can test either.
func errnoError(op string, err error) error {
	if err == nil {
		return nil
	}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return fmt.Errorf("usbfs: %s: %w", op, err)
	}
	if sentinel := errnoSentinel(errno); sentinel != nil {
		return fmt.Errorf("usbfs: %s: %w: %w", op, sentinel, errno)
	}
	return fmt.Errorf("usbfs: %s: %w", op, errno)
}

func errnoSentinel(errno unix.Errno) error {
	switch errno {
	case unix.ENODEV, unix.ESHUTDOWN, unix.ENXIO:
		return pkg.ErrNoDevice
	case unix.EPIPE:
		return pkg.ErrStall
	case unix.ETIMEDOUT:
		return pkg.ErrTimeout
	case unix.ENOENT, unix.ECONNRESET:
		return pkg.ErrCancelled
	case unix.EOVERFLOW:
		return pkg.ErrOverrun
	case unix.ENOSR:
		return pkg.ErrUnderrun
	case unix.EILSEQ:
		return pkg.ErrCRC
	case unix.EPROTO, unix.EREMOTEIO:
		return pkg.ErrProtocol
	case unix.EAGAIN, unix.EBUSY:
		return pkg.ErrBusy
	case unix.ENOMEM:
		return pkg.ErrNoMemory
	case unix.ENOSPC:
		return pkg.ErrNoResources
	case unix.EINVAL:
		return pkg.ErrInvalidParameter
	case unix.EBADF:
		return pkg.ErrClosed
	}
	return nil
}

// urbStatus converts the status of a reaped bulk-IN URB. A short packet
// without URB_SHORT_NOT_OK is success.
func urbStatus(status int32) error {
	if status == 0 {
		return nil
	}
	errno := unix.Errno(-status)
	if errno == unix.EREMOTEIO {
		return nil
	}
	if sentinel := errnoSentinel(errno); sentinel != nil {
		return fmt.Errorf("%w: %w", sentinel, errno)
	}
	return fmt.Errorf("%w: urb status %w", pkg.ErrProtocol, errno)
}
