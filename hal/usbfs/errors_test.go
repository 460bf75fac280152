//go:build linux

package usbfs

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/ardnew/ft60x/pkg"
)

func TestErrnoError(t *testing.T) {
	tests := []struct {
		errno unix.Errno
		want  error
	}{
		{unix.ENODEV, pkg.ErrNoDevice},
		{unix.ESHUTDOWN, pkg.ErrNoDevice},
		{unix.EPIPE, pkg.ErrStall},
		{unix.ETIMEDOUT, pkg.ErrTimeout},
		{unix.ENOMEM, pkg.ErrNoMemory},
		{unix.EBUSY, pkg.ErrBusy},
		{unix.EINVAL, pkg.ErrInvalidParameter},
		{unix.ENOSPC, pkg.ErrNoResources},
	}
	for _, tt := range tests {
		t.Run(tt.errno.Error(), func(t *testing.T) {
			err := errnoError("submit urb", tt.errno)
			if !errors.Is(err, tt.want) {
				t.Errorf("errnoError(%v) = %v, want %v", tt.errno, err, tt.want)
			}
			if !errors.Is(err, tt.errno) {
				t.Errorf("errnoError(%v) lost the errno", tt.errno)
			}
		})
	}

	if errnoError("x", nil) != nil {
		t.Error("errnoError(nil) != nil")
	}
	if err := errnoError("x", unix.EACCES); !errors.Is(err, unix.EACCES) {
		t.Errorf("unmapped errno = %v", err)
	}
}

func TestURBStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int32
		want   error
	}{
		{"success", 0, nil},
		{"short packet", -int32(unix.EREMOTEIO), nil},
		{"discarded", -int32(unix.ENOENT), pkg.ErrCancelled},
		{"unlinked", -int32(unix.ECONNRESET), pkg.ErrCancelled},
		{"stall", -int32(unix.EPIPE), pkg.ErrStall},
		{"overflow", -int32(unix.EOVERFLOW), pkg.ErrOverrun},
		{"crc", -int32(unix.EILSEQ), pkg.ErrCRC},
		{"gone", -int32(unix.ESHUTDOWN), pkg.ErrNoDevice},
		{"protocol", -int32(unix.EPROTO), pkg.ErrProtocol},
		{"unknown", -int32(unix.EXDEV), pkg.ErrProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := urbStatus(tt.status)
			if tt.want == nil {
				if err != nil {
					t.Errorf("urbStatus(%d) = %v, want nil", tt.status, err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("urbStatus(%d) = %v, want %v", tt.status, err, tt.want)
			}
		})
	}
}
