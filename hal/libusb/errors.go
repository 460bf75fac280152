//go:build cgo

package libusb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/gousb"

	"github.com/ardnew/ft60x/pkg"
)

// mapError wraps a gousb error with the matching pkg sentinel. The original
// error stays in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if sentinel := sentinelOf(err); sentinel != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return fmt.Errorf("libusb: %w", err)
}

func sentinelOf(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return pkg.ErrCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return pkg.ErrTimeout
	}

	var status gousb.TransferStatus
	if errors.As(err, &status) {
		switch status {
		case gousb.TransferCancelled:
			return pkg.ErrCancelled
		case gousb.TransferTimedOut:
			return pkg.ErrTimeout
		case gousb.TransferStall:
			return pkg.ErrStall
		case gousb.TransferNoDevice:
			return pkg.ErrNoDevice
		case gousb.TransferOverflow:
			return pkg.ErrOverrun
		case gousb.TransferError:
			return pkg.ErrProtocol
		}
		return nil
	}

	var code gousb.Error
	if errors.As(err, &code) {
		switch code {
		case gousb.ErrorNoDevice, gousb.ErrorNotFound:
			return pkg.ErrNoDevice
		case gousb.ErrorBusy:
			return pkg.ErrBusy
		case gousb.ErrorTimeout:
			return pkg.ErrTimeout
		case gousb.ErrorPipe:
			return pkg.ErrStall
		case gousb.ErrorOverflow:
			return pkg.ErrOverrun
		case gousb.ErrorNoMem:
			return pkg.ErrNoMemory
		case gousb.ErrorInvalidParam:
			return pkg.ErrInvalidParameter
		case gousb.ErrorNotSupported:
			return pkg.ErrNotSupported
		case gousb.ErrorInterrupted:
			return pkg.ErrCancelled
		case gousb.ErrorIO:
			return pkg.ErrProtocol
		}
	}
	return nil
}
