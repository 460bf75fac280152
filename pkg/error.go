package pkg

import "errors"

// USB transfer and device errors shared by every transport.
var (
	// ErrStall indicates an endpoint stall (pipe halt requiring reset).
	ErrStall = errors.New("endpoint stalled")

	// ErrNAK indicates a NAK response (device busy).
	ErrNAK = errors.New("NAK received")

	// ErrTimeout indicates a transfer timeout.
	ErrTimeout = errors.New("transfer timeout")

	// ErrCancelled indicates a cancelled transfer.
	ErrCancelled = errors.New("transfer cancelled")

	// ErrOverrun indicates a data overrun condition.
	ErrOverrun = errors.New("data overrun")

	// ErrUnderrun indicates a data underrun condition.
	ErrUnderrun = errors.New("data underrun")

	// ErrCRC indicates a CRC error.
	ErrCRC = errors.New("CRC error")

	// ErrBitStuff indicates a bit stuffing error.
	ErrBitStuff = errors.New("bit stuffing error")

	// ErrProtocol indicates a protocol error.
	ErrProtocol = errors.New("protocol error")

	// ErrNoDevice indicates the device is not present (disconnected).
	ErrNoDevice = errors.New("device not present")

	// ErrNotConfigured indicates the device is not configured for streaming.
	ErrNotConfigured = errors.New("device not configured")

	// ErrInvalidEndpoint indicates an invalid endpoint address.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")

	// ErrBusy indicates the controller cannot accept another request now.
	ErrBusy = errors.New("resource busy")

	// ErrNoMemory indicates insufficient memory.
	ErrNoMemory = errors.New("insufficient memory")

	// ErrFrameOverrun indicates a frame overrun.
	ErrFrameOverrun = errors.New("frame overrun")

	// ErrClosed indicates the transport has been closed.
	ErrClosed = errors.New("transport closed")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNoResources indicates insufficient resources (e.g., request slots).
	ErrNoResources = errors.New("no resources available")
)

// TransferStatus is how a delivered transfer ended. Transfers that end in
// any other way are never delivered, so their errors travel separately.
type TransferStatus int

// Transfer status values.
const (
	TransferStatusSuccess   TransferStatus = iota // Transfer completed successfully
	TransferStatusCancelled                       // Cancelled after filling part of the buffer
)

// String returns a string representation of the transfer status.
func (s TransferStatus) String() string {
	switch s {
	case TransferStatusSuccess:
		return "success"
	case TransferStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
