package hal

import (
	"context"
)

// Default FTDI FT60x identifiers.
const (
	DefaultVendorID  uint16 = 0x0403
	DefaultProductID uint16 = 0x601f
)

// FT60x endpoint and interface layout in the one-channel configurations.
const (
	SessionInterface = 0    // Interface carrying the session/command pipe
	DataInterface    = 1    // Interface carrying the FIFO data pipes
	SessionOutPipe   = 0x01 // Command pipe used to arm streaming
	DataInPipe       = 0x82 // Bulk-IN FIFO channel 1
	DataOutPipe      = 0x02 // Bulk-OUT FIFO channel 1
)

// Control request type bits (bmRequestType).
const (
	RequestDirIn       uint8 = 0x80
	RequestDirOut      uint8 = 0x00
	RequestTypeVendor  uint8 = 0x40
	RequestRecipDevice uint8 = 0x00
)

// Handle identifies one outstanding asynchronous request. Handles are
// assigned by the transport and are unique among requests still in flight.
type Handle uint64

// Completion reports the outcome of one submitted request.
//
// N is the number of bytes the device delivered into the submitted buffer.
// Err is nil on success (including short transfers) or one of the pkg
// sentinel errors: pkg.ErrTimeout, pkg.ErrCancelled, pkg.ErrStall,
// pkg.ErrNoDevice, pkg.ErrOverrun, and so on.
type Completion struct {
	Handle Handle
	N      int
	Err    error
}

// BulkReader is an asynchronous bulk-IN endpoint.
//
// Submit hands buf to the controller; until the matching Completion is
// received, the transport owns buf exclusively and the caller must not touch
// it. Every accepted Submit produces exactly one Completion on the channel
// returned by Completions, including requests that were cancelled or failed
// because the device went away.
//
// Submit returns pkg.ErrBusy (or pkg.ErrNoMemory / pkg.ErrNoResources) when
// the controller cannot queue another request right now, and pkg.ErrNoDevice
// once the device is gone.
type BulkReader interface {
	// Submit queues an asynchronous read of len(buf) bytes.
	Submit(buf []byte) (Handle, error)

	// Cancel asks the controller to abort an outstanding request. The
	// request still completes through the Completions channel.
	Cancel(h Handle) error

	// Completions delivers one Completion per accepted Submit.
	Completions() <-chan Completion

	// Close cancels outstanding requests and releases transport resources.
	Close() error
}

// Controller performs control transfers on the default pipe.
type Controller interface {
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)
}

// BulkWriter performs synchronous bulk-OUT writes.
type BulkWriter interface {
	WriteBulk(ctx context.Context, endpoint uint8, data []byte) (int, error)
}

// Device is what the configuration layer needs from an opened FT60x.
type Device interface {
	Controller
	BulkWriter

	// InPipe opens an asynchronous bulk-IN reader on the given endpoint.
	InPipe(endpoint uint8) (BulkReader, error)

	Close() error
}
