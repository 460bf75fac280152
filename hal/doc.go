// Package hal defines the contract between the streaming engine and the USB
// transports that move bytes to and from an FT60x bridge.
//
// The engine only needs three things from a transport: submit an
// asynchronous bulk-IN request into a caller-owned buffer, cancel it, and
// report its completion. [BulkReader] captures exactly that. Configuration
// uses [Controller] (vendor control requests) and [BulkWriter] (the session
// command pipe).
//
// # Implementations
//
//   - [github.com/ardnew/ft60x/hal/usbfs]: Linux usbfs with asynchronous URBs
//   - [github.com/ardnew/ft60x/hal/libusb]: libusb through gousb
//   - [github.com/ardnew/ft60x/hal/sim]: an in-process simulated device
//
// # Buffer Ownership
//
// A buffer passed to [BulkReader.Submit] belongs to the transport until its
// [Completion] has been received. Transports never retain a buffer after
// delivering its completion.
package hal
