// Package libusb is a portable FT60x transport built on gousb.
//
// Bulk-IN reads run one goroutine per outstanding request, each blocked in
// ReadContext on its own cancellable context, so several libusb transfers are
// queued at once. Completions may therefore arrive out of submission order.
//
// The gousb types are wrapped by small interfaces (see adapters.go) so the
// transport can be tested without hardware.
package libusb
