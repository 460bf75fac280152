// Package ft60x configures FTDI FT600/FT601 bridges for streaming.
//
// The chip keeps a 152-byte configuration block that selects the FIFO bus
// mode, clock and channel layout. [Device] reads and writes that block with
// vendor control request 0xcf and arms streaming on the session pipe. A
// stream is started only after the configuration has been confirmed:
//
//	dev := ft60x.New(usb, usb)
//	if _, err := dev.Configure(ft60x.DefaultSettings()); err != nil {
//	    return err
//	}
//	eng, err := dev.Stream(ctx, in, ft60x.DefaultSettings(), stream.DefaultConfig())
//
// Changing the configuration re-enumerates the device on most hosts, so
// callers typically reopen it before streaming.
package ft60x
