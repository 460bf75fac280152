//go:build cgo

package libusb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/ardnew/ft60x/hal"
	"github.com/ardnew/ft60x/pkg"
)

// Default transport parameters.
const (
	DefaultTimeout     = time.Second
	DefaultQueueLength = 256
	DefaultConfig      = 1
)

// Options selects and configures a device.
type Options struct {
	// VendorID and ProductID select the device. Zero values default to the
	// FTDI FT60x identifiers.
	VendorID  uint16
	ProductID uint16

	// Serial narrows the match when several bridges are attached.
	Serial string

	// Config is the configuration number to activate.
	Config int

	// Interfaces are claimed at open. Nil claims the session and data
	// interfaces.
	Interfaces []int

	// Timeout bounds control transfers and session writes.
	Timeout time.Duration

	// MaxOutstanding limits concurrent reads per pipe; Submit returns
	// pkg.ErrBusy beyond it. Zero means unlimited.
	MaxOutstanding int

	// QueueLength is the completion channel capacity of each pipe.
	QueueLength int

	// DebugLevel is passed to libusb (0 silent, 4 verbose).
	DebugLevel int
}

func (o Options) withDefaults() Options {
	if o.VendorID == 0 && o.ProductID == 0 {
		o.VendorID, o.ProductID = hal.DefaultVendorID, hal.DefaultProductID
	}
	if o.Config <= 0 {
		o.Config = DefaultConfig
	}
	if o.Interfaces == nil {
		o.Interfaces = []int{hal.SessionInterface, hal.DataInterface}
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.QueueLength <= 0 {
		o.QueueLength = DefaultQueueLength
	}
	return o
}

// Device is an FT60x opened through libusb.
type Device struct {
	opts Options
	ctx  usbContext
	dev  usbDevice
	cfg  usbConfig

	ifaces []usbInterface

	mu     sync.Mutex
	outs   map[uint8]usbOutEndpoint
	pipes  map[uint8]*Pipe
	closed bool
}

var _ hal.Device = (*Device)(nil)

// Open initializes libusb, opens the first matching device, activates the
// configuration and claims the interfaces.
func Open(opts Options) (*Device, error) {
	ctx := gousb.NewContext()
	opts = opts.withDefaults()
	if opts.DebugLevel > 0 {
		ctx.Debug(opts.DebugLevel)
	}
	d, err := open(usbContextAdapter{ctx}, opts)
	if err != nil {
		ctx.Close()
		return nil, err
	}
	return d, nil
}

func open(ctx usbContext, opts Options) (*Device, error) {
	devs, err := ctx.OpenDevices(func(vid, pid uint16) bool {
		return vid == opts.VendorID && pid == opts.ProductID
	})
	if err != nil {
		return nil, fmt.Errorf("libusb: open devices: %w", mapError(err))
	}

	var dev usbDevice
	for _, candidate := range devs {
		if dev == nil && matchSerial(candidate, opts.Serial) {
			dev = candidate
			continue
		}
		candidate.Close()
	}
	if dev == nil {
		return nil, fmt.Errorf("libusb: %04x:%04x: %w", opts.VendorID, opts.ProductID, pkg.ErrNoDevice)
	}

	d := &Device{
		opts:  opts,
		ctx:   ctx,
		dev:   dev,
		outs:  make(map[uint8]usbOutEndpoint),
		pipes: make(map[uint8]*Pipe),
	}
	if err := d.claim(); err != nil {
		d.release()
		dev.Close()
		return nil, err
	}

	pkg.LogInfo(pkg.ComponentTransport, "device opened",
		"vid", fmt.Sprintf("%04x", opts.VendorID),
		"pid", fmt.Sprintf("%04x", opts.ProductID),
		"config", opts.Config,
		"interfaces", opts.Interfaces)
	return d, nil
}

func matchSerial(dev usbDevice, serial string) bool {
	if serial == "" {
		return true
	}
	s, err := dev.SerialNumber()
	return err == nil && s == serial
}

func (d *Device) claim() error {
	d.dev.SetControlTimeout(d.opts.Timeout)
	if err := d.dev.SetAutoDetach(true); err != nil {
		pkg.LogDebug(pkg.ComponentTransport, "auto-detach unavailable", "error", err)
	}

	cfg, err := d.dev.Config(d.opts.Config)
	if err != nil {
		return fmt.Errorf("libusb: config %d: %w", d.opts.Config, mapError(err))
	}
	d.cfg = cfg

	for _, num := range d.opts.Interfaces {
		iface, err := cfg.Interface(num, 0)
		if err != nil {
			return fmt.Errorf("libusb: claim interface %d: %w", num, mapError(err))
		}
		d.ifaces = append(d.ifaces, iface)
	}
	return nil
}

func (d *Device) release() {
	for _, iface := range d.ifaces {
		iface.Close()
	}
	d.ifaces = nil
	if d.cfg != nil {
		d.cfg.Close()
		d.cfg = nil
	}
}

// Control performs a control transfer on the default pipe.
func (d *Device) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	if err := d.usable(); err != nil {
		return 0, err
	}
	n, err := d.dev.Control(rType, request, val, idx, data)
	if err != nil {
		return n, fmt.Errorf("libusb: control %#02x/%#02x: %w", rType, request, mapError(err))
	}
	return n, nil
}

// WriteBulk writes data to an OUT endpoint of one of the claimed interfaces.
func (d *Device) WriteBulk(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	if endpoint&hal.RequestDirIn != 0 {
		return 0, pkg.ErrInvalidEndpoint
	}
	out, err := d.outEndpoint(endpoint)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()
	n, err := out.WriteContext(ctx, data)
	if err != nil {
		return n, fmt.Errorf("libusb: bulk write %#02x: %w", endpoint, mapError(err))
	}
	return n, nil
}

func (d *Device) outEndpoint(endpoint uint8) (usbOutEndpoint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, pkg.ErrClosed
	}
	if ep, ok := d.outs[endpoint]; ok {
		return ep, nil
	}
	for _, iface := range d.ifaces {
		if ep, err := iface.OutEndpoint(int(endpoint)); err == nil {
			d.outs[endpoint] = ep
			return ep, nil
		}
	}
	return nil, fmt.Errorf("libusb: out endpoint %#02x: %w", endpoint, pkg.ErrInvalidEndpoint)
}

// InPipe opens an asynchronous reader on an IN endpoint of one of the
// claimed interfaces.
func (d *Device) InPipe(endpoint uint8) (hal.BulkReader, error) {
	if endpoint&hal.RequestDirIn == 0 {
		return nil, pkg.ErrInvalidEndpoint
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, pkg.ErrClosed
	}
	if p, ok := d.pipes[endpoint]; ok && !p.isClosed() {
		return p, nil
	}
	for _, iface := range d.ifaces {
		if ep, err := iface.InEndpoint(int(endpoint)); err == nil {
			p := newPipe(ep, endpoint, d.opts.MaxOutstanding, d.opts.QueueLength)
			d.pipes[endpoint] = p
			return p, nil
		}
	}
	return nil, fmt.Errorf("libusb: in endpoint %#02x: %w", endpoint, pkg.ErrInvalidEndpoint)
}

func (d *Device) usable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return pkg.ErrClosed
	}
	return nil
}

// Close closes every pipe, releases the interfaces and closes the device
// and the libusb context.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	pipes := make([]*Pipe, 0, len(d.pipes))
	for _, p := range d.pipes {
		pipes = append(pipes, p)
	}
	d.mu.Unlock()

	for _, p := range pipes {
		p.Close()
	}
	d.release()
	err := d.dev.Close()
	if cerr := d.ctx.Close(); err == nil {
		err = cerr
	}
	pkg.LogInfo(pkg.ComponentTransport, "device closed")
	return err
}
