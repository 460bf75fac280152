//go:build linux

package usbfs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ardnew/ft60x/hal"
	"github.com/ardnew/ft60x/pkg"
)

// =============================================================================
// Options
// =============================================================================

// Options selects and configures a device.
type Options struct {
	// VendorID and ProductID select the device. Zero values default to the
	// FTDI FT60x identifiers.
	VendorID  uint16
	ProductID uint16

	// Serial narrows the match when several bridges are attached.
	Serial string

	// Path opens this devfs node directly and skips the sysfs scan.
	Path string

	// Interfaces are claimed at open. Nil claims the session and data
	// interfaces.
	Interfaces []uint8

	// Timeout bounds synchronous control and bulk transfers.
	Timeout time.Duration

	// QueueLength is the completion channel capacity of each pipe.
	QueueLength int

	// SysfsRoot and DevfsRoot override the system paths.
	SysfsRoot string
	DevfsRoot string
}

func (o Options) withDefaults() Options {
	if o.VendorID == 0 && o.ProductID == 0 {
		o.VendorID, o.ProductID = hal.DefaultVendorID, hal.DefaultProductID
	}
	if o.Interfaces == nil {
		o.Interfaces = []uint8{hal.SessionInterface, hal.DataInterface}
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.QueueLength <= 0 {
		o.QueueLength = DefaultQueueLength
	}
	if o.SysfsRoot == "" {
		o.SysfsRoot = SysfsUSBPath
	}
	if o.DevfsRoot == "" {
		o.DevfsRoot = DevfsUSBPath
	}
	return o
}

// =============================================================================
// Device
// =============================================================================

// transfer is one submitted URB. The URB and the buffer stay referenced here
// until the URB is reaped.
type transfer struct {
	urb    urb
	buf    []byte
	handle hal.Handle
	pipe   *Pipe
}

func (t *transfer) addr() uintptr { return uintptr(unsafe.Pointer(&t.urb)) }

// Device is an opened FT60x on usbfs.
type Device struct {
	opts    Options
	info    Info
	fd      int
	claimed []uint8

	mu         sync.Mutex
	pending    map[uintptr]*transfer
	byHandle   map[hal.Handle]*transfer
	pipes      map[uint8]*Pipe
	nextHandle hal.Handle
	gone       bool
	closing    bool
	closed     bool

	poll      *poller
	reaping   bool
	settled   chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

var _ hal.Device = (*Device)(nil)

// Open finds the device, opens its devfs node, detaches kernel drivers and
// claims the configured interfaces.
func Open(opts Options) (*Device, error) {
	opts = opts.withDefaults()

	info := Info{DevfsPath: opts.Path, VendorID: opts.VendorID, ProductID: opts.ProductID}
	if opts.Path == "" {
		found, err := Find(opts.SysfsRoot, opts.DevfsRoot, opts.VendorID, opts.ProductID, opts.Serial)
		if err != nil {
			return nil, fmt.Errorf("usbfs: scan %s: %w", opts.SysfsRoot, err)
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("usbfs: %04x:%04x: %w", opts.VendorID, opts.ProductID, pkg.ErrNoDevice)
		}
		if len(found) > 1 {
			pkg.LogWarn(pkg.ComponentTransport, "multiple devices match, using the first",
				"count", len(found), "device", found[0].String())
		}
		info = found[0]
	}
	if info.Speed != SpeedUnknown && info.Speed < SpeedSuper {
		pkg.LogWarn(pkg.ComponentTransport, "device is not on a SuperSpeed port", "speed", info.Speed)
	}

	fd, err := openDevice(info.DevfsPath)
	if err != nil {
		return nil, errnoError("open "+info.DevfsPath, err)
	}

	d := &Device{
		opts:       opts,
		info:       info,
		fd:         fd,
		pending:    make(map[uintptr]*transfer),
		byHandle:   make(map[hal.Handle]*transfer),
		pipes:      make(map[uint8]*Pipe),
		nextHandle: 1,
		settled:    make(chan struct{}, 1),
	}
	for _, iface := range opts.Interfaces {
		if err := d.claim(iface); err != nil {
			d.release()
			unix.Close(fd)
			return nil, err
		}
	}

	pkg.LogInfo(pkg.ComponentTransport, "device opened", "path", info.DevfsPath, "interfaces", d.claimed)
	return d, nil
}

// Info returns the sysfs description of the device.
func (d *Device) Info() Info { return d.info }

func (d *Device) claim(iface uint8) error {
	if err := detachDriver(d.fd, iface); err != nil {
		pkg.LogDebug(pkg.ComponentTransport, "detach kernel driver failed", "interface", iface, "error", err)
	}
	if err := claimInterface(d.fd, iface); err != nil {
		return errnoError(fmt.Sprintf("claim interface %d", iface), err)
	}
	d.claimed = append(d.claimed, iface)
	return nil
}

func (d *Device) release() {
	for _, iface := range d.claimed {
		if err := releaseInterface(d.fd, iface); err != nil {
			pkg.LogDebug(pkg.ComponentTransport, "release interface failed", "interface", iface, "error", err)
		}
		attachDriver(d.fd, iface)
	}
	d.claimed = nil
}

// =============================================================================
// Synchronous Transfers
// =============================================================================

func (d *Device) timeoutMs(ctx context.Context) uint32 {
	t := d.opts.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		t = min(t, time.Until(deadline))
	}
	return uint32(max(t.Milliseconds(), 1))
}

// Control performs a control transfer on the default pipe.
func (d *Device) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	if err := d.usable(); err != nil {
		return 0, err
	}
	n, err := doControl(d.fd, rType, request, val, idx, data, d.timeoutMs(context.Background()))
	if err != nil {
		d.checkGone(err)
		return 0, errnoError(fmt.Sprintf("control %#02x/%#02x", rType, request), err)
	}
	return n, nil
}

// WriteBulk writes data to an OUT endpoint synchronously.
func (d *Device) WriteBulk(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	if endpoint&hal.RequestDirIn != 0 {
		return 0, pkg.ErrInvalidEndpoint
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := d.usable(); err != nil {
		return 0, err
	}
	n, err := doBulk(d.fd, endpoint, data, d.timeoutMs(ctx))
	if err != nil {
		d.checkGone(err)
		return 0, errnoError(fmt.Sprintf("bulk write %#02x", endpoint), err)
	}
	return n, nil
}

// =============================================================================
// Streaming Pipes
// =============================================================================

// InPipe returns the asynchronous reader for an IN endpoint and starts the
// reaper on first use.
func (d *Device) InPipe(endpoint uint8) (hal.BulkReader, error) {
	if endpoint&hal.RequestDirIn == 0 {
		return nil, pkg.ErrInvalidEndpoint
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.closing || d.closed:
		return nil, pkg.ErrClosed
	case d.gone:
		return nil, pkg.ErrNoDevice
	}
	if p, ok := d.pipes[endpoint]; ok {
		switch {
		case !p.closed:
			return p, nil
		case p.outstanding > 0:
			return nil, pkg.ErrBusy
		}
	}

	if !d.reaping {
		poll, err := newPoller(d.fd)
		if err != nil {
			return nil, fmt.Errorf("usbfs: poller: %w", err)
		}
		d.poll = poll
		d.reaping = true
		d.wg.Add(1)
		go d.reaper()
	}

	p := newPipe(d, endpoint, d.opts.QueueLength)
	d.pipes[endpoint] = p
	return p, nil
}

func (d *Device) usable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.closed:
		return pkg.ErrClosed
	case d.gone:
		return pkg.ErrNoDevice
	}
	return nil
}

func (d *Device) checkGone(err error) {
	if errors.Is(err, unix.ENODEV) {
		d.hangup()
	}
}

// submit queues a bulk-IN URB for p. d.mu is held across the ioctl so the
// reaper cannot see the URB before it is registered.
func (d *Device) submit(p *Pipe, buf []byte) (hal.Handle, error) {
	if len(buf) == 0 {
		return 0, pkg.ErrInvalidParameter
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.closing || d.closed || p.closed:
		return 0, pkg.ErrClosed
	case d.gone:
		return 0, pkg.ErrNoDevice
	}

	t := &transfer{buf: buf, handle: d.nextHandle, pipe: p}
	t.urb = urb{
		typ:          urbTypeBulk,
		endpoint:     p.endpoint,
		buffer:       uintptr(unsafe.Pointer(&buf[0])),
		bufferLength: int32(len(buf)),
		userContext:  uintptr(t.handle),
	}
	if err := submitURB(d.fd, &t.urb); err != nil {
		if errors.Is(err, unix.ENODEV) {
			d.gone = true
		}
		return 0, errnoError("submit urb", err)
	}

	d.nextHandle++
	d.pending[t.addr()] = t
	d.byHandle[t.handle] = t
	p.outstanding++
	return t.handle, nil
}

// cancel discards a submitted URB. Its completion still arrives through the
// reaper.
func (d *Device) cancel(p *Pipe, h hal.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.byHandle[h]
	if !ok || t.pipe != p {
		return pkg.ErrInvalidParameter
	}
	if d.gone {
		return nil
	}
	// EINVAL means the URB already finished and is waiting to be reaped.
	if err := discardURB(d.fd, &t.urb); err != nil && !errors.Is(err, unix.EINVAL) {
		return errnoError("discard urb", err)
	}
	return nil
}

// =============================================================================
// Completion Reaper
// =============================================================================

func (d *Device) reaper() {
	defer d.wg.Done()

	for {
		events, _, err := d.poll.wait(-1)
		if err != nil {
			pkg.LogError(pkg.ComponentTransport, "epoll wait failed", "error", err)
			d.hangup()
			return
		}

		if events&unix.EPOLLOUT != 0 {
			d.reapAll()
		}
		if events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			d.reapAll()
			d.hangup()
			return
		}

		d.mu.Lock()
		stop := d.closed
		d.mu.Unlock()
		if stop {
			return
		}
	}
}

// reapAll collects every completed URB.
func (d *Device) reapAll() {
	for {
		addr, err := reapURB(d.fd)
		switch {
		case err == nil:
			d.dispatch(addr)
		case errors.Is(err, unix.EAGAIN):
			return
		case errors.Is(err, unix.ENODEV):
			d.hangup()
			return
		default:
			pkg.LogWarn(pkg.ComponentTransport, "reap urb failed", "error", err)
			return
		}
	}
}

func (d *Device) dispatch(addr uintptr) {
	d.mu.Lock()
	t, ok := d.pending[addr]
	if ok {
		delete(d.pending, addr)
		delete(d.byHandle, t.handle)
	}
	d.mu.Unlock()

	if !ok {
		pkg.LogWarn(pkg.ComponentTransport, "reaped unknown urb", "addr", addr)
		return
	}

	t.pipe.deliver(hal.Completion{
		Handle: t.handle,
		N:      int(t.urb.actualLength),
		Err:    urbStatus(t.urb.status),
	})
}

// =============================================================================
// Shutdown
// =============================================================================

// hangup marks the device gone. Requests the kernel will never return
// complete with pkg.ErrNoDevice.
func (d *Device) hangup() {
	d.mu.Lock()
	if d.gone {
		d.mu.Unlock()
		return
	}
	d.gone = true
	orphans := make([]*transfer, 0, len(d.pending))
	for addr, t := range d.pending {
		orphans = append(orphans, t)
		delete(d.pending, addr)
		delete(d.byHandle, t.handle)
	}
	d.mu.Unlock()

	pkg.LogWarn(pkg.ComponentTransport, "device disconnected", "path", d.info.DevfsPath, "outstanding", len(orphans))
	for _, t := range orphans {
		t.pipe.deliver(hal.Completion{Handle: t.handle, Err: pkg.ErrNoDevice})
	}
}

func (d *Device) signalSettled() {
	select {
	case d.settled <- struct{}{}:
	default:
	}
}

// settle discards outstanding URBs and waits up to the transfer timeout for
// their completions to be delivered. With only set, just that pipe is
// settled.
func (d *Device) settle(only *Pipe) bool {
	deadline := time.NewTimer(d.opts.Timeout)
	defer deadline.Stop()

	d.mu.Lock()
	if !d.gone {
		for _, t := range d.pending {
			if only == nil || t.pipe == only {
				discardURB(d.fd, &t.urb)
			}
		}
	}
	d.mu.Unlock()

	for {
		d.mu.Lock()
		n := 0
		for _, p := range d.pipes {
			if only == nil || p == only {
				n += p.outstanding
			}
		}
		d.mu.Unlock()
		if n == 0 {
			return true
		}

		select {
		case <-d.settled:
		case <-deadline.C:
			return false
		}
	}
}

// Close discards outstanding requests, stops the reaper, releases the
// interfaces and closes the device node. Pipes still open are closed.
func (d *Device) Close() error {
	d.closeOnce.Do(func() { d.closeErr = d.close() })
	return d.closeErr
}

func (d *Device) close() error {
	d.mu.Lock()
	d.closing = true
	reaping := d.reaping
	pipes := make([]*Pipe, 0, len(d.pipes))
	for _, p := range d.pipes {
		pipes = append(pipes, p)
	}
	d.mu.Unlock()

	for _, p := range pipes {
		p.shutdown()
	}
	if reaping && !d.settle(nil) {
		pkg.LogWarn(pkg.ComponentTransport, "urbs still outstanding at close")
	}

	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	if reaping {
		d.poll.wake()
		d.wg.Wait()
		d.poll.close()
	}
	for _, p := range pipes {
		p.finish()
	}

	d.release()
	err := unix.Close(d.fd)
	pkg.LogInfo(pkg.ComponentTransport, "device closed", "path", d.info.DevfsPath)
	return err
}
