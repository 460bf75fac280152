package sim

import (
	"context"
	"sync"

	"github.com/ardnew/ft60x/hal"
	"github.com/ardnew/ft60x/pkg"
)

// chipConfigRequest is the vendor request that reads or writes the chip
// configuration block.
const chipConfigRequest = 0xcf

// Chip simulates the FT60x default control pipe and session pipe. It keeps a
// raw configuration block and records every session command.
type Chip struct {
	mu       sync.Mutex
	config   []byte
	sessions [][]byte
	gone     bool
}

var (
	_ hal.Controller = (*Chip)(nil)
	_ hal.BulkWriter = (*Chip)(nil)
)

// NewChip returns a chip holding a copy of config.
func NewChip(config []byte) *Chip {
	return &Chip{config: append([]byte(nil), config...)}
}

// Control serves the chip configuration request. Any other request stalls.
func (c *Chip) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.gone:
		return 0, pkg.ErrNoDevice
	case request != chipConfigRequest || rType&hal.RequestTypeVendor == 0:
		return 0, pkg.ErrStall
	case rType&hal.RequestDirIn != 0:
		return copy(data, c.config), nil
	case len(data) != len(c.config):
		return 0, pkg.ErrStall
	}
	copy(c.config, data)
	return len(data), nil
}

// WriteBulk records a session command written to the session pipe.
func (c *Chip) WriteBulk(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.gone:
		return 0, pkg.ErrNoDevice
	case endpoint != hal.SessionOutPipe:
		return 0, pkg.ErrInvalidEndpoint
	}
	c.sessions = append(c.sessions, append([]byte(nil), data...))
	return len(data), nil
}

// Config returns a copy of the configuration block.
func (c *Chip) Config() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.config...)
}

// Sessions returns the session commands written so far.
func (c *Chip) Sessions() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sessions))
	for i, s := range c.sessions {
		out[i] = append([]byte(nil), s...)
	}
	return out
}

func (c *Chip) disconnect() {
	c.mu.Lock()
	c.gone = true
	c.mu.Unlock()
}

// Device is a simulated FT60x: a [Chip] plus a simulated data IN pipe.
type Device struct {
	*Chip

	opts Options

	mu     sync.Mutex
	pipes  []*Endpoint
	closed bool
}

var _ hal.Device = (*Device)(nil)

// NewDevice returns a simulated device with the given configuration block.
// Pipes opened through InPipe use opts.
func NewDevice(config []byte, opts Options) *Device {
	return &Device{Chip: NewChip(config), opts: opts}
}

// InPipe opens a simulated reader on the data IN pipe.
func (d *Device) InPipe(endpoint uint8) (hal.BulkReader, error) {
	if endpoint != hal.DataInPipe {
		return nil, pkg.ErrInvalidEndpoint
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, pkg.ErrClosed
	}
	ep := New(d.opts)
	d.pipes = append(d.pipes, ep)
	return ep, nil
}

// Disconnect simulates unplugging the device.
func (d *Device) Disconnect() {
	d.disconnect()
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ep := range d.pipes {
		ep.Disconnect()
	}
}

// Close closes every pipe opened on the device.
func (d *Device) Close() error {
	d.mu.Lock()
	pipes := d.pipes
	d.pipes, d.closed = nil, true
	d.mu.Unlock()

	for _, ep := range pipes {
		ep.Close()
	}
	return nil
}
