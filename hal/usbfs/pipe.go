//go:build linux

package usbfs

import (
	"sync"

	"github.com/ardnew/ft60x/hal"
	"github.com/ardnew/ft60x/pkg"
)

// Pipe is an asynchronous bulk-IN reader on one endpoint.
type Pipe struct {
	dev         *Device
	endpoint    uint8
	completions chan hal.Completion
	closing     chan struct{}

	sendMu   sync.RWMutex
	finished bool

	// Guarded by dev.mu.
	outstanding int
	closed      bool

	shutdownOnce sync.Once
	closeOnce    sync.Once
}

var _ hal.BulkReader = (*Pipe)(nil)

func newPipe(d *Device, endpoint uint8, queue int) *Pipe {
	return &Pipe{
		dev:         d,
		endpoint:    endpoint,
		completions: make(chan hal.Completion, queue),
		closing:     make(chan struct{}),
	}
}

// Endpoint returns the endpoint address.
func (p *Pipe) Endpoint() uint8 { return p.endpoint }

// Submit queues an asynchronous read into buf. The kernel copies the data
// into buf when the URB is reaped.
func (p *Pipe) Submit(buf []byte) (hal.Handle, error) {
	return p.dev.submit(p, buf)
}

// Cancel discards a submitted read.
func (p *Pipe) Cancel(h hal.Handle) error {
	return p.dev.cancel(p, h)
}

// Completions returns the completion channel.
func (p *Pipe) Completions() <-chan hal.Completion {
	return p.completions
}

// deliver hands a completion to the consumer. Once the pipe is closing,
// completions that do not fit are dropped.
func (p *Pipe) deliver(c hal.Completion) {
	p.sendMu.RLock()
	if !p.finished {
		select {
		case p.completions <- c:
		case <-p.closing:
			select {
			case p.completions <- c:
			default:
			}
		}
	}
	p.sendMu.RUnlock()

	d := p.dev
	d.mu.Lock()
	p.outstanding--
	d.mu.Unlock()
	d.signalSettled()
}

// Close discards outstanding reads, waits up to the transfer timeout for
// them to be reaped and closes the completion channel.
func (p *Pipe) Close() error {
	p.closeOnce.Do(func() {
		p.shutdown()

		d := p.dev
		d.mu.Lock()
		p.closed = true
		d.mu.Unlock()

		if !d.settle(p) {
			pkg.LogWarn(pkg.ComponentTransport, "pipe closed with reads outstanding", "endpoint", p.endpoint)
		}
		p.finish()
	})
	return nil
}

func (p *Pipe) shutdown() {
	p.shutdownOnce.Do(func() { close(p.closing) })
}

// finish closes the completion channel. Later deliveries are dropped.
func (p *Pipe) finish() {
	p.shutdown()
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if !p.finished {
		p.finished = true
		close(p.completions)
	}
}
