//go:build cgo

package libusb

import (
	"context"
	"sync"

	"github.com/ardnew/ft60x/hal"
	"github.com/ardnew/ft60x/pkg"
)

// Pipe is an asynchronous bulk-IN reader. Every submitted read runs in its
// own goroutine until the endpoint returns or its context is cancelled.
type Pipe struct {
	ep       usbInEndpoint
	endpoint uint8
	limit    int

	ctx  context.Context
	stop context.CancelFunc

	mu      sync.Mutex
	next    hal.Handle
	cancels map[hal.Handle]context.CancelFunc
	closed  bool

	completions chan hal.Completion
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

var _ hal.BulkReader = (*Pipe)(nil)

func newPipe(ep usbInEndpoint, endpoint uint8, limit, queue int) *Pipe {
	ctx, stop := context.WithCancel(context.Background())
	return &Pipe{
		ep:          ep,
		endpoint:    endpoint,
		limit:       limit,
		ctx:         ctx,
		stop:        stop,
		next:        1,
		cancels:     make(map[hal.Handle]context.CancelFunc),
		completions: make(chan hal.Completion, queue),
	}
}

// Endpoint returns the endpoint address.
func (p *Pipe) Endpoint() uint8 { return p.endpoint }

// Submit starts a read into buf.
func (p *Pipe) Submit(buf []byte) (hal.Handle, error) {
	if len(buf) == 0 {
		return 0, pkg.ErrInvalidParameter
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.closed:
		return 0, pkg.ErrClosed
	case p.limit > 0 && len(p.cancels) >= p.limit:
		return 0, pkg.ErrBusy
	}

	h := p.next
	p.next++
	ctx, cancel := context.WithCancel(p.ctx)
	p.cancels[h] = cancel

	p.wg.Add(1)
	go p.read(ctx, h, buf)
	return h, nil
}

func (p *Pipe) read(ctx context.Context, h hal.Handle, buf []byte) {
	defer p.wg.Done()

	n, err := p.ep.ReadContext(ctx, buf)
	c := hal.Completion{Handle: h, N: n, Err: mapError(err)}

	p.mu.Lock()
	if cancel, ok := p.cancels[h]; ok {
		cancel()
		delete(p.cancels, h)
	}
	p.mu.Unlock()

	select {
	case p.completions <- c:
	case <-p.ctx.Done():
		select {
		case p.completions <- c:
		default:
		}
	}
}

// Cancel aborts a read. Its completion reports pkg.ErrCancelled.
func (p *Pipe) Cancel(h hal.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cancel, ok := p.cancels[h]
	if !ok {
		return pkg.ErrInvalidParameter
	}
	cancel()
	return nil
}

// Completions returns the completion channel.
func (p *Pipe) Completions() <-chan hal.Completion {
	return p.completions
}

func (p *Pipe) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close cancels every read, waits for the goroutines to return and closes
// the completion channel.
func (p *Pipe) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		p.stop()
		p.wg.Wait()
		close(p.completions)
	})
	return nil
}
