package sim

import (
	"slices"
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/ardnew/ft60x/hal"
	"github.com/ardnew/ft60x/pkg"
)

// =============================================================================
// Options
// =============================================================================

// Default simulation parameters.
const (
	DefaultReorderFlush = 2 * time.Millisecond
	DefaultQueueLength  = 64
)

// Options configures a simulated endpoint.
type Options struct {
	// Latency delays every completion after its submission.
	Latency time.Duration

	// MaxOutstanding limits queued requests; Submit returns pkg.ErrBusy
	// beyond it. Zero means unlimited.
	MaxOutstanding int

	// Reorder releases completions in reversed groups of this size. Values
	// below 2 keep submission order.
	Reorder int

	// ReorderFlush bounds how long an incomplete reorder group is held.
	ReorderFlush time.Duration

	// Script injects faults. Nil means every request succeeds.
	Script Script

	// StartWord is the first counter value of the generated stream.
	StartWord uint64

	// QueueLength is the capacity of the completion channel.
	QueueLength int
}

func (o Options) withDefaults() Options {
	if o.ReorderFlush <= 0 {
		o.ReorderFlush = DefaultReorderFlush
	}
	if o.QueueLength <= 0 {
		o.QueueLength = DefaultQueueLength
	}
	return o
}

// =============================================================================
// Endpoint
// =============================================================================

// request is one queued read.
type request struct {
	handle    hal.Handle
	buf       []byte
	n         int
	word      uint64
	fault     Fault
	due       time.Time
	cancelled bool
}

// Endpoint is a simulated asynchronous bulk-IN endpoint.
type Endpoint struct {
	opts Options

	mu         sync.Mutex
	pending    *queue.Queue // *request in submission order
	byHandle   map[hal.Handle]*request
	nextHandle hal.Handle
	index      uint64
	word       uint64
	submitted  uint64
	gone       bool
	closed     bool

	completions chan hal.Completion
	wake        chan struct{}
	done        chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

var _ hal.BulkReader = (*Endpoint)(nil)

// New creates a simulated endpoint and starts its completion goroutine.
func New(opts Options) *Endpoint {
	opts = opts.withDefaults()
	e := &Endpoint{
		opts:        opts,
		pending:     queue.New(),
		byHandle:    make(map[hal.Handle]*request),
		nextHandle:  1,
		word:        opts.StartWord,
		completions: make(chan hal.Completion, opts.QueueLength),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	e.wg.Add(1)
	go e.run()
	return e
}

// Submit queues a simulated read into buf.
func (e *Endpoint) Submit(buf []byte) (hal.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.closed:
		return 0, pkg.ErrClosed
	case e.gone:
		return 0, pkg.ErrNoDevice
	case len(buf) == 0:
		return 0, pkg.ErrInvalidParameter
	case e.opts.MaxOutstanding > 0 && e.pending.Length() >= e.opts.MaxOutstanding:
		return 0, pkg.ErrBusy
	}

	index := e.index
	e.index++
	fault := FaultNone
	if e.opts.Script != nil {
		fault = e.opts.Script(index)
	}
	if fault == FaultBusy {
		return 0, pkg.ErrBusy
	}

	r := &request{
		handle: e.nextHandle,
		buf:    buf,
		word:   e.word,
		fault:  fault,
		due:    time.Now().Add(e.opts.Latency),
	}
	e.nextHandle++

	switch fault {
	case FaultNone:
		r.n = len(buf)
	case FaultShort:
		r.n = (len(buf) / 2) &^ (WordSize - 1)
	}
	e.word += uint64(r.n / WordSize)
	e.submitted++

	e.pending.Add(r)
	e.byHandle[r.handle] = r
	e.signal()
	return r.handle, nil
}

// Cancel aborts a queued request. Its completion reports pkg.ErrCancelled.
func (e *Endpoint) Cancel(h hal.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.byHandle[h]
	if !ok {
		return pkg.ErrInvalidParameter
	}
	r.cancelled = true
	e.signal()
	return nil
}

// Completions returns the completion channel.
func (e *Endpoint) Completions() <-chan hal.Completion {
	return e.completions
}

// Disconnect simulates unplugging the device. Every queued request completes
// with pkg.ErrNoDevice and later submissions fail.
func (e *Endpoint) Disconnect() {
	e.mu.Lock()
	e.gone = true
	e.signal()
	e.mu.Unlock()
}

// Outstanding returns the number of requests not yet completed.
func (e *Endpoint) Outstanding() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending.Length()
}

// Submitted returns the number of accepted requests.
func (e *Endpoint) Submitted() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitted
}

// Close stops the completion goroutine and closes the completion channel.
// Requests still queued are dropped.
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()

		close(e.done)
		e.wg.Wait()
		close(e.completions)
	})
	return nil
}

// =============================================================================
// Completion Scheduler
// =============================================================================

// signal wakes the completion goroutine. Caller holds e.mu.
func (e *Endpoint) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Endpoint) run() {
	defer e.wg.Done()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		batch, wait := e.collect(time.Now())
		for _, c := range batch {
			select {
			case e.completions <- c:
			case <-e.done:
				return
			}
		}
		if len(batch) > 0 {
			continue
		}

		if wait <= 0 {
			wait = time.Hour
		}
		timer.Reset(wait)
		select {
		case <-e.wake:
		case <-timer.C:
		case <-e.done:
			return
		}
		timer.Stop()
	}
}

// collect removes the requests that are ready to complete and returns their
// completions. When nothing is ready it returns how long to wait.
func (e *Endpoint) collect(now time.Time) ([]hal.Completion, time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending.Length() == 0 {
		return nil, 0
	}

	if e.gone {
		var out []hal.Completion
		for e.pending.Length() > 0 {
			r := e.pending.Remove().(*request)
			delete(e.byHandle, r.handle)
			out = append(out, hal.Completion{Handle: r.handle, Err: pkg.ErrNoDevice})
		}
		return out, 0
	}

	ready, cancelled := 0, false
	for ready < e.pending.Length() {
		r := e.pending.Get(ready).(*request)
		if !r.cancelled && now.Before(r.due) {
			break
		}
		cancelled = cancelled || r.cancelled
		ready++
	}
	if ready == 0 {
		return nil, e.pending.Peek().(*request).due.Sub(now)
	}

	take := ready
	if e.opts.Reorder > 1 {
		first := e.pending.Peek().(*request)
		held := now.Sub(first.due)
		if ready < e.opts.Reorder && !cancelled && held < e.opts.ReorderFlush {
			return nil, e.opts.ReorderFlush - held
		}
		take = min(ready, e.opts.Reorder)
	}

	out := make([]hal.Completion, 0, take)
	for i := 0; i < take; i++ {
		r := e.pending.Remove().(*request)
		delete(e.byHandle, r.handle)
		out = append(out, e.complete(r))
	}
	if e.opts.Reorder > 1 {
		slices.Reverse(out)
	}
	return out, 0
}

// complete fills a request and builds its completion. Caller holds e.mu.
func (e *Endpoint) complete(r *request) hal.Completion {
	c := hal.Completion{Handle: r.handle}
	if r.cancelled {
		c.Err = pkg.ErrCancelled
		return c
	}

	switch r.fault {
	case FaultTimeout:
		c.Err = pkg.ErrTimeout
	case FaultStall:
		c.Err = pkg.ErrStall
	case FaultDisconnect:
		c.Err = pkg.ErrNoDevice
		e.gone = true
	default:
		FillCounter(r.buf[:r.n], r.word)
		c.N = r.n
	}
	return c
}
