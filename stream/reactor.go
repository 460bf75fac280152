package stream

import (
	"errors"
	"runtime"
	"time"

	"github.com/ardnew/ft60x/hal"
	"github.com/ardnew/ft60x/pkg"
)

// =============================================================================
// Reactor Loop
// =============================================================================

// reactor is the engine's event loop. It reaps completions, dispatches them
// to the pool and sequencer, and refills the pipe after every wakeup. It
// exits once the engine has left Running and no transfer is outstanding, or
// the drain deadline has passed.
func (e *Engine) reactor() {
	defer close(e.done)

	if e.cfg.PinReactor {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := pinCPU(e.cfg.ReactorCPU); err != nil {
			pkg.LogWarn(pkg.ComponentReactor, "cpu affinity not applied", "cpu", e.cfg.ReactorCPU, "error", err)
		}
	}

	completions := e.in.Completions()
	stop := e.stop

	timer := time.NewTimer(e.cfg.WaitTimeout)
	defer timer.Stop()

	e.refill()

	for {
		if e.State() != StateRunning {
			if e.flight.len() == 0 {
				break
			}
			if !time.Now().Before(e.deadline) {
				e.abandon()
				break
			}
		}

		timer.Reset(e.wait())
		select {
		case c, ok := <-completions:
			if !ok {
				completions = nil
				e.closed()
				continue
			}
			e.dispatch(c)
			if !e.reap(completions) {
				completions = nil
			}

		case <-e.kick:

		case <-stop:
			stop = nil
			pkg.LogInfo(pkg.ComponentEngine, "stop requested", "inflight", e.flight.len())
			e.drain()

		case <-timer.C:
		}
		timer.Stop()

		e.refill()
	}

	e.finish()
}

// reap dispatches completions that are already queued without blocking. It
// returns false if the transport closed the channel.
func (e *Engine) reap(completions <-chan hal.Completion) bool {
	for {
		select {
		case c, ok := <-completions:
			if !ok {
				e.closed()
				return false
			}
			e.dispatch(c)
		default:
			return true
		}
	}
}

// wait returns how long the next reactor wait may block.
func (e *Engine) wait() time.Duration {
	d := e.cfg.WaitTimeout
	if e.busy && e.flight.len() == 0 {
		d = e.cfg.BusyBackoff
	}
	if e.State() != StateRunning {
		d = min(d, time.Until(e.deadline))
	}
	return max(d, 0)
}

// refill runs a submitter pass and turns a lost device into a fatal error.
func (e *Engine) refill() {
	if e.State() != StateRunning {
		return
	}
	if err := e.maintainDepth(); err != nil {
		e.fail(err)
	}
}

// =============================================================================
// Completion Handling
// =============================================================================

// dispatch resolves one completion.
func (e *Engine) dispatch(c hal.Completion) {
	f, ok := e.flight.take(c.Handle)
	if !ok {
		pkg.LogWarn(pkg.ComponentReactor, "completion for unknown handle", "handle", c.Handle, "error", c.Err)
		return
	}
	b := e.pool.Slot(f.slot)

	switch classify(c.Err) {
	case classSuccess:
		e.deliver(b, c.N, pkg.TransferStatusSuccess)

	case classCancelled:
		if c.N > 0 {
			e.deliver(b, c.N, pkg.TransferStatusCancelled)
			return
		}
		if e.State() == StateRunning {
			e.tel.lost(b.Cap())
			pkg.LogWarn(pkg.ComponentReactor, "transfer cancelled while running", "seq", f.seq)
		}
		e.drop(b, f.seq)

	case classTransient:
		terr := &TransferError{Kind: TransferTransient, Seq: f.seq, Err: c.Err}
		if e.cfg.Transient == TransientRetry && f.attempts < e.cfg.MaxRetries &&
			e.State() == StateRunning && e.resubmit(b, f) {
			pkg.LogDebug(pkg.ComponentReactor, "transfer retried", "seq", f.seq, "attempt", f.attempts+1, "error", c.Err)
			return
		}
		e.tel.lost(b.Cap())
		pkg.LogWarn(pkg.ComponentReactor, "chunk lost", "seq", f.seq, "error", terr)
		e.drop(b, f.seq)

	case classFatal:
		e.drop(b, f.seq)
		e.fail(&TransferError{Kind: TransferFatal, Seq: f.seq, Err: c.Err})
	}
}

// deliver hands a completed buffer to the sequencer.
func (e *Engine) deliver(b *Buffer, n int, status pkg.TransferStatus) {
	if n > b.Cap() {
		pkg.LogWarn(pkg.ComponentReactor, "completion longer than buffer", "seq", b.Seq(), "n", n, "cap", b.Cap())
	}
	if err := e.pool.Complete(b.ID(), n, status); err != nil {
		pkg.LogError(pkg.ComponentPool, "complete", "slot", b.ID(), "error", err)
		return
	}
	e.tel.delivered(b.Len())
	e.seq.deliver(b)
}

// drop frees a buffer and leaves a tombstone at its sequence number.
func (e *Engine) drop(b *Buffer, seq uint64) {
	if err := e.pool.Discard(b.ID()); err != nil {
		pkg.LogError(pkg.ComponentPool, "discard", "slot", b.ID(), "error", err)
	}
	e.seq.skip(seq)
}

// =============================================================================
// Termination
// =============================================================================

// fail records the first fatal error and starts draining.
func (e *Engine) fail(err error) {
	if e.fatal.CompareAndSwap(nil, &FatalError{Err: err}) {
		pkg.LogError(pkg.ComponentEngine, "stream failed", "error", err, "inflight", e.flight.len())
	}
	e.drain()
}

// drain moves Running to Draining and cancels every outstanding transfer.
func (e *Engine) drain() {
	if !e.state.CompareAndSwap(int32(StateRunning), int32(StateDraining)) {
		return
	}
	e.deadline = time.Now().Add(e.cfg.DrainTimeout)

	for _, h := range e.flight.handles() {
		if err := e.in.Cancel(h); err != nil && !errors.Is(err, pkg.ErrNoDevice) {
			pkg.LogDebug(pkg.ComponentReactor, "cancel", "handle", h, "error", err)
		}
	}
}

// closed handles the transport closing its completion channel. Outstanding
// transfers can no longer complete, so their buffers return to the pool.
func (e *Engine) closed() {
	e.fail(pkg.ErrClosed)
	for _, f := range e.flight.clear() {
		e.drop(e.pool.Slot(f.slot), f.seq)
	}
}

// abandon gives up on transfers still outstanding at the drain deadline.
// Their slots stay InFlight because the controller may still write them.
func (e *Engine) abandon() {
	lost := e.flight.clear()
	e.timedOut.Store(true)
	pkg.LogWarn(pkg.ComponentEngine, "drain timed out", "abandoned", len(lost))
	for _, f := range lost {
		e.seq.skip(f.seq)
	}
}

// finish moves the engine to Stopped and releases the consumer.
func (e *Engine) finish() {
	e.state.Store(int32(StateStopped))
	e.tel.halt()

	var fatal error
	if f := e.fatal.Load(); f != nil {
		fatal = f
	}
	e.seq.finish(fatal)

	counts := e.pool.Counts()
	pkg.LogInfo(pkg.ComponentEngine, "engine stopped",
		"free", counts.Free,
		"inflight", counts.InFlight,
		"completed", counts.Completed,
		"next_seq", e.nextSeq)
}
