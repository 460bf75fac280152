package stream

import (
	"github.com/ardnew/ft60x/pkg"
)

// maintainDepth submits free buffers until TargetDepth transfers are
// outstanding, the pool is empty or the reorder window is full. A busy
// controller ends the pass without consuming a sequence number; any other
// submission failure is returned as a *SubmitError of kind SubmitDeviceGone.
// Runs on the reactor goroutine.
func (e *Engine) maintainDepth() error {
	e.busy = false

	for e.State() == StateRunning && e.flight.len() < e.cfg.TargetDepth {
		if e.nextSeq-e.seq.position() >= uint64(e.cfg.PoolSize) {
			return nil
		}

		b, ok := e.pool.Acquire(e.nextSeq)
		if !ok {
			return nil
		}

		h, err := e.in.Submit(b.Bytes())
		if err != nil {
			if derr := e.pool.Discard(b.ID()); derr != nil {
				pkg.LogError(pkg.ComponentPool, "discard after failed submit", "slot", b.ID(), "error", derr)
			}
			serr := newSubmitError(e.nextSeq, err)
			if serr.Kind == SubmitBusy {
				e.busy = true
				e.tel.submitBusy()
				pkg.LogDebug(pkg.ComponentReactor, "controller busy", "seq", e.nextSeq, "inflight", e.flight.len())
				return nil
			}
			return serr
		}

		e.flight.add(h, flight{slot: b.ID(), seq: e.nextSeq})
		e.nextSeq++
	}
	return nil
}

// resubmit queues a failed buffer again with the same sequence number.
// Runs on the reactor goroutine.
func (e *Engine) resubmit(b *Buffer, f flight) bool {
	h, err := e.in.Submit(b.Bytes())
	if err != nil {
		pkg.LogDebug(pkg.ComponentReactor, "retry submit failed", "seq", f.seq, "error", err)
		return false
	}
	f.attempts++
	e.flight.add(h, f)
	e.tel.retried()
	return true
}
