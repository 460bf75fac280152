package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardnew/ft60x/hal"
	"github.com/ardnew/ft60x/pkg"
)

// State is the engine lifecycle state.
type State int32

// Engine states.
const (
	StateStopped  State = iota // terminal; no transfers outstanding
	StateRunning               // submitting and reaping
	StateDraining              // reaping only, waiting for outstanding transfers
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// Engine streams bulk-IN data from one endpoint. Each engine owns its pool,
// sequencer, reactor goroutine and telemetry.
type Engine struct {
	cfg  Config
	in   hal.BulkReader
	pool *Pool
	seq  *sequencer
	tel  *telemetry

	// Reactor-owned.
	flight   *inflightSet
	nextSeq  uint64
	busy     bool
	deadline time.Time

	state    atomic.Int32
	fatal    atomic.Pointer[FatalError]
	timedOut atomic.Bool

	kick     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Start validates cfg, runs its Ready hook and starts streaming from in.
// On failure it returns a *ConfigError and nothing has been allocated or
// submitted. The engine does not close in.
func Start(in hal.BulkReader, cfg Config) (*Engine, error) {
	if in == nil {
		return nil, &ConfigError{Field: "reader", Err: pkg.ErrInvalidParameter}
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Ready != nil {
		if err := cfg.Ready(); err != nil {
			return nil, &ConfigError{Field: "Ready", Err: err}
		}
	}

	pool, err := NewPool(cfg.PoolSize, cfg.BufferSize)
	if err != nil {
		return nil, &ConfigError{Field: "PoolSize", Err: err}
	}

	e := &Engine{
		cfg:    cfg,
		in:     in,
		pool:   pool,
		tel:    newTelemetry(cfg.TelemetryInterval, cfg.TelemetryBuckets, time.Now()),
		flight: newInflightSet(cfg.TargetDepth),
		kick:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	e.seq = newSequencer(cfg.PoolSize, e.wake)
	e.state.Store(int32(StateRunning))

	pkg.LogInfo(pkg.ComponentEngine, "engine started",
		"depth", cfg.TargetDepth,
		"pool", cfg.PoolSize,
		"bufsize", cfg.BufferSize,
		"transient", cfg.Transient)

	go e.tel.run()
	go e.reactor()
	return e, nil
}

// NextChunk blocks until the next chunk in sequence order is available.
// After Stop it returns the chunks already received and then io.EOF. After
// a fatal fault it returns those chunks, then the *FatalError once, then
// io.EOF.
func (e *Engine) NextChunk(ctx context.Context) (*Chunk, error) {
	b, err := e.seq.next(ctx)
	if err != nil {
		return nil, err
	}
	return &Chunk{
		Seq:    b.Seq(),
		Data:   b.Data(),
		Status: b.Status(),
		engine: e,
		slot:   b.ID(),
	}, nil
}

// Stop stops submitting, cancels outstanding transfers and waits for the
// reactor to finish. It is safe to call more than once. It returns
// ErrDrainTimeout when transfers were still outstanding at the drain deadline.
func (e *Engine) Stop() error {
	e.stopOnce.Do(func() { close(e.stop) })
	<-e.done
	if e.timedOut.Load() {
		return ErrDrainTimeout
	}
	return nil
}

// Done is closed once the engine reaches StateStopped.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Err returns the fatal error that ended the stream, or nil.
func (e *Engine) Err() error {
	if f := e.fatal.Load(); f != nil {
		return f
	}
	return nil
}

// Snapshot returns current telemetry.
func (e *Engine) Snapshot() Stats {
	return e.tel.snapshot(time.Now())
}

// PoolCounts returns the number of buffers in each state.
func (e *Engine) PoolCounts() PoolCounts {
	return e.pool.Counts()
}

// InFlight returns the number of outstanding transfers.
func (e *Engine) InFlight() int {
	return e.flight.len()
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// release returns a consumed buffer to the pool and wakes the reactor.
func (e *Engine) release(slot int) error {
	if err := e.pool.Release(slot); err != nil {
		return err
	}
	e.wake()
	return nil
}

// wake prompts the reactor to run a submitter pass.
func (e *Engine) wake() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}
