package stream

import (
	"fmt"
	"sync"

	"github.com/eapache/queue"

	"github.com/ardnew/ft60x/pkg"
)

// SlotState is the ownership state of a pool slot.
type SlotState int

// Slot states.
const (
	SlotFree      SlotState = iota // owned by the pool
	SlotInFlight                   // owned by the transport
	SlotCompleted                  // owned by the sequencer or consumer
)

// String returns the state name.
func (s SlotState) String() string {
	switch s {
	case SlotFree:
		return "free"
	case SlotInFlight:
		return "in-flight"
	case SlotCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Buffer is one fixed-capacity transfer buffer and its metadata. Metadata is
// written only by the pool under its lock; readers see a consistent value
// because ownership passes through the pool before a new owner looks at it.
type Buffer struct {
	id     int
	seq    uint64
	state  SlotState
	n      int
	status pkg.TransferStatus
	data   []byte
}

// ID returns the slot index.
func (b *Buffer) ID() int { return b.id }

// Seq returns the sequence number stamped at the last Acquire.
func (b *Buffer) Seq() uint64 { return b.seq }

// Bytes returns the full-capacity backing slice.
func (b *Buffer) Bytes() []byte { return b.data }

// Data returns the filled part of the buffer.
func (b *Buffer) Data() []byte { return b.data[:b.n] }

// Len returns the number of filled bytes.
func (b *Buffer) Len() int { return b.n }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Status returns the completion status.
func (b *Buffer) Status() pkg.TransferStatus { return b.status }

// PoolCounts is a consistent snapshot of slot states.
type PoolCounts struct {
	Free      int
	InFlight  int
	Completed int
}

// Total returns the number of slots counted.
func (c PoolCounts) Total() int {
	return c.Free + c.InFlight + c.Completed
}

// Pool is a fixed set of transfer buffers. All buffers are allocated by
// NewPool; slot transitions never allocate.
type Pool struct {
	mu     sync.Mutex
	slots  []Buffer
	free   *queue.Queue // slot ids in release order
	counts PoolCounts
	size   int
}

// NewPool allocates n buffers of size bytes each.
func NewPool(n, size int) (*Pool, error) {
	if n < 1 || size < 1 {
		return nil, fmt.Errorf("%w: pool of %d x %d bytes", pkg.ErrInvalidParameter, n, size)
	}

	backing := make([]byte, n*size)
	p := &Pool{
		slots: make([]Buffer, n),
		free:  queue.New(),
		size:  size,
	}
	for i := range p.slots {
		p.slots[i] = Buffer{
			id:   i,
			data: backing[i*size : (i+1)*size : (i+1)*size],
		}
		p.free.Add(i)
	}
	p.counts.Free = n
	return p, nil
}

// Size returns the number of slots.
func (p *Pool) Size() int { return len(p.slots) }

// BufferSize returns the capacity of each buffer.
func (p *Pool) BufferSize() int { return p.size }

// Slot returns the buffer at id, or nil when id is out of range.
func (p *Pool) Slot(id int) *Buffer {
	if id < 0 || id >= len(p.slots) {
		return nil
	}
	return &p.slots[id]
}

// Acquire moves the least recently freed slot to InFlight and stamps it with
// seq. It returns false when no slot is free.
func (p *Pool) Acquire(seq uint64) (*Buffer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.free.Length() == 0 {
		return nil, false
	}
	b := &p.slots[p.free.Remove().(int)]
	b.state = SlotInFlight
	b.seq = seq
	b.n = 0
	b.status = pkg.TransferStatusSuccess
	p.counts.Free--
	p.counts.InFlight++
	return b, true
}

// Complete moves an InFlight slot to Completed with n filled bytes.
func (p *Pool) Complete(id, n int, status pkg.TransferStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, err := p.slotIn(id, SlotInFlight)
	if err != nil {
		return err
	}
	b.n = max(0, min(n, len(b.data)))
	b.status = status
	b.state = SlotCompleted
	p.counts.InFlight--
	p.counts.Completed++
	return nil
}

// Discard returns an InFlight slot to Free without delivering it.
func (p *Pool) Discard(id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, err := p.slotIn(id, SlotInFlight)
	if err != nil {
		return err
	}
	b.state = SlotFree
	b.n = 0
	p.free.Add(id)
	p.counts.InFlight--
	p.counts.Free++
	return nil
}

// Release returns a Completed slot to Free. Releasing a slot in any other
// state returns ErrInvalidTransition and changes nothing.
func (p *Pool) Release(id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, err := p.slotIn(id, SlotCompleted)
	if err != nil {
		return err
	}
	b.state = SlotFree
	b.n = 0
	p.free.Add(id)
	p.counts.Completed--
	p.counts.Free++
	return nil
}

// State returns the current state of slot id.
func (p *Pool) State(id int) (SlotState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id < 0 || id >= len(p.slots) {
		return 0, fmt.Errorf("%w: slot %d", pkg.ErrInvalidParameter, id)
	}
	return p.slots[id].state, nil
}

// Counts returns the number of slots in each state.
func (p *Pool) Counts() PoolCounts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts
}

// slotIn returns slot id if it is in state want. Caller holds p.mu.
func (p *Pool) slotIn(id int, want SlotState) (*Buffer, error) {
	if id < 0 || id >= len(p.slots) {
		return nil, fmt.Errorf("%w: slot %d", pkg.ErrInvalidParameter, id)
	}
	b := &p.slots[id]
	if b.state != want {
		return nil, fmt.Errorf("%w: slot %d is %s, want %s", ErrInvalidTransition, id, b.state, want)
	}
	return b, nil
}
