package stream

import (
	"context"
	"io"
	"sync"

	"github.com/ardnew/ft60x/pkg"
)

// pending is a reorder buffer entry: a completed buffer or a tombstone for a
// sequence number that will never be delivered.
type pending struct {
	buf  *Buffer
	lost bool
}

// sequencer releases completed buffers in sequence order.
type sequencer struct {
	mu      sync.Mutex
	cond    *sync.Cond
	cursor  uint64
	ready   map[uint64]pending
	stopped bool
	fatal   error
	told    bool

	// skipped is called when the cursor steps over tombstones, which
	// reopens the reorder window without a buffer being released.
	skipped func()
}

func newSequencer(window int, skipped func()) *sequencer {
	s := &sequencer{ready: make(map[uint64]pending, window), skipped: skipped}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// position returns the next sequence number the consumer will receive.
func (s *sequencer) position() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// deliver queues a completed buffer.
func (s *sequencer) deliver(b *Buffer) {
	s.put(b.seq, pending{buf: b})
}

// skip records that seq will never be delivered.
func (s *sequencer) skip(seq uint64) {
	s.put(seq, pending{lost: true})
}

func (s *sequencer) put(seq uint64, p pending) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.cursor {
		pkg.LogWarn(pkg.ComponentSequencer, "late entry behind cursor", "seq", seq, "cursor", s.cursor)
		return
	}
	if _, dup := s.ready[seq]; dup {
		pkg.LogWarn(pkg.ComponentSequencer, "duplicate entry", "seq", seq)
		return
	}
	s.ready[seq] = p
	if seq == s.cursor || s.stopped {
		s.cond.Broadcast()
	}
}

// finish marks the stream complete. No entries are added afterwards.
func (s *sequencer) finish(fatal error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	s.fatal = fatal
	s.cond.Broadcast()
}

// next blocks until the buffer at the cursor is ready and returns it. Once
// the stream is finished it returns the remaining buffers in order, skipping
// holes, then the fatal error once, then io.EOF.
func (s *sequencer) next(ctx context.Context) (*Buffer, error) {
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	var skippedAny bool
	defer func() {
		if skippedAny && s.skipped != nil {
			s.skipped()
		}
	}()

	for {
		for {
			p, ok := s.ready[s.cursor]
			if !ok {
				break
			}
			delete(s.ready, s.cursor)
			s.cursor++
			if !p.lost {
				return p.buf, nil
			}
			skippedAny = true
		}

		if s.stopped {
			if len(s.ready) > 0 {
				s.cursor = s.lowest()
				continue
			}
			if s.fatal != nil && !s.told {
				s.told = true
				return nil, s.fatal
			}
			return nil, io.EOF
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.cond.Wait()
	}
}

// lowest returns the smallest pending sequence number. Caller holds s.mu and
// s.ready is not empty.
func (s *sequencer) lowest() uint64 {
	first := true
	var low uint64
	for seq := range s.ready {
		if first || seq < low {
			low, first = seq, false
		}
	}
	return low
}

// buffered returns the number of entries waiting in the reorder buffer.
func (s *sequencer) buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ready)
}
