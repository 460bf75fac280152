package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ardnew/ft60x/pkg"
)

// Chunk is one delivered transfer. Data aliases the pool buffer and is valid
// until Release.
type Chunk struct {
	Seq    uint64
	Data   []byte
	Status pkg.TransferStatus

	engine   *Engine
	slot     int
	released atomic.Bool
}

// Release returns the buffer to the pool so it can be submitted again.
// Releasing twice returns ErrInvalidTransition.
func (c *Chunk) Release() error {
	if c.released.Swap(true) {
		return fmt.Errorf("%w: chunk %d already released", ErrInvalidTransition, c.Seq)
	}
	c.Data = nil
	return c.engine.release(c.slot)
}

// Reader returns an io.Reader over the ordered byte stream. Read returns
// io.EOF after Stop and the *FatalError after a fault. A chunk that cannot be
// released ends the read with that error. The reader is not
// safe for concurrent use.
func (e *Engine) Reader() io.Reader {
	return &reader{engine: e}
}

type reader struct {
	engine *Engine
	chunk  *Chunk
	off    int
}

func (r *reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for r.chunk == nil {
		c, err := r.engine.NextChunk(context.Background())
		if err != nil {
			return 0, err
		}
		if len(c.Data) == 0 {
			if err := c.Release(); err != nil {
				return 0, err
			}
			continue
		}
		r.chunk, r.off = c, 0
	}

	n := copy(p, r.chunk.Data[r.off:])
	r.off += n
	if r.off == len(r.chunk.Data) {
		c := r.chunk
		r.chunk = nil
		if err := c.Release(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// WriteTo writes the ordered byte stream to w until the stream ends. A
// normal end after Stop is not an error.
func (e *Engine) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for {
		c, err := e.NextChunk(context.Background())
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}

		n, werr := w.Write(c.Data)
		total += int64(n)
		rerr := c.Release()
		if werr != nil {
			return total, werr
		}
		if rerr != nil {
			return total, rerr
		}
	}
}
