package stream

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSequencer_AnyOrder(t *testing.T) {
	const n = 16
	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 20; trial++ {
		s := newSequencer(n, nil)
		bufs := make([]*Buffer, n)
		for i := range bufs {
			bufs[i] = &Buffer{id: i, seq: uint64(i)}
		}
		lost := map[uint64]bool{uint64(rng.Intn(n)): true}

		for _, i := range rng.Perm(n) {
			if lost[uint64(i)] {
				s.skip(uint64(i))
			} else {
				s.deliver(bufs[i])
			}
		}
		s.finish(nil)

		var got []uint64
		for {
			b, err := s.next(context.Background())
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				t.Fatalf("next() error = %v", err)
			}
			got = append(got, b.seq)
		}

		var want []uint64
		for i := uint64(0); i < n; i++ {
			if !lost[i] {
				want = append(want, i)
			}
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("trial %d: order mismatch (-want +got):\n%s", trial, diff)
		}
	}
}

func TestSequencer_WaitsForCursor(t *testing.T) {
	s := newSequencer(4, nil)
	s.deliver(&Buffer{seq: 1})

	got := make(chan uint64, 2)
	go func() {
		for i := 0; i < 2; i++ {
			b, err := s.next(context.Background())
			if err != nil {
				return
			}
			got <- b.seq
		}
	}()

	select {
	case seq := <-got:
		t.Fatalf("next() returned seq %d before seq 0 arrived", seq)
	case <-time.After(20 * time.Millisecond):
	}

	s.deliver(&Buffer{seq: 0})
	for want := uint64(0); want < 2; want++ {
		select {
		case seq := <-got:
			if seq != want {
				t.Errorf("next() = %d, want %d", seq, want)
			}
		case <-time.After(time.Second):
			t.Fatal("next() did not return")
		}
	}
}

func TestSequencer_TombstoneSkipNotifies(t *testing.T) {
	skipped := 0
	s := newSequencer(4, func() { skipped++ })
	s.skip(0)
	s.skip(1)
	s.deliver(&Buffer{seq: 2})

	b, err := s.next(context.Background())
	if err != nil || b.seq != 2 {
		t.Fatalf("next() = %v, %v, want seq 2", b, err)
	}
	if skipped != 1 {
		t.Errorf("skip callback ran %d times, want 1", skipped)
	}
	if got := s.position(); got != 3 {
		t.Errorf("position() = %d, want 3", got)
	}
}

func TestSequencer_FatalOnceThenEOF(t *testing.T) {
	s := newSequencer(4, nil)
	s.deliver(&Buffer{seq: 0})
	s.deliver(&Buffer{seq: 2})
	fatal := &FatalError{Err: errors.New("gone")}
	s.finish(fatal)

	for _, want := range []uint64{0, 2} {
		b, err := s.next(context.Background())
		if err != nil || b.seq != want {
			t.Fatalf("next() = %v, %v, want seq %d", b, err, want)
		}
	}

	var fe *FatalError
	if _, err := s.next(context.Background()); !errors.As(err, &fe) {
		t.Fatalf("next() error = %v, want *FatalError", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.next(context.Background()); !errors.Is(err, io.EOF) {
			t.Errorf("next() error = %v, want io.EOF", err)
		}
	}
}

func TestSequencer_ContextCancel(t *testing.T) {
	s := newSequencer(4, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := s.next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("next() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestSequencer_IgnoresStaleAndDuplicate(t *testing.T) {
	s := newSequencer(4, nil)
	s.deliver(&Buffer{seq: 0})
	s.next(context.Background())

	s.deliver(&Buffer{seq: 0})
	s.skip(1)
	s.deliver(&Buffer{seq: 1})
	if got := s.buffered(); got != 1 {
		t.Errorf("buffered() = %d, want 1", got)
	}
}
