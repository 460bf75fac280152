package stream

import (
	"sync/atomic"

	"github.com/ardnew/ft60x/hal"
)

// flight records one outstanding request.
type flight struct {
	slot     int
	seq      uint64
	attempts int
}

// inflightSet maps outstanding request handles to their slots. It is owned by
// the reactor goroutine; only the size is readable from elsewhere.
type inflightSet struct {
	m     map[hal.Handle]flight
	count atomic.Int64
}

func newInflightSet(capacity int) *inflightSet {
	return &inflightSet{m: make(map[hal.Handle]flight, capacity)}
}

func (s *inflightSet) add(h hal.Handle, f flight) {
	s.m[h] = f
	s.count.Store(int64(len(s.m)))
}

// take removes and returns the entry for h. Each entry is taken once.
func (s *inflightSet) take(h hal.Handle) (flight, bool) {
	f, ok := s.m[h]
	if ok {
		delete(s.m, h)
		s.count.Store(int64(len(s.m)))
	}
	return f, ok
}

func (s *inflightSet) len() int {
	return int(s.count.Load())
}

func (s *inflightSet) handles() []hal.Handle {
	hs := make([]hal.Handle, 0, len(s.m))
	for h := range s.m {
		hs = append(hs, h)
	}
	return hs
}

// clear forgets every entry and returns what was outstanding.
func (s *inflightSet) clear() []flight {
	fs := make([]flight, 0, len(s.m))
	for h, f := range s.m {
		fs = append(fs, f)
		delete(s.m, h)
	}
	s.count.Store(0)
	return fs
}
