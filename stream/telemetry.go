package stream

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats is a telemetry snapshot. Rates cover the filled part of the rolling
// window; totals cover the engine lifetime.
type Stats struct {
	BytesPerSecond    float64
	ChunksPerSecond   float64
	RecoverableLosses uint64
	LostBytes         uint64
	Retries           uint64
	SubmitBusy        uint64
	TotalBytes        uint64
	TotalChunks       uint64
	Window            time.Duration
}

// MiBPerSecond returns the byte rate in MiB/s.
func (s Stats) MiBPerSecond() float64 {
	return s.BytesPerSecond / (1024 * 1024)
}

// bucket holds the counters accumulated during one sampling interval.
type bucket struct {
	bytes   uint64
	chunks  uint64
	elapsed time.Duration
}

// telemetry counts delivered data on the hot path with atomic adds only and
// folds the counters into a ring of buckets from a sampler goroutine.
type telemetry struct {
	bytes     atomic.Uint64
	chunks    atomic.Uint64
	losses    atomic.Uint64
	lostBytes atomic.Uint64
	retries   atomic.Uint64
	busy      atomic.Uint64

	mu         sync.Mutex
	ring       []bucket
	head       int
	filled     int
	last       time.Time
	lastBytes  uint64
	lastChunks uint64

	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

func newTelemetry(interval time.Duration, buckets int, now time.Time) *telemetry {
	return &telemetry{
		ring:     make([]bucket, buckets),
		last:     now,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (t *telemetry) delivered(n int) {
	t.bytes.Add(uint64(n))
	t.chunks.Add(1)
}

func (t *telemetry) lost(capacity int) {
	t.losses.Add(1)
	t.lostBytes.Add(uint64(capacity))
}

func (t *telemetry) retried() { t.retries.Add(1) }

func (t *telemetry) submitBusy() { t.busy.Add(1) }

// run samples until halt is called.
func (t *telemetry) run() {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			t.tick(now)
		case <-t.stop:
			return
		}
	}
}

// halt stops the sampler and waits for it.
func (t *telemetry) halt() {
	t.once.Do(func() { close(t.stop) })
	<-t.done
}

// tick closes the current bucket at now.
func (t *telemetry) tick(now time.Time) {
	b, c := t.bytes.Load(), t.chunks.Load()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.ring[t.head] = bucket{
		bytes:   b - t.lastBytes,
		chunks:  c - t.lastChunks,
		elapsed: now.Sub(t.last),
	}
	t.head = (t.head + 1) % len(t.ring)
	t.filled = min(t.filled+1, len(t.ring))
	t.last, t.lastBytes, t.lastChunks = now, b, c
}

// snapshot reports the window rates. Before the first tick the rates cover
// the time since the engine started.
func (t *telemetry) snapshot(now time.Time) Stats {
	s := Stats{
		RecoverableLosses: t.losses.Load(),
		LostBytes:         t.lostBytes.Load(),
		Retries:           t.retries.Load(),
		SubmitBusy:        t.busy.Load(),
		TotalBytes:        t.bytes.Load(),
		TotalChunks:       t.chunks.Load(),
	}

	t.mu.Lock()
	var bytes, chunks uint64
	if t.filled == 0 {
		bytes = s.TotalBytes - t.lastBytes
		chunks = s.TotalChunks - t.lastChunks
		s.Window = now.Sub(t.last)
	}
	for i := 0; i < t.filled; i++ {
		b := t.ring[i]
		bytes += b.bytes
		chunks += b.chunks
		s.Window += b.elapsed
	}
	t.mu.Unlock()

	if secs := s.Window.Seconds(); secs > 0 {
		s.BytesPerSecond = float64(bytes) / secs
		s.ChunksPerSecond = float64(chunks) / secs
	}
	return s
}
