//go:build linux

package usbfs

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// An eventfd is always writable, so it stands in for a usbfs descriptor with
// completed URBs waiting.
func TestPoller_ReportsReady(t *testing.T) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		t.Skipf("eventfd unavailable: %v", err)
	}
	defer unix.Close(fd)

	p, err := newPoller(fd)
	if err != nil {
		t.Fatalf("newPoller() error = %v", err)
	}
	defer p.close()

	events, woken, err := p.wait(1000)
	if err != nil {
		t.Fatalf("wait() error = %v", err)
	}
	if events&unix.EPOLLOUT == 0 || woken {
		t.Errorf("wait() = (%#x, %v), want EPOLLOUT without wake", events, woken)
	}
}

func TestPoller_Wake(t *testing.T) {
	r, w, err := pipe2(t)
	if err != nil {
		t.Skipf("pipe2 unavailable: %v", err)
	}
	defer unix.Close(w)
	defer unix.Close(r)

	// The read end of an empty pipe never reports EPOLLOUT.
	p, err := newPoller(r)
	if err != nil {
		t.Fatalf("newPoller() error = %v", err)
	}
	defer p.close()

	type result struct {
		events uint32
		woken  bool
		err    error
	}
	done := make(chan result, 1)
	go func() {
		ev, woken, err := p.wait(-1)
		done <- result{ev, woken, err}
	}()

	time.Sleep(10 * time.Millisecond)
	if err := p.wake(); err != nil {
		t.Fatalf("wake() error = %v", err)
	}

	select {
	case res := <-done:
		if res.err != nil || !res.woken || res.events != 0 {
			t.Errorf("wait() = %+v, want woken with no device events", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wait() did not return after wake()")
	}
}

func TestPoller_Timeout(t *testing.T) {
	r, w, err := pipe2(t)
	if err != nil {
		t.Skipf("pipe2 unavailable: %v", err)
	}
	defer unix.Close(w)
	defer unix.Close(r)

	p, err := newPoller(r)
	if err != nil {
		t.Fatalf("newPoller() error = %v", err)
	}
	defer p.close()

	events, woken, err := p.wait(5)
	if err != nil || events != 0 || woken {
		t.Errorf("wait(5) = (%#x, %v, %v), want timeout", events, woken, err)
	}
}

func pipe2(t *testing.T) (r, w int, err error) {
	t.Helper()
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}
