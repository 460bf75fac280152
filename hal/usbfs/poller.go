//go:build linux

package usbfs

import (
	"errors"

	"golang.org/x/sys/unix"
)

// poller waits for URB completions on a usbfs descriptor. usbfs reports
// EPOLLOUT while completed URBs are waiting to be reaped and EPOLLHUP or
// EPOLLERR once the device is gone. An eventfd lets another goroutine
// interrupt the wait.
type poller struct {
	epfd   int
	wakefd int
	fd     int
	events [maxEpollEvents]unix.EpollEvent
}

func newPoller(fd int) (*poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}

	p := &poller{epfd: epfd, wakefd: wakefd, fd: fd}
	if err := p.add(wakefd, unix.EPOLLIN); err != nil {
		p.close()
		return nil, err
	}
	if err := p.add(fd, unix.EPOLLOUT|unix.EPOLLERR|unix.EPOLLHUP); err != nil {
		p.close()
		return nil, err
	}
	return p, nil
}

func (p *poller) add(fd int, events uint32) error {
	ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// wait blocks for at most msec milliseconds (-1 for no limit) and returns
// the events seen on the device descriptor. woken reports a wake call.
func (p *poller) wait(msec int) (events uint32, woken bool, err error) {
	for {
		n, err := unix.EpollWait(p.epfd, p.events[:], msec)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, false, err
		}
		for _, ev := range p.events[:n] {
			switch int(ev.Fd) {
			case p.wakefd:
				var buf [8]byte
				unix.Read(p.wakefd, buf[:])
				woken = true
			case p.fd:
				events |= ev.Events
			}
		}
		return events, woken, nil
	}
}

// wake interrupts a blocked wait.
func (p *poller) wake() error {
	buf := [8]byte{1}
	_, err := unix.Write(p.wakefd, buf[:])
	if errors.Is(err, unix.EAGAIN) {
		return nil
	}
	return err
}

func (p *poller) close() error {
	err := unix.Close(p.wakefd)
	if cerr := unix.Close(p.epfd); err == nil {
		err = cerr
	}
	return err
}
