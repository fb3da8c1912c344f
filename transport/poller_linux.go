//go:build linux

package transport

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// epollPoller is the Linux implementation of Poller.
type epollPoller struct {
	epfd int
}

// NewPoller constructs the platform Poller. On Linux this is an epoll
// instance watching for read readiness, edge-triggered so a connection
// that is drained in one tick does not re-fire until new data arrives.
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &epollPoller{epfd: epfd}, nil
}

func (p *epollPoller) Register(fd uintptr, userData uintptr) error {
	event := &unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLET,
		Fd:     int32(fd),
	}
	*(*uintptr)(unsafe.Pointer(&event.Pad)) = userData
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, int(fd), event)
}

func (p *epollPoller) Unregister(fd uintptr) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
}

func (p *epollPoller) Wait(events []Event, timeoutMs int) (int, error) {
	rawEvents := make([]unix.EpollEvent, len(events))
	n, err := unix.EpollWait(p.epfd, rawEvents, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		events[i] = Event{
			Fd:       uintptr(rawEvents[i].Fd),
			UserData: *(*uintptr)(unsafe.Pointer(&rawEvents[i].Pad)),
		}
	}
	return n, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
