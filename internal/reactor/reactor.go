//go:build linux

// Package reactor implements the single-threaded fd-readiness loop (spec
// component C3, §4.5) that source plugins register their file
// descriptors on. It is grounded on golang.org/x/sys/unix's epoll
// bindings, an indirect dependency (pulled in transitively via
// gopsutil) promoted here to a direct one since the core needs an actual
// multiplexing primitive rather than a process-inspection helper. No
// example repo in the retrieval pack implements a select/epoll loop of
// its own, so this package follows golang.org/x/sys/unix's documented
// epoll_wait/epoll_ctl usage directly.
package reactor

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Interest is a subset of {readable, writable, exceptional}, spec.md
// §4.5's register_fd interest mask.
type Interest uint32

const (
	Readable Interest = 1 << iota
	Writable
	Exceptional
)

func (i Interest) toEpollEvents() uint32 {
	var ev uint32
	if i&Readable != 0 {
		ev |= unix.EPOLLIN
	}
	if i&Writable != 0 {
		ev |= unix.EPOLLOUT
	}
	if i&Exceptional != 0 {
		ev |= unix.EPOLLPRI | unix.EPOLLERR | unix.EPOLLHUP
	}
	return ev
}

// Callback is invoked from Run when fd becomes ready for the events
// present in ready. Callbacks run to completion, single-threaded, before
// the next callback is invoked (spec.md §4.5, §5).
type Callback func(fd int, ready Interest, userCtx any)

type registration struct {
	fd       int
	interest Interest
	callback Callback
	userCtx  any
}

// Reactor is the core's event loop: one epoll instance multiplexing every
// registered source fd.
type Reactor struct {
	epfd  int
	regs  map[int]*registration
	stop  chan struct{}
	doneC chan struct{}
}

// New creates an epoll instance. The caller must call Close when the
// reactor is no longer needed.
func New() (*Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	return &Reactor{
		epfd:  epfd,
		regs:  make(map[int]*registration),
		stop:  make(chan struct{}),
		doneC: make(chan struct{}),
	}, nil
}

// RegisterFD adds fd to the epoll set with the given interest mask,
// calling callback(fd, ready, userCtx) whenever it becomes ready.
func (r *Reactor) RegisterFD(fd int, interest Interest, callback Callback, userCtx any) error {
	reg := &registration{fd: fd, interest: interest, callback: callback, userCtx: userCtx}
	event := unix.EpollEvent{Events: interest.toEpollEvents(), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
		return fmt.Errorf("reactor: epoll_ctl(ADD, %d): %w", fd, err)
	}
	r.regs[fd] = reg
	return nil
}

// UnregisterFD removes fd from the epoll set.
func (r *Reactor) UnregisterFD(fd int) error {
	if _, ok := r.regs[fd]; !ok {
		return nil
	}
	delete(r.regs, fd)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("reactor: epoll_ctl(DEL, %d): %w", fd, err)
	}
	return nil
}

// Run blocks, waking on any registered fd's readiness and invoking its
// callback, until Stop is called or a fatal epoll error occurs.
// Signal-interrupted waits (EINTR) are retried transparently (spec.md
// §4.5).
func (r *Reactor) Run() error {
	defer close(r.doneC)

	for {
		select {
		case <-r.stop:
			return nil
		default:
		}
		if err := r.PollOnce(1000); err != nil {
			return err
		}
	}
}

// PollOnce performs a single epoll_wait/dispatch cycle with the given
// millisecond timeout, invoking ready fds' callbacks before returning.
// Lifecycle uses this directly (instead of Run) when it needs to
// interleave fd readiness with other main-loop events — such as the
// translated signal notifications it drains between polls — on the same
// goroutine, preserving the single-threaded callback guarantee of
// spec.md §5.
func (r *Reactor) PollOnce(timeoutMs int) error {
	events := make([]unix.EpollEvent, 32)
	n, err := unix.EpollWait(r.epfd, events, timeoutMs)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil
		}
		return fmt.Errorf("reactor: epoll_wait: %w", err)
	}

	for i := 0; i < n; i++ {
		fd := int(events[i].Fd)
		reg, ok := r.regs[fd]
		if !ok {
			continue
		}
		ready := fromEpollEvents(events[i].Events)
		reg.callback(fd, ready, reg.userCtx)
	}
	return nil
}

// Stop requests Run to return after its current wait cycle. It does not
// wait for Run to return, so it may be called from inside a callback.
func (r *Reactor) Stop() {
	close(r.stop)
}

// Close releases the underlying epoll fd. Run must have returned first.
func (r *Reactor) Close() error {
	return unix.Close(r.epfd)
}

func fromEpollEvents(ev uint32) Interest {
	var i Interest
	if ev&unix.EPOLLIN != 0 {
		i |= Readable
	}
	if ev&unix.EPOLLOUT != 0 {
		i |= Writable
	}
	if ev&(unix.EPOLLPRI|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		i |= Exceptional
	}
	return i
}
