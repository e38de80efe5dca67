//go:build !linux

package reactor

import "errors"

// ErrUnsupportedPlatform is returned by New on platforms other than
// Linux. The epoll-based implementation is the only one this repository
// ships; a kqueue or IOCP backend would live in its own build-tagged
// file following the same Reactor surface.
var ErrUnsupportedPlatform = errors.New("reactor: epoll backend requires linux")

type Interest uint32

const (
	Readable Interest = 1 << iota
	Writable
	Exceptional
)

type Callback func(fd int, ready Interest, userCtx any)

type Reactor struct{}

func New() (*Reactor, error) { return nil, ErrUnsupportedPlatform }

func (r *Reactor) RegisterFD(fd int, interest Interest, callback Callback, userCtx any) error {
	return ErrUnsupportedPlatform
}

func (r *Reactor) UnregisterFD(fd int) error { return ErrUnsupportedPlatform }

func (r *Reactor) Run() error { return ErrUnsupportedPlatform }

func (r *Reactor) PollOnce(timeoutMs int) error { return ErrUnsupportedPlatform }

func (r *Reactor) Stop() {}

func (r *Reactor) Close() error { return nil }
