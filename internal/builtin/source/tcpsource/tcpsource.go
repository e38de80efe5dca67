// Package tcpsource implements a SOURCE plugin that accepts
// line-delimited JSON network events over TCP, grounded on the
// retrieval pack's networking usage of golang.org/x/net/netutil for
// connection-count limiting. It is the one concrete source the repository
// ships so stacks have something to register with the Reactor.
package tcpsource

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/net/netutil"

	"github.com/netlogd/netlogd/internal/confschema"
	"github.com/netlogd/netlogd/internal/key"
	"github.com/netlogd/netlogd/internal/plugin"
)

const pluginName = "TCP"

// maxConnections bounds the listener the way netutil.LimitListener is
// documented for: a small fixed cap rather than unbounded fan-in from a
// single source stage.
const maxConnections = 64

type event struct {
	N    uint64 `json:"n"`
	Addr string `json:"addr"`
}

type state struct {
	listener net.Listener
	raw      net.Listener // the unwrapped TCP listener, for ListenerFD
	conns    chan event
}

// Descriptor returns a fresh plugin.Descriptor for "TCP". Each call
// returns an independent value since Register stores pointers by name.
func Descriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Name:       pluginName,
		Version:    plugin.CoreABIVersion,
		InputType:  plugin.DataSource,
		OutputType: plugin.DataPacket,
		Output: key.Table{
			{Name: "raw.pkt", Type: key.TypeRawPacket, Flags: key.FlagNeedsFree},
			{Name: "raw.addr", Type: key.TypeString, Flags: key.FlagNeedsFree},
		},
		ConfigSchema: &confschema.Schema{Entries: []*confschema.Entry{
			{Key: "listen", Type: confschema.TypeString, StringDefault: ":5555"},
		}},
		Hooks: plugin.Hooks{
			Start: start,
			Stop:  stop,
		},
	}
}

func start(inst plugin.Instance) error {
	addr := inst.Config().ByKey("listen").StringValue
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("tcpsource: listening on %q: %w", addr, err)
	}
	limited := netutil.LimitListener(ln, maxConnections)

	st := &state{listener: limited, raw: ln, conns: make(chan event, 256)}
	inst.SetState(st)

	go acceptLoop(limited, st.conns)
	return nil
}

func stop(inst plugin.Instance) error {
	st, ok := inst.State().(*state)
	if !ok || st == nil {
		return nil
	}
	return st.listener.Close()
}

func acceptLoop(ln net.Listener, out chan<- event) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go readConn(conn, out)
	}
}

func readConn(conn net.Conn, out chan<- event) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var ev event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		out <- ev
	}
}

// ListenerFD returns the raw file descriptor backing inst's listener, for
// Lifecycle to register with the Reactor (spec.md §4.5's register_fd).
func ListenerFD(inst plugin.Instance) (int, error) {
	st, ok := inst.State().(*state)
	if !ok || st == nil {
		return 0, fmt.Errorf("tcpsource: instance not started")
	}
	// netutil.LimitListener's wrapper does not expose SyscallConn, so the
	// fd is taken from the unwrapped listener kept alongside it.
	sc, ok := st.raw.(syscall.Conn)
	if !ok {
		return 0, fmt.Errorf("tcpsource: listener does not expose a raw fd")
	}
	return fdFromSyscallConn(sc)
}

func fdFromSyscallConn(sc syscall.Conn) (int, error) {
	raw, err := sc.(interface {
		SyscallConn() (syscall.RawConn, error)
	}).SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd int
	if err := raw.Control(func(f uintptr) { fd = int(f) }); err != nil {
		return 0, err
	}
	return fd, nil
}

// Next drains one queued event into a fresh output-key table value,
// called by a Reactor callback after the listener's fd reports readable.
func Next(inst plugin.Instance) (key.Table, bool) {
	st, ok := inst.State().(*state)
	if !ok || st == nil {
		return nil, false
	}
	select {
	case ev := <-st.conns:
		out := inst.Output()
		out[0].Value.Pkt = []byte(fmt.Sprintf(`{"n":%d}`, ev.N))
		out[0].Flags |= key.FlagValid
		out[1].Value.Str = ev.Addr
		out[1].Flags |= key.FlagValid
		inst.SetOutput(out)
		return out, true
	default:
		return nil, false
	}
}
