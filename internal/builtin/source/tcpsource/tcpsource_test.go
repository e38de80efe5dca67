package tcpsource

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netlogd/netlogd/internal/plugin"
	"github.com/netlogd/netlogd/internal/pluginstance"
)

func newInstance(t *testing.T) *pluginstance.Instance {
	t.Helper()
	d := Descriptor()
	inst := pluginstance.Instantiate(d, "src", 0)
	inst.Config().ByKey("listen").StringValue = "127.0.0.1:0"
	require.NoError(t, inst.Start())
	t.Cleanup(func() { _ = inst.Stop() })
	return inst
}

func listenerAddr(t *testing.T, inst *pluginstance.Instance) string {
	t.Helper()
	st, ok := inst.State().(*state)
	require.True(t, ok)
	return st.listener.Addr().String()
}

func TestDescriptorDeclaresSourceType(t *testing.T) {
	d := Descriptor()
	assert.Equal(t, plugin.DataSource, d.InputType)
	assert.Equal(t, "TCP", d.Name)
}

func TestStartListensAndAcceptsConnections(t *testing.T) {
	inst := newInstance(t)

	fd, err := ListenerFD(inst)
	require.NoError(t, err)
	assert.Greater(t, fd, 0)
}

func TestNextDrainsQueuedEventAfterWrite(t *testing.T) {
	inst := newInstance(t)
	addr := listenerAddr(t, inst)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	payload, _ := json.Marshal(event{N: 42, Addr: "test"})
	_, err = conn.Write(append(payload, '\n'))
	require.NoError(t, err)

	var gotEvent bool
	require.Eventually(t, func() bool {
		_, ok := Next(inst)
		if ok {
			gotEvent = true
		}
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, gotEvent)
}
