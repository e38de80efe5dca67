package pwsniff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netlogd/netlogd/internal/key"
	"github.com/netlogd/netlogd/internal/plugin"
	"github.com/netlogd/netlogd/internal/pluginstance"
)

func withPayload(t *testing.T, payload string) *pluginstance.Instance {
	t.Helper()
	inst := pluginstance.Instantiate(Descriptor(), "pw", 0)
	in := inst.Input()
	in[0].Value.Pkt = []byte(payload)
	in[0].Flags |= key.FlagValid
	inst.SetInput(in)
	return inst
}

func TestInterpretExtractsUserAndPass(t *testing.T) {
	inst := withPayload(t, "USER alice\r\nPASS hunter2\r\n")

	res, err := inst.Interpret()
	require.NoError(t, err)
	assert.Equal(t, plugin.ResultOK, res)

	out := inst.Output()
	assert.Equal(t, "alice", out[0].Value.Str)
	assert.Equal(t, "hunter2", out[1].Value.Str)
}

func TestInterpretStopsWithoutCredentials(t *testing.T) {
	inst := withPayload(t, "QUIT\r\n")

	res, err := inst.Interpret()
	require.NoError(t, err)
	assert.Equal(t, plugin.ResultStop, res)
}

func TestInterpretStopsOnInvalidInput(t *testing.T) {
	inst := pluginstance.Instantiate(Descriptor(), "pw", 0)
	res, err := inst.Interpret()
	require.NoError(t, err)
	assert.Equal(t, plugin.ResultStop, res)
}
