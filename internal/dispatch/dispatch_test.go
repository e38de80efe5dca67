package dispatch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netlogd/netlogd/internal/key"
	"github.com/netlogd/netlogd/internal/logging"
	"github.com/netlogd/netlogd/internal/plugin"
	"github.com/netlogd/netlogd/internal/stack"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	lg, err := logging.NewFileLogger(filepath.Join(t.TempDir(), "d.log"))
	require.NoError(t, err)
	t.Cleanup(func() { lg.Close() })
	return lg
}

func buildThreeStage(t *testing.T, b, c plugin.Hooks) *stack.Stack {
	t.Helper()
	r := plugin.NewRegistry()
	require.NoError(t, r.Register(&plugin.Descriptor{
		Name: "SRC", Version: plugin.CoreABIVersion, InputType: plugin.DataSource, OutputType: plugin.DataPacket,
	}))
	require.NoError(t, r.Register(&plugin.Descriptor{
		Name: "MID", Version: plugin.CoreABIVersion, InputType: plugin.DataPacket, OutputType: plugin.DataPacket,
		Hooks: b,
	}))
	require.NoError(t, r.Register(&plugin.Descriptor{
		Name: "SINK", Version: plugin.CoreABIVersion, InputType: plugin.DataPacket, OutputType: plugin.DataSink,
		Hooks: c,
	}))
	s, err := stack.Build(r, "a:SRC,b:MID,c:SINK")
	require.NoError(t, err)
	return s
}

func TestPropagateSingleTouchPerStage(t *testing.T) {
	midCalls, sinkCalls := 0, 0
	s := buildThreeStage(t,
		plugin.Hooks{Interpret: func(plugin.Instance) (plugin.Result, error) { midCalls++; return plugin.ResultOK, nil }},
		plugin.Hooks{Interpret: func(plugin.Instance) (plugin.Result, error) { sinkCalls++; return plugin.ResultOK, nil }},
	)

	d := New(testLogger(t), nil)
	d.Propagate(s, 0)

	assert.Equal(t, 1, midCalls)
	assert.Equal(t, 1, sinkCalls)
}

func TestPropagateStopHaltsDownstream(t *testing.T) {
	sinkCalls := 0
	s := buildThreeStage(t,
		plugin.Hooks{Interpret: func(plugin.Instance) (plugin.Result, error) { return plugin.ResultStop, nil }},
		plugin.Hooks{Interpret: func(plugin.Instance) (plugin.Result, error) { sinkCalls++; return plugin.ResultOK, nil }},
	)

	d := New(testLogger(t), nil)
	d.Propagate(s, 0)

	assert.Equal(t, 0, sinkCalls)
}

func TestPropagateErrHaltsDownstream(t *testing.T) {
	sinkCalls := 0
	s := buildThreeStage(t,
		plugin.Hooks{Interpret: func(plugin.Instance) (plugin.Result, error) { return plugin.ResultErr, nil }},
		plugin.Hooks{Interpret: func(plugin.Instance) (plugin.Result, error) { sinkCalls++; return plugin.ResultOK, nil }},
	)

	d := New(testLogger(t), nil)
	d.Propagate(s, 0)

	assert.Equal(t, 0, sinkCalls)
}

func TestCleanResultsReleasesNeedsFreeOutputs(t *testing.T) {
	r := plugin.NewRegistry()
	require.NoError(t, r.Register(&plugin.Descriptor{
		Name: "SRC", Version: plugin.CoreABIVersion, InputType: plugin.DataSource, OutputType: plugin.DataPacket,
		Output: key.Table{{Name: "buf", Type: key.TypeBuffer, Flags: key.FlagNeedsFree | key.FlagValid, Value: key.Value{Buf: []byte{1, 2}}}},
	}))
	require.NoError(t, r.Register(&plugin.Descriptor{
		Name: "SINK", Version: plugin.CoreABIVersion, InputType: plugin.DataPacket, OutputType: plugin.DataSink,
	}))
	s, err := stack.Build(r, "a:SRC,b:SINK")
	require.NoError(t, err)

	d := New(testLogger(t), nil)
	d.Propagate(s, 0)

	out := s.At(0).Output()
	assert.Nil(t, out[0].Value.Buf)
	assert.False(t, out[0].Flags.Has(key.FlagValid))
}
