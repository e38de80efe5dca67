package pluginstance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netlogd/netlogd/internal/confschema"
	"github.com/netlogd/netlogd/internal/key"
	"github.com/netlogd/netlogd/internal/plugin"
)

func descriptorWithConfig() *plugin.Descriptor {
	return &plugin.Descriptor{
		Name:    "SINK",
		Version: plugin.CoreABIVersion,
		Input:   key.Table{{Name: "n", Type: key.TypeU32}},
		ConfigSchema: &confschema.Schema{Entries: []*confschema.Entry{
			{Key: "table", Type: confschema.TypeString, StringDefault: "events"},
		}},
	}
}

func TestInstantiateClonesConfigAndKeys(t *testing.T) {
	d := descriptorWithConfig()
	a := Instantiate(d, "s1", 0)
	b := Instantiate(d, "s2", 1)

	a.Config().ByKey("table").StringValue = "a_events"
	assert.Equal(t, "events", b.Config().ByKey("table").StringValue)

	a.Input()[0].Value.U = 7
	assert.Equal(t, uint64(0), b.Input()[0].Value.U)
}

func TestInstantiateTruncatesLongID(t *testing.T) {
	longID := ""
	for i := 0; i < MaxIDLength+10; i++ {
		longID += "x"
	}
	inst := Instantiate(descriptorWithConfig(), longID, 0)
	assert.Len(t, inst.ID(), MaxIDLength)
}

func TestHooksDelegateToDescriptor(t *testing.T) {
	started := false
	d := &plugin.Descriptor{
		Name:    "SRC",
		Version: plugin.CoreABIVersion,
		Hooks: plugin.Hooks{
			Start: func(inst plugin.Instance) error { started = true; return nil },
			Interpret: func(inst plugin.Instance) (plugin.Result, error) {
				return plugin.ResultStop, nil
			},
		},
	}
	inst := Instantiate(d, "a", 0)
	require.NoError(t, inst.Start())
	assert.True(t, started)

	res, err := inst.Interpret()
	require.NoError(t, err)
	assert.Equal(t, plugin.ResultStop, res)
}

func TestInterpretDefaultsToOKWithoutHook(t *testing.T) {
	d := &plugin.Descriptor{Name: "PASSTHROUGH", Version: plugin.CoreABIVersion}
	inst := Instantiate(d, "p", 0)
	res, err := inst.Interpret()
	require.NoError(t, err)
	assert.Equal(t, plugin.ResultOK, res)
}
