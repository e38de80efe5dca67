// Package filesink implements a SINK plugin that writes resolved input
// keys as delimited text, the Go equivalent of ulogd's flat-file outputs
// (e.g. ulogd_output_OPRINT.c's "print every key to a stream" model).
package filesink

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/netlogd/netlogd/internal/confschema"
	"github.com/netlogd/netlogd/internal/key"
	"github.com/netlogd/netlogd/internal/plugin"
)

const pluginName = "FILE"

type state struct {
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
}

// Descriptor returns a fresh plugin.Descriptor for "FILE".
func Descriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Name:       pluginName,
		Version:    plugin.CoreABIVersion,
		InputType:  plugin.DataPacket | plugin.DataFlow | plugin.DataSum,
		OutputType: plugin.DataSink,
		ConfigSchema: &confschema.Schema{Entries: []*confschema.Entry{
			{Key: "file", Type: confschema.TypeString, StringDefault: "/var/log/netlogd-events.log"},
			{Key: "sync", Type: confschema.TypeInt, IntDefault: 0},
		}},
		Input: key.Table{
			{Name: "pwsniff.user", Type: key.TypeString, Flags: key.FlagOptional},
			{Name: "pwsniff.pass", Type: key.TypeString, Flags: key.FlagOptional},
			{Name: "raw.addr", Type: key.TypeString, Flags: key.FlagOptional},
		},
		Hooks: plugin.Hooks{
			Start:     start,
			Stop:      stop,
			Interpret: interpret,
		},
	}
}

func start(inst plugin.Instance) error {
	path := inst.Config().ByKey("file").StringValue
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("filesink: opening %q: %w", path, err)
	}
	inst.SetState(&state{file: f, w: bufio.NewWriter(f)})
	return nil
}

func stop(inst plugin.Instance) error {
	st, ok := inst.State().(*state)
	if !ok || st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.w.Flush(); err != nil {
		return err
	}
	return st.file.Close()
}

func interpret(inst plugin.Instance) (plugin.Result, error) {
	st, ok := inst.State().(*state)
	if !ok || st == nil {
		return plugin.ResultErr, fmt.Errorf("filesink: instance not started")
	}

	var fields []string
	for _, k := range inst.Input() {
		if !k.Flags.Has(key.FlagValid) {
			continue
		}
		fields = append(fields, k.Name+"="+k.Value.Str)
	}
	if len(fields) == 0 {
		return plugin.ResultStop, nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if _, err := st.w.WriteString(strings.Join(fields, " ") + "\n"); err != nil {
		return plugin.ResultErr, err
	}
	if inst.Config().ByKey("sync").IntValue != 0 {
		if err := st.w.Flush(); err != nil {
			return plugin.ResultErr, err
		}
	}
	return plugin.ResultOK, nil
}
