// Package pwsniff reimagines original_source/filter/ulogd_filter_PWSNIFF.c:
// a PACKET→PACKET interpreter that scans a raw payload key for plaintext
// POP3/FTP USER/PASS exchanges and emits pwsniff.user/pwsniff.pass output
// keys. The original decodes IP/TCP headers out of a raw packet pointer
// to find the destination port and payload offset; this reimplementation
// keeps the byte-scanning core (_get_next_blank's "scan to next
// whitespace" logic) and receives the already-demultiplexed application
// payload directly, since the core's Key model carries typed values
// rather than a raw struct iphdr pointer.
package pwsniff

import (
	"bytes"

	"github.com/netlogd/netlogd/internal/key"
	"github.com/netlogd/netlogd/internal/plugin"
)

const pluginName = "PWSNIFF"

var userPrefix = []byte("USER ")
var passPrefix = []byte("PASS ")

// Descriptor returns a fresh plugin.Descriptor for "PWSNIFF".
func Descriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Name:       pluginName,
		Version:    plugin.CoreABIVersion,
		InputType:  plugin.DataPacket,
		OutputType: plugin.DataPacket,
		Input: key.Table{
			{Name: "raw.pkt", Type: key.TypeRawPacket},
		},
		Output: key.Table{
			{Name: "pwsniff.user", Type: key.TypeString, Flags: key.FlagNeedsFree},
			{Name: "pwsniff.pass", Type: key.TypeString, Flags: key.FlagNeedsFree},
		},
		Hooks: plugin.Hooks{Interpret: interpret},
	}
}

func interpret(inst plugin.Instance) (plugin.Result, error) {
	in := inst.Input()
	if !in[0].Flags.Has(key.FlagValid) {
		return plugin.ResultStop, nil
	}
	payload := in[0].Value.Pkt

	user, havUser := scanToken(payload, userPrefix)
	pass, havPass := scanToken(payload, passPrefix)

	if !havUser && !havPass {
		return plugin.ResultStop, nil
	}

	out := inst.Output()
	if havUser {
		out[0].Value.Str = user
		out[0].Flags |= key.FlagValid
	}
	if havPass {
		out[1].Value.Str = pass
		out[1].Flags |= key.FlagValid
	}
	inst.SetOutput(out)
	return plugin.ResultOK, nil
}

// scanToken finds prefix in payload and returns the token that follows it
// up to (but not including) the next whitespace, mirroring
// _get_next_blank's "scan forward to the next space/CR/LF" behavior.
func scanToken(payload, prefix []byte) (string, bool) {
	idx := bytes.Index(payload, prefix)
	if idx < 0 {
		return "", false
	}
	start := idx + len(prefix)
	end := start
	for end < len(payload) && payload[end] != ' ' && payload[end] != '\n' && payload[end] != '\r' {
		end++
	}
	if end == start {
		return "", false
	}
	return string(payload[start:end]), true
}
