// Package plugin implements the plugin registry and descriptor model
// (spec components C4/C5's immutable half). It is grounded on the
// teacher's stage abstraction (internal/pipeline/core/interfaces.go and
// factory.go), generalized from a single-family Stage interface into the
// registry-of-descriptors-plus-hooks shape spec.md §3-4.1 describes, with
// the ABI-version gate and duplicate-name-is-fatal asymmetry spec.md §9
// adopts as deliberate policy.
package plugin

import (
	"fmt"

	"github.com/netlogd/netlogd/internal/confschema"
	"github.com/netlogd/netlogd/internal/key"
)

// DataType tags classify a stage by the kind of record it produces or
// consumes. Source stages declare DataSource as their input type; sink
// stages declare DataSink as their output type. Intermediate stages use the Packet/Flow/Sum family (or a
// plugin-defined custom bit) and two adjacent stages may connect whenever
// their bitmasks overlap, letting a filter accept more than one upstream
// shape.
type DataType uint32

const (
	DataSource DataType = 1 << iota
	DataSink
	DataPacket
	DataFlow
	DataSum
	// DataCustomBase is the first bit available to plugins that need a
	// data-type tag this package doesn't predefine.
	DataCustomBase
)

// Compatible reports whether an upstream output type and a downstream
// input type may connect (spec.md invariant 3).
func (d DataType) Compatible(input DataType) bool { return d&input != 0 }

func (d DataType) String() string {
	switch d {
	case DataSource:
		return "SOURCE"
	case DataSink:
		return "SINK"
	case DataPacket:
		return "PACKET"
	case DataFlow:
		return "FLOW"
	case DataSum:
		return "SUM"
	default:
		return fmt.Sprintf("DataType(%#x)", uint32(d))
	}
}

// Hooks are the five synchronous entry points a descriptor provides. All
// of them run on the reactor goroutine and must return promptly (spec.md
// §5). A nil hook means "no-op, succeeds."
type Hooks struct {
	// Configure runs during stack-build Pass 2, tail to head. It may
	// rewrite inst's input table (e.g. a SQL sink deriving input keys
	// from its target table's columns) before key resolution.
	Configure func(inst Instance) error

	// Start runs during stack-build Pass 3, head to tail. It acquires
	// external resources (file descriptors, DB handles).
	Start func(inst Instance) error

	// Stop releases resources acquired by Start. Called in reverse
	// order both on normal shutdown and on build rollback.
	Stop func(inst Instance) error

	// Interpret is invoked by the Dispatcher for every downstream stage
	// during propagation. It must return one of the Result values.
	Interpret func(inst Instance) (Result, error)

	// Signal delivers a translated OS signal number to every instance
	// (spec.md §4.6 shutdown/hangup fan-out).
	Signal func(inst Instance, signum int) error
}

// Result is the tri-state return from Interpret (spec.md §4.4).
type Result int

const (
	ResultOK Result = iota
	ResultStop
	ResultErr
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultStop:
		return "STOP"
	case ResultErr:
		return "ERR"
	default:
		return "STOP" // any unrecognized value is treated as STOP, per spec.md §4.4
	}
}

// Instance is the narrow view of a pluginstance a Hooks function needs: its
// own key tables and a private-state slot, without exposing the owning
// Stack's internals. internal/pluginstance.Instance implements this.
type Instance interface {
	ID() string
	Input() key.Table
	Output() key.Table
	SetInput(key.Table)
	SetOutput(key.Table)
	State() any
	SetState(any)
	Config() *confschema.Schema
}

// Descriptor is the immutable declaration a plugin registers exactly once
// (spec.md §3's "Plugin descriptor").
type Descriptor struct {
	Name    string
	Version string

	InputType  DataType
	OutputType DataType

	Input  key.Table
	Output key.Table

	// ConfigSchema is nil for plugins that take no per-instance
	// configuration.
	ConfigSchema *confschema.Schema

	Hooks Hooks
}

func (d *Descriptor) String() string { return fmt.Sprintf("%s@%s", d.Name, d.Version) }
