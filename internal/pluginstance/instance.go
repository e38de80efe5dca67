// Package pluginstance implements the per-placement object the stack
// builder creates for each `id:plugin` token (spec component C5, §4.2).
// It is grounded on core.Artifact/core.State pairing
// (internal/pipeline/core/artifact.go), generalized so that what was a
// single stage's scratch state becomes an independently-owned
// (config, input-table, output-table, private-state) bundle per spec.md's
// "every pluginstance owns independent config and key tables" rule.
package pluginstance

import (
	"github.com/netlogd/netlogd/internal/confschema"
	"github.com/netlogd/netlogd/internal/key"
	"github.com/netlogd/netlogd/internal/plugin"
)

// MaxIDLength mirrors the original's short-identifier limit for instance
// ids (spec.md §3).
const MaxIDLength = 32

// Instance is a live placement of a plugin.Descriptor inside a Stack. It
// satisfies plugin.Instance so a descriptor's Hooks can operate on it
// without importing the stack package (avoiding an import cycle between
// pluginstance and stack).
type Instance struct {
	id         string
	descriptor *plugin.Descriptor
	stackIndex int // this instance's position in its owning stack

	config *confschema.Schema
	input  key.Table
	output key.Table
	state  any
}

// Instantiate performs spec.md §4.2's pluginstance construction: deep
// copies of the descriptor's config schema and key templates, zeroed
// private state, descriptor and position recorded. The returned Instance
// is not yet configured and not yet started.
func Instantiate(descriptor *plugin.Descriptor, id string, stackIndex int) *Instance {
	if len(id) > MaxIDLength {
		id = id[:MaxIDLength]
	}

	inst := &Instance{
		id:         id,
		descriptor: descriptor,
		stackIndex: stackIndex,
		input:      descriptor.Input.Clone(),
		output:     descriptor.Output.Clone(),
	}
	if descriptor.ConfigSchema != nil {
		inst.config = descriptor.ConfigSchema.Clone()
	}
	return inst
}

func (i *Instance) ID() string                      { return i.id }
func (i *Instance) Descriptor() *plugin.Descriptor { return i.descriptor }
func (i *Instance) StackIndex() int                 { return i.stackIndex }

func (i *Instance) Input() key.Table     { return i.input }
func (i *Instance) Output() key.Table    { return i.output }
func (i *Instance) SetInput(t key.Table)  { i.input = t }
func (i *Instance) SetOutput(t key.Table) { i.output = t }

func (i *Instance) State() any     { return i.state }
func (i *Instance) SetState(s any) { i.state = s }

func (i *Instance) Config() *confschema.Schema { return i.config }

// Configure invokes the descriptor's Configure hook, if any.
func (i *Instance) Configure() error {
	if i.descriptor.Hooks.Configure == nil {
		return nil
	}
	return i.descriptor.Hooks.Configure(i)
}

// Start invokes the descriptor's Start hook, if any.
func (i *Instance) Start() error {
	if i.descriptor.Hooks.Start == nil {
		return nil
	}
	return i.descriptor.Hooks.Start(i)
}

// Stop invokes the descriptor's Stop hook, if any.
func (i *Instance) Stop() error {
	if i.descriptor.Hooks.Stop == nil {
		return nil
	}
	return i.descriptor.Hooks.Stop(i)
}

// Interpret invokes the descriptor's Interpret hook. A plugin with no
// Interpret hook (a pure source) always succeeds with ResultOK.
func (i *Instance) Interpret() (plugin.Result, error) {
	if i.descriptor.Hooks.Interpret == nil {
		return plugin.ResultOK, nil
	}
	return i.descriptor.Hooks.Interpret(i)
}

// Signal invokes the descriptor's Signal hook, if any.
func (i *Instance) Signal(signum int) error {
	if i.descriptor.Hooks.Signal == nil {
		return nil
	}
	return i.descriptor.Hooks.Signal(i, signum)
}
